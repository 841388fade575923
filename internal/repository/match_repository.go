package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"idleduelist/internal/models"
)

// RatingUpdate changement de rating à appliquer à un personnage
type RatingUpdate struct {
	CharacterID uuid.UUID
	NewRating   int
	Won         bool
}

// MatchRepositoryInterface définit les méthodes du repository de matchs
type MatchRepositoryInterface interface {
	// FinishMatch applique les deux mises à jour de rating, insère
	// l'enregistrement du match et incrémente les stats journalières
	// dans une seule transaction.
	FinishMatch(ctx context.Context, record *models.MatchRecord, updates []RatingUpdate) error
	Append(ctx context.Context, record *models.MatchRecord) error
	ListByCharacter(ctx context.Context, characterID uuid.UUID, limit int) ([]*models.MatchRecord, error)
	GetDailyStats(ctx context.Context, characterID uuid.UUID, day string) (*models.DailyStats, error)
	AddDailyStats(ctx context.Context, delta *models.DailyStats) error
}

// MatchRepository implémente l'interface MatchRepositoryInterface
type MatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository crée une nouvelle instance du repository de matchs
func NewMatchRepository(db *sqlx.DB) MatchRepositoryInterface {
	return &MatchRepository{db: db}
}

type matchRow struct {
	ID          string    `db:"id"`
	CombatID    string    `db:"combat_id"`
	Mode        string    `db:"mode"`
	WinnerID    *string   `db:"winner_id"`
	LoserID     *string   `db:"loser_id"`
	WinnerName  string    `db:"winner_name"`
	LoserName   string    `db:"loser_name"`
	WinnerDelta int       `db:"winner_delta"`
	LoserDelta  int       `db:"loser_delta"`
	Turns       int       `db:"turns"`
	DurationMS  int64     `db:"duration_ms"`
	Reason      string    `db:"reason"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row *matchRow) toModel() *models.MatchRecord {
	rec := &models.MatchRecord{
		ID:          uuid.MustParse(row.ID),
		CombatID:    uuid.MustParse(row.CombatID),
		Mode:        models.CombatMode(row.Mode),
		WinnerName:  row.WinnerName,
		LoserName:   row.LoserName,
		WinnerDelta: row.WinnerDelta,
		LoserDelta:  row.LoserDelta,
		Turns:       row.Turns,
		Duration:    time.Duration(row.DurationMS) * time.Millisecond,
		Reason:      models.TerminationReason(row.Reason),
		CreatedAt:   row.CreatedAt,
	}
	if row.WinnerID != nil {
		id := uuid.MustParse(*row.WinnerID)
		rec.WinnerID = &id
	}
	if row.LoserID != nil {
		id := uuid.MustParse(*row.LoserID)
		rec.LoserID = &id
	}
	return rec
}

const insertMatchQuery = `
	INSERT INTO match_history (
		id, combat_id, mode, winner_id, loser_id, winner_name, loser_name,
		winner_delta, loser_delta, turns, duration_ms, reason, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func matchArgs(record *models.MatchRecord) []interface{} {
	var winnerID, loserID *string
	if record.WinnerID != nil {
		s := record.WinnerID.String()
		winnerID = &s
	}
	if record.LoserID != nil {
		s := record.LoserID.String()
		loserID = &s
	}
	return []interface{}{
		record.ID.String(), record.CombatID.String(), string(record.Mode),
		winnerID, loserID, record.WinnerName, record.LoserName,
		record.WinnerDelta, record.LoserDelta, record.Turns,
		record.Duration.Milliseconds(), string(record.Reason), record.CreatedAt,
	}
}

// FinishMatch termine un match PvP : les deux ratings, l'historique et les
// stats journalières changent ensemble ou pas du tout (I5).
func (r *MatchRepository) FinishMatch(ctx context.Context, record *models.MatchRecord, updates []RatingUpdate) error {
	day := record.CreatedAt.UTC().Format("2006-01-02")

	err := withWriteRetry(ctx, "match.finish", func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		ratingQuery := r.db.Rebind(`
			UPDATE characters SET rating = ?, wins = wins + ?, losses = losses + ?, updated_at = ?
			WHERE id = ?`)
		now := time.Now().UTC()
		for _, u := range updates {
			winInc, lossInc := 0, 1
			if u.Won {
				winInc, lossInc = 1, 0
			}
			if _, err := tx.ExecContext(ctx, ratingQuery, u.NewRating, winInc, lossInc, now, u.CharacterID.String()); err != nil {
				return err
			}
			if err := upsertDailyStats(ctx, tx, r.db, &models.DailyStats{
				CharacterID: u.CharacterID,
				Day:         day,
				Wins:        winInc,
				Losses:      lossInc,
			}); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, r.db.Rebind(insertMatchQuery), matchArgs(record)...); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return wrapDBError("failed to finish match", err)
	}
	return nil
}

// Append insère un enregistrement de match sans toucher aux ratings (PvE)
func (r *MatchRepository) Append(ctx context.Context, record *models.MatchRecord) error {
	err := withWriteRetry(ctx, "match.append", func() error {
		_, err := r.db.ExecContext(ctx, r.db.Rebind(insertMatchQuery), matchArgs(record)...)
		return err
	})
	if err != nil {
		return wrapDBError("failed to append match record", err)
	}
	return nil
}

// ListByCharacter retourne l'historique des matchs d'un personnage
func (r *MatchRepository) ListByCharacter(ctx context.Context, characterID uuid.UUID, limit int) ([]*models.MatchRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows []matchRow
	query := r.db.Rebind(`
		SELECT * FROM match_history
		WHERE winner_id = ? OR loser_id = ?
		ORDER BY created_at DESC LIMIT ?`)

	id := characterID.String()
	if err := r.db.SelectContext(ctx, &rows, query, id, id, limit); err != nil {
		return nil, wrapDBError("failed to list match history", err)
	}

	records := make([]*models.MatchRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toModel())
	}
	return records, nil
}

// GetDailyStats retourne l'agrégat journalier d'un personnage.
// Un jour sans activité retourne un agrégat à zéro, pas une erreur.
func (r *MatchRepository) GetDailyStats(ctx context.Context, characterID uuid.UUID, day string) (*models.DailyStats, error) {
	var stats models.DailyStats
	query := r.db.Rebind(`SELECT * FROM daily_stats WHERE character_id = ? AND day = ?`)

	err := r.db.GetContext(ctx, &stats, query, characterID.String(), day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.DailyStats{CharacterID: characterID, Day: day}, nil
		}
		return nil, wrapDBError("failed to get daily stats", err)
	}
	return &stats, nil
}

// AddDailyStats incrémente l'agrégat journalier d'un personnage
func (r *MatchRepository) AddDailyStats(ctx context.Context, delta *models.DailyStats) error {
	err := withWriteRetry(ctx, "stats.add", func() error {
		return upsertDailyStats(ctx, nil, r.db, delta)
	})
	if err != nil {
		return wrapDBError("failed to update daily stats", err)
	}
	return nil
}

// upsertDailyStats incrémente une ligne existante ou la crée.
// ON CONFLICT est supporté à la fois par postgres et sqlite.
func upsertDailyStats(ctx context.Context, tx *sqlx.Tx, db *sqlx.DB, delta *models.DailyStats) error {
	query := db.Rebind(`
		INSERT INTO daily_stats (character_id, day, wins, losses, damage_dealt, gold_earned, xp_earned)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (character_id, day) DO UPDATE SET
			wins = daily_stats.wins + excluded.wins,
			losses = daily_stats.losses + excluded.losses,
			damage_dealt = daily_stats.damage_dealt + excluded.damage_dealt,
			gold_earned = daily_stats.gold_earned + excluded.gold_earned,
			xp_earned = daily_stats.xp_earned + excluded.xp_earned`)

	args := []interface{}{
		delta.CharacterID.String(), delta.Day,
		delta.Wins, delta.Losses, delta.DamageDealt, delta.GoldEarned, delta.XPEarned,
	}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = db.ExecContext(ctx, query, args...)
	}
	return err
}
