package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/models"
)

// CharacterRepositoryInterface définit les méthodes du repository personnage
type CharacterRepositoryInterface interface {
	Create(ctx context.Context, c *models.Character) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Character, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Character, error)
	Update(ctx context.Context, c *models.Character) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Équipement
	CreateEquipment(ctx context.Context, e *models.Equipment) error
	ListEquipment(ctx context.Context, characterID uuid.UUID) ([]*models.Equipment, error)
	GetEquipment(ctx context.Context, itemID uuid.UUID) (*models.Equipment, error)
	MountEquipment(ctx context.Context, characterID, itemID uuid.UUID, slot models.EquipmentSlot) error
	UnmountSlot(ctx context.Context, characterID uuid.UUID, slot models.EquipmentSlot) error

	// Classement
	TopByRating(ctx context.Context, limit int) ([]*models.RankingEntry, error)
}

// CharacterRepository implémente l'interface CharacterRepositoryInterface
type CharacterRepository struct {
	db *sqlx.DB
}

// NewCharacterRepository crée une nouvelle instance du repository personnage
func NewCharacterRepository(db *sqlx.DB) CharacterRepositoryInterface {
	return &CharacterRepository{db: db}
}

// characterRow aplatit le vecteur de stats sur les colonnes de la table
type characterRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Name          string    `db:"name"`
	Faction       string    `db:"faction"`
	Level         int       `db:"level"`
	XP            int64     `db:"xp"`
	Gold          int64     `db:"gold"`
	Might         int       `db:"might"`
	Finesse       int       `db:"finesse"`
	Fortitude     int       `db:"fortitude"`
	Arcana        int       `db:"arcana"`
	Insight       int       `db:"insight"`
	Presence      int       `db:"presence"`
	UnspentPoints int       `db:"unspent_points"`
	Rating        int       `db:"rating"`
	Wins          int       `db:"wins"`
	Losses        int       `db:"losses"`
	CurrentHP     int       `db:"current_hp"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (row *characterRow) toModel() *models.Character {
	return &models.Character{
		ID:      uuid.MustParse(row.ID),
		UserID:  uuid.MustParse(row.UserID),
		Name:    row.Name,
		Faction: models.Faction(row.Faction),
		Level:   row.Level,
		XP:      row.XP,
		Gold:    row.Gold,
		BaseStats: models.StatVector{
			Might: row.Might, Finesse: row.Finesse, Fortitude: row.Fortitude,
			Arcana: row.Arcana, Insight: row.Insight, Presence: row.Presence,
		},
		UnspentPoints: row.UnspentPoints,
		Rating:        row.Rating,
		Wins:          row.Wins,
		Losses:        row.Losses,
		CurrentHP:     row.CurrentHP,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

// Create insère un nouveau personnage
func (r *CharacterRepository) Create(ctx context.Context, c *models.Character) error {
	query := r.db.Rebind(`
		INSERT INTO characters (
			id, user_id, name, faction, level, xp, gold,
			might, finesse, fortitude, arcana, insight, presence,
			unspent_points, rating, wins, losses, current_hp,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	err := withWriteRetry(ctx, "character.create", func() error {
		_, err := r.db.ExecContext(ctx, query,
			c.ID.String(), c.UserID.String(), c.Name, string(c.Faction),
			c.Level, c.XP, c.Gold,
			c.BaseStats.Might, c.BaseStats.Finesse, c.BaseStats.Fortitude,
			c.BaseStats.Arcana, c.BaseStats.Insight, c.BaseStats.Presence,
			c.UnspentPoints, c.Rating, c.Wins, c.Losses, c.CurrentHP,
			c.CreatedAt, c.UpdatedAt)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a character named %q already exists for this user", c.Name)
		}
		return wrapDBError("failed to create character", err)
	}
	return nil
}

// GetByID récupère un personnage par son identifiant
func (r *CharacterRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Character, error) {
	var row characterRow
	query := r.db.Rebind(`SELECT * FROM characters WHERE id = ?`)

	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("character %s not found", id)
		}
		return nil, wrapDBError("failed to get character", err)
	}
	return row.toModel(), nil
}

// ListByUser liste les personnages d'un utilisateur
func (r *CharacterRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Character, error) {
	var rows []characterRow
	query := r.db.Rebind(`SELECT * FROM characters WHERE user_id = ? ORDER BY created_at`)

	if err := r.db.SelectContext(ctx, &rows, query, userID.String()); err != nil {
		return nil, wrapDBError("failed to list characters", err)
	}

	characters := make([]*models.Character, 0, len(rows))
	for i := range rows {
		characters = append(characters, rows[i].toModel())
	}
	return characters, nil
}

// Update persiste l'état complet d'un personnage
func (r *CharacterRepository) Update(ctx context.Context, c *models.Character) error {
	c.UpdatedAt = time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE characters SET
			name = ?, level = ?, xp = ?, gold = ?,
			might = ?, finesse = ?, fortitude = ?, arcana = ?, insight = ?, presence = ?,
			unspent_points = ?, rating = ?, wins = ?, losses = ?, current_hp = ?,
			updated_at = ?
		WHERE id = ?`)

	err := withWriteRetry(ctx, "character.update", func() error {
		res, err := r.db.ExecContext(ctx, query,
			c.Name, c.Level, c.XP, c.Gold,
			c.BaseStats.Might, c.BaseStats.Finesse, c.BaseStats.Fortitude,
			c.BaseStats.Arcana, c.BaseStats.Insight, c.BaseStats.Presence,
			c.UnspentPoints, c.Rating, c.Wins, c.Losses, c.CurrentHP,
			c.UpdatedAt, c.ID.String())
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err == nil && affected == 0 {
			return sql.ErrNoRows
		}
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("character %s not found", c.ID)
		}
		return wrapDBError("failed to update character", err)
	}
	return nil
}

// Delete supprime un personnage et son équipement.
// L'historique des matchs est conservé (I5).
func (r *CharacterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withWriteRetry(ctx, "character.delete", func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM equipment WHERE character_id = ?`), id.String()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM characters WHERE id = ?`), id.String()); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// equipmentRow aplatit les modificateurs sur les colonnes de la table
type equipmentRow struct {
	ID          string    `db:"id"`
	CharacterID string    `db:"character_id"`
	Name        string    `db:"name"`
	Type        string    `db:"type"`
	Rarity      string    `db:"rarity"`
	ItemLevel   int       `db:"item_level"`
	Might       int       `db:"might"`
	Finesse     int       `db:"finesse"`
	Fortitude   int       `db:"fortitude"`
	Arcana      int       `db:"arcana"`
	Insight     int       `db:"insight"`
	Presence    int       `db:"presence"`
	MountedSlot *string   `db:"mounted_slot"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row *equipmentRow) toModel() *models.Equipment {
	e := &models.Equipment{
		ID:          uuid.MustParse(row.ID),
		CharacterID: uuid.MustParse(row.CharacterID),
		Name:        row.Name,
		Type:        models.EquipmentType(row.Type),
		Rarity:      models.Rarity(row.Rarity),
		ItemLevel:   row.ItemLevel,
		Modifiers: models.StatVector{
			Might: row.Might, Finesse: row.Finesse, Fortitude: row.Fortitude,
			Arcana: row.Arcana, Insight: row.Insight, Presence: row.Presence,
		},
		CreatedAt: row.CreatedAt,
	}
	if row.MountedSlot != nil {
		slot := models.EquipmentSlot(*row.MountedSlot)
		e.MountedSlot = &slot
	}
	return e
}

// CreateEquipment insère un objet dans l'inventaire d'un personnage
func (r *CharacterRepository) CreateEquipment(ctx context.Context, e *models.Equipment) error {
	query := r.db.Rebind(`
		INSERT INTO equipment (
			id, character_id, name, type, rarity, item_level,
			might, finesse, fortitude, arcana, insight, presence,
			mounted_slot, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	var mountedSlot *string
	if e.MountedSlot != nil {
		s := string(*e.MountedSlot)
		mountedSlot = &s
	}

	err := withWriteRetry(ctx, "equipment.create", func() error {
		_, err := r.db.ExecContext(ctx, query,
			e.ID.String(), e.CharacterID.String(), e.Name, string(e.Type),
			string(e.Rarity), e.ItemLevel,
			e.Modifiers.Might, e.Modifiers.Finesse, e.Modifiers.Fortitude,
			e.Modifiers.Arcana, e.Modifiers.Insight, e.Modifiers.Presence,
			mountedSlot, e.CreatedAt)
		return err
	})
	if err != nil {
		return wrapDBError("failed to create equipment", err)
	}
	return nil
}

// ListEquipment liste tout l'équipement d'un personnage (monté + inventaire)
func (r *CharacterRepository) ListEquipment(ctx context.Context, characterID uuid.UUID) ([]*models.Equipment, error) {
	var rows []equipmentRow
	query := r.db.Rebind(`SELECT * FROM equipment WHERE character_id = ? ORDER BY created_at`)

	if err := r.db.SelectContext(ctx, &rows, query, characterID.String()); err != nil {
		return nil, wrapDBError("failed to list equipment", err)
	}

	items := make([]*models.Equipment, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toModel())
	}
	return items, nil
}

// GetEquipment récupère un objet par son identifiant
func (r *CharacterRepository) GetEquipment(ctx context.Context, itemID uuid.UUID) (*models.Equipment, error) {
	var row equipmentRow
	query := r.db.Rebind(`SELECT * FROM equipment WHERE id = ?`)

	if err := r.db.GetContext(ctx, &row, query, itemID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("item %s not found", itemID)
		}
		return nil, wrapDBError("failed to get equipment", err)
	}
	return row.toModel(), nil
}

// MountEquipment monte un objet dans un emplacement. L'objet qui occupait
// l'emplacement retourne dans l'inventaire dans la même transaction (I6).
func (r *CharacterRepository) MountEquipment(ctx context.Context, characterID, itemID uuid.UUID, slot models.EquipmentSlot) error {
	return withWriteRetry(ctx, "equipment.mount", func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		unmount := r.db.Rebind(`UPDATE equipment SET mounted_slot = NULL WHERE character_id = ? AND mounted_slot = ?`)
		if _, err := tx.ExecContext(ctx, unmount, characterID.String(), string(slot)); err != nil {
			return err
		}

		mount := r.db.Rebind(`UPDATE equipment SET mounted_slot = ? WHERE id = ? AND character_id = ?`)
		res, err := tx.ExecContext(ctx, mount, string(slot), itemID.String(), characterID.String())
		if err != nil {
			return err
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return sql.ErrNoRows
		}

		return tx.Commit()
	})
}

// UnmountSlot renvoie l'objet monté d'un emplacement vers l'inventaire
func (r *CharacterRepository) UnmountSlot(ctx context.Context, characterID uuid.UUID, slot models.EquipmentSlot) error {
	query := r.db.Rebind(`UPDATE equipment SET mounted_slot = NULL WHERE character_id = ? AND mounted_slot = ?`)

	return withWriteRetry(ctx, "equipment.unmount", func() error {
		_, err := r.db.ExecContext(ctx, query, characterID.String(), string(slot))
		return err
	})
}

// TopByRating retourne le classement PvP
func (r *CharacterRepository) TopByRating(ctx context.Context, limit int) ([]*models.RankingEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	type rankingRow struct {
		ID      string `db:"id"`
		Name    string `db:"name"`
		Faction string `db:"faction"`
		Level   int    `db:"level"`
		Rating  int    `db:"rating"`
		Wins    int    `db:"wins"`
		Losses  int    `db:"losses"`
	}

	var rows []rankingRow
	query := r.db.Rebind(`
		SELECT id, name, faction, level, rating, wins, losses
		FROM characters ORDER BY rating DESC, wins DESC LIMIT ?`)

	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, wrapDBError("failed to get rankings", err)
	}

	entries := make([]*models.RankingEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, &models.RankingEntry{
			Rank:        i + 1,
			CharacterID: uuid.MustParse(row.ID),
			Name:        row.Name,
			Faction:     models.Faction(row.Faction),
			Level:       row.Level,
			Rating:      row.Rating,
			Wins:        row.Wins,
			Losses:      row.Losses,
		})
	}
	return entries, nil
}
