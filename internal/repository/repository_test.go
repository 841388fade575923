package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestUserRepository_Create_DuplicateUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_username_key"`))

	_, err := repo.Create(context.Background(), "alice", "x", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict))
}

func TestUserRepository_GetByUsername_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE username").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByUsername(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
}

func TestCharacterRepository_Create_DuplicateNameForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCharacterRepository(db)

	mock.ExpectExec("INSERT INTO characters").
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "idx_characters_user_name"`))

	c := &models.Character{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Name:      "Soraka",
		Faction:   models.FactionOrder,
		Level:     1,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	err := repo.Create(context.Background(), c)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict))
	assert.Contains(t, err.Error(), "Soraka")
}

func TestCharacterRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCharacterRepository(db)

	id := uuid.New()
	userID := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "name", "faction", "level", "xp", "gold",
		"might", "finesse", "fortitude", "arcana", "insight", "presence",
		"unspent_points", "rating", "wins", "losses", "current_hp",
		"created_at", "updated_at",
	}).AddRow(
		id.String(), userID.String(), "Soraka", "order", 5, int64(300), int64(120),
		8, 5, 6, 10, 7, 5,
		2, 1000, 3, 1, 85,
		now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM characters WHERE id").
		WithArgs(id.String()).
		WillReturnRows(rows)

	c, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, models.FactionOrder, c.Faction)
	assert.Equal(t, 10, c.BaseStats.Arcana)
	assert.Equal(t, 2, c.UnspentPoints)
}

func TestCharacterRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCharacterRepository(db)

	mock.ExpectExec("UPDATE characters SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	c := &models.Character{ID: uuid.New(), UserID: uuid.New(), Name: "gone"}
	err := repo.Update(context.Background(), c)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
}

func TestCharacterRepository_MountEquipment_SwapsInOneTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCharacterRepository(db)

	characterID := uuid.New()
	itemID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE equipment SET mounted_slot = NULL").
		WithArgs(characterID.String(), "weapon").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE equipment SET mounted_slot = (.+) WHERE id").
		WithArgs("weapon", itemID.String(), characterID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.MountEquipment(context.Background(), characterID, itemID, models.SlotWeapon)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepository_FinishMatch_SingleTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)

	winnerID := uuid.New()
	loserID := uuid.New()
	record := &models.MatchRecord{
		ID:          uuid.New(),
		CombatID:    uuid.New(),
		Mode:        models.ModePvP,
		WinnerID:    &winnerID,
		LoserID:     &loserID,
		WinnerName:  "alice",
		LoserName:   "bob",
		WinnerDelta: 16,
		LoserDelta:  -16,
		Turns:       34,
		Duration:    3 * time.Second,
		Reason:      models.ReasonKill,
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE characters SET rating").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO daily_stats").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE characters SET rating").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO daily_stats").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO match_history").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.FinishMatch(context.Background(), record, []RatingUpdate{
		{CharacterID: winnerID, NewRating: 1016, Won: true},
		{CharacterID: loserID, NewRating: 984, Won: false},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepository_GetDailyStats_EmptyDayIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMatchRepository(db)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM daily_stats").
		WillReturnRows(sqlmock.NewRows([]string{"character_id"}))

	stats, err := repo.GetDailyStats(context.Background(), id, "2026-08-26")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Wins)
	assert.Equal(t, int64(0), stats.XPEarned)
}

func TestWithWriteRetry_RetriesConnectionErrors(t *testing.T) {
	calls := 0
	err := withWriteRetry(context.Background(), "test.op", func() error {
		calls++
		if calls < 2 {
			return errors.New("driver: bad connection")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithWriteRetry_DoesNotRetryLogicErrors(t *testing.T) {
	calls := 0
	err := withWriteRetry(context.Background(), "test.op", func() error {
		calls++
		return errors.New("syntax error at or near")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
