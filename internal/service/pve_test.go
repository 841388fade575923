package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/models"
)

func TestEnemyParticipantFromCatalog(t *testing.T) {
	p, err := EnemyParticipant("giant_rat")
	require.NoError(t, err)
	assert.Equal(t, "giant_rat", p.EnemyID)
	assert.Positive(t, p.Stats.MaxHP)

	_, err = EnemyParticipant("no_such_enemy")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
}

func TestAutoFightOwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	mm, repo := newTestMatchmaker(t, matchmakingConfig())
	combats := mm.combats
	owner := addCharacter(repo, 1000)
	stranger := uuid.New()

	progress := &models.AutoFightProgress{
		CharacterID: owner.ID,
		CombatID:    uuid.New(),
		EnemyID:     "giant_rat",
		StartedAt:   time.Now().UTC(),
	}
	require.NoError(t, combats.writeProgress(ctx, progress))

	// un autre utilisateur ne peut ni lire ni annuler la boucle
	err := combats.CancelAutoFight(ctx, stranger, owner.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeForbidden))

	_, err = combats.AutoFightProgress(ctx, stranger, owner.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeForbidden))

	got, err := combats.AutoFightProgress(ctx, owner.UserID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Cancelled, "a stranger's cancel attempt must not stick")

	require.NoError(t, combats.CancelAutoFight(ctx, owner.UserID, owner.ID))
	got, err = combats.AutoFightProgress(ctx, owner.UserID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Cancelled)
}

func TestStartCombatStampsConfiguredTurnCap(t *testing.T) {
	ctx := context.Background()
	cfg := matchmakingConfig()
	cfg.Combat.TurnCap = 37
	mm, repo := newTestMatchmaker(t, cfg)
	c := addCharacter(repo, 1000)

	state, err := mm.combats.StartCombat(ctx, c.UserID, &models.StartCombatRequest{
		CharacterID: c.ID,
		Mode:        models.ModePvE,
		EnemyID:     "giant_rat",
	})
	require.NoError(t, err)
	assert.Equal(t, 37, state.TurnCap)
}
