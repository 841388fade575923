package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/cache"
	"idleduelist/internal/config"
	"idleduelist/internal/models"
	"idleduelist/internal/repository"
)

// stubCharRepo sert les personnages depuis une map en mémoire
type stubCharRepo struct {
	characters map[uuid.UUID]*models.Character
}

func (r *stubCharRepo) Create(ctx context.Context, c *models.Character) error {
	r.characters[c.ID] = c
	return nil
}

func (r *stubCharRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Character, error) {
	c, ok := r.characters[id]
	if !ok {
		return nil, apperrors.NotFound("character %s not found", id)
	}
	copy := *c
	return &copy, nil
}

func (r *stubCharRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Character, error) {
	return nil, nil
}

func (r *stubCharRepo) Update(ctx context.Context, c *models.Character) error {
	r.characters[c.ID] = c
	return nil
}

func (r *stubCharRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.characters, id)
	return nil
}

func (r *stubCharRepo) CreateEquipment(ctx context.Context, e *models.Equipment) error { return nil }

func (r *stubCharRepo) ListEquipment(ctx context.Context, characterID uuid.UUID) ([]*models.Equipment, error) {
	return nil, nil
}

func (r *stubCharRepo) GetEquipment(ctx context.Context, itemID uuid.UUID) (*models.Equipment, error) {
	return nil, apperrors.NotFound("equipment %s not found", itemID)
}

func (r *stubCharRepo) MountEquipment(ctx context.Context, characterID, itemID uuid.UUID, slot models.EquipmentSlot) error {
	return nil
}

func (r *stubCharRepo) UnmountSlot(ctx context.Context, characterID uuid.UUID, slot models.EquipmentSlot) error {
	return nil
}

func (r *stubCharRepo) TopByRating(ctx context.Context, limit int) ([]*models.RankingEntry, error) {
	return nil, nil
}

// stubCharService construit des participants directement depuis le repo stub
type stubCharService struct {
	repo *stubCharRepo
}

func (s *stubCharService) Create(ctx context.Context, userID uuid.UUID, req *models.CreateCharacterRequest) (*models.Character, error) {
	return nil, apperrors.Internal("not implemented")
}

func (s *stubCharService) List(ctx context.Context, userID uuid.UUID) ([]*models.Character, error) {
	return nil, nil
}

func (s *stubCharService) Get(ctx context.Context, userID, characterID uuid.UUID) (*models.Character, error) {
	return s.repo.GetByID(ctx, characterID)
}

func (s *stubCharService) Delete(ctx context.Context, userID, characterID uuid.UUID) error {
	return nil
}

func (s *stubCharService) AllocateStats(ctx context.Context, userID, characterID uuid.UUID, req *models.AllocateStatsRequest) (*models.Character, error) {
	return nil, apperrors.Internal("not implemented")
}

func (s *stubCharService) Equip(ctx context.Context, userID, characterID, itemID uuid.UUID) (*models.Character, error) {
	return nil, apperrors.Internal("not implemented")
}

func (s *stubCharService) Unequip(ctx context.Context, userID, characterID uuid.UUID, slot models.EquipmentSlot) (*models.Character, error) {
	return nil, apperrors.Internal("not implemented")
}

func (s *stubCharService) DerivedStats(ctx context.Context, userID, characterID uuid.UUID) (*models.DerivedStats, error) {
	return nil, apperrors.Internal("not implemented")
}

func (s *stubCharService) BuildParticipant(ctx context.Context, characterID uuid.UUID) (*models.Participant, error) {
	c, err := s.repo.GetByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return &models.Participant{
		CharacterID: c.ID,
		Name:        c.Name,
		Faction:     c.Faction,
		Level:       c.Level,
		Stats:       flatStats(200, 20, 5, 10),
		Armed:       true,
		Abilities:   []string{},
	}, nil
}

// stubMatchRepo enregistre les matches terminés en mémoire
type stubMatchRepo struct {
	finished []*models.MatchRecord
}

func (r *stubMatchRepo) FinishMatch(ctx context.Context, record *models.MatchRecord, updates []repository.RatingUpdate) error {
	r.finished = append(r.finished, record)
	return nil
}

func (r *stubMatchRepo) Append(ctx context.Context, record *models.MatchRecord) error {
	r.finished = append(r.finished, record)
	return nil
}

func (r *stubMatchRepo) ListByCharacter(ctx context.Context, characterID uuid.UUID, limit int) ([]*models.MatchRecord, error) {
	return nil, nil
}

func (r *stubMatchRepo) GetDailyStats(ctx context.Context, characterID uuid.UUID, day string) (*models.DailyStats, error) {
	return &models.DailyStats{CharacterID: characterID, Day: day}, nil
}

func (r *stubMatchRepo) AddDailyStats(ctx context.Context, delta *models.DailyStats) error {
	return nil
}

func matchmakingConfig() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{
			CombatStateTTL: time.Hour,
			AutoFightTTL:   30 * time.Minute,
			QueueTTL:       2 * time.Minute,
			SessionTTL:     5 * time.Minute,
			IdempotencyTTL: 10 * time.Minute,
		},
		Combat: config.CombatConfig{
			TurnCap:       200,
			SweepInterval: 30 * time.Second,
		},
		Matchmaking: config.MatchmakingConfig{
			EloK:            32,
			BaseWindow:      50,
			WindowStep:      25,
			WindowStepEvery: 5 * time.Second,
			WindowCap:       500,
			BotFallbackAge:  60 * time.Second,
			EnableBots:      true,
			SweepInterval:   2 * time.Second,
		},
	}
}

func newTestMatchmaker(t *testing.T, cfg *config.Config) (*MatchmakingService, *stubCharRepo) {
	t.Helper()
	charRepo := &stubCharRepo{characters: make(map[uuid.UUID]*models.Character)}
	charSvc := &stubCharService{repo: charRepo}
	store := cache.NewMemoryStore()
	combats := NewCombatService(charSvc, charRepo, &stubMatchRepo{}, store, cfg)
	return NewMatchmakingService(combats, charSvc, charRepo, store, cfg), charRepo
}

func addCharacter(repo *stubCharRepo, rating int) *models.Character {
	c := &models.Character{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Name:    "Duelist" + uuid.NewString()[:8],
		Faction: models.FactionOrder,
		Level:   10,
		Rating:  rating,
	}
	repo.characters[c.ID] = c
	return c
}

func TestEloDeltas(t *testing.T) {
	winner, loser := EloDeltas(1000, 1000, 32)
	assert.Equal(t, 16, winner)
	assert.Equal(t, -16, loser)

	// la somme des ratings est conservée quel que soit l'écart
	winner, loser = EloDeltas(1400, 1000, 32)
	assert.Equal(t, 0, winner+loser)
	assert.Less(t, winner, 16, "favorite beating an underdog earns less than an even match")

	winner, _ = EloDeltas(1000, 1400, 32)
	assert.Greater(t, winner, 16, "underdog beating a favorite earns more than an even match")
}

func TestRatingWindowGrowth(t *testing.T) {
	cfg := &matchmakingConfig().Matchmaking

	assert.Equal(t, 50, ratingWindow(0, cfg))
	assert.Equal(t, 50, ratingWindow(4*time.Second, cfg))
	assert.Equal(t, 75, ratingWindow(5*time.Second, cfg))
	assert.Equal(t, 150, ratingWindow(20*time.Second, cfg))
	assert.Equal(t, 500, ratingWindow(10*time.Minute, cfg), "window stops at the cap")
}

func TestEnqueueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mm, repo := newTestMatchmaker(t, matchmakingConfig())
	c := addCharacter(repo, 1000)

	status, err := mm.Enqueue(ctx, c.UserID, &models.QueueRequest{CharacterID: c.ID})
	require.NoError(t, err)
	assert.True(t, status.InQueue)
	assert.Equal(t, 1, status.Position)
	assert.Equal(t, 50, status.Window)

	// un second dépôt rafraîchit le ticket sans créer de doublon
	status, err = mm.Enqueue(ctx, c.UserID, &models.QueueRequest{CharacterID: c.ID})
	require.NoError(t, err)
	assert.True(t, status.InQueue)
	assert.Equal(t, 1, status.QueueDepth)
}

func TestEnqueueRejectsForeignCharacter(t *testing.T) {
	ctx := context.Background()
	mm, repo := newTestMatchmaker(t, matchmakingConfig())
	c := addCharacter(repo, 1000)

	_, err := mm.Enqueue(ctx, uuid.New(), &models.QueueRequest{CharacterID: c.ID})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeForbidden))
}

func TestSweepPairsCompatibleRatings(t *testing.T) {
	ctx := context.Background()
	mm, repo := newTestMatchmaker(t, matchmakingConfig())
	a := addCharacter(repo, 1000)
	b := addCharacter(repo, 1020)

	_, err := mm.Enqueue(ctx, a.UserID, &models.QueueRequest{CharacterID: a.ID})
	require.NoError(t, err)

	// le dépôt du second déclenche le pairing immédiat
	statusB, err := mm.Enqueue(ctx, b.UserID, &models.QueueRequest{CharacterID: b.ID})
	require.NoError(t, err)
	assert.False(t, statusB.InQueue)
	require.NotNil(t, statusB.CombatID)

	statusA, err := mm.Status(ctx, a.UserID)
	require.NoError(t, err)
	require.NotNil(t, statusA.CombatID)
	assert.Equal(t, *statusB.CombatID, *statusA.CombatID, "both tickets point at the same combat")

	assert.Equal(t, int64(0), mm.QueueDepth(ctx))

	// les deux personnages sont désormais marqués en combat
	active, err := mm.combats.ActiveCombatID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, *statusA.CombatID, *active)
}

func TestSweepRespectsRatingWindow(t *testing.T) {
	ctx := context.Background()
	mm, repo := newTestMatchmaker(t, matchmakingConfig())
	a := addCharacter(repo, 1000)
	b := addCharacter(repo, 1700)

	_, err := mm.Enqueue(ctx, a.UserID, &models.QueueRequest{CharacterID: a.ID})
	require.NoError(t, err)
	statusB, err := mm.Enqueue(ctx, b.UserID, &models.QueueRequest{CharacterID: b.ID})
	require.NoError(t, err)

	// 700 points d'écart dépassent même la fenêtre maximale
	assert.True(t, statusB.InQueue)
	assert.Equal(t, int64(2), mm.QueueDepth(ctx))
}

func TestBotFallbackAfterDeadline(t *testing.T) {
	ctx := context.Background()
	cfg := matchmakingConfig()
	cfg.Matchmaking.BotFallbackAge = 0
	mm, repo := newTestMatchmaker(t, cfg)
	c := addCharacter(repo, 1000)

	// seul en file et l'échéance bot est déjà passée : pairing immédiat
	status, err := mm.Enqueue(ctx, c.UserID, &models.QueueRequest{CharacterID: c.ID})
	require.NoError(t, err)
	assert.False(t, status.InQueue)
	require.NotNil(t, status.CombatID)

	state, err := mm.combats.load(ctx, *status.CombatID)
	require.NoError(t, err)
	var bot *models.Participant
	for _, p := range state.Participants {
		if p.EnemyID != "" {
			bot = p
		}
	}
	require.NotNil(t, bot)
	assert.True(t, bot.IsBot)
	assert.True(t, strings.HasPrefix(bot.EnemyID, "bot:"))
	assert.Equal(t, models.ModePvP, state.Mode)
}

func TestBotFallbackCanBeDeclined(t *testing.T) {
	ctx := context.Background()
	cfg := matchmakingConfig()
	cfg.Matchmaking.BotFallbackAge = 0
	mm, repo := newTestMatchmaker(t, cfg)
	c := addCharacter(repo, 1000)

	declined := false
	status, err := mm.Enqueue(ctx, c.UserID, &models.QueueRequest{CharacterID: c.ID, AllowBots: &declined})
	require.NoError(t, err)
	assert.True(t, status.InQueue, "without bot consent the ticket waits for a human")
}

func TestCancelRemovesTicket(t *testing.T) {
	ctx := context.Background()
	mm, repo := newTestMatchmaker(t, matchmakingConfig())
	c := addCharacter(repo, 1000)

	_, err := mm.Enqueue(ctx, c.UserID, &models.QueueRequest{CharacterID: c.ID})
	require.NoError(t, err)
	require.NoError(t, mm.Cancel(ctx, c.UserID))

	status, err := mm.Status(ctx, c.UserID)
	require.NoError(t, err)
	assert.False(t, status.InQueue)
	assert.Nil(t, status.CombatID)
	assert.Equal(t, int64(0), mm.QueueDepth(ctx))
}

func TestEnqueueRejectsCharacterInCombat(t *testing.T) {
	ctx := context.Background()
	cfg := matchmakingConfig()
	cfg.Matchmaking.BotFallbackAge = 0
	mm, repo := newTestMatchmaker(t, cfg)
	c := addCharacter(repo, 1000)

	status, err := mm.Enqueue(ctx, c.UserID, &models.QueueRequest{CharacterID: c.ID})
	require.NoError(t, err)
	require.NotNil(t, status.CombatID)

	_, err = mm.Enqueue(ctx, c.UserID, &models.QueueRequest{CharacterID: c.ID})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict))
}

func TestSweepSkipsCharacterAlreadyInCombat(t *testing.T) {
	ctx := context.Background()
	mm, repo := newTestMatchmaker(t, matchmakingConfig())
	a := addCharacter(repo, 1000)
	b := addCharacter(repo, 1020)

	_, err := mm.Enqueue(ctx, a.UserID, &models.QueueRequest{CharacterID: a.ID})
	require.NoError(t, err)

	// a entre dans un combat PvE entre son dépôt et la passe de pairing
	existing := uuid.New()
	_, _, err = mm.store.CompareAndSwap(ctx, cache.PrefixActive+a.ID.String(),
		[]byte(existing.String()), 0, time.Hour)
	require.NoError(t, err)

	statusB, err := mm.Enqueue(ctx, b.UserID, &models.QueueRequest{CharacterID: b.ID})
	require.NoError(t, err)

	// pas d'appariement : le ticket caduc de a est purgé, b reste en file
	assert.True(t, statusB.InQueue)
	assert.Nil(t, statusB.CombatID)
	assert.Equal(t, int64(1), mm.QueueDepth(ctx))

	statusA, err := mm.Status(ctx, a.UserID)
	require.NoError(t, err)
	assert.False(t, statusA.InQueue)
	assert.Nil(t, statusA.CombatID)

	// le marqueur du combat en cours n'a pas été écrasé
	active, err := mm.combats.ActiveCombatID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, existing, *active)
}

func TestCombatCreateRefusesBusyParticipant(t *testing.T) {
	ctx := context.Background()
	mm, repo := newTestMatchmaker(t, matchmakingConfig())
	a := addCharacter(repo, 1000)
	b := addCharacter(repo, 1020)

	existing := uuid.New()
	_, _, err := mm.store.CompareAndSwap(ctx, cache.PrefixActive+b.ID.String(),
		[]byte(existing.String()), 0, time.Hour)
	require.NoError(t, err)

	attacker := testParticipant("a", models.FactionOrder, flatStats(200, 20, 5, 10))
	attacker.CharacterID = a.ID
	defender := testParticipant("b", models.FactionOrder, flatStats(200, 20, 5, 10))
	defender.CharacterID = b.ID

	state := NewCombat(uuid.New(), models.ModePvP, a.UserID, attacker, defender, mm.combats.epoch)
	err = mm.combats.create(ctx, state)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict))

	// la création échouée ne laisse ni état ni marqueur orphelins
	_, err = mm.combats.Snapshot(ctx, state.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))

	activeA, err := mm.combats.ActiveCombatID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, activeA)

	activeB, err := mm.combats.ActiveCombatID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, activeB)
	assert.Equal(t, existing, *activeB)
}
