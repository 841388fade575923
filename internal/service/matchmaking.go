package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/cache"
	"idleduelist/internal/config"
	"idleduelist/internal/models"
	"idleduelist/internal/monitoring"
	"idleduelist/internal/repository"
)

// EloDeltas calcule les variations de rating du vainqueur et du perdant
// avec le facteur K donné. Symétrique : la somme des ratings est conservée.
func EloDeltas(winnerRating, loserRating, k int) (winnerDelta, loserDelta int) {
	expected := 1.0 / (1.0 + math.Pow(10, float64(loserRating-winnerRating)/400.0))
	winnerDelta = int(math.Round(float64(k) * (1.0 - expected)))
	return winnerDelta, -winnerDelta
}

// ratingWindow fenêtre de pairing en fonction de l'ancienneté du ticket
func ratingWindow(age time.Duration, cfg *config.MatchmakingConfig) int {
	window := cfg.BaseWindow + cfg.WindowStep*int(age/cfg.WindowStepEvery)
	if window > cfg.WindowCap {
		window = cfg.WindowCap
	}
	return window
}

// ticketRecord ticket stocké dans le store ; CombatID non nil = ticket
// consommé par un pairing, le client le découvre en pollant
type ticketRecord struct {
	models.MatchmakingTicket
	CombatID *uuid.UUID `json:"combat_id,omitempty"`
}

// MatchmakingServiceInterface définit les méthodes du matchmaker
type MatchmakingServiceInterface interface {
	Enqueue(ctx context.Context, userID uuid.UUID, req *models.QueueRequest) (*models.QueueStatus, error)
	Cancel(ctx context.Context, userID uuid.UUID) error
	Status(ctx context.Context, userID uuid.UUID) (*models.QueueStatus, error)
	Sweep(ctx context.Context) error
	QueueDepth(ctx context.Context) int64
}

// MatchmakingService implémente la file d'attente PvP sur le sorted set du
// store : membre = user_id, score = rating
type MatchmakingService struct {
	combats    *CombatService
	characters CharacterServiceInterface
	charRepo   repository.CharacterRepositoryInterface
	store      cache.Store
	cfg        *config.Config
}

// NewMatchmakingService crée une nouvelle instance du matchmaker
func NewMatchmakingService(
	combats *CombatService,
	characters CharacterServiceInterface,
	charRepo repository.CharacterRepositoryInterface,
	store cache.Store,
	cfg *config.Config,
) *MatchmakingService {
	return &MatchmakingService{
		combats:    combats,
		characters: characters,
		charRepo:   charRepo,
		store:      store,
		cfg:        cfg,
	}
}

// Enqueue dépose un ticket. Idempotent : un second dépôt du même utilisateur
// rafraîchit l'horodatage au lieu de créer un doublon.
func (s *MatchmakingService) Enqueue(ctx context.Context, userID uuid.UUID, req *models.QueueRequest) (*models.QueueStatus, error) {
	character, err := s.charRepo.GetByID(ctx, req.CharacterID)
	if err != nil {
		return nil, err
	}
	if character.UserID != userID {
		return nil, apperrors.Forbidden("character %s does not belong to this user", req.CharacterID)
	}
	if active, err := s.combats.ActiveCombatID(ctx, req.CharacterID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, apperrors.Conflict("character is already in combat")
	}

	allowBots := true
	if req.AllowBots != nil {
		allowBots = *req.AllowBots
	}

	record := &ticketRecord{
		MatchmakingTicket: models.MatchmakingTicket{
			UserID:      userID,
			CharacterID: req.CharacterID,
			Rating:      character.Rating,
			EnqueuedAt:  time.Now().UTC(),
			AllowBots:   allowBots,
		},
	}
	if existing, err := s.readTicket(ctx, userID); err == nil && existing != nil && existing.CombatID == nil {
		// ticket déjà en file : même personnage, horodatage rafraîchi
		record.EnqueuedAt = time.Now().UTC()
		record.CharacterID = existing.CharacterID
	}

	if err := s.writeTicket(ctx, record); err != nil {
		return nil, err
	}
	if err := s.store.ZAdd(ctx, cache.QueueKey, userID.String(), float64(record.Rating)); err != nil {
		return nil, err
	}

	// un dépôt déclenche immédiatement une passe de pairing
	if err := s.Sweep(ctx); err != nil {
		logrus.WithError(err).Warn("Pairing sweep after enqueue failed")
	}
	return s.Status(ctx, userID)
}

// Cancel retire le ticket de l'utilisateur, atomiquement côté file
func (s *MatchmakingService) Cancel(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.ZRem(ctx, cache.QueueKey, userID.String()); err != nil {
		return err
	}
	return s.store.Delete(ctx, cache.TicketPrefix+userID.String())
}

// Status position en file ou combat apparié
func (s *MatchmakingService) Status(ctx context.Context, userID uuid.UUID) (*models.QueueStatus, error) {
	record, err := s.readTicket(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &models.QueueStatus{InQueue: false}, nil
	}
	if record.CombatID != nil {
		return &models.QueueStatus{InQueue: false, CombatID: record.CombatID}, nil
	}

	status := &models.QueueStatus{
		InQueue:    true,
		EnqueuedAt: record.EnqueuedAt,
		Window:     ratingWindow(record.Age(time.Now().UTC()), &s.cfg.Matchmaking),
	}
	if rank, ok, err := s.store.ZRank(ctx, cache.QueueKey, userID.String()); err == nil && ok {
		status.Position = int(rank) + 1
	}
	if depth, err := s.store.ZCard(ctx, cache.QueueKey); err == nil {
		status.QueueDepth = int(depth)
	}
	return status, nil
}

// QueueDepth taille courante de la file
func (s *MatchmakingService) QueueDepth(ctx context.Context) int64 {
	depth, err := s.store.ZCard(ctx, cache.QueueKey)
	if err != nil {
		return 0
	}
	return depth
}

// Sweep une passe de pairing complète : les tickets les plus anciens
// d'abord, fenêtre de rating croissante avec l'attente, repli bot à
// l'échéance configurée
func (s *MatchmakingService) Sweep(ctx context.Context) error {
	members, err := s.store.ZRangeByScore(ctx, cache.QueueKey, math.Inf(-1), math.Inf(1))
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	now := time.Now().UTC()
	tickets := make([]*ticketRecord, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m.Member)
		if err != nil {
			_ = s.store.ZRem(ctx, cache.QueueKey, m.Member)
			continue
		}
		record, err := s.readTicket(ctx, id)
		if err != nil || record == nil || record.CombatID != nil {
			// ticket expiré ou déjà consommé : purge de la file
			_ = s.store.ZRem(ctx, cache.QueueKey, m.Member)
			continue
		}
		if active, err := s.combats.ActiveCombatID(ctx, record.CharacterID); err == nil && active != nil {
			// le personnage est entré en combat depuis son dépôt ; le
			// ticket est caduc et ne doit pas produire un second combat
			_ = s.store.ZRem(ctx, cache.QueueKey, m.Member)
			_ = s.store.Delete(ctx, cache.TicketPrefix+record.UserID.String())
			continue
		}
		tickets = append(tickets, record)
	}

	// anciens d'abord ; égalité d'âge = user_id le plus petit
	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].EnqueuedAt.Equal(tickets[j].EnqueuedAt) {
			return tickets[i].EnqueuedAt.Before(tickets[j].EnqueuedAt)
		}
		return tickets[i].UserID.String() < tickets[j].UserID.String()
	})

	consumed := make(map[uuid.UUID]bool)
	for _, ticket := range tickets {
		if consumed[ticket.UserID] {
			continue
		}
		window := ratingWindow(ticket.Age(now), &s.cfg.Matchmaking)

		var best *ticketRecord
		bestDiff := window + 1
		for _, candidate := range tickets {
			if candidate.UserID == ticket.UserID || consumed[candidate.UserID] {
				continue
			}
			diff := candidate.Rating - ticket.Rating
			if diff < 0 {
				diff = -diff
			}
			if diff <= window && diff < bestDiff {
				best, bestDiff = candidate, diff
			}
		}

		if best != nil {
			if err := s.pair(ctx, ticket, best); err != nil {
				logrus.WithError(err).Warn("Failed to pair tickets")
				continue
			}
			consumed[ticket.UserID] = true
			consumed[best.UserID] = true
			continue
		}

		if ticket.AllowBots && s.cfg.Matchmaking.EnableBots && ticket.Age(now) >= s.cfg.Matchmaking.BotFallbackAge {
			if err := s.pairWithBot(ctx, ticket); err != nil {
				logrus.WithError(err).Warn("Failed to create bot match")
				continue
			}
			consumed[ticket.UserID] = true
		}
	}
	return nil
}

// pair crée le combat PvP et consomme les deux tickets
func (s *MatchmakingService) pair(ctx context.Context, a, b *ticketRecord) error {
	attacker, err := s.characters.BuildParticipant(ctx, a.CharacterID)
	if err != nil {
		return err
	}
	defender, err := s.characters.BuildParticipant(ctx, b.CharacterID)
	if err != nil {
		return err
	}

	state := NewCombat(uuid.New(), models.ModePvP, a.UserID, attacker, defender, s.combats.epoch)
	if err := s.combats.create(ctx, state); err != nil {
		return err
	}

	for _, ticket := range []*ticketRecord{a, b} {
		ticket.CombatID = &state.ID
		if err := s.writeTicket(ctx, ticket); err != nil {
			logrus.WithError(err).Warn("Failed to mark ticket as matched")
		}
	}
	if err := s.store.ZRem(ctx, cache.QueueKey, a.UserID.String(), b.UserID.String()); err != nil {
		return err
	}

	monitoring.MatchesCreatedTotal.WithLabelValues("human").Inc()
	logrus.WithFields(logrus.Fields{
		"combat_id": state.ID,
		"rating_a":  a.Rating,
		"rating_b":  b.Rating,
	}).Info("PvP match created")
	return nil
}

// pairWithBot adversaire bot aux stats miroir, rating apparié
func (s *MatchmakingService) pairWithBot(ctx context.Context, ticket *ticketRecord) error {
	player, err := s.characters.BuildParticipant(ctx, ticket.CharacterID)
	if err != nil {
		return err
	}

	bot := &models.Participant{
		EnemyID:   "bot:" + uuid.NewString(),
		IsBot:     true,
		Name:      "Mirror of " + player.Name,
		Faction:   player.Faction,
		Level:     player.Level,
		Stats:     player.Stats,
		Armed:     player.Armed,
		Abilities: append([]string(nil), player.Abilities...),
		Cooldowns: make(map[string]int),
	}

	state := NewCombat(uuid.New(), models.ModePvP, ticket.UserID, player, bot, s.combats.epoch)
	if err := s.combats.create(ctx, state); err != nil {
		return err
	}
	// si l'initiative revient au bot, son tour d'ouverture se joue tout de suite
	if state.Current().EnemyID != "" {
		if next, err := s.combats.playBotTurns(ctx, state); err == nil {
			state = next
		}
	}

	ticket.CombatID = &state.ID
	if err := s.writeTicket(ctx, ticket); err != nil {
		logrus.WithError(err).Warn("Failed to mark ticket as matched")
	}
	if err := s.store.ZRem(ctx, cache.QueueKey, ticket.UserID.String()); err != nil {
		return err
	}

	monitoring.MatchesCreatedTotal.WithLabelValues("bot").Inc()
	logrus.WithFields(logrus.Fields{
		"combat_id": state.ID,
		"rating":    ticket.Rating,
	}).Info("Bot fallback match created")
	return nil
}

func (s *MatchmakingService) readTicket(ctx context.Context, userID uuid.UUID) (*ticketRecord, error) {
	entry, err := s.store.Get(ctx, cache.TicketPrefix+userID.String())
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	var record ticketRecord
	if err := json.Unmarshal(entry.Value, &record); err != nil {
		return nil, apperrors.Internal("corrupt matchmaking ticket").WithCause(err)
	}
	return &record, nil
}

func (s *MatchmakingService) writeTicket(ctx context.Context, record *ticketRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return apperrors.Internal("failed to serialize ticket").WithCause(err)
	}
	_, err = s.store.SetWithTTL(ctx, cache.TicketPrefix+record.UserID.String(), payload, s.cfg.Cache.QueueTTL)
	return err
}
