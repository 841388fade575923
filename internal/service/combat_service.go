package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
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

// CombatServiceInterface définit les méthodes du service de combat
type CombatServiceInterface interface {
	StartCombat(ctx context.Context, userID uuid.UUID, req *models.StartCombatRequest) (*models.CombatState, error)
	Get(ctx context.Context, userID, combatID uuid.UUID) (*models.CombatState, error)
	SubmitAction(ctx context.Context, userID, combatID uuid.UUID, req *models.CombatActionRequest) (*models.CombatState, error)
	Forfeit(ctx context.Context, userID, combatID uuid.UUID) (*models.CombatState, error)
	ActiveCombatID(ctx context.Context, characterID uuid.UUID) (*uuid.UUID, error)
	Snapshot(ctx context.Context, combatID uuid.UUID) (*models.CombatState, error)
}

// CombatService orchestre le simulateur pur au-dessus des stores.
// Toute écriture d'état passe par un CAS sur la version ; la cohérence
// vient de là, pas d'une sérialisation des handlers.
type CombatService struct {
	characters CharacterServiceInterface
	charRepo   repository.CharacterRepositoryInterface
	matches    repository.MatchRepositoryInterface
	store      cache.Store
	cfg        *config.Config

	// epoch serveur mélangée dans la graine des combats
	epoch int64
}

// NewCombatService crée une nouvelle instance du service de combat
func NewCombatService(
	characters CharacterServiceInterface,
	charRepo repository.CharacterRepositoryInterface,
	matches repository.MatchRepositoryInterface,
	store cache.Store,
	cfg *config.Config,
) *CombatService {
	return &CombatService{
		characters: characters,
		charRepo:   charRepo,
		matches:    matches,
		store:      store,
		cfg:        cfg,
		epoch:      time.Now().Unix(),
	}
}

// StartCombat lance un combat dans le mode demandé
func (s *CombatService) StartCombat(ctx context.Context, userID uuid.UUID, req *models.StartCombatRequest) (*models.CombatState, error) {
	character, err := s.charRepo.GetByID(ctx, req.CharacterID)
	if err != nil {
		return nil, err
	}
	if character.UserID != userID {
		return nil, apperrors.Forbidden("character %s does not belong to this user", req.CharacterID)
	}

	if active, err := s.ActiveCombatID(ctx, req.CharacterID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, apperrors.Conflict("character is already in combat %s", active)
	}

	attacker, err := s.characters.BuildParticipant(ctx, req.CharacterID)
	if err != nil {
		return nil, err
	}

	var defender *models.Participant
	switch req.Mode {
	case models.ModePvE, models.ModeAutoFight:
		if req.EnemyID == "" {
			return nil, apperrors.Validation("enemy_id is required for PvE combat")
		}
		defender, err = EnemyParticipant(req.EnemyID)
		if err != nil {
			return nil, err
		}
	case models.ModePvP:
		if req.OpponentID == nil {
			return nil, apperrors.Validation("opponent_id is required to start a duel")
		}
		if *req.OpponentID == req.CharacterID {
			return nil, apperrors.Validation("a character cannot duel itself")
		}
		if active, err := s.ActiveCombatID(ctx, *req.OpponentID); err != nil {
			return nil, err
		} else if active != nil {
			return nil, apperrors.Conflict("opponent is already in combat")
		}
		defender, err = s.characters.BuildParticipant(ctx, *req.OpponentID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.Validation("unknown combat mode %q", req.Mode)
	}

	state := NewCombat(uuid.New(), req.Mode, userID, attacker, defender, s.epoch)
	if err := s.create(ctx, state); err != nil {
		return nil, err
	}

	// un combat PvE qui s'ouvre sur le tour de l'ennemi se joue tout de suite
	if req.Mode == models.ModePvE && state.CurrentIdx == 1 {
		if next, err := s.playBotTurns(ctx, state); err == nil {
			state = next
		}
	}

	logrus.WithFields(logrus.Fields{
		"combat_id": state.ID,
		"mode":      state.Mode,
		"user_id":   userID,
	}).Info("Combat started")
	return state, nil
}

// Get retourne le dernier instantané stable d'un combat
func (s *CombatService) Get(ctx context.Context, userID, combatID uuid.UUID) (*models.CombatState, error) {
	state, err := s.load(ctx, combatID)
	if err != nil {
		return nil, err
	}
	if _, err := s.controlledIdx(ctx, state, userID); err != nil {
		return nil, err
	}
	return state, nil
}

// SubmitAction applique l'action d'un joueur. Rejouer la même action du même
// tour est idempotent : le résultat mis en cache est resservi tel quel.
func (s *CombatService) SubmitAction(ctx context.Context, userID, combatID uuid.UUID, req *models.CombatActionRequest) (*models.CombatState, error) {
	state, err := s.load(ctx, combatID)
	if err != nil {
		return nil, err
	}
	idx, err := s.controlledIdx(ctx, state, userID)
	if err != nil {
		return nil, err
	}

	action := models.Action{Type: req.ActionType, AbilityID: req.AbilityID}
	actorKey := ParticipantKey(state.Participants[idx])
	idemKey := idempotencyKey(combatID, state.Turn, actorKey, action)

	if cached, err := s.store.Get(ctx, idemKey); err == nil && cached != nil {
		var replay models.CombatState
		if json.Unmarshal(cached.Value, &replay) == nil {
			return &replay, nil
		}
	}

	// résolution sur une copie : un CAS perdant ne laisse aucune trace
	working, err := cloneState(state)
	if err != nil {
		return nil, err
	}
	if err := ResolveAction(working, actorKey, action); err != nil {
		return nil, err
	}

	if err := s.publish(ctx, working, state.Version); err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(working); err == nil {
		_, _ = s.store.SetWithTTL(ctx, idemKey, payload, s.cfg.Cache.IdempotencyTTL)
	}

	if working.IsTerminal() {
		s.finalize(ctx, working)
		return working, nil
	}

	// le serveur joue immédiatement les tours des participants qu'il
	// contrôle : ennemis PvE comme bots de repli PvP
	if working.Current().EnemyID != "" {
		if next, err := s.playBotTurns(ctx, working); err == nil {
			working = next
		}
	}
	return working, nil
}

// Forfeit abandonne le combat : l'adversaire gagne
func (s *CombatService) Forfeit(ctx context.Context, userID, combatID uuid.UUID) (*models.CombatState, error) {
	state, err := s.load(ctx, combatID)
	if err != nil {
		return nil, err
	}
	idx, err := s.controlledIdx(ctx, state, userID)
	if err != nil {
		return nil, err
	}
	if state.IsTerminal() {
		return nil, apperrors.Conflict("combat %s is already over", combatID)
	}

	working, err := cloneState(state)
	if err != nil {
		return nil, err
	}
	ResolveForfeit(working, idx)
	if err := s.publish(ctx, working, state.Version); err != nil {
		return nil, err
	}
	s.finalize(ctx, working)
	return working, nil
}

// Snapshot lit l'état d'un combat sans contrôle de propriété, pour le
// spectating : le payload client ne contient rien de secret
func (s *CombatService) Snapshot(ctx context.Context, combatID uuid.UUID) (*models.CombatState, error) {
	return s.load(ctx, combatID)
}

// ActiveCombatID retourne le combat en cours d'un personnage, s'il existe
func (s *CombatService) ActiveCombatID(ctx context.Context, characterID uuid.UUID) (*uuid.UUID, error) {
	entry, err := s.store.Get(ctx, cache.PrefixActive+characterID.String())
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	id, err := uuid.ParseBytes(entry.Value)
	if err != nil {
		return nil, nil
	}
	return &id, nil
}

// playBotTurns joue les tours des participants pilotés par le serveur
// jusqu'au tour du joueur ou la fin du combat
func (s *CombatService) playBotTurns(ctx context.Context, state *models.CombatState) (*models.CombatState, error) {
	for !state.IsTerminal() && state.Current().EnemyID != "" {
		working, err := cloneState(state)
		if err != nil {
			return state, err
		}
		action := BotAction(working)
		if err := ResolveAction(working, ParticipantKey(working.Current()), action); err != nil {
			return state, err
		}
		if err := s.publish(ctx, working, state.Version); err != nil {
			return state, err
		}
		state = working
	}
	if state.IsTerminal() {
		s.finalize(ctx, state)
	}
	return state, nil
}

// create écrit l'état initial (CAS version 0 : la clé ne doit pas exister)
func (s *CombatService) create(ctx context.Context, state *models.CombatState) error {
	if state.TurnCap == 0 {
		state.TurnCap = s.cfg.Combat.TurnCap
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return apperrors.Internal("failed to serialize combat state").WithCause(err)
	}
	version, ok, err := s.store.CompareAndSwap(ctx, cache.PrefixCombat+state.ID.String(), payload, 0, s.cfg.Cache.CombatStateTTL)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Conflict("combat %s already exists", state.ID)
	}
	state.Version = version

	// les marqueurs actifs sont des créations gardées (CAS version 0) : un
	// personnage déjà engagé fait échouer la création au lieu de voir son
	// marqueur écrasé
	var claimed []string
	for _, p := range state.Participants {
		if p.EnemyID != "" {
			continue
		}
		key := cache.PrefixActive + p.CharacterID.String()
		_, taken, casErr := s.store.CompareAndSwap(ctx, key, []byte(state.ID.String()), 0, s.cfg.Cache.CombatStateTTL)
		if casErr == nil && taken {
			claimed = append(claimed, key)
			continue
		}
		for _, k := range claimed {
			_ = s.store.Delete(ctx, k)
		}
		_ = s.store.Delete(ctx, cache.PrefixCombat+state.ID.String())
		if casErr != nil {
			return casErr
		}
		return apperrors.Conflict("character %s is already in combat", p.CharacterID)
	}
	return nil
}

// publish pousse un nouvel état par CAS. Un conflit signifie qu'une écriture
// concurrente a gagné : l'appelant relit et rejoue.
func (s *CombatService) publish(ctx context.Context, state *models.CombatState, expectedVersion int64) error {
	state.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(state)
	if err != nil {
		return apperrors.Internal("failed to serialize combat state").WithCause(err)
	}
	version, ok, err := s.store.CompareAndSwap(ctx, cache.PrefixCombat+state.ID.String(), payload, expectedVersion, s.cfg.Cache.CombatStateTTL)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Conflict("combat %s was modified concurrently, re-read and retry", state.ID)
	}
	state.Version = version
	return nil
}

// load relit l'état et sa version depuis le store
func (s *CombatService) load(ctx context.Context, combatID uuid.UUID) (*models.CombatState, error) {
	entry, err := s.store.Get(ctx, cache.PrefixCombat+combatID.String())
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperrors.NotFound("combat %s not found", combatID)
	}
	var state models.CombatState
	if err := json.Unmarshal(entry.Value, &state); err != nil {
		return nil, apperrors.Internal("corrupt combat state").WithCause(err)
	}
	state.Version = entry.Version
	return &state, nil
}

// controlledIdx retourne l'index du participant contrôlé par l'utilisateur
func (s *CombatService) controlledIdx(ctx context.Context, state *models.CombatState, userID uuid.UUID) (int, error) {
	for idx, p := range state.Participants {
		if p.EnemyID != "" {
			continue
		}
		character, err := s.charRepo.GetByID(ctx, p.CharacterID)
		if err != nil {
			continue
		}
		if character.UserID == userID {
			return idx, nil
		}
	}
	return 0, apperrors.Forbidden("user does not control any participant of this combat")
}

// finalize archive un combat terminal : récompenses, historique, ratings.
// Un échec laisse Archived à faux ; le balayeur de combats réessaie.
func (s *CombatService) finalize(ctx context.Context, state *models.CombatState) {
	if !state.IsTerminal() || state.Archived {
		return
	}

	var err error
	switch state.Mode {
	case models.ModePvP:
		err = s.finalizePvP(ctx, state)
	default:
		err = s.finalizePvE(ctx, state)
	}
	if err != nil {
		logrus.WithError(err).WithField("combat_id", state.ID).
			Warn("Failed to archive terminal combat, sweeper will retry")
		_ = s.store.ZAdd(ctx, cache.ArchiveQueueKey, state.ID.String(), float64(time.Now().Unix()))
		return
	}
	_ = s.store.ZRem(ctx, cache.ArchiveQueueKey, state.ID.String())
	monitoring.CombatsFinishedTotal.WithLabelValues(string(state.Mode), string(state.Reason)).Inc()

	expected := state.Version
	state.Archived = true
	if err := s.publish(ctx, state, expected); err != nil {
		logrus.WithError(err).WithField("combat_id", state.ID).
			Warn("Failed to mark combat as archived")
	}
	for _, p := range state.Participants {
		if p.EnemyID == "" {
			_ = s.store.Delete(ctx, cache.PrefixActive+p.CharacterID.String())
		}
	}
}

// finalizePvP applique l'Elo et consigne le match en une transaction
func (s *CombatService) finalizePvP(ctx context.Context, state *models.CombatState) error {
	winner, loser := state.Winner(), state.Loser()
	record := newMatchRecord(state)

	var updates []repository.RatingUpdate
	winnerRating, loserRating := models.StartingRating, models.StartingRating

	if winner.EnemyID == "" {
		if c, err := s.charRepo.GetByID(ctx, winner.CharacterID); err == nil {
			winnerRating = c.Rating
		} else {
			return err
		}
	}
	if loser.EnemyID == "" {
		if c, err := s.charRepo.GetByID(ctx, loser.CharacterID); err == nil {
			loserRating = c.Rating
		} else {
			return err
		}
	}

	winnerDelta, loserDelta := EloDeltas(winnerRating, loserRating, s.cfg.Matchmaking.EloK)
	record.WinnerDelta, record.LoserDelta = winnerDelta, loserDelta

	if winner.EnemyID == "" {
		record.WinnerID = &winner.CharacterID
		updates = append(updates, repository.RatingUpdate{
			CharacterID: winner.CharacterID,
			NewRating:   clampRating(winnerRating + winnerDelta),
			Won:         true,
		})
	}
	if loser.EnemyID == "" {
		record.LoserID = &loser.CharacterID
		updates = append(updates, repository.RatingUpdate{
			CharacterID: loser.CharacterID,
			NewRating:   clampRating(loserRating + loserDelta),
			Won:         false,
		})
	}
	return s.matches.FinishMatch(ctx, record, updates)
}

// finalizePvE applique récompenses et remise en forme, puis consigne le combat
func (s *CombatService) finalizePvE(ctx context.Context, state *models.CombatState) error {
	var player *models.Participant
	for _, p := range state.Participants {
		if p.EnemyID == "" {
			player = p
			break
		}
	}
	if player == nil {
		return nil
	}

	record := newMatchRecord(state)
	won := state.Winner() == player
	if won {
		record.WinnerID = &player.CharacterID
	} else {
		record.LoserID = &player.CharacterID
	}

	if err := s.applyPvEOutcome(ctx, state, player, won); err != nil {
		return err
	}
	return s.matches.Append(ctx, record)
}

func newMatchRecord(state *models.CombatState) *models.MatchRecord {
	now := time.Now().UTC()
	return &models.MatchRecord{
		ID:         uuid.New(),
		CombatID:   state.ID,
		Mode:       state.Mode,
		WinnerName: state.Winner().Name,
		LoserName:  state.Loser().Name,
		Turns:      state.Turn,
		Duration:   now.Sub(state.CreatedAt),
		Reason:     state.Reason,
		CreatedAt:  now,
	}
}

func clampRating(rating int) int {
	if rating < models.MinRating {
		return models.MinRating
	}
	return rating
}

func cloneState(state *models.CombatState) (*models.CombatState, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, apperrors.Internal("failed to clone combat state").WithCause(err)
	}
	var clone models.CombatState
	if err := json.Unmarshal(payload, &clone); err != nil {
		return nil, apperrors.Internal("failed to clone combat state").WithCause(err)
	}
	clone.Version = state.Version
	return &clone, nil
}

// idempotencyKey identifie une action de combat : même tour, même acteur,
// même action = même clé
func idempotencyKey(combatID uuid.UUID, turn int, actorKey string, action models.Action) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s", combatID, turn, actorKey, action.Type, action.AbilityID)
	return fmt.Sprintf("%s%x", cache.PrefixIdem, h.Sum64())
}
