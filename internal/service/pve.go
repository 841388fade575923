package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/cache"
	"idleduelist/internal/catalog"
	"idleduelist/internal/models"
	"idleduelist/internal/utils"
)

// PvEServiceInterface expose les opérations d'auto-fight
type PvEServiceInterface interface {
	StartAutoFight(ctx context.Context, userID uuid.UUID, characterID uuid.UUID, enemyID string) (*models.CombatState, error)
	CancelAutoFight(ctx context.Context, userID, characterID uuid.UUID) error
	AutoFightProgress(ctx context.Context, userID, characterID uuid.UUID) (*models.AutoFightProgress, error)
}

// EnemyParticipant construit l'instantané de combat d'un ennemi du catalogue
func EnemyParticipant(enemyID string) (*models.Participant, error) {
	enemy, ok := catalog.GetEnemy(enemyID)
	if !ok {
		return nil, apperrors.NotFound("enemy %q not found", enemyID)
	}
	derived := DeriveStats(enemy.BaseStats, enemy.Level, nil)
	return &models.Participant{
		EnemyID:   enemy.ID,
		Name:      enemy.Name,
		Faction:   enemy.Faction,
		Level:     enemy.Level,
		Stats:     derived,
		Armed:     true,
		Abilities: enemy.Abilities,
		Cooldowns: make(map[string]int),
	}, nil
}

// applyPvEOutcome récompenses sur victoire, remise en forme dans tous les
// cas : le PvE ne coûte rien en durabilité
func (s *CombatService) applyPvEOutcome(ctx context.Context, state *models.CombatState, player *models.Participant, won bool) error {
	character, err := s.charRepo.GetByID(ctx, player.CharacterID)
	if err != nil {
		return err
	}

	enemyID := state.Participants[0].EnemyID
	if enemyID == "" {
		enemyID = state.Participants[1].EnemyID
	}

	daily := &models.DailyStats{
		CharacterID: character.ID,
		Day:         time.Now().UTC().Format("2006-01-02"),
	}

	if won {
		enemy, ok := catalog.GetEnemy(enemyID)
		if ok {
			character.XP += enemy.Reward.XP
			character.Gold += enemy.Reward.Gold
			daily.Wins = 1
			daily.XPEarned = enemy.Reward.XP
			daily.GoldEarned = enemy.Reward.Gold

			oldLevel := character.Level
			character.Level = models.LevelForXP(character.XP)
			if character.Level > oldLevel {
				character.UnspentPoints += models.StatPointsPerLevel * (character.Level - oldLevel)
				logrus.WithFields(logrus.Fields{
					"character_id": character.ID,
					"level":        character.Level,
				}).Info("Character leveled up")
			}

			if item := rollDrop(enemy, state.RNGState, character.ID); item != nil {
				if err := s.charRepo.CreateEquipment(ctx, item); err != nil {
					// l'objet est un bonus ; sa perte n'annule pas la victoire
					logrus.WithError(err).Warn("Failed to persist dropped item")
				}
			}
		}
	} else {
		daily.Losses = 1
	}

	// remise en forme complète
	derived := DeriveStats(character.BaseStats, character.Level, nil)
	character.CurrentHP = derived.MaxHP

	if err := s.charRepo.Update(ctx, character); err != nil {
		return err
	}
	if err := s.matches.AddDailyStats(ctx, daily); err != nil {
		logrus.WithError(err).Warn("Failed to update daily stats")
	}
	return nil
}

// équipement par rareté : noms et types tirés du générateur du combat
var dropTypes = []models.EquipmentType{
	models.TypeSword, models.TypeAxe, models.TypeDagger, models.TypeStaff,
	models.TypeShield, models.TypeTome, models.TypeHelmet,
	models.TypeChestplate, models.TypeLeggings, models.TypeAmulet,
}

var rarityAdjectives = map[models.Rarity]string{
	models.RarityCommon:    "Worn",
	models.RarityUncommon:  "Sturdy",
	models.RarityRare:      "Gleaming",
	models.RarityEpic:      "Runed",
	models.RarityLegendary: "Mythforged",
	models.RarityMythic:    "Worldbreaker",
}

// rollDrop tire un objet selon la table de l'ennemi, ou nil
func rollDrop(enemy *catalog.Enemy, rngState uint64, characterID uuid.UUID) *models.Equipment {
	rngState = utils.NextRand(rngState)
	if utils.RandFloat(rngState) >= enemy.Reward.DropChance {
		return nil
	}

	rarity := pickRarity(enemy.Reward.RarityWeights, &rngState)
	rngState = utils.NextRand(rngState)
	itemType := dropTypes[utils.RandIntn(rngState, len(dropTypes))]

	multiplier := models.RarityMultiplier[rarity]
	budget := int(float64(2+enemy.Level/4) * multiplier)
	modifiers := spreadBudget(budget, itemType, &rngState)

	return &models.Equipment{
		ID:          uuid.New(),
		CharacterID: characterID,
		Name:        fmt.Sprintf("%s %s", rarityAdjectives[rarity], itemTypeName(itemType)),
		Type:        itemType,
		Rarity:      rarity,
		ItemLevel:   enemy.Level,
		Modifiers:   modifiers,
		CreatedAt:   time.Now().UTC(),
	}
}

func pickRarity(weights map[models.Rarity]int, rngState *uint64) models.Rarity {
	order := []models.Rarity{
		models.RarityCommon, models.RarityUncommon, models.RarityRare,
		models.RarityEpic, models.RarityLegendary, models.RarityMythic,
	}
	total := 0
	for _, r := range order {
		total += weights[r]
	}
	if total == 0 {
		return models.RarityCommon
	}
	*rngState = utils.NextRand(*rngState)
	pick := utils.RandIntn(*rngState, total)
	for _, r := range order {
		pick -= weights[r]
		if pick < 0 {
			return r
		}
	}
	return models.RarityCommon
}

// spreadBudget répartit le budget de stats selon la vocation de l'objet
func spreadBudget(budget int, itemType models.EquipmentType, rngState *uint64) models.StatVector {
	var v models.StatVector
	primary := primaryStat(itemType)
	for i := 0; i < budget; i++ {
		*rngState = utils.NextRand(*rngState)
		// deux tiers du budget sur la stat principale
		if utils.RandIntn(*rngState, 3) < 2 {
			addStat(&v, primary)
			continue
		}
		*rngState = utils.NextRand(*rngState)
		addStat(&v, utils.RandIntn(*rngState, 6))
	}
	return v
}

func primaryStat(itemType models.EquipmentType) int {
	switch itemType {
	case models.TypeSword, models.TypeAxe:
		return 0 // might
	case models.TypeDagger:
		return 1 // finesse
	case models.TypeShield, models.TypeChestplate, models.TypeLeggings, models.TypeHelmet:
		return 2 // fortitude
	case models.TypeStaff, models.TypeTome:
		return 3 // arcana
	default:
		return 5 // presence
	}
}

func addStat(v *models.StatVector, idx int) {
	switch idx {
	case 0:
		v.Might++
	case 1:
		v.Finesse++
	case 2:
		v.Fortitude++
	case 3:
		v.Arcana++
	case 4:
		v.Insight++
	default:
		v.Presence++
	}
}

func itemTypeName(t models.EquipmentType) string {
	names := map[models.EquipmentType]string{
		models.TypeSword: "Sword", models.TypeAxe: "Axe", models.TypeDagger: "Dagger",
		models.TypeStaff: "Staff", models.TypeShield: "Shield", models.TypeTome: "Tome",
		models.TypeHelmet: "Helmet", models.TypeChestplate: "Chestplate",
		models.TypeLeggings: "Leggings", models.TypeAmulet: "Amulet",
	}
	return names[t]
}

// StartAutoFight lance un combat PvE joué entièrement côté serveur
func (s *CombatService) StartAutoFight(ctx context.Context, userID uuid.UUID, characterID uuid.UUID, enemyID string) (*models.CombatState, error) {
	state, err := s.StartCombat(ctx, userID, &models.StartCombatRequest{
		CharacterID: characterID,
		Mode:        models.ModeAutoFight,
		EnemyID:     enemyID,
	})
	if err != nil {
		return nil, err
	}

	progress := &models.AutoFightProgress{
		CharacterID: characterID,
		CombatID:    state.ID,
		EnemyID:     enemyID,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.writeProgress(ctx, progress); err != nil {
		return nil, err
	}

	go s.runAutoFight(state.ID, characterID)
	return state, nil
}

// CancelAutoFight demande l'arrêt de la boucle. Idempotent : annuler une
// boucle déjà annulée ou terminée répond pareil.
func (s *CombatService) CancelAutoFight(ctx context.Context, userID, characterID uuid.UUID) error {
	if err := s.requireOwnership(ctx, userID, characterID); err != nil {
		return err
	}
	progress, err := s.readProgress(ctx, characterID)
	if err != nil {
		return err
	}
	if progress == nil || progress.Cancelled {
		return nil
	}
	progress.Cancelled = true
	return s.writeProgress(ctx, progress)
}

// AutoFightProgress retourne le checkpoint courant de la boucle
func (s *CombatService) AutoFightProgress(ctx context.Context, userID, characterID uuid.UUID) (*models.AutoFightProgress, error) {
	if err := s.requireOwnership(ctx, userID, characterID); err != nil {
		return nil, err
	}
	return s.readProgress(ctx, characterID)
}

// requireOwnership vérifie que le personnage appartient bien à l'utilisateur
func (s *CombatService) requireOwnership(ctx context.Context, userID, characterID uuid.UUID) error {
	character, err := s.charRepo.GetByID(ctx, characterID)
	if err != nil {
		return err
	}
	if character.UserID != userID {
		return apperrors.Forbidden("character %s does not belong to this user", characterID)
	}
	return nil
}

// runAutoFight joue les deux côtés du combat à cadence bornée.
// Le drapeau d'annulation est relu dans le store entre chaque tour : une
// autre instance peut annuler la boucle.
func (s *CombatService) runAutoFight(combatID, characterID uuid.UUID) {
	log := logrus.WithFields(logrus.Fields{"combat_id": combatID, "character_id": characterID})
	ticker := time.NewTicker(s.cfg.Combat.AutoFightTurnGap)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		progress, err := s.readProgress(ctx, characterID)
		if err != nil || progress == nil || progress.Cancelled || progress.CombatID != combatID {
			cancel()
			return
		}

		state, err := s.load(ctx, combatID)
		if err != nil {
			log.WithError(err).Warn("Auto-fight loop lost its combat")
			cancel()
			return
		}
		if state.IsTerminal() {
			s.finalize(ctx, state)
			cancel()
			return
		}

		working, err := cloneState(state)
		if err != nil {
			cancel()
			return
		}
		action := BotAction(working)
		if err := ResolveAction(working, ParticipantKey(working.Current()), action); err != nil {
			log.WithError(err).Warn("Auto-fight action rejected")
			cancel()
			return
		}
		if err := s.publish(ctx, working, state.Version); err != nil {
			// écriture concurrente : on relira au prochain tick
			cancel()
			continue
		}

		progress.TurnsPlayed++
		progress.LastTurnAt = time.Now().UTC()
		_ = s.writeProgress(ctx, progress)

		if working.IsTerminal() {
			s.finalize(ctx, working)
			cancel()
			return
		}
		cancel()
	}
}

func (s *CombatService) readProgress(ctx context.Context, characterID uuid.UUID) (*models.AutoFightProgress, error) {
	entry, err := s.store.Get(ctx, cache.PrefixAutoFight+characterID.String())
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	var progress models.AutoFightProgress
	if err := json.Unmarshal(entry.Value, &progress); err != nil {
		return nil, apperrors.Internal("corrupt auto-fight progress").WithCause(err)
	}
	return &progress, nil
}

func (s *CombatService) writeProgress(ctx context.Context, progress *models.AutoFightProgress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return apperrors.Internal("failed to serialize auto-fight progress").WithCause(err)
	}
	_, err = s.store.SetWithTTL(ctx, cache.PrefixAutoFight+progress.CharacterID.String(), payload, s.cfg.Cache.AutoFightTTL)
	return err
}
