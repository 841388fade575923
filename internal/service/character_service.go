package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/catalog"
	"idleduelist/internal/models"
	"idleduelist/internal/repository"
)

// startingGold capital de départ d'un personnage
const startingGold = 100

// CharacterServiceInterface définit les méthodes du service personnage
type CharacterServiceInterface interface {
	Create(ctx context.Context, userID uuid.UUID, req *models.CreateCharacterRequest) (*models.Character, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Character, error)
	Get(ctx context.Context, userID, characterID uuid.UUID) (*models.Character, error)
	Delete(ctx context.Context, userID, characterID uuid.UUID) error
	AllocateStats(ctx context.Context, userID, characterID uuid.UUID, req *models.AllocateStatsRequest) (*models.Character, error)
	Equip(ctx context.Context, userID, characterID, itemID uuid.UUID) (*models.Character, error)
	Unequip(ctx context.Context, userID, characterID uuid.UUID, slot models.EquipmentSlot) (*models.Character, error)
	DerivedStats(ctx context.Context, userID, characterID uuid.UUID) (*models.DerivedStats, error)
	BuildParticipant(ctx context.Context, characterID uuid.UUID) (*models.Participant, error)
}

// CharacterService implémente CharacterServiceInterface
type CharacterService struct {
	characters repository.CharacterRepositoryInterface
}

// NewCharacterService crée une nouvelle instance du service personnage
func NewCharacterService(characters repository.CharacterRepositoryInterface) CharacterServiceInterface {
	return &CharacterService{characters: characters}
}

// Create crée un personnage de niveau 1 dans la faction demandée
func (s *CharacterService) Create(ctx context.Context, userID uuid.UUID, req *models.CreateCharacterRequest) (*models.Character, error) {
	if !models.CharacterNamePattern.MatchString(req.Name) {
		return nil, apperrors.Validation("character name must be 1-50 characters (letters, digits, underscore, space)").
			WithDetails(map[string]interface{}{"field": "name"})
	}
	faction, ok := catalog.GetFaction(req.Faction)
	if !ok {
		return nil, apperrors.Validation("unknown faction %q", req.Faction).
			WithDetails(map[string]interface{}{"field": "faction"})
	}

	now := time.Now().UTC()
	character := &models.Character{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      req.Name,
		Faction:   faction.ID,
		Level:     1,
		Gold:      startingGold,
		BaseStats: startingStats(faction.ID),
		Rating:    models.StartingRating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	derived := DeriveStats(character.BaseStats, character.Level, nil)
	character.CurrentHP = derived.MaxHP

	if err := s.characters.Create(ctx, character); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"character_id": character.ID,
		"user_id":      userID,
		"faction":      character.Faction,
	}).Info("Character created")
	return character, nil
}

// startingStats répartition initiale selon l'identité de la faction
func startingStats(faction models.Faction) models.StatVector {
	switch faction {
	case models.FactionShadow:
		return models.StatVector{Might: 6, Finesse: 10, Fortitude: 5, Arcana: 4, Insight: 8, Presence: 3}
	case models.FactionWild:
		return models.StatVector{Might: 9, Finesse: 6, Fortitude: 8, Arcana: 3, Insight: 4, Presence: 6}
	default:
		return models.StatVector{Might: 8, Finesse: 4, Fortitude: 8, Arcana: 7, Insight: 5, Presence: 4}
	}
}

// List liste les personnages de l'utilisateur
func (s *CharacterService) List(ctx context.Context, userID uuid.UUID) ([]*models.Character, error) {
	return s.characters.ListByUser(ctx, userID)
}

// Get charge un personnage avec son équipement, propriété vérifiée
func (s *CharacterService) Get(ctx context.Context, userID, characterID uuid.UUID) (*models.Character, error) {
	character, err := s.owned(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}
	if err := s.loadEquipment(ctx, character); err != nil {
		return nil, err
	}
	return character, nil
}

// Delete supprime un personnage (l'historique des matchs survit)
func (s *CharacterService) Delete(ctx context.Context, userID, characterID uuid.UUID) error {
	if _, err := s.owned(ctx, userID, characterID); err != nil {
		return err
	}
	if err := s.characters.Delete(ctx, characterID); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"character_id": characterID,
		"user_id":      userID,
	}).Info("Character deleted")
	return nil
}

// AllocateStats dépense des points non alloués. L'allocation est atomique :
// soit tout le vecteur passe, soit rien.
func (s *CharacterService) AllocateStats(ctx context.Context, userID, characterID uuid.UUID, req *models.AllocateStatsRequest) (*models.Character, error) {
	alloc := req.Allocations
	if alloc.Might < 0 || alloc.Finesse < 0 || alloc.Fortitude < 0 ||
		alloc.Arcana < 0 || alloc.Insight < 0 || alloc.Presence < 0 {
		return nil, apperrors.Validation("stat allocations must be non-negative")
	}
	total := alloc.Total()
	if total == 0 {
		return nil, apperrors.Validation("no stat points allocated")
	}

	character, err := s.owned(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}
	if total > character.UnspentPoints {
		return nil, apperrors.Validation("not enough unspent points: have %d, need %d", character.UnspentPoints, total)
	}

	character.BaseStats = character.BaseStats.Add(alloc)
	character.UnspentPoints -= total
	if err := s.characters.Update(ctx, character); err != nil {
		return nil, err
	}
	return character, nil
}

// Equip monte un objet dans l'emplacement dicté par son type
func (s *CharacterService) Equip(ctx context.Context, userID, characterID, itemID uuid.UUID) (*models.Character, error) {
	if _, err := s.owned(ctx, userID, characterID); err != nil {
		return nil, err
	}
	item, err := s.characters.GetEquipment(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.CharacterID != characterID {
		return nil, apperrors.Forbidden("item %s does not belong to this character", itemID)
	}

	slot := models.SlotFor(item.Type)
	if err := s.characters.MountEquipment(ctx, characterID, itemID, slot); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, characterID)
}

// Unequip libère un emplacement vers l'inventaire
func (s *CharacterService) Unequip(ctx context.Context, userID, characterID uuid.UUID, slot models.EquipmentSlot) (*models.Character, error) {
	if _, err := s.owned(ctx, userID, characterID); err != nil {
		return nil, err
	}
	if err := s.characters.UnmountSlot(ctx, characterID, slot); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, characterID)
}

// DerivedStats calcule les stats de combat courantes d'un personnage
func (s *CharacterService) DerivedStats(ctx context.Context, userID, characterID uuid.UUID) (*models.DerivedStats, error) {
	character, err := s.Get(ctx, userID, characterID)
	if err != nil {
		return nil, err
	}
	derived := DeriveStats(character.BaseStats, character.Level, character.Equipped)
	return &derived, nil
}

// BuildParticipant instantané de combat d'un personnage : stats dérivées
// figées, set de capacités actives du moment
func (s *CharacterService) BuildParticipant(ctx context.Context, characterID uuid.UUID) (*models.Participant, error) {
	character, err := s.characters.GetByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	items, err := s.characters.ListEquipment(ctx, characterID)
	if err != nil {
		return nil, err
	}

	derived := DeriveStats(character.BaseStats, character.Level, items)
	armed := false
	for _, item := range items {
		if item.MountedSlot != nil && *item.MountedSlot == models.SlotWeapon {
			armed = true
			break
		}
	}

	return &models.Participant{
		CharacterID: character.ID,
		Name:        character.Name,
		Faction:     character.Faction,
		Level:       character.Level,
		Stats:       derived,
		Armed:       armed,
		Abilities:   catalog.ActiveAbilities(character.Faction, character.Level),
		Cooldowns:   make(map[string]int),
	}, nil
}

// owned charge un personnage et vérifie la propriété
func (s *CharacterService) owned(ctx context.Context, userID, characterID uuid.UUID) (*models.Character, error) {
	character, err := s.characters.GetByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if character.UserID != userID {
		return nil, apperrors.Forbidden("character %s does not belong to this user", characterID)
	}
	return character, nil
}

func (s *CharacterService) loadEquipment(ctx context.Context, character *models.Character) error {
	items, err := s.characters.ListEquipment(ctx, character.ID)
	if err != nil {
		return err
	}
	character.Inventory = character.Inventory[:0]
	character.Equipped = character.Equipped[:0]
	for _, item := range items {
		if item.MountedSlot != nil {
			character.Equipped = append(character.Equipped, item)
		} else {
			character.Inventory = append(character.Inventory, item)
		}
	}
	return nil
}
