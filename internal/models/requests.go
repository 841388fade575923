package models

import "github.com/google/uuid"

// RegisterRequest requête d'inscription
type RegisterRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Email    *string `json:"email,omitempty"`
}

// LoginRequest requête de connexion
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest requête de renouvellement de token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateCharacterRequest requête de création de personnage
type CreateCharacterRequest struct {
	Name    string  `json:"name" binding:"required"`
	Faction Faction `json:"faction" binding:"required"`
}

// AllocateStatsRequest requête d'allocation de points de stats
type AllocateStatsRequest struct {
	Allocations StatVector `json:"allocations"`
}

// EquipRequest requête de montage d'un objet
type EquipRequest struct {
	ItemID uuid.UUID `json:"item_id" binding:"required"`
}

// UnequipRequest requête de démontage d'un emplacement
type UnequipRequest struct {
	Slot EquipmentSlot `json:"slot" binding:"required"`
}

// StartCombatRequest requête de lancement de combat
type StartCombatRequest struct {
	CharacterID uuid.UUID  `json:"character_id" binding:"required"`
	Mode        CombatMode `json:"mode" binding:"required"`
	EnemyID     string     `json:"enemy_id,omitempty"`
	OpponentID  *uuid.UUID `json:"opponent_id,omitempty"`
}

// CombatActionRequest requête d'action de combat
type CombatActionRequest struct {
	ActionType ActionType `json:"action_type" binding:"required"`
	AbilityID  string     `json:"ability_id,omitempty"`
}

// QueueRequest requête d'entrée en file PvP
type QueueRequest struct {
	CharacterID uuid.UUID `json:"character_id" binding:"required"`
	AllowBots   *bool     `json:"allow_bots,omitempty"`
}
