package models

import (
	"time"

	"github.com/google/uuid"
)

// CombatMode mode d'une instance de combat
type CombatMode string

const (
	ModePvE       CombatMode = "pve"
	ModePvP       CombatMode = "pvp"
	ModeAutoFight CombatMode = "autofight"
)

// CombatStatus statut d'une instance de combat
type CombatStatus string

const (
	CombatOngoing  CombatStatus = "ongoing"
	CombatTerminal CombatStatus = "terminal"
)

// TerminationReason raison de fin d'un combat
type TerminationReason string

const (
	ReasonKill    TerminationReason = "Kill"
	ReasonExecute TerminationReason = "Execute"
	ReasonTurnCap TerminationReason = "TurnCap"
	ReasonForfeit TerminationReason = "Forfeit"
)

// StatusKind type d'effet de statut
type StatusKind string

const (
	StatusPoison    StatusKind = "poison"
	StatusBleed     StatusKind = "bleed"
	StatusStun      StatusKind = "stun"
	StatusSlow      StatusKind = "slow"
	StatusInvisible StatusKind = "invisible"
	StatusShield    StatusKind = "shield"
	StatusRoot      StatusKind = "root"
	StatusRegen     StatusKind = "regen"
	StatusWeakened  StatusKind = "weakened"
	StatusEmpowered StatusKind = "empowered"
	StatusDefending StatusKind = "defending"
)

// StatusEffect effet de statut attaché à un participant
type StatusEffect struct {
	Kind      StatusKind `json:"kind"`
	Duration  int        `json:"duration"`
	Magnitude float64    `json:"magnitude"`
	SourceIdx int        `json:"source_idx"`
}

// Participant est l'instantané d'un combattant (joueur ou ennemi)
type Participant struct {
	CharacterID uuid.UUID    `json:"character_id,omitempty"`
	EnemyID     string       `json:"enemy_id,omitempty"`
	IsBot       bool         `json:"is_bot,omitempty"`
	Name        string       `json:"name"`
	Faction     Faction      `json:"faction"`
	Level       int          `json:"level"`
	HP          int          `json:"hp"`
	MaxHP       int          `json:"max_hp"`
	Stats       DerivedStats `json:"stats"`
	Armed       bool         `json:"armed"`

	// Capacités actives et leurs cooldowns courants
	Abilities []string       `json:"abilities"`
	Cooldowns map[string]int `json:"cooldowns"`
	Statuses  []StatusEffect `json:"statuses"`
}

// HasStatus teste la présence d'un effet de statut
func (p *Participant) HasStatus(kind StatusKind) bool {
	for i := range p.Statuses {
		if p.Statuses[i].Kind == kind {
			return true
		}
	}
	return false
}

// StatusMagnitude retourne la magnitude cumulée d'un type d'effet
func (p *Participant) StatusMagnitude(kind StatusKind) float64 {
	var total float64
	for i := range p.Statuses {
		if p.Statuses[i].Kind == kind {
			total += p.Statuses[i].Magnitude
		}
	}
	return total
}

// HPRatio retourne le ratio de vie courant
func (p *Participant) HPRatio() float64 {
	if p.MaxHP == 0 {
		return 0
	}
	return float64(p.HP) / float64(p.MaxHP)
}

// HasAbility vérifie qu'une capacité fait partie du set actif
func (p *Participant) HasAbility(abilityID string) bool {
	for _, id := range p.Abilities {
		if id == abilityID {
			return true
		}
	}
	return false
}

// ActionType type d'action soumise par un joueur
type ActionType string

const (
	ActionAttack  ActionType = "attack"
	ActionAbility ActionType = "ability"
	ActionDefend  ActionType = "defend"
)

// Action action soumise pour résolution
type Action struct {
	Type      ActionType `json:"type"`
	AbilityID string     `json:"ability_id,omitempty"`
}

// LogEvent entrée du journal d'actions d'un combat
type LogEvent struct {
	Turn          int        `json:"turn"`
	Actor         string     `json:"actor"`
	Kind          string     `json:"kind"`
	AbilityID     string     `json:"ability_id,omitempty"`
	Target        string     `json:"target,omitempty"`
	Hit           bool       `json:"hit"`
	Crit          bool       `json:"crit"`
	Damage        int        `json:"damage,omitempty"`
	Healed        int        `json:"healed,omitempty"`
	StatusApplied StatusKind `json:"status_applied,omitempty"`
	CooldownSet   int        `json:"cooldown_set,omitempty"`
}

// CombatState est l'état complet d'un combat, stocké dans le store éphémère.
// Toute mutation passe par un CAS sur Version.
type CombatState struct {
	ID      uuid.UUID  `json:"id"`
	Mode    CombatMode `json:"mode"`
	OwnerID uuid.UUID  `json:"owner_id"`
	Version int64      `json:"version"`

	Seed     uint64 `json:"seed"`
	RNGState uint64 `json:"rng_state"`

	Turn       int             `json:"turn"`
	// TurnCap plafond de tours ; zéro = plafond par défaut du simulateur
	TurnCap    int             `json:"turn_cap,omitempty"`
	CurrentIdx int             `json:"current_idx"`
	Participants [2]*Participant `json:"participants"`
	Log        []LogEvent      `json:"log"`

	Status   CombatStatus      `json:"status"`
	WinnerIdx *int             `json:"winner_idx,omitempty"`
	Reason   TerminationReason `json:"reason,omitempty"`

	// Archived : le MatchRecord terminal a été persisté en base
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Current retourne le participant dont c'est le tour
func (s *CombatState) Current() *Participant {
	return s.Participants[s.CurrentIdx]
}

// Opponent retourne l'adversaire du participant courant
func (s *CombatState) Opponent() *Participant {
	return s.Participants[1-s.CurrentIdx]
}

// IsTerminal indique si le combat est terminé
func (s *CombatState) IsTerminal() bool {
	return s.Status == CombatTerminal
}

// Winner retourne le participant vainqueur (nil si combat en cours)
func (s *CombatState) Winner() *Participant {
	if s.WinnerIdx == nil {
		return nil
	}
	return s.Participants[*s.WinnerIdx]
}

// Loser retourne le participant vaincu (nil si combat en cours)
func (s *CombatState) Loser() *Participant {
	if s.WinnerIdx == nil {
		return nil
	}
	return s.Participants[1-*s.WinnerIdx]
}

// AutoFightProgress état checkpointé d'une boucle auto-fight
type AutoFightProgress struct {
	CharacterID uuid.UUID `json:"character_id"`
	CombatID    uuid.UUID `json:"combat_id"`
	EnemyID     string    `json:"enemy_id"`
	Cancelled   bool      `json:"cancelled"`
	TurnsPlayed int       `json:"turns_played"`
	LastTurnAt  time.Time `json:"last_turn_at"`
	StartedAt   time.Time `json:"started_at"`
}
