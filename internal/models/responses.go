package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthResponse réponse des endpoints register/login
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CharacterSummary résumé d'un personnage pour les listes
type CharacterSummary struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Faction Faction   `json:"faction"`
	Level   int       `json:"level"`
	XP      int64     `json:"xp"`
	Rating  int       `json:"rating"`
}

// ParticipantView vue d'un participant dans le payload d'état de combat
type ParticipantView struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	HP        int            `json:"hp"`
	MaxHP     int            `json:"max_hp"`
	Statuses  []StatusEffect `json:"statuses"`
	Cooldowns map[string]int `json:"cooldowns"`
}

// CombatStateView payload d'état de combat renvoyé au client
type CombatStateView struct {
	CombatID     uuid.UUID         `json:"combat_id"`
	Mode         CombatMode        `json:"mode"`
	Turn         int               `json:"turn"`
	CurrentActor string            `json:"current_actor"`
	Participants []ParticipantView `json:"participants"`
	Log          []LogEvent        `json:"log"`
	Status       CombatStatus      `json:"status"`
	Winner       *string           `json:"winner,omitempty"`
	Reason       TerminationReason `json:"reason,omitempty"`
}

// ViewOf construit la vue client d'un état de combat
func ViewOf(s *CombatState) *CombatStateView {
	view := &CombatStateView{
		CombatID:     s.ID,
		Mode:         s.Mode,
		Turn:         s.Turn,
		CurrentActor: participantKey(s.Current()),
		Log:          s.Log,
		Status:       s.Status,
		Reason:       s.Reason,
	}

	for _, p := range s.Participants {
		statuses := p.Statuses
		if statuses == nil {
			statuses = []StatusEffect{}
		}
		view.Participants = append(view.Participants, ParticipantView{
			ID:        participantKey(p),
			Name:      p.Name,
			HP:        p.HP,
			MaxHP:     p.MaxHP,
			Statuses:  statuses,
			Cooldowns: p.Cooldowns,
		})
	}

	if winner := s.Winner(); winner != nil {
		key := participantKey(winner)
		view.Winner = &key
	}

	return view
}

// participantKey retourne l'identifiant stable d'un participant
func participantKey(p *Participant) string {
	if p.EnemyID != "" {
		return p.EnemyID
	}
	return p.CharacterID.String()
}

// QueueResponse réponse d'entrée en file PvP
type QueueResponse struct {
	TicketID uuid.UUID `json:"ticket_id"`
	Position int       `json:"position"`
}

// RewardResponse récompenses distribuées en fin de PvE
type RewardResponse struct {
	XP        int64      `json:"xp"`
	Gold      int64      `json:"gold"`
	LeveledUp bool       `json:"leveled_up"`
	NewLevel  int        `json:"new_level,omitempty"`
	Drop      *Equipment `json:"drop,omitempty"`
}

// ErrorBody enveloppe d'erreur standard de l'API
type ErrorBody struct {
	Type       string      `json:"type"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	RetryAfter int         `json:"retry_after_seconds,omitempty"`
}

// ErrorEnvelope réponse d'erreur complète
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}
