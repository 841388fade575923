package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchmakingTicket entrée de la file d'attente PvP.
// Au plus un ticket par utilisateur ; le score du sorted set est le rating.
type MatchmakingTicket struct {
	UserID      uuid.UUID `json:"user_id"`
	CharacterID uuid.UUID `json:"character_id"`
	Rating      int       `json:"rating"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
	AllowBots   bool      `json:"allow_bots"`
}

// Age retourne l'ancienneté du ticket
func (t *MatchmakingTicket) Age(now time.Time) time.Duration {
	return now.Sub(t.EnqueuedAt)
}

// QueueStatus statut renvoyé au client en file d'attente
type QueueStatus struct {
	InQueue    bool      `json:"in_queue"`
	Position   int       `json:"position,omitempty"`
	QueueDepth int       `json:"queue_depth,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at,omitempty"`
	Window     int       `json:"current_window,omitempty"`
	CombatID   *uuid.UUID `json:"combat_id,omitempty"`
}

// MatchRecord enregistrement immuable d'un match terminé
type MatchRecord struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	CombatID      uuid.UUID         `json:"combat_id" db:"combat_id"`
	Mode          CombatMode        `json:"mode" db:"mode"`
	WinnerID      *uuid.UUID        `json:"winner_id" db:"winner_id"`
	LoserID       *uuid.UUID        `json:"loser_id" db:"loser_id"`
	WinnerName    string            `json:"winner_name" db:"winner_name"`
	LoserName     string            `json:"loser_name" db:"loser_name"`
	WinnerDelta   int               `json:"winner_delta" db:"winner_delta"`
	LoserDelta    int               `json:"loser_delta" db:"loser_delta"`
	Turns         int               `json:"turns" db:"turns"`
	Duration      time.Duration     `json:"duration" db:"duration_ms"`
	Reason        TerminationReason `json:"reason" db:"reason"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// RankingEntry ligne du classement PvP
type RankingEntry struct {
	Rank        int       `json:"rank" db:"-"`
	CharacterID uuid.UUID `json:"character_id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Faction     Faction   `json:"faction" db:"faction"`
	Level       int       `json:"level" db:"level"`
	Rating      int       `json:"rating" db:"rating"`
	Wins        int       `json:"wins" db:"wins"`
	Losses      int       `json:"losses" db:"losses"`
}

// DailyStats agrégat journalier par personnage
type DailyStats struct {
	CharacterID uuid.UUID `json:"character_id" db:"character_id"`
	Day         string    `json:"day" db:"day"`
	Wins        int       `json:"wins" db:"wins"`
	Losses      int       `json:"losses" db:"losses"`
	DamageDealt int64     `json:"damage_dealt" db:"damage_dealt"`
	GoldEarned  int64     `json:"gold_earned" db:"gold_earned"`
	XPEarned    int64     `json:"xp_earned" db:"xp_earned"`
}
