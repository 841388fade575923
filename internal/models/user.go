package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// UsernamePattern contraint les noms d'utilisateur (3-50, alphanumériques + _)
var UsernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)

// User représente un compte utilisateur
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        *string   `json:"email,omitempty" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Session représente une session active suivie dans le store éphémère
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	IssuedAt  time.Time `json:"issued_at"`
	LastSeen  time.Time `json:"last_seen"`
	ClientIP  string    `json:"client_ip,omitempty"`
}
