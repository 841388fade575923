package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/models"
)

// UserRepositoryInterface définit les méthodes du repository utilisateur
type UserRepositoryInterface interface {
	Create(ctx context.Context, username, passwordHash string, email *string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserRepository implémente l'interface UserRepositoryInterface
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository crée une nouvelle instance du repository utilisateur
func NewUserRepository(db *sqlx.DB) UserRepositoryInterface {
	return &UserRepository{db: db}
}

// Create insère un nouvel utilisateur.
// La contrainte UNIQUE sur username garantit l'unicité globale.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string, email *string) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := r.db.Rebind(`
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	err := withWriteRetry(ctx, "user.create", func() error {
		_, err := r.db.ExecContext(ctx, query,
			user.ID.String(), user.Username, user.Email, user.PasswordHash,
			user.CreatedAt, user.UpdatedAt)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("username %q is already taken", username)
		}
		return nil, wrapDBError("failed to create user", err)
	}

	return user, nil
}

// GetByUsername récupère un utilisateur par son nom (sensible à la casse)
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT * FROM users WHERE username = ?`)

	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user %q not found", username)
		}
		return nil, wrapDBError("failed to get user", err)
	}
	return &user, nil
}

// GetByID récupère un utilisateur par son identifiant
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT * FROM users WHERE id = ?`)

	if err := r.db.GetContext(ctx, &user, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user %s not found", id)
		}
		return nil, wrapDBError("failed to get user", err)
	}
	return &user, nil
}

// isUniqueViolation identifie une violation de contrainte d'unicité
// (code 23505 côté PostgreSQL, message UNIQUE côté SQLite)
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint")
}

// wrapDBError catégorise une erreur d'infrastructure de base de données
func wrapDBError(message string, err error) error {
	if isConnectionError(err) {
		return apperrors.Unavailable(message).WithCause(err)
	}
	return apperrors.Internal(message).WithCause(err)
}
