package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/cache"
	"idleduelist/internal/config"
	"idleduelist/internal/models"
	"idleduelist/internal/repository"
)

// bcryptCost facteur de travail du hachage des mots de passe
const bcryptCost = 12

// dummyHash hash bcrypt d'une chaîne aléatoire jetée. Quand l'utilisateur
// n'existe pas, on compare quand même contre ce hash : la latence et le
// type d'erreur sont indistinguables d'un mauvais mot de passe.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// Claims charge utile des tokens signés
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	TokenType string    `json:"token_type"`
	jwt.RegisteredClaims
}

// AuthServiceInterface définit les méthodes du service d'authentification
type AuthServiceInterface interface {
	Register(ctx context.Context, req *models.RegisterRequest, clientIP string) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest, clientIP string) (*models.AuthResponse, error)
	Refresh(ctx context.Context, req *models.RefreshRequest) (*models.AuthResponse, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	TouchSession(ctx context.Context, userID uuid.UUID)
	Logout(ctx context.Context, userID uuid.UUID) error
}

// AuthService implémente AuthServiceInterface
type AuthService struct {
	users   repository.UserRepositoryInterface
	store   cache.Store
	cfg     *config.Config
	secrets [][]byte
}

// NewAuthService crée une nouvelle instance du service d'authentification.
// Le premier secret du trousseau signe, tous valident.
func NewAuthService(users repository.UserRepositoryInterface, store cache.Store, cfg *config.Config) *AuthService {
	secretStrings := cfg.JWT.SecretList()
	secrets := make([][]byte, 0, len(secretStrings))
	for _, s := range secretStrings {
		secrets = append(secrets, []byte(s))
	}
	return &AuthService{users: users, store: store, cfg: cfg, secrets: secrets}
}

// Register crée un compte et ouvre une session
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest, clientIP string) (*models.AuthResponse, error) {
	if !models.UsernamePattern.MatchString(req.Username) {
		return nil, apperrors.Validation("username must be 3-50 characters (letters, digits, underscore)").
			WithDetails(map[string]interface{}{"field": "username"})
	}
	if len(req.Password) < minPasswordLength || len(req.Password) > maxPasswordLength {
		return nil, apperrors.Validation("password must be between %d and %d characters", minPasswordLength, maxPasswordLength).
			WithDetails(map[string]interface{}{"field": "password"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password").WithCause(err)
	}

	user, err := s.users.Create(ctx, req.Username, string(hash), req.Email)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	return s.openSession(ctx, user, clientIP)
}

// Login vérifie les identifiants. Un utilisateur inconnu emprunte le même
// chemin qu'un mauvais mot de passe : même coût bcrypt, même erreur.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest, clientIP string) (*models.AuthResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(req.Password))
		return nil, apperrors.Unauthenticated("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthenticated("invalid credentials")
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID}).Info("User logged in")
	return s.openSession(ctx, user, clientIP)
}

// Refresh échange un refresh token valide contre une nouvelle paire
func (s *AuthService) Refresh(ctx context.Context, req *models.RefreshRequest) (*models.AuthResponse, error) {
	claims, err := s.parseToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, apperrors.Unauthenticated("not a refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated("account no longer exists")
	}
	return s.openSession(ctx, user, "")
}

// ValidateAccessToken valide un access token contre le trousseau
func (s *AuthService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "access" {
		return nil, apperrors.Unauthenticated("not an access token")
	}
	return claims, nil
}

// TouchSession met à jour l'horodatage de dernière activité
func (s *AuthService) TouchSession(ctx context.Context, userID uuid.UUID) {
	key := cache.PrefixSession + userID.String()
	entry, err := s.store.Get(ctx, key)
	if err != nil || entry == nil {
		return
	}
	var session models.Session
	if json.Unmarshal(entry.Value, &session) != nil {
		return
	}
	session.LastSeen = time.Now().UTC()
	if payload, err := json.Marshal(&session); err == nil {
		_, _ = s.store.SetWithTTL(ctx, key, payload, s.cfg.Cache.SessionTTL)
	}
}

// Logout ferme la session suivie ; les tokens expirent d'eux-mêmes
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.store.Delete(ctx, cache.PrefixSession+userID.String())
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, clientIP string) (*models.AuthResponse, error) {
	access, err := s.issueToken(user, "access", s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issueToken(user, "refresh", s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := models.Session{
		UserID:   user.ID,
		Username: user.Username,
		IssuedAt: now,
		LastSeen: now,
		ClientIP: clientIP,
	}
	if payload, err := json.Marshal(&session); err == nil {
		_, _ = s.store.SetWithTTL(ctx, cache.PrefixSession+user.ID.String(), payload, s.cfg.Cache.SessionTTL)
	}

	return &models.AuthResponse{
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(s.cfg.JWT.AccessTokenTTL),
	}, nil
}

func (s *AuthService) issueToken(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID:    user.ID,
		Username:  user.Username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secrets[0])
	if err != nil {
		return "", apperrors.Internal("failed to sign token").WithCause(err)
	}
	return signed, nil
}

// parseToken essaie chaque secret du trousseau : une rotation de clé
// n'invalide pas les tokens émis avec l'ancienne
func (s *AuthService) parseToken(tokenString string) (*Claims, error) {
	var lastErr error
	for _, secret := range s.secrets {
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, apperrors.Unauthenticated("unexpected signing method")
			}
			return secret, nil
		})
		if err == nil && token.Valid {
			return claims, nil
		}
		lastErr = err
	}
	return nil, apperrors.Unauthenticated("invalid or expired token").WithCause(lastErr)
}
