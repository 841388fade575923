package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/cache"
	"idleduelist/internal/config"
	"idleduelist/internal/models"
)

// stubUserRepo garde les utilisateurs en mémoire
type stubUserRepo struct {
	byName map[string]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byName: make(map[string]*models.User)}
}

func (r *stubUserRepo) Create(ctx context.Context, username, passwordHash string, email *string) (*models.User, error) {
	if _, exists := r.byName[username]; exists {
		return nil, apperrors.Conflict("username %q is already taken", username)
	}
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byName[username] = user
	return user, nil
}

func (r *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := r.byName[username]
	if !ok {
		return nil, apperrors.NotFound("user %q not found", username)
	}
	return user, nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range r.byName {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, apperrors.NotFound("user %s not found", id)
}

func authConfig(secrets string) *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secrets:         secrets,
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Cache: config.CacheConfig{
			SessionTTL: 5 * time.Minute,
		},
	}
}

func newTestAuth(secrets string) (*AuthService, *stubUserRepo, *cache.MemoryStore) {
	repo := newStubUserRepo()
	store := cache.NewMemoryStore()
	return NewAuthService(repo, store, authConfig(secrets)), repo, store
}

func TestRegisterAndValidate(t *testing.T) {
	ctx := context.Background()
	auth, _, store := newTestAuth("test-secret")

	resp, err := auth.Register(ctx, &models.RegisterRequest{
		Username: "grendel",
		Password: "correct horse battery",
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "grendel", resp.Username)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	claims, err := auth.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, "grendel", claims.Username)

	// la session est suivie dans le store éphémère
	entry, err := store.Get(ctx, cache.PrefixSession+resp.UserID.String())
	require.NoError(t, err)
	assert.NotNil(t, entry)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newTestAuth("test-secret")

	_, err := auth.Register(ctx, &models.RegisterRequest{Username: "ab", Password: "long enough pass"}, "")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation), "username too short")

	_, err = auth.Register(ctx, &models.RegisterRequest{Username: "validname", Password: "short"}, "")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation), "password too short")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newTestAuth("test-secret")

	_, err := auth.Register(ctx, &models.RegisterRequest{Username: "grendel", Password: "password one"}, "")
	require.NoError(t, err)
	_, err = auth.Register(ctx, &models.RegisterRequest{Username: "grendel", Password: "password two"}, "")
	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newTestAuth("test-secret")

	_, err := auth.Register(ctx, &models.RegisterRequest{Username: "grendel", Password: "the right password"}, "")
	require.NoError(t, err)

	_, err = auth.Login(ctx, &models.LoginRequest{Username: "grendel", Password: "the wrong password"}, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeUnauthenticated))

	// utilisateur inconnu : même type et même message que le mauvais mot de
	// passe, rien ne distingue les deux cas
	_, unknownErr := auth.Login(ctx, &models.LoginRequest{Username: "nobody", Password: "whatever pass"}, "")
	require.Error(t, unknownErr)
	assert.True(t, apperrors.IsType(unknownErr, apperrors.TypeUnauthenticated))
	assert.Equal(t, err.Error(), unknownErr.Error())
}

func TestLoginIssuesFreshTokens(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newTestAuth("test-secret")

	reg, err := auth.Register(ctx, &models.RegisterRequest{Username: "grendel", Password: "the right password"}, "")
	require.NoError(t, err)

	login, err := auth.Login(ctx, &models.LoginRequest{Username: "grendel", Password: "the right password"}, "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, login.UserID)

	claims, err := auth.ValidateAccessToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, claims.UserID)
}

func TestRefreshTokenFlow(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newTestAuth("test-secret")

	reg, err := auth.Register(ctx, &models.RegisterRequest{Username: "grendel", Password: "the right password"}, "")
	require.NoError(t, err)

	refreshed, err := auth.Refresh(ctx, &models.RefreshRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, refreshed.UserID)

	// un access token ne passe pas pour un refresh token, et inversement
	_, err = auth.Refresh(ctx, &models.RefreshRequest{RefreshToken: reg.AccessToken})
	assert.True(t, apperrors.IsType(err, apperrors.TypeUnauthenticated))

	_, err = auth.ValidateAccessToken(reg.RefreshToken)
	assert.True(t, apperrors.IsType(err, apperrors.TypeUnauthenticated))
}

func TestKeyRingRotation(t *testing.T) {
	ctx := context.Background()

	oldAuth, oldRepo, _ := newTestAuth("old-secret")
	reg, err := oldAuth.Register(ctx, &models.RegisterRequest{Username: "grendel", Password: "the right password"}, "")
	require.NoError(t, err)

	// après rotation la nouvelle clé signe, l'ancienne ne fait que vérifier
	rotated := NewAuthService(oldRepo, cache.NewMemoryStore(), authConfig("new-secret,old-secret"))
	claims, err := rotated.ValidateAccessToken(reg.AccessToken)
	require.NoError(t, err, "token signed before rotation still validates")
	assert.Equal(t, reg.UserID, claims.UserID)

	login, err := rotated.Login(ctx, &models.LoginRequest{Username: "grendel", Password: "the right password"}, "")
	require.NoError(t, err)

	// un service qui ne connaît que l'ancienne clé rejette les nouveaux tokens
	_, err = oldAuth.ValidateAccessToken(login.AccessToken)
	assert.True(t, apperrors.IsType(err, apperrors.TypeUnauthenticated))
}

func TestLogoutDropsSession(t *testing.T) {
	ctx := context.Background()
	auth, _, store := newTestAuth("test-secret")

	reg, err := auth.Register(ctx, &models.RegisterRequest{Username: "grendel", Password: "the right password"}, "")
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx, reg.UserID))

	entry, err := store.Get(ctx, cache.PrefixSession+reg.UserID.String())
	require.NoError(t, err)
	assert.Nil(t, entry)
}
