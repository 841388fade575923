package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/models"
	"idleduelist/internal/service"
)

// ContextUserID clé du contexte gin portant l'ID de l'utilisateur authentifié
const ContextUserID = "user_id"

// ContextUsername clé du contexte gin portant le nom de l'utilisateur
const ContextUsername = "username"

// RequireAuth exige un access token Bearer valide et place l'identité
// dans le contexte de la requête
func RequireAuth(auth service.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := auth.ValidateAccessToken(parts[1])
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"path":       c.Request.URL.Path,
				"client_ip":  c.ClientIP(),
				"request_id": c.GetHeader("X-Request-ID"),
			}).Warn("Token validation failed")
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		auth.TouchSession(c.Request.Context(), claims.UserID)
		c.Next()
	}
}

// UserID extrait l'ID utilisateur posé par RequireAuth
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorEnvelope{
		Error: models.ErrorBody{
			Type:    "Unauthenticated",
			Message: message,
		},
	})
}
