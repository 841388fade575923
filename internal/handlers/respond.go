package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/models"
)

// errNoIdentity signale un contexte sans identité alors que la route est
// montée derrière RequireAuth
var errNoIdentity = apperrors.Unauthenticated("missing authenticated identity")

// respondError traduit une erreur du domaine en réponse HTTP typée.
// Les erreurs internes sont loguées avec leur cause mais jamais exposées.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)

	if appErr.Type == apperrors.TypeInternal {
		logrus.WithError(err).WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": c.GetHeader("X-Request-ID"),
		}).Error("Request failed")
	}

	body := models.ErrorBody{
		Type:       string(appErr.Type),
		Message:    appErr.Message,
		Details:    appErr.Details,
		RetryAfter: appErr.RetryAfter,
	}
	if appErr.Type == apperrors.TypeInternal {
		body.Message = "internal server error"
		body.Details = nil
	}
	if appErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}

	c.AbortWithStatusJSON(appErr.HTTPStatus(), models.ErrorEnvelope{Error: body})
}

// respondBindError uniformise les erreurs de parsing du corps JSON
func respondBindError(c *gin.Context, err error) {
	respondError(c, apperrors.Validation("invalid request body").WithDetails(err.Error()))
}

// pathUUID extrait un UUID d'un paramètre de route
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperrors.Validation("invalid %s in path", name))
		return uuid.Nil, false
	}
	return id, true
}
