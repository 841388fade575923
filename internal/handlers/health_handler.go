package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"idleduelist/internal/cache"
	"idleduelist/internal/models"
)

var serviceStartTime = time.Now()

// HealthHandler gère les routes de santé du service
type HealthHandler struct {
	db    *sqlx.DB
	store cache.Store
}

// NewHealthHandler crée un nouveau handler de santé
func NewHealthHandler(db *sqlx.DB, store cache.Store) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

// HealthCheck état complet du service et de ses dépendances
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response := models.HealthResponse{
		Service:   "idleduelist",
		Version:   "1.0.0",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(serviceStartTime).String(),
		Checks:    make(map[string]models.HealthCheck),
	}

	response.Checks["database"] = h.checkDatabase(c)
	response.Checks["cache"] = h.checkCache(c)

	response.Status = models.HealthStatusHealthy
	for _, check := range response.Checks {
		if check.Status == models.HealthStatusUnhealthy {
			response.Status = models.HealthStatusUnhealthy
			break
		}
	}

	statusCode := http.StatusOK
	if response.Status == models.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

// ReadinessCheck la base de données est la seule dépendance bloquante :
// sans elle aucune écriture durable n'aboutit
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "database_unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}

// LivenessCheck le processus répond
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(serviceStartTime).String(),
	})
}

func (h *HealthHandler) checkDatabase(c *gin.Context) models.HealthCheck {
	start := time.Now()
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		return models.HealthCheck{
			Status:       models.HealthStatusUnhealthy,
			ResponseTime: time.Since(start) / time.Millisecond,
			Error:        err.Error(),
		}
	}
	return models.HealthCheck{
		Status:       models.HealthStatusHealthy,
		ResponseTime: time.Since(start) / time.Millisecond,
	}
}

func (h *HealthHandler) checkCache(c *gin.Context) models.HealthCheck {
	start := time.Now()
	if err := h.store.Ping(c.Request.Context()); err != nil {
		return models.HealthCheck{
			Status:       models.HealthStatusUnhealthy,
			ResponseTime: time.Since(start) / time.Millisecond,
			Error:        err.Error(),
		}
	}
	return models.HealthCheck{
		Status:       models.HealthStatusHealthy,
		ResponseTime: time.Since(start) / time.Millisecond,
	}
}
