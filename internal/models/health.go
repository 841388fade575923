package models

import "time"

// Constantes pour les statuts de santé
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusDegraded  = "degraded"
	HealthStatusUnhealthy = "unhealthy"
)

// HealthResponse représente la réponse de santé du service
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// HealthCheck représente un contrôle de santé individuel
type HealthCheck struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time_ms"`
	Error        string        `json:"error,omitempty"`
}

// RuntimeSnapshot vue en mémoire rafraîchie par le sweeper de métriques
type RuntimeSnapshot struct {
	ActiveCombats   int       `json:"active_combats"`
	QueueDepth      int       `json:"queue_depth"`
	ActiveSessions  int       `json:"active_sessions"`
	AutoFightLoops  int       `json:"autofight_loops"`
	Goroutines      int       `json:"goroutines"`
	SnapshotAt      time.Time `json:"snapshot_at"`
}
