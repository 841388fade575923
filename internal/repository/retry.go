package repository

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Backoff borné des écritures : 3 tentatives à 100ms / 400ms / 1.6s
var writeBackoff = []time.Duration{
	100 * time.Millisecond,
	400 * time.Millisecond,
	1600 * time.Millisecond,
}

// withWriteRetry réessaie une écriture sur erreur de connexion.
// Les erreurs de domaine (contrainte violée, ligne absente) ne sont
// jamais réessayées.
func withWriteRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < len(writeBackoff); attempt++ {
		err = fn()
		if err == nil || !isConnectionError(err) {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt + 1,
			"backoff":   writeBackoff[attempt],
		}).WithError(err).Warn("Database write failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(writeBackoff[attempt]):
		}
	}
	return err
}

// isConnectionError identifie les erreurs transitoires de connexion
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"database is locked",
		"i/o timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
