package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/cache"
)

// StartQueueSweepRoutine démarre la routine d'appariement de la file PvP
func (s *MatchmakingService) StartQueueSweepRoutine() {
	ticker := time.NewTicker(s.cfg.Matchmaking.SweepInterval)
	go func() {
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Matchmaking.SweepInterval)
			if err := s.Sweep(ctx); err != nil {
				logrus.WithError(err).Warn("Matchmaking sweep failed")
			}
			cancel()
		}
	}()
}

// StartArchiveSweepRoutine démarre la routine de reprise d'archivage :
// les combats terminaux dont l'archivage a échoué sont réessayés jusqu'à
// ce que la persistance réponde, ou que leur état ait expiré du store.
func (s *CombatService) StartArchiveSweepRoutine() {
	ticker := time.NewTicker(s.cfg.Combat.SweepInterval)
	go func() {
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Combat.SweepInterval)
			s.sweepArchives(ctx)
			cancel()
		}
	}()
}

// sweepArchives rejoue finalize sur tous les combats en attente d'archivage
func (s *CombatService) sweepArchives(ctx context.Context) {
	pending, err := s.store.ZRangeByScore(ctx, cache.ArchiveQueueKey, 0, float64(time.Now().Unix()))
	if err != nil {
		logrus.WithError(err).Warn("Archive sweep failed to read pending combats")
		return
	}

	for _, member := range pending {
		combatID, err := uuid.Parse(member.Member)
		if err != nil {
			_ = s.store.ZRem(ctx, cache.ArchiveQueueKey, member.Member)
			continue
		}
		state, err := s.load(ctx, combatID)
		if err != nil {
			// état expiré du store : plus rien à archiver
			_ = s.store.ZRem(ctx, cache.ArchiveQueueKey, member.Member)
			logrus.WithField("combat_id", combatID).
				Warn("Terminal combat expired before it could be archived")
			continue
		}
		if !state.IsTerminal() || state.Archived {
			_ = s.store.ZRem(ctx, cache.ArchiveQueueKey, member.Member)
			continue
		}
		s.finalize(ctx, state)
	}
}
