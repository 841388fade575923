package cache

import (
	"context"
	"time"

	"idleduelist/internal/config"

	"github.com/sirupsen/logrus"
)

// Préfixes de clés. Tout accès au store passe par ces espaces de noms.
const (
	PrefixCombat    = "combat:"
	PrefixAutoFight = "autofight:"
	PrefixSession   = "session:"
	PrefixIdem      = "idem:"
	PrefixActive    = "active:"
	PrefixRateLimit = "ratelimit:"
	QueueKey        = "pvpqueue"
	TicketPrefix    = "pvpticket:"
	ArchiveQueueKey = "archivequeue"
)

// Entry valeur versionnée du store. Version croît strictement à chaque
// écriture réussie ; une écriture CAS avec une version périmée échoue.
type Entry struct {
	Value   []byte
	Version int64
}

// ZMember membre d'un sorted set (file d'attente PvP)
type ZMember struct {
	Member string
	Score  float64
}

// Store abstraction du stockage éphémère à TTL.
// Deux implémentations : Redis en production, mémoire locale en dev.
type Store interface {
	// Get retourne l'entrée ou (nil, nil) si la clé est absente ou expirée
	Get(ctx context.Context, key string) (*Entry, error)
	// SetWithTTL écrit sans condition et retourne la nouvelle version
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (int64, error)
	// CompareAndSwap écrit seulement si la version stockée vaut expectedVersion.
	// Retourne (newVersion, true) en cas de succès, (_, false) sinon.
	CompareAndSwap(ctx context.Context, key string, value []byte, expectedVersion int64, ttl time.Duration) (int64, bool, error)
	Delete(ctx context.Context, key string) error

	// Sorted set pour la file d'attente de matchmaking
	ZAdd(ctx context.Context, key, member string, score float64) error
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]ZMember, error)
	ZRem(ctx context.Context, key string, members ...string) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZRank(ctx context.Context, key, member string) (int64, bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// New choisit l'implémentation d'après la configuration.
// CACHE_URL vide = repli en mémoire locale, avec avertissement : l'état
// n'est alors ni partagé entre instances ni durable.
func New(cfg *config.CacheConfig) (Store, error) {
	if cfg.URL == "" {
		logrus.Warn("CACHE_URL not set, using in-memory ephemeral store; state is neither shared nor durable")
		store := NewMemoryStore()
		store.StartJanitorRoutine(time.Minute)
		return store, nil
	}
	return NewRedisStore(cfg)
}
