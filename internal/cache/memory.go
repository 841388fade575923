package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryEntry entrée versionnée avec expiration absolue (zéro = pas de TTL)
type memoryEntry struct {
	value     []byte
	version   int64
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore implémentation en mémoire locale du Store.
// Sert de repli quand CACHE_URL est absent ; un seul processus.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*memoryEntry
	sets map[string]map[string]float64

	// horloge injectable pour les tests
	now func() time.Time
}

// NewMemoryStore crée un store vide
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*memoryEntry),
		sets: make(map[string]map[string]float64),
		now:  time.Now,
	}
}

// StartJanitorRoutine purge périodiquement les entrées expirées.
// Redis expire tout seul ; en mémoire il faut balayer, sinon les sessions
// et idempotences mortes s'accumulent jusqu'au redémarrage.
func (s *MemoryStore) StartJanitorRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			s.mu.Lock()
			now := s.now()
			for key, e := range s.data {
				if e.expired(now) {
					delete(s.data, key)
				}
			}
			s.mu.Unlock()
		}
	}()
}

// Get retourne l'entrée ou (nil, nil) si absente ou expirée
func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	if e.expired(s.now()) {
		delete(s.data, key)
		return nil, nil
	}
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return &Entry{Value: value, Version: e.version}, nil
}

// SetWithTTL écrit sans condition, en incrémentant la version existante
func (s *MemoryStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := int64(1)
	if e, ok := s.data[key]; ok && !e.expired(s.now()) {
		version = e.version + 1
	}
	s.data[key] = s.newEntry(value, version, ttl)
	return version, nil
}

// CompareAndSwap écrit seulement si la version courante vaut expectedVersion.
// expectedVersion 0 = créer la clé seulement si elle est absente.
func (s *MemoryStore) CompareAndSwap(ctx context.Context, key string, value []byte, expectedVersion int64, ttl time.Duration) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := int64(0)
	if e, ok := s.data[key]; ok && !e.expired(s.now()) {
		current = e.version
	}
	if current != expectedVersion {
		return current, false, nil
	}
	next := current + 1
	s.data[key] = s.newEntry(value, next, ttl)
	return next, true, nil
}

func (s *MemoryStore) newEntry(value []byte, version int64, ttl time.Duration) *memoryEntry {
	stored := make([]byte, len(value))
	copy(stored, value)
	e := &memoryEntry{value: stored, version: version}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

// Delete supprime la clé ; supprimer une clé absente n'est pas une erreur
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// ZAdd ajoute ou met à jour un membre du sorted set
func (s *MemoryStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]float64)
		s.sets[key] = set
	}
	set[member] = score
	return nil
}

// ZRangeByScore retourne les membres dont le score est dans [min, max],
// triés par score croissant puis par membre
func (s *MemoryStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]ZMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var members []ZMember
	for member, score := range s.sets[key] {
		if score >= min && score <= max {
			members = append(members, ZMember{Member: member, Score: score})
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score < members[j].Score
		}
		return members[i].Member < members[j].Member
	})
	return members, nil
}

// ZRem retire des membres du sorted set
func (s *MemoryStore) ZRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}

// ZCard retourne la taille du sorted set
func (s *MemoryStore) ZCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sets[key])), nil
}

// ZRank retourne la position d'un membre (0 = plus petit score)
func (s *MemoryStore) ZRank(ctx context.Context, key, member string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[key]
	if !ok {
		return 0, false, nil
	}
	target, ok := set[member]
	if !ok {
		return 0, false, nil
	}
	rank := int64(0)
	for m, score := range set {
		if score < target || (score == target && m < member) {
			rank++
		}
	}
	return rank, true, nil
}

// Ping vérifie la disponibilité (toujours vrai en mémoire)
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close libère le store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*memoryEntry)
	s.sets = make(map[string]map[string]float64)
	return nil
}
