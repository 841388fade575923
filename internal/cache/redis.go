package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/config"
)

// casScript écriture conditionnelle atomique. La version vit dans une clé
// compagnon <key>:v ; les deux clés partagent le même TTL.
// KEYS[1] = clé valeur, KEYS[2] = clé version
// ARGV[1] = valeur, ARGV[2] = version attendue, ARGV[3] = TTL en millisecondes
// Retourne la nouvelle version en cas de succès, -version courante sinon.
var casScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[2]) or '0')
if current ~= tonumber(ARGV[2]) then
	return -current
end
local next = current + 1
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], next, 'PX', ARGV[3])
return next
`)

// setScript écriture inconditionnelle qui incrémente la version
var setScript = redis.NewScript(`
local next = tonumber(redis.call('GET', KEYS[2]) or '0') + 1
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('SET', KEYS[2], next, 'PX', ARGV[2])
return next
`)

// RedisStore implémentation Redis du Store
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore se connecte à Redis d'après CACHE_URL
func NewRedisStore(cfg *config.CacheConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}

	logrus.WithField("addr", opts.Addr).Info("Connected to cache")
	return &RedisStore{client: client}, nil
}

func versionKey(key string) string { return key + ":v" }

// Get retourne l'entrée ou (nil, nil) si la clé est absente
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	pipe := s.client.Pipeline()
	valueCmd := pipe.Get(ctx, key)
	versionCmd := pipe.Get(ctx, versionKey(key))
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, wrapCacheError(err)
	}

	value, err := valueCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapCacheError(err)
	}

	version, err := versionCmd.Int64()
	if errors.Is(err, redis.Nil) {
		version = 1
	} else if err != nil {
		return nil, wrapCacheError(err)
	}
	return &Entry{Value: value, Version: version}, nil
}

// SetWithTTL écrit sans condition et retourne la nouvelle version
func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (int64, error) {
	version, err := setScript.Run(ctx, s.client,
		[]string{key, versionKey(key)}, value, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, wrapCacheError(err)
	}
	return version, nil
}

// CompareAndSwap écrit seulement si la version stockée vaut expectedVersion
func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, value []byte, expectedVersion int64, ttl time.Duration) (int64, bool, error) {
	result, err := casScript.Run(ctx, s.client,
		[]string{key, versionKey(key)}, value, expectedVersion, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, false, wrapCacheError(err)
	}
	if result < 0 {
		return -result, false, nil
	}
	return result, true, nil
}

// Delete supprime la clé et sa version
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key, versionKey(key)).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

// ZAdd ajoute ou met à jour un membre du sorted set
func (s *RedisStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
	if err != nil {
		return wrapCacheError(err)
	}
	return nil
}

// ZRangeByScore retourne les membres dont le score est dans [min, max]
func (s *RedisStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]ZMember, error) {
	results, err := s.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%f", min),
		Max: fmt.Sprintf("%f", max),
	}).Result()
	if err != nil {
		return nil, wrapCacheError(err)
	}

	members := make([]ZMember, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		members = append(members, ZMember{Member: member, Score: z.Score})
	}
	return members, nil
}

// ZRem retire des membres du sorted set
func (s *RedisStore) ZRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.ZRem(ctx, key, args...).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

// ZCard retourne la taille du sorted set
func (s *RedisStore) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, wrapCacheError(err)
	}
	return n, nil
}

// ZRank retourne la position d'un membre
func (s *RedisStore) ZRank(ctx context.Context, key, member string) (int64, bool, error) {
	rank, err := s.client.ZRank(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapCacheError(err)
	}
	return rank, true, nil
}

// Ping vérifie la connexion
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close ferme la connexion
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func wrapCacheError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("cache operation timed out").WithCause(err)
	}
	return apperrors.Unavailable("cache unavailable").WithCause(err)
}
