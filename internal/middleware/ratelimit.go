package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"idleduelist/internal/cache"
	"idleduelist/internal/models"
)

// keyedLimiter maintient un limiteur local par clé (IP ou utilisateur).
// Première ligne de défense : il coupe les rafales sans aller-retour store.
type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newKeyedLimiter(limit rate.Limit, burst int) *keyedLimiter {
	kl := &keyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}

	// purge périodique : les limiteurs au repos se reconstruisent à plein
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			kl.mu.Lock()
			kl.limiters = make(map[string]*rate.Limiter)
			kl.mu.Unlock()
		}
	}()
	return kl
}

func (kl *keyedLimiter) get(key string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	limiter, exists := kl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(kl.limit, kl.burst)
		kl.limiters[key] = limiter
	}
	return limiter
}

// storeCounter compteur à fenêtre fixe dans le store partagé : le budget
// vaut pour l'ensemble des instances, pas par processus. La clé embarque le
// début de fenêtre, le TTL fait le ménage.
type storeCounter struct {
	store  cache.Store
	scope  string
	limit  int
	window time.Duration
}

// allow incrémente le compteur de la fenêtre courante par CAS.
// Retourne (false, délai) quand le budget est épuisé. Un store injoignable
// ou une contention persistante laissent passer : le limiteur local reste.
func (sc *storeCounter) allow(ctx context.Context, key string) (bool, int) {
	windowStart := time.Now().Truncate(sc.window)
	storeKey := cache.PrefixRateLimit + sc.scope + ":" + key + ":" +
		strconv.FormatInt(windowStart.Unix(), 10)
	retryAfter := int(time.Until(windowStart.Add(sc.window)).Seconds()) + 1

	for attempt := 0; attempt < 4; attempt++ {
		entry, err := sc.store.Get(ctx, storeKey)
		if err != nil {
			return true, 0
		}
		if entry == nil {
			if _, ok, err := sc.store.CompareAndSwap(ctx, storeKey, []byte("1"), 0, sc.window); err == nil && ok {
				return true, 0
			}
			continue
		}
		count, err := strconv.Atoi(string(entry.Value))
		if err != nil {
			return true, 0
		}
		if count >= sc.limit {
			return false, retryAfter
		}
		next := []byte(strconv.Itoa(count + 1))
		if _, ok, err := sc.store.CompareAndSwap(ctx, storeKey, next, entry.Version, sc.window); err == nil && ok {
			return true, 0
		}
	}
	return true, 0
}

// GlobalRateLimit plafond horaire par IP, toutes routes confondues
func GlobalRateLimit(store cache.Store, perHour int) gin.HandlerFunc {
	kl := newKeyedLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour)
	sc := &storeCounter{store: store, scope: "global", limit: perHour, window: time.Hour}
	return limitBy(kl, sc, clientIPKey, 3600)
}

// IPRateLimit plafond par minute et par IP, pour les routes sensibles
// (register, login). Le scope sépare les compteurs des différentes routes.
func IPRateLimit(store cache.Store, scope string, perMinute int) gin.HandlerFunc {
	kl := newKeyedLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	sc := &storeCounter{store: store, scope: scope, limit: perMinute, window: time.Minute}
	return limitBy(kl, sc, clientIPKey, 60)
}

// UserRateLimit plafond par minute et par utilisateur authentifié.
// Doit être monté après RequireAuth ; repli sur l'IP sinon.
func UserRateLimit(store cache.Store, scope string, perMinute int) gin.HandlerFunc {
	kl := newKeyedLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	sc := &storeCounter{store: store, scope: scope, limit: perMinute, window: time.Minute}
	return limitBy(kl, sc, func(c *gin.Context) string {
		if id, ok := UserID(c); ok {
			return id.String()
		}
		return c.ClientIP()
	}, 60)
}

func clientIPKey(c *gin.Context) string { return c.ClientIP() }

func limitBy(kl *keyedLimiter, sc *storeCounter, keyOf func(*gin.Context) string, retryAfter int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyOf(c)
		if !kl.get(key).Allow() {
			reject(c, key, retryAfter)
			return
		}
		if ok, after := sc.allow(c.Request.Context(), key); !ok {
			reject(c, key, after)
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context, key string, retryAfter int) {
	logrus.WithFields(logrus.Fields{
		"key":        key,
		"path":       c.Request.URL.Path,
		"request_id": c.GetHeader("X-Request-ID"),
	}).Warn("Rate limit exceeded")

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorEnvelope{
		Error: models.ErrorBody{
			Type:       "RateLimited",
			Message:    "too many requests, slow down",
			RetryAfter: retryAfter,
		},
	})
}
