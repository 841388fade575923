package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idleduelist/internal/cache"
)

func limitedRouter(store cache.Store, perMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", IPRateLimit(store, "login", perMinute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doLogin(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":51234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIPRateLimitRejectsBeyondBudget(t *testing.T) {
	store := cache.NewMemoryStore()
	r := limitedRouter(store, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doLogin(r, "192.0.2.1").Code)
	}

	w := doLogin(r, "192.0.2.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RateLimited")

	// une autre IP garde son budget
	assert.Equal(t, http.StatusOK, doLogin(r, "192.0.2.2").Code)
}

func TestRateLimitBudgetSharedThroughStore(t *testing.T) {
	// deux routeurs simulent deux instances derrière le même store : le
	// budget se consomme en commun, pas par processus
	store := cache.NewMemoryStore()
	first := limitedRouter(store, 3)
	second := limitedRouter(store, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doLogin(first, "192.0.2.1").Code)
	}

	w := doLogin(second, "192.0.2.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
