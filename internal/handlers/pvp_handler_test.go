package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/pvp/rankings?"+rawQuery, nil)
	return c
}

func TestQueryLimitBounds(t *testing.T) {
	assert.Equal(t, defaultRankingLimit, queryLimit(limitContext(t, ""), defaultRankingLimit, maxRankingLimit))
	assert.Equal(t, defaultRankingLimit, queryLimit(limitContext(t, "limit=zero"), defaultRankingLimit, maxRankingLimit))
	assert.Equal(t, defaultRankingLimit, queryLimit(limitContext(t, "limit=0"), defaultRankingLimit, maxRankingLimit))
	assert.Equal(t, 25, queryLimit(limitContext(t, "limit=25"), defaultRankingLimit, maxRankingLimit))

	// la borne haute du handler égale la clause LIMIT du repository : pas
	// de valeur acceptée ici puis réduite en silence côté SQL
	assert.Equal(t, 100, queryLimit(limitContext(t, "limit=500"), defaultRankingLimit, maxRankingLimit))
	assert.Equal(t, 100, maxRankingLimit)
}
