package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/middleware"
	"idleduelist/internal/models"
	"idleduelist/internal/repository"
	"idleduelist/internal/service"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	defaultRankingLimit = 50
	// même borne que la clause LIMIT du repository
	maxRankingLimit = 100
)

// PvPHandler gère la file d'attente, les classements et l'historique
type PvPHandler struct {
	matchmaking service.MatchmakingServiceInterface
	charRepo    repository.CharacterRepositoryInterface
	matches     repository.MatchRepositoryInterface
}

// NewPvPHandler crée un nouveau handler PvP
func NewPvPHandler(
	matchmaking service.MatchmakingServiceInterface,
	charRepo repository.CharacterRepositoryInterface,
	matches repository.MatchRepositoryInterface,
) *PvPHandler {
	return &PvPHandler{matchmaking: matchmaking, charRepo: charRepo, matches: matches}
}

// JoinQueue dépose ou rafraîchit le ticket de l'utilisateur
func (h *PvPHandler) JoinQueue(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}

	var req models.QueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	status, err := h.matchmaking.Enqueue(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// LeaveQueue retire le ticket de l'utilisateur de la file
func (h *PvPHandler) LeaveQueue(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}

	if err := h.matchmaking.Cancel(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// QueueStatus position en file ou combat apparié (route de polling)
func (h *PvPHandler) QueueStatus(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}

	status, err := h.matchmaking.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Rankings classement global par rating décroissant
func (h *PvPHandler) Rankings(c *gin.Context) {
	limit := queryLimit(c, defaultRankingLimit, maxRankingLimit)

	entries, err := h.charRepo.TopByRating(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	c.JSON(http.StatusOK, gin.H{"rankings": entries})
}

// MatchHistory derniers matches d'un personnage, les plus récents d'abord
func (h *PvPHandler) MatchHistory(c *gin.Context) {
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit := queryLimit(c, defaultHistoryLimit, maxHistoryLimit)

	records, err := h.matches.ListByCharacter(c.Request.Context(), characterID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": records})
}

// DailyStats agrégats du jour demandé (aujourd'hui par défaut)
func (h *PvPHandler) DailyStats(c *gin.Context) {
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	day := c.Query("day")
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		respondError(c, apperrors.Validation("day must be formatted YYYY-MM-DD"))
		return
	}

	stats, err := h.matches.GetDailyStats(c.Request.Context(), characterID, day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// queryLimit lit ?limit= borné à [1, max]
func queryLimit(c *gin.Context, fallback, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
