package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/middleware"
	"idleduelist/internal/models"
	"idleduelist/internal/monitoring"
	"idleduelist/internal/service"
)

// CombatHandler gère les requêtes de combat et d'auto-fight
type CombatHandler struct {
	combats service.CombatServiceInterface
	pve     service.PvEServiceInterface
}

// NewCombatHandler crée un nouveau handler de combat
func NewCombatHandler(combats service.CombatServiceInterface, pve service.PvEServiceInterface) *CombatHandler {
	return &CombatHandler{combats: combats, pve: pve}
}

// Start lance un combat PvE ou un duel explicite
func (h *CombatHandler) Start(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}

	var req models.StartCombatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	state, err := h.combats.StartCombat(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	monitoring.CombatsStartedTotal.WithLabelValues(string(state.Mode)).Inc()
	c.JSON(http.StatusCreated, models.ViewOf(state))
}

// Get retourne l'instantané courant d'un combat
func (h *CombatHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	combatID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	state, err := h.combats.Get(c.Request.Context(), userID, combatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ViewOf(state))
}

// Action soumet l'action du joueur pour le tour courant
func (h *CombatHandler) Action(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	combatID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req models.CombatActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	state, err := h.combats.SubmitAction(c.Request.Context(), userID, combatID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ViewOf(state))
}

// Forfeit abandonne le combat au profit de l'adversaire
func (h *CombatHandler) Forfeit(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	combatID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	state, err := h.combats.Forfeit(c.Request.Context(), userID, combatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ViewOf(state))
}

// StartAutoFight lance une boucle de combat automatique contre un ennemi
func (h *CombatHandler) StartAutoFight(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		EnemyID string `json:"enemy_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	state, err := h.pve.StartAutoFight(c.Request.Context(), userID, characterID, req.EnemyID)
	if err != nil {
		respondError(c, err)
		return
	}
	monitoring.CombatsStartedTotal.WithLabelValues(string(models.ModeAutoFight)).Inc()
	c.JSON(http.StatusCreated, models.ViewOf(state))
}

// CancelAutoFight annule la boucle auto-fight du personnage
func (h *CombatHandler) CancelAutoFight(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.pve.CancelAutoFight(c.Request.Context(), userID, characterID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AutoFightProgress retourne le checkpoint de la boucle auto-fight
func (h *CombatHandler) AutoFightProgress(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	progress, err := h.pve.AutoFightProgress(c.Request.Context(), userID, characterID)
	if err != nil {
		respondError(c, err)
		return
	}
	if progress == nil {
		respondError(c, apperrors.NotFound("no auto-fight in progress for character %s", characterID))
		return
	}
	c.JSON(http.StatusOK, progress)
}
