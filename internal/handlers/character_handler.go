package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"idleduelist/internal/middleware"
	"idleduelist/internal/models"
	"idleduelist/internal/service"
)

// CharacterHandler gère les requêtes liées aux personnages
type CharacterHandler struct {
	characters service.CharacterServiceInterface
}

// NewCharacterHandler crée un nouveau handler de personnages
func NewCharacterHandler(characters service.CharacterServiceInterface) *CharacterHandler {
	return &CharacterHandler{characters: characters}
}

// Create crée un personnage pour l'utilisateur courant
func (h *CharacterHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}

	var req models.CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	character, err := h.characters.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, character)
}

// List liste les personnages de l'utilisateur courant
func (h *CharacterHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}

	characters, err := h.characters.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	summaries := make([]models.CharacterSummary, 0, len(characters))
	for _, ch := range characters {
		summaries = append(summaries, models.CharacterSummary{
			ID:      ch.ID,
			Name:    ch.Name,
			Faction: ch.Faction,
			Level:   ch.Level,
			XP:      ch.XP,
			Rating:  ch.Rating,
		})
	}
	c.JSON(http.StatusOK, gin.H{"characters": summaries})
}

// Get retourne un personnage complet, équipement inclus
func (h *CharacterHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	character, err := h.characters.Get(c.Request.Context(), userID, characterID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, character)
}

// Delete supprime un personnage et son équipement
func (h *CharacterHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.characters.Delete(c.Request.Context(), userID, characterID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AllocateStats dépense des points de stats non alloués
func (h *CharacterHandler) AllocateStats(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req models.AllocateStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	character, err := h.characters.AllocateStats(c.Request.Context(), userID, characterID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, character)
}

// Equip monte un objet de l'inventaire sur son emplacement
func (h *CharacterHandler) Equip(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req models.EquipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	character, err := h.characters.Equip(c.Request.Context(), userID, characterID, req.ItemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, character)
}

// Unequip démonte l'objet d'un emplacement
func (h *CharacterHandler) Unequip(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req models.UnequipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	character, err := h.characters.Unequip(c.Request.Context(), userID, characterID, req.Slot)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, character)
}

// Stats retourne les stats dérivées courantes du personnage
func (h *CharacterHandler) Stats(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, errNoIdentity)
		return
	}
	characterID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	stats, err := h.characters.DerivedStats(c.Request.Context(), userID, characterID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
