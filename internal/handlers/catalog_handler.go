package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"idleduelist/internal/apperrors"
	"idleduelist/internal/catalog"
	"idleduelist/internal/models"
)

// CatalogHandler expose le contenu statique du jeu (routes publiques)
type CatalogHandler struct{}

// NewCatalogHandler crée un nouveau handler de catalogue
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// Factions liste les trois factions et leurs passifs
func (h *CatalogHandler) Factions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"factions": catalog.Factions()})
}

// Abilities liste toutes les capacités du jeu
func (h *CatalogHandler) Abilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"abilities": catalog.Abilities()})
}

// FactionAbilities capacités apprises par une faction à un niveau donné
func (h *CatalogHandler) FactionAbilities(c *gin.Context) {
	faction := models.Faction(c.Param("faction"))
	if !faction.IsValid() {
		respondError(c, apperrors.Validation("unknown faction %q", faction))
		return
	}
	level, err := strconv.Atoi(c.DefaultQuery("level", "50"))
	if err != nil || level < 1 {
		respondError(c, apperrors.Validation("level must be a positive integer"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"faction":   faction,
		"level":     level,
		"abilities": catalog.LearnedAbilities(faction, level),
	})
}

// Enemies liste le bestiaire PvE
func (h *CatalogHandler) Enemies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enemies": catalog.Enemies()})
}

// Enemy détail d'un ennemi
func (h *CatalogHandler) Enemy(c *gin.Context) {
	enemy, ok := catalog.GetEnemy(c.Param("id"))
	if !ok {
		respondError(c, apperrors.NotFound("enemy %q not found", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, enemy)
}
