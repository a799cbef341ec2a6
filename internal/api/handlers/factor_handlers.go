package handlers

import (
	"net/http"

	"traffic-watch-go/internal/db/repository"

	"github.com/gin-gonic/gin"
)

// FactorHandler behandelt API-Anfragen für den Factor-Katalog
type FactorHandler struct {
	factors repository.FactorRepository
}

// NewFactorHandler erstellt einen neuen Factor-Handler
func NewFactorHandler(factors repository.FactorRepository) *FactorHandler {
	return &FactorHandler{factors: factors}
}

// RegisterRoutes registriert alle Factor-Routen
func (h *FactorHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/factors", h.ListFactors)
	router.GET("/factors/:type", h.ListFactorsByType)
	router.POST("/factors", h.CreateFactor)
	router.PUT("/factors/:factorId", h.UpdateFactor)
	router.DELETE("/factors/:factorId", h.DeleteFactor)
}

// ListFactors gibt den gesamten Katalog zurück
func (h *FactorHandler) ListFactors(c *gin.Context) {
	factors, err := h.factors.ListAll()
	if err != nil {
		respondRepositoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, factors)
}

// ListFactorsByType gibt alle Factors einer Polarität zurück
func (h *FactorHandler) ListFactorsByType(c *gin.Context) {
	factors, err := h.factors.ListByType(c.Param("type"))
	if err != nil {
		respondRepositoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, factors)
}

// factorRequest ist der Request-Body für Create und Update
type factorRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// CreateFactor legt einen neuen Factor an
func (h *FactorHandler) CreateFactor(c *gin.Context) {
	var req factorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid factor data"})
		return
	}

	factor, err := h.factors.Create(req.Name, req.Type, req.Description)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"factor_id": factor.ID,
		"message":   "Factor created successfully",
	})
}

// UpdateFactor überschreibt Name, Typ und Beschreibung eines Factors
func (h *FactorHandler) UpdateFactor(c *gin.Context) {
	id, err := parseID(c.Param("factorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid factor id"})
		return
	}

	var req factorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid factor data"})
		return
	}

	if err := h.factors.Update(id, req.Name, req.Type, req.Description); err != nil {
		respondRepositoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"factor_id": id,
		"message":   "Factor updated successfully",
	})
}

// DeleteFactor löscht einen Factor samt aller Zuordnungen
func (h *FactorHandler) DeleteFactor(c *gin.Context) {
	id, err := parseID(c.Param("factorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid factor id"})
		return
	}

	deleted, err := h.factors.Delete(id)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Factor not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"factor_id": id,
		"message":   "Factor deleted successfully",
	})
}
