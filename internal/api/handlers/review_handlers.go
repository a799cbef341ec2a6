package handlers

import (
	"net/http"
	"time"

	"traffic-watch-go/internal/db/repository"
	"traffic-watch-go/internal/server/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ReviewHandler behandelt API-Anfragen für Crop-Klassifikationen
type ReviewHandler struct {
	crops   repository.CropRepository
	reviews repository.ReviewRepository
	factors repository.FactorRepository
	sseHub  *sse.Hub
}

// NewReviewHandler erstellt einen neuen Review-Handler
func NewReviewHandler(crops repository.CropRepository, reviews repository.ReviewRepository, factors repository.FactorRepository, sseHub *sse.Hub) *ReviewHandler {
	return &ReviewHandler{
		crops:   crops,
		reviews: reviews,
		factors: factors,
		sseHub:  sseHub,
	}
}

// RegisterRoutes registriert alle Review-Routen
func (h *ReviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/crops/:cropId/review", h.GetCropReview)
	router.POST("/crops/:cropId/review", h.SaveCropReview)
}

// GetCropReview gibt Crop, Review und Factor-Zuordnungen gemeinsam zurück
func (h *ReviewHandler) GetCropReview(c *gin.Context) {
	cropID, err := parseID(c.Param("cropId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid crop id"})
		return
	}

	crop, err := h.crops.GetByID(cropID)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	review, err := h.reviews.GetByCropID(cropID)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	response := gin.H{
		"crop":    crop,
		"review":  review,
		"factors": nil,
	}

	if review != nil {
		positive, err := h.factors.ListPositive(review.ID)
		if err != nil {
			respondRepositoryError(c, err)
			return
		}
		negative, err := h.factors.ListNegative(review.ID)
		if err != nil {
			respondRepositoryError(c, err)
			return
		}
		response["factors"] = gin.H{
			"positive": positive,
			"negative": negative,
		}
	}

	c.JSON(http.StatusOK, response)
}

// saveReviewRequest ist der Request-Body für POST /api/crops/:cropId/review
type saveReviewRequest struct {
	Notes           string   `json:"notes"`
	IsJonathan      *string  `json:"is_jonathan"`
	Activities      []string `json:"activities"`
	TopClothing     *string  `json:"top_clothing"`
	ReviewedAt      string   `json:"reviewed_at"`
	PositiveFactors []uint   `json:"positive_factors"`
	NegativeFactors []uint   `json:"negative_factors"`
}

// SaveCropReview speichert Review und Factor-Zuordnungen in einer
// Transaktion (Last-Write-Wins bei konkurrierenden Reviewern)
func (h *ReviewHandler) SaveCropReview(c *gin.Context) {
	cropID, err := parseID(c.Param("cropId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid crop id"})
		return
	}

	var req saveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid review data"})
		return
	}

	input := repository.ReviewInput{
		Notes:       req.Notes,
		IsJonathan:  req.IsJonathan,
		Activities:  req.Activities,
		TopClothing: req.TopClothing,
		ReviewerID:  c.ClientIP(),
	}
	if req.ReviewedAt != "" {
		if ts, err := time.Parse(time.RFC3339, req.ReviewedAt); err == nil {
			input.ReviewedAt = ts
		} else {
			log.Warnf("Ignoring unparseable reviewed_at %q for crop %d", req.ReviewedAt, cropID)
		}
	}

	review, err := h.reviews.UpsertWithFactors(cropID, input, req.PositiveFactors, req.NegativeFactors)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	h.sseHub.BroadcastReviewSaved(review)

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"cropId":          cropID,
		"reviewId":        review.ID,
		"factors_updated": true,
	})
}
