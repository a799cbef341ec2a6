package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"traffic-watch-go/config"
	"traffic-watch-go/internal/core/cropper"
	"traffic-watch-go/internal/core/models"
	"traffic-watch-go/internal/db/repository"
	"traffic-watch-go/internal/server/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CropHandler behandelt API-Anfragen rund um gespeicherte Crops
type CropHandler struct {
	cfg     *config.Config
	crops   repository.CropRepository
	reviews repository.ReviewRepository
	cropper *cropper.Cropper
	sseHub  *sse.Hub
}

// NewCropHandler erstellt einen neuen Crop-Handler
func NewCropHandler(cfg *config.Config, crops repository.CropRepository, reviews repository.ReviewRepository, cr *cropper.Cropper, sseHub *sse.Hub) *CropHandler {
	return &CropHandler{
		cfg:     cfg,
		crops:   crops,
		reviews: reviews,
		cropper: cr,
		sseHub:  sseHub,
	}
}

// RegisterRoutes registriert alle Crop-Routen
func (h *CropHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/save-image", h.SaveImage)
	router.GET("/saved-crops", h.ListSavedCrops)
	router.GET("/images/:cameraName/:filename/crops", h.ListCropsForImage)

	router.GET("/crops/unreviewed", h.GetUnreviewedCrops)
	router.GET("/crops/most-recent", h.GetMostRecentCrop)
	router.GET("/crops/:cropId", h.GetCrop)
	router.DELETE("/crops/:cropId", h.DeleteCrop)

	router.GET("/crops-filtered", h.GetFilteredCrops)
	router.GET("/crop-stats", h.GetCropStats)
}

// saveImageRequest ist der Request-Body für POST /api/save-image
type saveImageRequest struct {
	ImagePath  string `json:"imagePath" binding:"required"`
	CameraName string `json:"cameraName" binding:"required"`
	Timestamp  string `json:"timestamp"`
	Coordinates *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"coordinates" binding:"required"`
}

// SaveImage schneidet einen Ausschnitt aus dem Quellbild und speichert ihn
func (h *CropHandler) SaveImage(c *gin.Context) {
	var req saveImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if req.Coordinates.X < 0 || req.Coordinates.X > 1 || req.Coordinates.Y < 0 || req.Coordinates.Y > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(
			"Click coordinates (%v,%v) outside [0,1]", req.Coordinates.X, req.Coordinates.Y)})
		return
	}

	// Der Client schickt den öffentlichen Bildpfad, z.B. "/images/cam/file.jpg"
	filename := path.Base(strings.TrimPrefix(req.ImagePath, "/images/"))

	result, err := h.cropper.CropAndSave(req.CameraName, filename, req.Coordinates.X, req.Coordinates.Y)
	if err != nil {
		if errors.Is(err, cropper.ErrSourceMissing) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source image not found"})
			return
		}
		log.WithError(err).Errorf("Failed to crop %s/%s", req.CameraName, filename)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save image"})
		return
	}

	crop := &models.Crop{
		OriginalCamera:    req.CameraName,
		OriginalFilename:  filename,
		OriginalPath:      req.ImagePath,
		CropFilename:      result.CropFilename,
		CropFolder:        result.CropFolder,
		ClickX:            req.Coordinates.X,
		ClickY:            req.Coordinates.Y,
		CropLeft:          result.Region.Left,
		CropTop:           result.Region.Top,
		CropWidth:         result.Region.Size,
		CropHeight:        result.Region.Size,
		OriginalWidth:     result.OriginalWidth,
		OriginalHeight:    result.OriginalHeight,
		SavedByIP:         c.ClientIP(),
		OriginalTimestamp: req.Timestamp,
		SavedAt:           time.Now(),
	}
	if err := h.crops.Save(crop); err != nil {
		respondRepositoryError(c, err)
		return
	}

	cropURL := path.Join(h.cfg.Server.SavedURL, req.CameraName, result.CropFilename)
	h.sseHub.BroadcastCropSaved(crop, cropURL)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"savedPath": path.Join(crop.CropFolder, crop.CropFilename),
		"filename":  crop.CropFilename,
		"cropArea": gin.H{
			"left":   crop.CropLeft,
			"top":    crop.CropTop,
			"width":  crop.CropWidth,
			"height": crop.CropHeight,
		},
	})
}

// ListSavedCrops gibt alle gespeicherten Crops mit Paginierung zurück
func (h *CropHandler) ListSavedCrops(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	crops, err := h.crops.ListAll(limit, offset)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"crops":  crops,
		"limit":  limit,
		"offset": offset,
	})
}

// ListCropsForImage gibt alle Crops eines Quellbilds zurück
func (h *CropHandler) ListCropsForImage(c *gin.Context) {
	camera := c.Param("cameraName")
	filename := c.Param("filename")

	crops, err := h.crops.ListForSource(camera, filename)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"crops": crops})
}

// GetCrop gibt einen einzelnen Crop zurück
func (h *CropHandler) GetCrop(c *gin.Context) {
	id, err := parseID(c.Param("cropId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid crop id"})
		return
	}

	crop, err := h.crops.GetByID(id)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, crop)
}

// DeleteCrop löscht einen Crop samt Review und Factor-Zuordnungen
func (h *CropHandler) DeleteCrop(c *gin.Context) {
	id, err := parseID(c.Param("cropId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid crop id"})
		return
	}

	// Locator vor dem Löschen merken, damit die Datei noch entfernt
	// werden kann.
	crop, err := h.crops.GetByID(id)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	deleted, err := h.crops.Delete(id)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Crop not found"})
		return
	}

	if err := h.cropper.DeleteFile(crop.CropFolder, crop.CropFilename); err != nil {
		log.WithError(err).Warnf("Crop %d deleted from database but file removal failed", id)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Crop deleted successfully",
		"cropId":  id,
	})
}

// GetUnreviewedCrops gibt die Warteschlange unbewerteter Crops zurück
func (h *CropHandler) GetUnreviewedCrops(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	crops, err := h.reviews.ListUnreviewed(limit)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	// Bei limit=1 erwartet der Review-Client das nackte Array.
	if c.Query("limit") == "1" {
		c.JSON(http.StatusOK, crops)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"crops": crops,
		"metadata": gin.H{
			"valid_crops": len(crops),
		},
	})
}

// GetMostRecentCrop gibt den zuletzt gespeicherten echten Crop zurück
func (h *CropHandler) GetMostRecentCrop(c *gin.Context) {
	crop, err := h.reviews.MostRecent()
	if err != nil {
		respondRepositoryError(c, err)
		return
	}
	if crop == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No crops found"})
		return
	}

	c.JSON(http.StatusOK, crop)
}

// GetFilteredCrops gibt die Dashboard-Liste mit Filtern und Paginierung zurück
func (h *CropHandler) GetFilteredCrops(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	offset := (page - 1) * limit

	var filters models.CropFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter parameters"})
		return
	}

	crops, err := h.crops.ListFiltered(filters, limit, offset)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}
	totalCount, err := h.crops.CountFiltered(filters)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	totalPages := (totalCount + int64(limit) - 1) / int64(limit)
	c.JSON(http.StatusOK, gin.H{
		"crops":      crops,
		"totalCount": totalCount,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
	})
}

// GetCropStats gibt die Übersichtszahlen für das Dashboard zurück
func (h *CropHandler) GetCropStats(c *gin.Context) {
	stats, err := h.reviews.Stats()
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_crops":      stats.TotalCrops,
		"total_reviews":    stats.TotalReviews,
		"classified_crops": stats.ClassifiedCrops,
		"reviewed_crops":   stats.ClassifiedCrops, // alias for older clients
		"unreviewed_crops": stats.NeverReviewed,
		"never_reviewed":   stats.NeverReviewed,
		"partial_reviews":  stats.PartialReviews,
	})
}

// parseID wandelt einen Pfadparameter in eine Datensatz-ID um
func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
