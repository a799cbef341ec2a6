package handlers

import (
	"net/http"

	"traffic-watch-go/internal/db/repository"

	"github.com/gin-gonic/gin"
)

// ViewHandler behandelt API-Anfragen für Bild-View-Telemetrie
type ViewHandler struct {
	views   repository.ViewRepository
	reviews repository.ReviewRepository
}

// NewViewHandler erstellt einen neuen View-Handler
func NewViewHandler(views repository.ViewRepository, reviews repository.ReviewRepository) *ViewHandler {
	return &ViewHandler{views: views, reviews: reviews}
}

// RegisterRoutes registriert alle View-Routen
func (h *ViewHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/track-view", h.TrackView)
	router.GET("/images/:cameraName/:filename/views", h.GetImageViews)
	router.GET("/db-stats", h.GetDBStats)
}

// trackViewRequest ist der Request-Body für POST /api/track-view
type trackViewRequest struct {
	CameraName string `json:"cameraName"`
	Filename   string `json:"filename"`
}

// TrackView zeichnet eine Bildansicht auf und gibt die neuen Zähler zurück
func (h *ViewHandler) TrackView(c *gin.Context) {
	var req trackViewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CameraName == "" || req.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing cameraName or filename"})
		return
	}

	if err := h.views.RecordView(req.CameraName, req.Filename, c.ClientIP(), c.Request.UserAgent()); err != nil {
		respondRepositoryError(c, err)
		return
	}

	stat, _, err := h.views.GetImageStats(req.CameraName, req.Filename)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	response := gin.H{"success": true, "viewCount": 0, "uniqueViewers": 0}
	if stat != nil {
		response["viewCount"] = stat.TotalViews
		response["uniqueViewers"] = stat.UniqueViewers
		response["lastViewedAt"] = stat.LastViewedAt
	}
	c.JSON(http.StatusOK, response)
}

// GetImageViews gibt Zusammenfassung und Einzelansichten eines Bildes zurück
func (h *ViewHandler) GetImageViews(c *gin.Context) {
	camera := c.Param("cameraName")
	filename := c.Param("filename")

	stat, views, err := h.views.GetImageStats(camera, filename)
	if err != nil {
		respondRepositoryError(c, err)
		return
	}
	if stat == nil {
		c.JSON(http.StatusOK, gin.H{
			"camera_name":    camera,
			"filename":       filename,
			"total_views":    0,
			"unique_viewers": 0,
			"views":          []interface{}{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"camera_name":     stat.CameraName,
		"filename":        stat.Filename,
		"total_views":     stat.TotalViews,
		"unique_viewers":  stat.UniqueViewers,
		"first_viewed_at": stat.FirstViewedAt,
		"last_viewed_at":  stat.LastViewedAt,
		"views":           views,
	})
}

// GetDBStats gibt die Gesamtzahlen über alle Tabellen zurück
func (h *ViewHandler) GetDBStats(c *gin.Context) {
	global, err := h.views.GlobalStats()
	if err != nil {
		respondRepositoryError(c, err)
		return
	}
	reviewStats, err := h.reviews.Stats()
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalViews":    global.TotalViews,
		"uniqueViewers": global.UniqueViewers,
		"totalImages":   global.TotalImages,
		"totalCrops":    global.TotalCrops,
		"totalReviews":  reviewStats.TotalReviews,
	})
}
