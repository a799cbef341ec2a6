package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"traffic-watch-go/config"
	"traffic-watch-go/internal/db/repository"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var imageFilePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)

// CameraHandler behandelt API-Anfragen für Kameras und deren Quellbilder
type CameraHandler struct {
	cfg   *config.Config
	views repository.ViewRepository
}

// NewCameraHandler erstellt einen neuen Camera-Handler
func NewCameraHandler(cfg *config.Config, views repository.ViewRepository) *CameraHandler {
	return &CameraHandler{cfg: cfg, views: views}
}

// RegisterRoutes registriert alle Kamera-Routen
func (h *CameraHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/cameras", h.ListCameras)
	router.GET("/cameras/:cameraName/images", h.ListCameraImages)
	router.GET("/cameras/:cameraName/least-viewed", h.GetLeastViewed)
	router.GET("/cameras/:cameraName/stats", h.GetCameraStats)
	router.GET("/latest", h.GetLatest)
	router.GET("/stats", h.GetStats)
}

// cameraImage beschreibt ein Quellbild mit View-Zählern
type cameraImage struct {
	Filename      string     `json:"filename"`
	Path          string     `json:"path"`
	Timestamp     time.Time  `json:"timestamp"`
	Size          int64      `json:"size"`
	ViewCount     int64      `json:"viewCount"`
	UniqueViewers int64      `json:"uniqueViewers"`
	LastViewedAt  *time.Time `json:"lastViewedAt"`
}

// listImages liest die Bilddateien einer Kamera vom Dateisystem und
// reichert sie mit den View-Zählern aus der Datenbank an.
func (h *CameraHandler) listImages(camera string) ([]cameraImage, error) {
	cameraDir := filepath.Join(h.cfg.Server.CapturedDir, camera)
	entries, err := os.ReadDir(cameraDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	images := make([]cameraImage, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !imageFilePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		img := cameraImage{
			Filename:  entry.Name(),
			Path:      "/images/" + camera + "/" + entry.Name(),
			Timestamp: info.ModTime(),
			Size:      info.Size(),
		}
		stat, _, err := h.views.GetImageStats(camera, entry.Name())
		if err != nil {
			log.WithError(err).Warnf("Failed to load view stats for %s/%s", camera, entry.Name())
		} else if stat != nil {
			img.ViewCount = stat.TotalViews
			img.UniqueViewers = stat.UniqueViewers
			img.LastViewedAt = &stat.LastViewedAt
		}
		images = append(images, img)
	}
	return images, nil
}

// ListCameras gibt alle Kamera-Verzeichnisse zurück
func (h *CameraHandler) ListCameras(c *gin.Context) {
	entries, err := os.ReadDir(h.cfg.Server.CapturedDir)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusOK, []gin.H{})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get cameras"})
		return
	}

	cameras := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		cameras = append(cameras, gin.H{
			"name":        entry.Name(),
			"displayName": strings.ReplaceAll(entry.Name(), "_", " "),
		})
	}
	c.JSON(http.StatusOK, cameras)
}

// ListCameraImages gibt die Quellbilder einer Kamera zurück, neueste zuerst
func (h *CameraHandler) ListCameraImages(c *gin.Context) {
	camera := c.Param("cameraName")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	images, err := h.listImages(camera)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get images"})
		return
	}
	sort.Slice(images, func(i, j int) bool {
		return images[i].Timestamp.After(images[j].Timestamp)
	})

	total := len(images)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"images": images[offset:end],
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// GetLeastViewed gibt die am wenigsten betrachteten Bilder einer Kamera zurück
func (h *CameraHandler) GetLeastViewed(c *gin.Context) {
	camera := c.Param("cameraName")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	images, err := h.listImages(camera)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get least viewed images"})
		return
	}

	// Least viewed first; newest first for ties.
	sort.Slice(images, func(i, j int) bool {
		if images[i].ViewCount != images[j].ViewCount {
			return images[i].ViewCount < images[j].ViewCount
		}
		return images[i].Timestamp.After(images[j].Timestamp)
	})

	total := len(images)
	if limit > total {
		limit = total
	}

	c.JSON(http.StatusOK, gin.H{
		"images":      images[:limit],
		"totalImages": total,
		"camera":      camera,
	})
}

// GetCameraStats gibt zusammengefasste Zahlen für eine Kamera zurück
func (h *CameraHandler) GetCameraStats(c *gin.Context) {
	camera := c.Param("cameraName")

	images, err := h.listImages(camera)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get camera statistics"})
		return
	}
	if len(images) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"totalImages":    0,
			"unviewedImages": 0,
			"lastImage":      nil,
			"viewStats":      gin.H{"totalViews": 0, "uniqueViewers": 0},
		})
		return
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Timestamp.Before(images[j].Timestamp)
	})

	var totalViews, maxUniqueViewers int64
	unviewed := 0
	for _, img := range images {
		totalViews += img.ViewCount
		if img.UniqueViewers > maxUniqueViewers {
			maxUniqueViewers = img.UniqueViewers
		}
		if img.ViewCount == 0 {
			unviewed++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"totalImages":    len(images),
		"unviewedImages": unviewed,
		"lastImage":      images[len(images)-1],
		"viewStats": gin.H{
			"totalViews":    totalViews,
			"uniqueViewers": maxUniqueViewers,
		},
		"images": images,
	})
}

// GetLatest gibt das jeweils neueste Bild jeder Kamera zurück
func (h *CameraHandler) GetLatest(c *gin.Context) {
	entries, err := os.ReadDir(h.cfg.Server.CapturedDir)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusOK, []gin.H{})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get latest images"})
		return
	}

	latest := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		images, err := h.listImages(entry.Name())
		if err != nil {
			continue
		}
		sort.Slice(images, func(i, j int) bool {
			return images[i].Timestamp.After(images[j].Timestamp)
		})

		var newest interface{}
		if len(images) > 0 {
			newest = images[0]
		}
		latest = append(latest, gin.H{
			"camera":      entry.Name(),
			"displayName": strings.ReplaceAll(entry.Name(), "_", " "),
			"latestImage": newest,
			"imageCount":  len(images),
		})
	}
	c.JSON(http.StatusOK, latest)
}

// GetStats gibt Dateisystem- und Datenbank-Gesamtzahlen zurück
func (h *CameraHandler) GetStats(c *gin.Context) {
	entries, err := os.ReadDir(h.cfg.Server.CapturedDir)
	if err != nil && !os.IsNotExist(err) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get statistics"})
		return
	}

	var totalCameras, totalImages int
	var totalSize int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		totalCameras++
		images, err := h.listImages(entry.Name())
		if err != nil {
			continue
		}
		totalImages += len(images)
		for _, img := range images {
			totalSize += img.Size
		}
	}

	global, err := h.views.GlobalStats()
	if err != nil {
		respondRepositoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalCameras":  totalCameras,
		"totalImages":   totalImages,
		"totalSize":     totalSize,
		"totalSizeMB":   float64(totalSize) / (1024 * 1024),
		"totalViews":    global.TotalViews,
		"uniqueViewers": global.UniqueViewers,
		"totalCrops":    global.TotalCrops,
	})
}
