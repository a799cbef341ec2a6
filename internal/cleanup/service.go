package cleanup

import (
	"time"

	"traffic-watch-go/internal/core/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles the automatic cleanup of old view telemetry. Crops
// and their reviews are never pruned; only image_views rows grow
// unbounded and get trimmed to the retention window.
type Service struct {
	db            *gorm.DB
	retentionDays int
	checkInterval time.Duration
	stopChan      chan struct{} // Channel to signal stopping the background routine
}

// NewService creates a new CleanupService.
func NewService(db *gorm.DB, retentionDays int, checkInterval time.Duration) *Service {
	if retentionDays <= 0 {
		log.Info("Automatic cleanup disabled (view_retention_days <= 0).")
		return nil
	}
	if db == nil {
		log.Error("Cannot initialize CleanupService: database connection is nil")
		return nil
	}
	log.Infof("Initializing CleanupService: RetentionDays=%d, CheckInterval=%s", retentionDays, checkInterval)
	return &Service{
		db:            db,
		retentionDays: retentionDays,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// StartBackgroundCleanup starts a goroutine that periodically runs the cleanup cycle.
func (s *Service) StartBackgroundCleanup() {
	if s == nil {
		return // Service was not initialized (cleanup disabled)
	}
	log.Info("Starting background cleanup routine...")

	// Run cleanup once immediately on start
	go func() {
		log.Info("Running initial cleanup check on startup...")
		s.RunCleanupCycle()
	}()

	ticker := time.NewTicker(s.checkInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Info("Running scheduled cleanup cycle...")
				s.RunCleanupCycle()
			case <-s.stopChan:
				log.Info("Stopping background cleanup routine.")
				return
			}
		}
	}()
}

// StopBackgroundCleanup signals the background cleanup routine to stop.
func (s *Service) StopBackgroundCleanup() {
	if s == nil || s.stopChan == nil {
		return
	}
	select {
	case <-s.stopChan:
		// Already closed
	default:
		close(s.stopChan)
	}
}

// RunCleanupCycle performs one cleanup cycle, deleting view rows older
// than the retention period and refreshing the per-image summaries.
func (s *Service) RunCleanupCycle() {
	if s == nil || s.retentionDays <= 0 {
		log.Debug("Skipping cleanup cycle: service not initialized or cleanup disabled.")
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -s.retentionDays)
	log.Infof("Cleanup: Deleting view records older than %s", cutoffTime.Format(time.RFC3339))

	result := s.db.Where("viewed_at < ?", cutoffTime).Delete(&models.ImageView{})
	if result.Error != nil {
		log.Errorf("Cleanup: Error deleting old views: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Infof("Cleanup: Deleted %d old view record(s).", result.RowsAffected)

		// Summary rows whose views are all gone get removed too; the
		// totals of the remaining ones are kept as lifetime counters.
		if err := s.db.
			Where("NOT EXISTS (SELECT 1 FROM image_views v WHERE v.camera_name = image_stats.camera_name AND v.filename = image_stats.filename)").
			Delete(&models.ImageStat{}).Error; err != nil {
			log.Errorf("Cleanup: Error pruning orphaned image stats: %v", err)
			return
		}
	} else {
		log.Info("Cleanup: No old view records found to delete.")
	}

	s.pruneMigratedTestCrops()

	log.Info("Cleanup cycle finished.")
}

// pruneMigratedTestCrops removes crop records left behind by the legacy
// JSON import that are synthetic test data and never got a review.
func (s *Service) pruneMigratedTestCrops() {
	result := s.db.
		Where("migrated_from_json = ?", true).
		Where("(crop_folder LIKE ? OR crop_filename LIKE ?)",
			"%"+models.TestCameraMarker+"%", "%"+models.TestImageMarker+"%").
		Where("NOT EXISTS (SELECT 1 FROM crop_reviews r WHERE r.crop_id = saved_crops.id)").
		Delete(&models.Crop{})
	if result.Error != nil {
		log.Errorf("Cleanup: Error pruning migrated test crops: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Infof("Cleanup: Pruned %d migrated test crop(s).", result.RowsAffected)
	}
}
