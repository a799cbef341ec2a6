package repository

import (
	"errors"
	"fmt"
	"time"

	"traffic-watch-go/internal/core/models"

	"gorm.io/gorm"
)

// ViewRepository definiert die Operationen für die Betrachtungs-Statistiken
type ViewRepository interface {
	RecordView(camera, filename, viewerIP, userAgent string) error
	GetImageStats(camera, filename string) (*models.ImageStat, []models.ImageView, error)
	ListAllImageStats() ([]models.ImageStat, error)
	GlobalStats() (models.GlobalStats, error)
}

// SQLiteViewRepository implementiert ViewRepository für SQLite
type SQLiteViewRepository struct {
	db *gorm.DB
}

// NewViewRepository erstellt eine neue View-Repository-Instanz
func NewViewRepository(db *gorm.DB) *SQLiteViewRepository {
	return &SQLiteViewRepository{db: db}
}

// RecordView inserts the view row and maintains the per-image summary
// in one transaction.
func (r *SQLiteViewRepository) RecordView(camera, filename, viewerIP, userAgent string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		view := models.ImageView{
			CameraName: camera,
			Filename:   filename,
			ViewerIP:   viewerIP,
			UserAgent:  userAgent,
		}
		if err := tx.Create(&view).Error; err != nil {
			return fmt.Errorf("failed to record view: %w", err)
		}

		var uniqueViewers int64
		err := tx.Model(&models.ImageView{}).
			Where("camera_name = ? AND filename = ?", camera, filename).
			Distinct("viewer_ip").
			Count(&uniqueViewers).Error
		if err != nil {
			return err
		}

		now := time.Now()
		var stat models.ImageStat
		err = tx.Where("camera_name = ? AND filename = ?", camera, filename).First(&stat).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			stat = models.ImageStat{
				CameraName:    camera,
				Filename:      filename,
				TotalViews:    1,
				UniqueViewers: uniqueViewers,
				FirstViewedAt: now,
				LastViewedAt:  now,
			}
			return tx.Create(&stat).Error
		case err != nil:
			return err
		}

		return tx.Model(&stat).Updates(map[string]interface{}{
			"total_views":    gorm.Expr("total_views + 1"),
			"unique_viewers": uniqueViewers,
			"last_viewed_at": now,
		}).Error
	})
}

// GetImageStats holt die Zusammenfassung und alle Einzelansichten eines Bildes
func (r *SQLiteViewRepository) GetImageStats(camera, filename string) (*models.ImageStat, []models.ImageView, error) {
	var stat models.ImageStat
	err := r.db.Where("camera_name = ? AND filename = ?", camera, filename).First(&stat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var views []models.ImageView
	err = r.db.
		Where("camera_name = ? AND filename = ?", camera, filename).
		Order("viewed_at DESC").
		Find(&views).Error
	if err != nil {
		return nil, nil, err
	}
	return &stat, views, nil
}

// ListAllImageStats returns every summary row, least viewed first so
// the browser can surface neglected images.
func (r *SQLiteViewRepository) ListAllImageStats() ([]models.ImageStat, error) {
	var stats []models.ImageStat
	err := r.db.Order("total_views ASC, last_viewed_at DESC").Find(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GlobalStats liefert die groben Gesamtzahlen für die Übersichtsseite
func (r *SQLiteViewRepository) GlobalStats() (models.GlobalStats, error) {
	var stats models.GlobalStats

	if err := r.db.Model(&models.ImageView{}).Count(&stats.TotalViews).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.ImageView{}).Distinct("viewer_ip").Count(&stats.UniqueViewers).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.ImageStat{}).Count(&stats.TotalImages).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.Crop{}).Count(&stats.TotalCrops).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
