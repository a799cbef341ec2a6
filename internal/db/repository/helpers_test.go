package repository

import (
	"path/filepath"
	"testing"
	"time"

	"traffic-watch-go/internal/core/models"
	"traffic-watch-go/internal/db"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway sqlite database with the full schema
// applied and closes it when the test finishes.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open test database")
	require.NoError(t, db.Migrate(database), "Failed to migrate test database")

	t.Cleanup(func() {
		sqlDB, err := database.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return database
}

// cropFixture builds a valid crop record on a 1000x800 source image.
// savedOffset staggers SavedAt so ordering assertions are stable.
func cropFixture(camera, filename string, savedOffset time.Duration) *models.Crop {
	return &models.Crop{
		OriginalCamera:   camera,
		OriginalFilename: filename,
		OriginalPath:     "/images/" + camera + "/" + filename,
		CropFilename:     filename + "_x50_y50_crop.jpg",
		CropFolder:       "saved_images/" + camera,
		ClickX:           0.5,
		ClickY:           0.5,
		CropLeft:         450,
		CropTop:          350,
		CropWidth:        100,
		CropHeight:       100,
		OriginalWidth:    1000,
		OriginalHeight:   800,
		SavedByIP:        "203.0.113.7",
		SavedAt:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(savedOffset),
	}
}

func saveCrop(t *testing.T, repo CropRepository, crop *models.Crop) *models.Crop {
	t.Helper()
	require.NoError(t, repo.Save(crop))
	return crop
}

func strptr(s string) *string { return &s }
