package db

import (
	"fmt"
	"time"

	"traffic-watch-go/internal/core/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// schemaMigration records one applied migration. The runner applies the
// ordered migration list exactly once per entry instead of probing the
// live schema on every boot.
type schemaMigration struct {
	ID        string    `gorm:"primarykey"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (schemaMigration) TableName() string { return "schema_migrations" }

type migration struct {
	id  string
	run func(tx *gorm.DB) error
}

// Ordered, append-only. Each step must be idempotent so a crashed run
// can be repeated safely.
var migrations = []migration{
	{
		id: "0001_crop_and_review_tables",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Crop{}, &models.Review{})
		},
	},
	{
		id: "0002_factor_catalog",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Factor{})
		},
	},
	{
		id: "0003_factor_assignments",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.ReviewPositiveFactor{}, &models.ReviewNegativeFactor{})
		},
	},
	{
		id: "0004_view_tracking",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.ImageView{}, &models.ImageStat{})
		},
	},
}

// Migrate wendet alle noch nicht angewendeten Migrationen in Reihenfolge an
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(&schemaMigration{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied := make(map[string]bool)
	var rows []schemaMigration
	if err := database.Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for _, row := range rows {
		applied[row.ID] = true
	}

	for _, m := range migrations {
		if applied[m.id] {
			continue
		}
		log.Infof("Applying migration %s", m.id)
		err := database.Transaction(func(tx *gorm.DB) error {
			if err := m.run(tx); err != nil {
				return err
			}
			return tx.Create(&schemaMigration{ID: m.id}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", m.id, err)
		}
	}

	return nil
}
