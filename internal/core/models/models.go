package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Enumerated vocabularies for review classification. The storage layer
// rejects values outside these lists, so any UI choice list must be
// rendered from the same constants.
var (
	JonathanOptions = []string{"could be", "can't tell", "no"}

	ActivityOptions = []string{
		"waiting for a bus",
		"riding a bike",
		"working",
		"walking with someone",
		"walking a dog",
		"wearing a backpack",
	}

	ClothingOptions = []string{"long sleeves", "short sleeves", "can't tell"}
)

// Factor polarity types
const (
	FactorTypePositive = "positive"
	FactorTypeNegative = "negative"
)

// Markers identifying synthetic/test crop records. Records carrying these
// markers in their storage locator fields are excluded from operator-facing
// review listings and counts.
const (
	TestCameraMarker = "test_camera"
	TestImageMarker  = "test_image"
)

// Crop repräsentiert einen gespeicherten Bildausschnitt
type Crop struct {
	ID               uint   `gorm:"primarykey" json:"id"`
	OriginalCamera   string `gorm:"index:idx_saved_crops_original;not null" json:"original_camera"`
	OriginalFilename string `gorm:"index:idx_saved_crops_original;not null" json:"original_filename"`
	OriginalPath     string `json:"original_path,omitempty"`

	// Storage locator, relative to the saved-images root. Path resolution
	// is the HTTP layer's concern.
	CropFilename string `gorm:"not null" json:"crop_filename"`
	CropFolder   string `gorm:"not null" json:"crop_folder"`

	// Click point in relative coordinates and the derived crop rectangle
	// in source-image pixel space.
	ClickX         float64 `gorm:"not null" json:"click_x"`
	ClickY         float64 `gorm:"not null" json:"click_y"`
	CropLeft       int     `gorm:"not null" json:"crop_left"`
	CropTop        int     `gorm:"not null" json:"crop_top"`
	CropWidth      int     `gorm:"not null" json:"crop_width"`
	CropHeight     int     `gorm:"not null" json:"crop_height"`
	OriginalWidth  int     `gorm:"not null" json:"original_width"`
	OriginalHeight int     `gorm:"not null" json:"original_height"`

	SavedByIP         string         `json:"saved_by_ip,omitempty"`
	OriginalTimestamp string         `json:"original_timestamp,omitempty"`
	SavedAt           time.Time      `gorm:"index;autoCreateTime" json:"saved_at"`
	Metadata          datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`
	MigratedFromJSON  bool           `gorm:"column:migrated_from_json;default:false" json:"migrated_from_json"`

	Review *Review `gorm:"foreignKey:CropID;constraint:OnDelete:CASCADE;" json:"review,omitempty"`
}

// TableName keeps the historical table name
func (Crop) TableName() string { return "saved_crops" }

// IsTestData reports whether the record is synthetic data created by
// integration scripts rather than an operator.
func (c *Crop) IsTestData() bool {
	return strings.Contains(c.CropFolder, TestCameraMarker) ||
		strings.Contains(c.CropFilename, TestImageMarker)
}

// HasLocator reports whether the record carries both storage locator
// fields. Records without them cannot be displayed by the review UI.
func (c *Crop) HasLocator() bool {
	return c.CropFolder != "" && c.CropFilename != ""
}

// ValidateGeometry checks the crop rectangle invariants against the
// source image dimensions.
func (c *Crop) ValidateGeometry() error {
	if c.CropLeft < 0 || c.CropTop < 0 {
		return fmt.Errorf("crop origin (%d,%d) outside image", c.CropLeft, c.CropTop)
	}
	if c.CropLeft+c.CropWidth > c.OriginalWidth {
		return fmt.Errorf("crop right edge %d exceeds image width %d", c.CropLeft+c.CropWidth, c.OriginalWidth)
	}
	if c.CropTop+c.CropHeight > c.OriginalHeight {
		return fmt.Errorf("crop bottom edge %d exceeds image height %d", c.CropTop+c.CropHeight, c.OriginalHeight)
	}
	return nil
}

// Review repräsentiert die Klassifikation eines Crops (höchstens eine pro Crop)
type Review struct {
	ID     uint `gorm:"primarykey" json:"id"`
	CropID uint `gorm:"uniqueIndex;not null" json:"crop_id"`

	Notes       string  `json:"notes"`
	IsJonathan  *string `gorm:"column:is_jonathan" json:"is_jonathan"`
	Activities  *string `json:"activities"` // JSON-serialised list over ActivityOptions
	TopClothing *string `json:"top_clothing"`

	ReviewedByIP string    `json:"reviewed_by_ip,omitempty"`
	ReviewedAt   time.Time `json:"reviewed_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps the historical table name
func (Review) TableName() string { return "crop_reviews" }

// IsClassified reports whether the review carries any classification
// content. A review row with all fields empty does not count as a
// review: its crop remains "unreviewed".
func (r *Review) IsClassified() bool {
	if r == nil {
		return false
	}
	if r.Notes != "" {
		return true
	}
	if r.IsJonathan != nil && *r.IsJonathan != "" {
		return true
	}
	if r.TopClothing != nil && *r.TopClothing != "" {
		return true
	}
	if r.Activities != nil {
		switch *r.Activities {
		case "", "[]", "null":
		default:
			return true
		}
	}
	return false
}

// Factor ist ein benannter, polaritäts-typisierter Tag im Katalog
type Factor struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Type        string    `gorm:"index;not null" json:"type"` // positive | negative
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReviewPositiveFactor links a review to a factor asserted as present.
type ReviewPositiveFactor struct {
	ReviewID uint `gorm:"primaryKey;autoIncrement:false"`
	FactorID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (ReviewPositiveFactor) TableName() string { return "review_positive_factors" }

// ReviewNegativeFactor links a review to a factor asserted as absent.
type ReviewNegativeFactor struct {
	ReviewID uint `gorm:"primaryKey;autoIncrement:false"`
	FactorID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (ReviewNegativeFactor) TableName() string { return "review_negative_factors" }

// Selection states for FactorWithSelection
const (
	SelectionPositive = "positive"
	SelectionNegative = "negative"
	SelectionNone     = "none"
)

// FactorWithSelection annotates a catalog factor with its selection
// state for one review, so a full tag picker renders from one query.
type FactorWithSelection struct {
	Factor
	Selection string `json:"selection"`
}

// CropFilters describes the dashboard filter set. Empty or "all" values
// are no-ops; set values combine with logical AND.
type CropFilters struct {
	Status   string `form:"status" json:"status"` // all | unreviewed | reviewed
	Jonathan string `form:"jonathan" json:"jonathan"`
	Activity string `form:"activity" json:"activity"`
	Clothing string `form:"clothing" json:"clothing"`
}

// FilteredCrop is a crop row left-joined with its review fields, as
// returned by the dashboard listing.
type FilteredCrop struct {
	ID                uint           `json:"id"`
	OriginalCamera    string         `json:"original_camera"`
	OriginalFilename  string         `json:"original_filename"`
	OriginalPath      string         `json:"original_path,omitempty"`
	CropFilename      string         `json:"crop_filename"`
	CropFolder        string         `json:"crop_folder"`
	ClickX            float64        `json:"click_x"`
	ClickY            float64        `json:"click_y"`
	CropLeft          int            `json:"crop_left"`
	CropTop           int            `json:"crop_top"`
	CropWidth         int            `json:"crop_width"`
	CropHeight        int            `json:"crop_height"`
	OriginalWidth     int            `json:"original_width"`
	OriginalHeight    int            `json:"original_height"`
	SavedByIP         string         `json:"saved_by_ip,omitempty"`
	OriginalTimestamp string         `json:"original_timestamp,omitempty"`
	SavedAt           time.Time      `json:"saved_at"`
	Metadata          datatypes.JSON `json:"metadata,omitempty"`
	MigratedFromJSON  bool           `gorm:"column:migrated_from_json" json:"migrated_from_json"`

	Notes       *string    `json:"notes"`
	IsJonathan  *string    `gorm:"column:is_jonathan" json:"is_jonathan"`
	Activities  *string    `json:"activities"`
	TopClothing *string    `json:"top_clothing"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
}

// ReviewStats fasst den Review-Fortschritt für das Dashboard zusammen
type ReviewStats struct {
	TotalCrops      int64 `json:"total_crops"`
	TotalReviews    int64 `json:"total_reviews"`
	ClassifiedCrops int64 `json:"classified_crops"`
	NeverReviewed   int64 `json:"never_reviewed"`
	PartialReviews  int64 `json:"partial_reviews"`
}

// ImageView tracks a single view of a camera image.
type ImageView struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CameraName string    `gorm:"index:idx_image_views_camera_file;not null" json:"camera_name"`
	Filename   string    `gorm:"index:idx_image_views_camera_file;not null" json:"filename"`
	ViewerIP   string    `gorm:"index;not null" json:"viewer_ip"`
	ViewedAt   time.Time `gorm:"index;autoCreateTime" json:"viewed_at"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

func (ImageView) TableName() string { return "image_views" }

// ImageStat is the per-image view summary, maintained alongside
// ImageView rows for cheap dashboard reads.
type ImageStat struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CameraName    string    `gorm:"uniqueIndex:idx_image_stats_camera_file;not null" json:"camera_name"`
	Filename      string    `gorm:"uniqueIndex:idx_image_stats_camera_file;not null" json:"filename"`
	TotalViews    int64     `gorm:"default:0" json:"total_views"`
	UniqueViewers int64     `gorm:"default:0" json:"unique_viewers"`
	FirstViewedAt time.Time `json:"first_viewed_at"`
	LastViewedAt  time.Time `json:"last_viewed_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ImageStat) TableName() string { return "image_stats" }

// GlobalStats are the coarse totals for the database overview page.
type GlobalStats struct {
	TotalViews    int64 `json:"total_views"`
	UniqueViewers int64 `json:"unique_viewers"`
	TotalImages   int64 `json:"total_images"`
	TotalCrops    int64 `json:"total_crops"`
}

// ValidJonathan reports membership in the identity vocabulary.
func ValidJonathan(v string) bool { return contains(JonathanOptions, v) }

// ValidActivity reports membership in the activity vocabulary.
func ValidActivity(v string) bool { return contains(ActivityOptions, v) }

// ValidClothing reports membership in the clothing vocabulary.
func ValidClothing(v string) bool { return contains(ClothingOptions, v) }

// ValidFactorType reports whether t is a known factor polarity.
func ValidFactorType(t string) bool {
	return t == FactorTypePositive || t == FactorTypeNegative
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// EncodeActivities validates every entry against ActivityOptions and
// serialises the list for storage. An empty list encodes to ("", nil)
// so the column stays NULL.
func EncodeActivities(activities []string) (string, error) {
	if len(activities) == 0 {
		return "", nil
	}
	for _, a := range activities {
		if !ValidActivity(a) {
			return "", fmt.Errorf("unknown activity %q", a)
		}
	}
	raw, err := json.Marshal(activities)
	if err != nil {
		return "", fmt.Errorf("failed to encode activities: %w", err)
	}
	return string(raw), nil
}

// DecodeActivities parses a stored activities column back into a list.
func DecodeActivities(encoded *string) []string {
	if encoded == nil || *encoded == "" || *encoded == "null" {
		return nil
	}
	var activities []string
	if err := json.Unmarshal([]byte(*encoded), &activities); err != nil {
		return nil
	}
	return activities
}
