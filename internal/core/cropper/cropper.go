package cropper

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"traffic-watch-go/internal/core/geometry"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
)

// ErrSourceMissing wird gemeldet, wenn das Quellbild nicht existiert
var ErrSourceMissing = errors.New("source image not found")

// Cropper schneidet Bildausschnitte aus Kamerabildern und legt sie ab
type Cropper struct {
	capturedDir string
	savedDir    string
}

// Result describes a written crop file together with the geometry it
// was cut with, ready to be persisted as a Crop record.
type Result struct {
	Region         geometry.Region
	OriginalWidth  int
	OriginalHeight int
	CropFilename   string
	CropFolder     string
}

// New erstellt einen Cropper über den Bildverzeichnissen
func New(capturedDir, savedDir string) *Cropper {
	return &Cropper{capturedDir: capturedDir, savedDir: savedDir}
}

// CropFilename derives the stored filename from the source filename and
// the click point, e.g. "cam_12.jpg" at (0.5, 0.25) becomes
// "cam_12_x50_y25_crop.jpg".
func CropFilename(originalFilename string, clickX, clickY float64) string {
	ext := filepath.Ext(originalFilename)
	base := strings.TrimSuffix(originalFilename, ext)
	return fmt.Sprintf("%s_x%d_y%d_crop%s",
		base, int(math.Round(clickX*100)), int(math.Round(clickY*100)), ext)
}

// CropAndSave opens the captured source image, cuts the square around
// the click point and writes it under savedDir/<camera>/.
func (c *Cropper) CropAndSave(camera, filename string, clickX, clickY float64) (*Result, error) {
	sourcePath := filepath.Join(c.capturedDir, camera, filename)
	src, err := imaging.Open(sourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrSourceMissing, camera, filename)
		}
		return nil, fmt.Errorf("failed to open source image %s: %w", sourcePath, err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	region := geometry.ComputeCropRegion(clickX, clickY, width, height)

	cropped := imaging.Crop(src, image.Rect(
		region.Left, region.Top,
		region.Left+region.Size, region.Top+region.Size,
	))

	cameraDir := filepath.Join(c.savedDir, camera)
	if err := os.MkdirAll(cameraDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create saved images directory %s: %w", cameraDir, err)
	}

	savedFilename := CropFilename(filename, clickX, clickY)
	savedPath := filepath.Join(cameraDir, savedFilename)
	if err := imaging.Save(cropped, savedPath); err != nil {
		return nil, fmt.Errorf("failed to save crop %s: %w", savedPath, err)
	}

	log.Debugf("Saved %dx%d crop of %s/%s to %s", region.Size, region.Size, camera, filename, savedPath)

	return &Result{
		Region:         region,
		OriginalWidth:  width,
		OriginalHeight: height,
		CropFilename:   savedFilename,
		CropFolder:     filepath.Join(filepath.Base(c.savedDir), camera),
	}, nil
}

// DeleteFile removes a stored crop file. A missing file is not an
// error; the database record is authoritative.
func (c *Cropper) DeleteFile(cropFolder, cropFilename string) error {
	if cropFolder == "" || cropFilename == "" {
		return nil
	}
	path := filepath.Join(filepath.Dir(c.savedDir), cropFolder, cropFilename)
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete crop file %s: %w", path, err)
	}
	return nil
}
