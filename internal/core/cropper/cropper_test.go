package cropper

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestImage(t *testing.T, dir, camera, filename string, width, height int) {
	t.Helper()
	cameraDir := filepath.Join(dir, camera)
	require.NoError(t, os.MkdirAll(cameraDir, 0755))
	img := imaging.New(width, height, color.NRGBA{R: 120, G: 120, B: 120, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(cameraDir, filename)))
}

func TestCropFilename(t *testing.T) {
	assert.Equal(t, "cam_12_x50_y25_crop.jpg", CropFilename("cam_12.jpg", 0.5, 0.25))
	assert.Equal(t, "shot_x0_y100_crop.png", CropFilename("shot.png", 0, 1))
	assert.Equal(t, "a.b_x33_y67_crop.jpg", CropFilename("a.b.jpg", 0.333, 0.666))
}

func TestCropAndSave(t *testing.T) {
	base := t.TempDir()
	capturedDir := filepath.Join(base, "captured_images")
	savedDir := filepath.Join(base, "saved_images")
	writeTestImage(t, capturedDir, "hauptstrasse", "cam_12.jpg", 1000, 800)

	c := New(capturedDir, savedDir)
	result, err := c.CropAndSave("hauptstrasse", "cam_12.jpg", 0.5, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 1000, result.OriginalWidth)
	assert.Equal(t, 800, result.OriginalHeight)
	assert.Equal(t, 100, result.Region.Size)
	assert.Equal(t, 450, result.Region.Left)
	assert.Equal(t, 350, result.Region.Top)
	assert.Equal(t, "cam_12_x50_y50_crop.jpg", result.CropFilename)
	assert.Equal(t, filepath.Join("saved_images", "hauptstrasse"), result.CropFolder)

	written, err := imaging.Open(filepath.Join(savedDir, "hauptstrasse", result.CropFilename))
	require.NoError(t, err)
	assert.Equal(t, 100, written.Bounds().Dx())
	assert.Equal(t, 100, written.Bounds().Dy())
}

func TestCropAndSaveCornerClick(t *testing.T) {
	base := t.TempDir()
	capturedDir := filepath.Join(base, "captured_images")
	savedDir := filepath.Join(base, "saved_images")
	writeTestImage(t, capturedDir, "hauptstrasse", "cam_12.jpg", 1000, 800)

	c := New(capturedDir, savedDir)
	result, err := c.CropAndSave("hauptstrasse", "cam_12.jpg", 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 900, result.Region.Left)
	assert.Equal(t, 700, result.Region.Top)
	assert.Equal(t, 100, result.Region.Size)
}

func TestCropAndSaveMissingSource(t *testing.T) {
	base := t.TempDir()
	c := New(filepath.Join(base, "captured_images"), filepath.Join(base, "saved_images"))

	_, err := c.CropAndSave("hauptstrasse", "nope.jpg", 0.5, 0.5)
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestDeleteFile(t *testing.T) {
	base := t.TempDir()
	savedDir := filepath.Join(base, "saved_images")
	writeTestImage(t, savedDir, "hauptstrasse", "cam_12_x50_y50_crop.jpg", 100, 100)

	c := New(filepath.Join(base, "captured_images"), savedDir)
	require.NoError(t, c.DeleteFile(filepath.Join("saved_images", "hauptstrasse"), "cam_12_x50_y50_crop.jpg"))

	_, err := os.Stat(filepath.Join(savedDir, "hauptstrasse", "cam_12_x50_y50_crop.jpg"))
	assert.True(t, os.IsNotExist(err))

	// Missing files are ignored.
	require.NoError(t, c.DeleteFile(filepath.Join("saved_images", "hauptstrasse"), "gone.jpg"))
	require.NoError(t, c.DeleteFile("", ""))
}
