package geometry

import "math"

// CropFraction is the crop edge length as a fraction of the source
// image width.
const CropFraction = 0.1

// Region ist das berechnete quadratische Crop-Rechteck in Pixelkoordinaten
type Region struct {
	Left int `json:"left"`
	Top  int `json:"top"`
	Size int `json:"size"`
}

// ComputeCropRegion derives a square crop region centred on a click
// point given in relative coordinates. The region is clamped so it
// always lies fully inside the source image, including clicks on edges
// and corners. Pure function; inputs are pre-validated by the caller.
func ComputeCropRegion(clickX, clickY float64, imageWidth, imageHeight int) Region {
	size := int(math.Round(float64(imageWidth) * CropFraction))
	half := float64(size) / 2

	centerX := math.Round(clickX * float64(imageWidth))
	centerY := math.Round(clickY * float64(imageHeight))

	left := int(math.Round(math.Max(0, math.Min(centerX-half, float64(imageWidth-size)))))
	top := int(math.Round(math.Max(0, math.Min(centerY-half, float64(imageHeight-size)))))

	// The square may still overrun a short image edge; shrink it to fit.
	if remaining := imageWidth - left; size > remaining {
		size = remaining
	}
	if remaining := imageHeight - top; size > remaining {
		size = remaining
	}

	return Region{Left: left, Top: top, Size: size}
}
