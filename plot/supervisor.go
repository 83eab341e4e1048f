package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
)

// DefaultTolerance is the fraction of pixels allowed to differ from a baseline.
const DefaultTolerance = 0.05

// Supervisor keeps snapshots consistent between runs by comparing them with
// stored baselines pixel by pixel.
type Supervisor struct {
	baselineDir string
	currentDir  string
	tolerance   float64
}

// NewSupervisor creates a visual regression validator.
func NewSupervisor(baselineDir, currentDir string) *Supervisor {
	return &Supervisor{
		baselineDir: baselineDir,
		currentDir:  currentDir,
		tolerance:   DefaultTolerance,
	}
}

// WithTolerance sets the allowed fraction of differing pixels.
func (ss *Supervisor) WithTolerance(tolerance float64) *Supervisor {
	ss.tolerance = tolerance
	return ss
}

// ValidateConsistency compares <currentDir>/<name>.png with the baseline of
// the same name. On regression it writes <name>_diff.png next to the current
// image and returns an error naming the difference.
func (ss *Supervisor) ValidateConsistency(name string) error {
	baselinePath := filepath.Join(ss.baselineDir, name+".png")
	currentPath := filepath.Join(ss.currentDir, name+".png")

	baseline, err := loadImage(baselinePath)
	if err != nil {
		return fmt.Errorf("failed to load baseline: %w", err)
	}

	current, err := loadImage(currentPath)
	if err != nil {
		return fmt.Errorf("failed to load current: %w", err)
	}

	difference := Difference(baseline, current)
	if difference > ss.tolerance {
		diffPath := filepath.Join(ss.currentDir, name+"_diff.png")
		if err := writeDiffImage(baseline, current, diffPath); err != nil {
			return fmt.Errorf("visual regression detected: %.2f%% difference (tolerance: %.2f%%), diff image failed: %w",
				difference*100, ss.tolerance*100, err)
		}

		return fmt.Errorf("visual regression detected: %.2f%% difference (tolerance: %.2f%%)",
			difference*100, ss.tolerance*100)
	}

	return nil
}

// SetBaseline copies a snapshot into the baseline directory as <name>.png.
func (ss *Supervisor) SetBaseline(name, snapshotPath string) error {
	if err := os.MkdirAll(ss.baselineDir, 0755); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}

	input, err := os.Open(snapshotPath)
	if err != nil {
		return err
	}
	defer input.Close()

	output, err := os.Create(filepath.Join(ss.baselineDir, name+".png"))
	if err != nil {
		return err
	}
	defer output.Close()

	_, err = output.ReadFrom(input)
	return err
}

// Difference returns the fraction of pixels that differ between two images.
// Images of different size are entirely different.
func Difference(img1, img2 image.Image) float64 {
	bounds := img1.Bounds()
	if bounds != img2.Bounds() {
		return 1.0
	}

	totalPixels := bounds.Dx() * bounds.Dy()
	if totalPixels == 0 {
		return 0
	}

	differentPixels := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if !sameColor(img1.At(x, y), img2.At(x, y)) {
				differentPixels++
			}
		}
	}

	return float64(differentPixels) / float64(totalPixels)
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return png.Decode(file)
}

// writeDiffImage highlights differing pixels in red over a dimmed baseline.
func writeDiffImage(baseline, current image.Image, outputPath string) error {
	bounds := baseline.Bounds()
	diff := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			baseColor := baseline.At(x, y)
			if !sameColor(baseColor, current.At(x, y)) {
				diff.Set(x, y, color.RGBA{255, 0, 0, 255})
				continue
			}
			r, g, b, a := baseColor.RGBA()
			diff.Set(x, y, color.RGBA{
				uint8(r >> 9), // halve, then drop to 8 bits
				uint8(g >> 9),
				uint8(b >> 9),
				uint8(a >> 8),
			})
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, diff)
}
