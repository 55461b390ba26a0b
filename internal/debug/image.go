package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/bmp"

	"github.com/Faultbox/lightgraph/pkg/math"
)

// EnergyPoint is one light node with its propagated energy.
type EnergyPoint struct {
	Position math.Vec3
	Energy   math.Vec3
}

// splatRadius is the half-width in pixels of the square drawn per node.
const splatRadius = 1

// EnergyImage renders points seen from above (+Y looking down, X right, Z
// down the image) into a size×size image. Energy is tone mapped with
// e/(1+e); overlapping points keep the brightest value per channel.
func EnergyImage(points []EnergyPoint, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	if len(points) == 0 || size <= 0 {
		return img
	}

	b := math.EmptyAABB()
	for _, p := range points {
		b = b.Extend(p.Position)
	}
	extent := max(b.Size().X, b.Size().Z)
	if extent <= 0 {
		extent = 1
	}
	scale := float32(size-1) / extent

	for _, p := range points {
		cx := int((p.Position.X - b.Min.X) * scale)
		cy := int((p.Position.Z - b.Min.Z) * scale)
		c := toneMap(p.Energy)
		for y := cy - splatRadius; y <= cy+splatRadius; y++ {
			for x := cx - splatRadius; x <= cx+splatRadius; x++ {
				if x < 0 || y < 0 || x >= size || y >= size {
					continue
				}
				old := img.RGBAAt(x, y)
				img.SetRGBA(x, y, color.RGBA{
					R: max(old.R, c.R),
					G: max(old.G, c.G),
					B: max(old.B, c.B),
					A: 0xff,
				})
			}
		}
	}
	return img
}

func toneMap(e math.Vec3) color.RGBA {
	ch := func(v float32) uint8 {
		if v <= 0 {
			return 0
		}
		return uint8(v / (1 + v) * 255)
	}
	return color.RGBA{R: ch(e.X), G: ch(e.Y), B: ch(e.Z), A: 0xff}
}

// ImageWriter saves debug images under a directory with timestamped names.
type ImageWriter struct {
	outputDir string
	prefix    string
	format    string
}

// NewImageWriter creates a writer; format is "png" or "bmp".
func NewImageWriter(outputDir, prefix, format string) *ImageWriter {
	return &ImageWriter{
		outputDir: outputDir,
		prefix:    prefix,
		format:    format,
	}
}

// Filename generates the next file name without writing anything.
func (w *ImageWriter) Filename() string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s.%s", w.prefix, timestamp, w.format)
	if w.outputDir != "" {
		filename = filepath.Join(w.outputDir, filename)
	}
	return filename
}

// Write encodes img and returns the file name.
func (w *ImageWriter) Write(img image.Image) (string, error) {
	encode := png.Encode
	switch w.format {
	case "png":
	case "bmp":
		encode = bmp.Encode
	default:
		return "", fmt.Errorf("unknown image format %q", w.format)
	}

	if w.outputDir != "" {
		if err := os.MkdirAll(w.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := w.Filename()
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := encode(file, img); err != nil {
		return "", fmt.Errorf("encoding %s: %w", w.format, err)
	}
	return filename, nil
}
