package images

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/sistema-agil/vistoria/internal/device"
	"github.com/sistema-agil/vistoria/internal/models"
)

const (
	// Blobs below this size are passed through untouched.
	SkipThreshold = 1 << 20

	DefaultQuality = 80
)

// Optimizer downsizes and re-encodes photos before they are stored.
type Optimizer struct {
	MaxEdge   int
	Quality   int
	Threshold int64
}

// NewOptimizer creates an optimizer tuned for the device profile
func NewOptimizer(p device.Profile) *Optimizer {
	return &Optimizer{
		MaxEdge:   p.MaxEdge(),
		Quality:   DefaultQuality,
		Threshold: SkipThreshold,
	}
}

// Optimize never fails: when the blob cannot be decoded or re-encoded the
// original is returned.
func (o *Optimizer) Optimize(blob models.Blob) models.Blob {
	if blob.Size() < o.Threshold {
		return blob
	}

	src, err := Decode(blob.Data)
	if err != nil {
		slog.Warn("Failed to decode photo, keeping original", "name", blob.Name, "size", blob.Size(), "error", err)
		return blob
	}

	b := src.Bounds()
	w, h := TargetDimensions(b.Dx(), b.Dy(), o.MaxEdge)

	// JPEG has no alpha channel; flatten onto white first.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	stddraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, stddraw.Src)
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, stddraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: o.Quality}); err != nil {
		slog.Warn("Failed to encode photo, keeping original", "name", blob.Name, "error", err)
		return blob
	}

	slog.Debug("Photo optimized",
		"name", blob.Name,
		"original_size", blob.Size(),
		"optimized_size", buf.Len(),
		"width", w,
		"height", h)

	return models.Blob{
		Name:     blob.Name,
		MimeType: "image/jpeg",
		Data:     buf.Bytes(),
	}
}

// TargetDimensions bounds width first, then height on the already scaled
// value, preserving the aspect ratio. Rounding happens once at the end.
func TargetDimensions(width, height, maxEdge int) (int, int) {
	w, h := float64(width), float64(height)
	m := float64(maxEdge)

	if w > m {
		h = h * m / w
		w = m
	}
	if h > m {
		w = w * m / h
		h = m
	}

	tw := int(math.Round(w))
	th := int(math.Round(h))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

// Decode reads jpeg, png, gif or webp data.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if decoded, webpErr := webp.Decode(bytes.NewReader(data)); webpErr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("failed to decode image: %w", err)
}

// InkBounds returns the smallest rectangle holding every visible,
// non-white pixel. It is empty for a blank canvas.
func InkBounds(img image.Image) image.Rectangle {
	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X, bounds.Min.Y
	found := false
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			// anti-aliased canvas background
			if r > 0xf000 && g > 0xf000 && b > 0xf000 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
			found = true
		}
	}
	if !found {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}
