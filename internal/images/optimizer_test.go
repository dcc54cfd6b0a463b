package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/sistema-agil/vistoria/internal/device"
	"github.com/sistema-agil/vistoria/internal/models"
)

// noiseJPEG produces an incompressible JPEG well above the skip threshold.
func noiseJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}
	if buf.Len() < SkipThreshold {
		t.Fatalf("Fixture too small: %d bytes", buf.Len())
	}
	return buf.Bytes()
}

func TestTargetDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxEdge       int
		wantW, wantH  int
	}{
		{"within bounds", 800, 600, 1280, 800, 600},
		{"landscape mobile", 2400, 1600, 1280, 1280, 853},
		{"landscape desktop", 2400, 1600, 1920, 1920, 1280},
		{"portrait desktop", 1600, 2400, 1920, 1280, 1920},
		{"square", 4000, 4000, 1280, 1280, 1280},
		{"tall after width pass", 3000, 6000, 1280, 640, 1280},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetDimensions(tt.width, tt.height, tt.maxEdge)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestOptimizeSmallBlobIsIdentity(t *testing.T) {
	blob := models.Blob{Name: "small.png", MimeType: "image/png", Data: []byte("not really an image")}

	out := NewOptimizer(device.Mobile).Optimize(blob)
	if out.MimeType != blob.MimeType || !bytes.Equal(out.Data, blob.Data) || out.Name != blob.Name {
		t.Errorf("Expected identical blob, got %+v", out)
	}
}

func TestOptimizeUndecodableFallsBack(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, SkipThreshold+10)
	blob := models.Blob{Name: "broken.jpg", MimeType: "image/jpeg", Data: data}

	out := NewOptimizer(device.Desktop).Optimize(blob)
	if !bytes.Equal(out.Data, data) {
		t.Error("Expected original data when decoding fails")
	}
}

func TestOptimizeBoundsLongestEdge(t *testing.T) {
	data := noiseJPEG(t, 2400, 1600)

	tests := []struct {
		name    string
		profile device.Profile
		wantW   int
		wantH   int
	}{
		{"mobile", device.Mobile, 1280, 853},
		{"desktop", device.Desktop, 1920, 1280},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewOptimizer(tt.profile).Optimize(models.Blob{Name: "foto.jpg", MimeType: "image/jpeg", Data: data})
			if out.MimeType != "image/jpeg" {
				t.Errorf("Expected image/jpeg, got %s", out.MimeType)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
			if err != nil {
				t.Fatalf("Optimized output is not a JPEG: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestInkBounds(t *testing.T) {
	blank := image.NewNRGBA(image.Rect(0, 0, 50, 20))
	if !InkBounds(blank).Empty() {
		t.Error("Expected empty bounds for transparent canvas")
	}

	white := image.NewNRGBA(image.Rect(0, 0, 50, 20))
	for i := range white.Pix {
		white.Pix[i] = 0xff
	}
	if !InkBounds(white).Empty() {
		t.Error("Expected empty bounds for white canvas")
	}

	white.Set(10, 5, color.Black)
	white.Set(20, 8, color.Black)
	got := InkBounds(white)
	want := image.Rect(10, 5, 21, 9)
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestDecodePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 4 || decoded.Bounds().Dy() != 3 {
		t.Errorf("Unexpected bounds %v", decoded.Bounds())
	}
	if _, err := Decode([]byte("nope")); err == nil {
		t.Error("Expected error for garbage input")
	}
}
