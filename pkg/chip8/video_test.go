package chip8

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestRGBA(t *testing.T) {
	vm := newTestVM(t)
	vm.display[0] = 1

	pixels := vm.RGBA()
	if len(pixels) != DisplayWidth*DisplayHeight*4 {
		t.Fatalf("RGBA: expected %d bytes, got %d", DisplayWidth*DisplayHeight*4, len(pixels))
	}

	// First pixel lit, second dark; both opaque.
	if pixels[0] != pixelOn[0] || pixels[1] != pixelOn[1] || pixels[2] != pixelOn[2] {
		t.Error("RGBA: lit pixel has wrong color")
	}
	if pixels[4] != 0 || pixels[5] != 0 || pixels[6] != 0 {
		t.Error("RGBA: dark pixel has wrong color")
	}
	if pixels[3] != 0xFF || pixels[7] != 0xFF {
		t.Error("RGBA: expected opaque alpha")
	}
}

func TestImage(t *testing.T) {
	vm := newTestVM(t)
	img := vm.Image()

	bounds := img.Bounds()
	if bounds.Dx() != DisplayWidth || bounds.Dy() != DisplayHeight {
		t.Errorf("Image: expected %dx%d, got %dx%d",
			DisplayWidth, DisplayHeight, bounds.Dx(), bounds.Dy())
	}
}

func TestSaveScreenshot(t *testing.T) {
	vm := newTestVM(t)
	vm.display[10] = 1

	name := filepath.Join(t.TempDir(), "shot.png")
	if err := vm.SaveScreenshot(name); err != nil {
		t.Fatalf("SaveScreenshot: %v", err)
	}

	f, err := os.Open(name)
	if err != nil {
		t.Fatalf("opening screenshot: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding screenshot: %v", err)
	}
	if img.Bounds().Dx() != DisplayWidth {
		t.Errorf("screenshot width: expected %d, got %d", DisplayWidth, img.Bounds().Dx())
	}
}
