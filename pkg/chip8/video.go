package chip8

import (
	"image"
	"image/png"
	"os"
)

// Lit and unlit pixel colors, RGBA8888. The classic light-gray-on-black look.
var (
	pixelOn  = [4]byte{0xC2, 0xC3, 0xC7, 0xFF}
	pixelOff = [4]byte{0x00, 0x00, 0x00, 0xFF}
)

// RGBA decodes the framebuffer into a 64x32 RGBA8888 byte slice
// (length 64*32*4), suitable for blitting to a texture.
func (vm *VM) RGBA() []byte {
	pixels := make([]byte, DisplayWidth*DisplayHeight*4)
	for i, p := range vm.display {
		c := pixelOff
		if p != 0 {
			c = pixelOn
		}
		copy(pixels[i*4:], c[:])
	}
	return pixels
}

// Image returns the framebuffer as an *image.RGBA.
func (vm *VM) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    vm.RGBA(),
		Stride: DisplayWidth * 4,
		Rect:   image.Rect(0, 0, DisplayWidth, DisplayHeight),
	}
}

// SaveScreenshot encodes the framebuffer as a PNG and writes it to filename.
func (vm *VM) SaveScreenshot(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, vm.Image())
}
