package cv

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// SupportedExtensions lists the file extensions DecodeFile understands
var SupportedExtensions = []string{".png", ".bmp", ".jpg", ".jpeg"}

// IsImageFile reports whether name has a decodable image extension
func IsImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// DecodeFile opens and decodes an image file into RGBA.
// bmp registers itself with image.Decode through the x/image import.
func DecodeFile(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	return ToRGBA(img), nil
}

// ToRGBA converts any image to an RGBA whose bounds start at the origin
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// WriteBMP persists img as an uncompressed bitmap. The file must not exist yet.
func WriteBMP(path string, img image.Image) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := bmp.Encode(file, img); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	return file.Close()
}
