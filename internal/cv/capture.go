package cv

import (
	"fmt"
	"image"
)

// Capturer interface for different capture methods
type Capturer interface {
	CaptureFrame() (*image.RGBA, error)
}

// FileCapturer serves a frame from an image file on disk. Every call re-reads
// the file so an external tool can keep overwriting it.
type FileCapturer struct {
	path string
}

// NewFileCapturer creates a capturer backed by an image file
func NewFileCapturer(path string) *FileCapturer {
	return &FileCapturer{path: path}
}

// CaptureFrame decodes the file into a fresh RGBA frame
func (fc *FileCapturer) CaptureFrame() (*image.RGBA, error) {
	frame, err := DecodeFile(fc.path)
	if err != nil {
		return nil, fmt.Errorf("failed to capture from %s: %w", fc.path, err)
	}
	return frame, nil
}
