package cv

import (
	"image"
)

// Service handles all computer vision operations
type Service struct {
	capturer Capturer

	// Title bar exclusion
	titleBarHeight int // Pixels to exclude from top of window
}

// NewService creates a CV service. Matches never start inside the top
// titleBarHeight pixels of a frame.
func NewService(capturer Capturer, titleBarHeight int) *Service {
	return &Service{
		capturer:       capturer,
		titleBarHeight: titleBarHeight,
	}
}

// CaptureFrame always captures a fresh frame; every decision needs the
// screen as it is now, not as it was before the last macro.
func (s *Service) CaptureFrame() (*image.RGBA, error) {
	frame, err := s.capturer.CaptureFrame()
	if err != nil {
		return nil, err
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, ErrInvalidImage
	}
	return frame, nil
}

// Score returns the best correlation of template inside frame
func (s *Service) Score(frame, template *image.RGBA) float64 {
	config := &MatchConfig{Threshold: 1.0}
	s.applyTitleBarExclusion(config, frame.Bounds())
	return FindTemplate(frame, template, config).Confidence
}

// applyTitleBarExclusion applies title bar exclusion to match config if not already set
func (s *Service) applyTitleBarExclusion(config *MatchConfig, bounds image.Rectangle) {
	// Only apply if title bar height is set and no search region is already defined
	if s.titleBarHeight > 0 && config.SearchRegion == nil {
		config.SearchRegion = &image.Rectangle{
			Min: image.Point{X: bounds.Min.X, Y: bounds.Min.Y + s.titleBarHeight},
			Max: bounds.Max,
		}
	}
}
