package cv

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// patterned builds a deterministic, non-periodic test image
func patterned(w, h int, seed uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	state := uint32(seed)*2654435761 + 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			state ^= state << 13
			state ^= state >> 17
			state ^= state << 5
			v := uint8(state)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	return img
}

func TestFindTemplateLocatesCrop(t *testing.T) {
	frame := patterned(40, 30, 7)
	needle := cropRegion(frame, image.Rect(12, 9, 20, 15))

	result := FindTemplate(frame, needle, DefaultMatchConfig())

	require.True(t, result.Found)
	assert.Equal(t, image.Point{X: 12, Y: 9}, result.Location)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
}

func TestScoreIdenticalImagesIsOne(t *testing.T) {
	frame := patterned(16, 16, 3)
	assert.Equal(t, 1.0, Score(frame, patterned(16, 16, 3)))
}

func TestScoreInvertedImageIsNegative(t *testing.T) {
	frame := patterned(10, 10, 0)
	inverted := image.NewRGBA(frame.Bounds())
	for i := range frame.Pix {
		if i%4 == 3 {
			inverted.Pix[i] = 255
			continue
		}
		inverted.Pix[i] = 255 - frame.Pix[i]
	}

	assert.Less(t, Score(frame, inverted), -0.99)
}

func TestScoreNeedleLargerThanFrame(t *testing.T) {
	result := FindTemplate(patterned(5, 5, 1), patterned(6, 6, 1), nil)
	assert.False(t, result.Found)
	assert.Zero(t, result.Confidence)
}

func TestScoreFlatPatches(t *testing.T) {
	red := image.NewRGBA(image.Rect(0, 0, 4, 4))
	blue := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(red.Pix); i += 4 {
		copy(red.Pix[i:], []uint8{200, 0, 0, 255})
		copy(blue.Pix[i:], []uint8{0, 0, 200, 255})
	}

	assert.Equal(t, 1.0, Score(red, red))
	assert.Equal(t, 0.0, Score(red, blue))
	assert.Equal(t, 0.0, Score(patterned(4, 4, 9), red))
}

func TestSearchRegionRestrictsMatch(t *testing.T) {
	frame := patterned(40, 30, 11)
	needle := cropRegion(frame, image.Rect(2, 2, 8, 8))
	region := image.Rect(20, 10, 40, 30)

	result := FindTemplate(frame, needle, &MatchConfig{Threshold: 0.99, SearchRegion: &region})

	assert.False(t, result.Found)
	assert.GreaterOrEqual(t, result.Location.X, 20)
}

func TestServiceTitleBarExclusion(t *testing.T) {
	frame := patterned(30, 30, 5)
	needle := cropRegion(frame, image.Rect(0, 0, 10, 5))

	svc := NewService(stubCapturer{frame: frame}, 10)
	assert.Less(t, svc.Score(frame, needle), 0.99)

	assert.GreaterOrEqual(t, NewService(stubCapturer{frame: frame}, 0).Score(frame, needle), 0.99)
}

func TestServiceCaptureFrameRejectsEmpty(t *testing.T) {
	_, err := NewService(stubCapturer{}, 0).CaptureFrame()
	assert.ErrorIs(t, err, ErrInvalidImage)

	frame := patterned(4, 4, 1)
	got, err := NewService(stubCapturer{frame: frame}, 0).CaptureFrame()
	require.NoError(t, err)
	assert.Same(t, frame, got)
}

func TestWriteBMPRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area_2-0.bmp")
	frame := patterned(12, 8, 42)

	require.NoError(t, WriteBMP(path, frame))
	require.Error(t, WriteBMP(path, frame), "existing catalog files must never be overwritten")

	decoded, err := NewFileCapturer(path).CaptureFrame()
	require.NoError(t, err)
	assert.Equal(t, frame.Pix, decoded.Pix)
}

type stubCapturer struct {
	frame *image.RGBA
	err   error
}

func (s stubCapturer) CaptureFrame() (*image.RGBA, error) {
	return s.frame, s.err
}

func cropRegion(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			cropped.SetRGBA(x-rect.Min.X, y-rect.Min.Y, img.RGBAAt(x, y))
		}
	}

	return cropped
}
