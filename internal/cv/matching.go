package cv

import (
	"fmt"
	"image"
	"math"
)

// MatchResult contains template matching results
type MatchResult struct {
	Found      bool
	Location   image.Point
	Confidence float64
}

// MatchConfig configures template matching
type MatchConfig struct {
	Threshold    float64          // correlation required for Found
	SearchRegion *image.Rectangle // Optional: limit search area
}

// DefaultMatchConfig returns recommended settings
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Threshold: 0.90,
	}
}

// FindTemplate slides needle over haystack and returns the position with the
// highest zero-mean normalized cross-correlation.
//
// Confidence follows the TM_CCOEFF_NORMED convention: 1.0 is a perfect match,
// unrelated content scores near 0, inverted content approaches -1.
func FindTemplate(haystack, needle *image.RGBA, config *MatchConfig) *MatchResult {
	if config == nil {
		config = DefaultMatchConfig()
	}

	searchBounds := haystack.Bounds()
	if config.SearchRegion != nil {
		searchBounds = config.SearchRegion.Intersect(searchBounds)
		if searchBounds.Empty() {
			return &MatchResult{Found: false, Confidence: 0.0}
		}
	}

	needleBounds := needle.Bounds()
	needleWidth := needleBounds.Dx()
	needleHeight := needleBounds.Dy()
	if needleWidth == 0 || needleHeight == 0 {
		return &MatchResult{Found: false, Confidence: 0.0}
	}

	// IMPORTANT: Use <= for max so the last valid offset is scanned
	maxY := searchBounds.Max.Y - needleHeight
	maxX := searchBounds.Max.X - needleWidth
	if maxY < searchBounds.Min.Y || maxX < searchBounds.Min.X {
		// Template doesn't fit in search region
		return &MatchResult{Found: false, Confidence: 0.0}
	}

	stats := newNeedleStats(needle)

	bestScore := math.Inf(-1)
	bestLocation := searchBounds.Min

	for y := searchBounds.Min.Y; y <= maxY; y++ {
		for x := searchBounds.Min.X; x <= maxX; x++ {
			score := matchNCC(haystack, needle, stats, x, y)
			if score > bestScore {
				bestScore = score
				bestLocation = image.Point{X: x, Y: y}
			}
		}
	}

	return &MatchResult{
		Found:      bestScore >= config.Threshold,
		Location:   bestLocation,
		Confidence: bestScore,
	}
}

// Score returns the best correlation of needle anywhere in haystack.
// A needle larger than the haystack scores 0.
func Score(haystack, needle *image.RGBA) float64 {
	return FindTemplate(haystack, needle, &MatchConfig{Threshold: math.Inf(1)}).Confidence
}

// needleStats caches the per-channel sums of a template so every window
// position only has to accumulate the haystack side.
type needleStats struct {
	sum    [3]float64
	energy float64 // sum over channels of centered squared values
	pixels float64
}

func newNeedleStats(needle *image.RGBA) needleStats {
	var st needleStats
	var sumSq [3]float64

	b := needle.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			idx := needle.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := float64(needle.Pix[idx+c])
				st.sum[c] += v
				sumSq[c] += v * v
			}
		}
	}

	st.pixels = float64(b.Dx() * b.Dy())
	for c := 0; c < 3; c++ {
		st.energy += sumSq[c] - st.sum[c]*st.sum[c]/st.pixels
	}
	return st
}

// matchNCC computes the zero-mean normalized cross-correlation of needle
// placed with its top-left corner at (x, y). Channel means are removed per
// channel before the channels are pooled.
func matchNCC(haystack, needle *image.RGBA, st needleStats, x, y int) float64 {
	var sumH, sumHH, sumHN [3]float64

	nb := needle.Bounds()
	width, height := nb.Dx(), nb.Dy()

	for ny := 0; ny < height; ny++ {
		hRow := haystack.PixOffset(x, y+ny)
		nRow := needle.PixOffset(nb.Min.X, nb.Min.Y+ny)
		for nx := 0; nx < width; nx++ {
			hIdx := hRow + nx*4
			nIdx := nRow + nx*4
			for c := 0; c < 3; c++ {
				h := float64(haystack.Pix[hIdx+c])
				n := float64(needle.Pix[nIdx+c])
				sumH[c] += h
				sumHH[c] += h * h
				sumHN[c] += h * n
			}
		}
	}

	var numerator, energyH float64
	for c := 0; c < 3; c++ {
		numerator += sumHN[c] - sumH[c]*st.sum[c]/st.pixels
		energyH += sumHH[c] - sumH[c]*sumH[c]/st.pixels
	}

	const flat = 1e-9
	switch {
	case energyH <= flat && st.energy <= flat:
		// Two flat patches: equal only if their colours agree.
		for c := 0; c < 3; c++ {
			if math.Abs(sumH[c]-st.sum[c])/st.pixels >= 0.5 {
				return 0
			}
		}
		return 1
	case energyH <= flat || st.energy <= flat:
		return 0
	}

	correlation := numerator / math.Sqrt(energyH*st.energy)
	return math.Max(-1, math.Min(1, correlation))
}

// ErrInvalidImage is returned when a nil or empty image is handed to the CV layer
var ErrInvalidImage = fmt.Errorf("invalid image provided")

// ScorerFunc adapts a plain scoring function to the Score method set
type ScorerFunc func(haystack, needle *image.RGBA) float64

// Score calls f
func (f ScorerFunc) Score(haystack, needle *image.RGBA) float64 {
	return f(haystack, needle)
}
