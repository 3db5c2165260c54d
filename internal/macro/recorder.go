package macro

import (
	"context"
	"fmt"
	"time"

	"jordanella.com/seed-finder-go/internal/logging"
)

// InputSource is a human-operated pad that can be sampled
type InputSource interface {
	Snapshot() (SourceFrame, error)
}

// Recorder samples an InputSource at a fixed rate
type Recorder struct {
	source       InputSource
	sampleRateHz int
	clock        Clock
	logger       *logging.Logger
}

// NewRecorder creates a recorder sampling at sampleRateHz
func NewRecorder(source InputSource, sampleRateHz int) *Recorder {
	return &Recorder{
		source:       source,
		sampleRateHz: sampleRateHz,
		clock:        SystemClock,
		logger:       logging.NewLogger("Recorder"),
	}
}

// WithClock replaces the clock, used by tests
func (r *Recorder) WithClock(clock Clock) *Recorder {
	r.clock = clock
	return r
}

// Record samples until ctx is cancelled and returns what was captured.
// Cancellation is the normal way to stop and is not reported as an error.
//
// Sample i is taken at start + i*period. When sampling falls behind, the
// next sample is taken immediately and the schedule is not shifted.
func (r *Recorder) Record(ctx context.Context, name string) (*SourceRecording, error) {
	if r.sampleRateHz <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", r.sampleRateHz)
	}

	period := time.Second / time.Duration(r.sampleRateHz)
	rec := &SourceRecording{Name: name, SampleRateHz: r.sampleRateHz}

	r.logger.InfoWithContext("Recording started", map[string]interface{}{
		"macro": name,
		"hz":    r.sampleRateHz,
	})

	start := r.clock.Now()
	for i := 0; ; i++ {
		if ctx.Err() != nil {
			break
		}

		sleepUntil(r.clock, start.Add(time.Duration(i)*period))

		snap, err := r.source.Snapshot()
		if err != nil {
			return rec, fmt.Errorf("failed to sample input at entry %d: %w", i, err)
		}
		rec.Entries = append(rec.Entries, SourceEntry{
			Offset: r.clock.Now().Sub(start),
			Frame:  snap,
		})
	}

	r.logger.InfoWithContext("Recording stopped", map[string]interface{}{
		"macro":   name,
		"entries": len(rec.Entries),
	})
	return rec, nil
}
