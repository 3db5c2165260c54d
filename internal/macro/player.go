package macro

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Device is a virtual pad that accepts staged frames
type Device interface {
	SetPendingFrame(frame Frame) error
	Commit() error
	Reset() error
}

// PlaybackStats describes how closely playback followed the schedule.
// Lateness accumulates; playback never corrects for it.
type PlaybackStats struct {
	Entries       int
	MaxLateness   time.Duration
	TotalLateness time.Duration
	Interrupted   bool
}

// MeanLateness returns the average lateness over committed entries
func (s PlaybackStats) MeanLateness() time.Duration {
	if s.Entries == 0 {
		return 0
	}
	return s.TotalLateness / time.Duration(s.Entries)
}

// Player replays recordings on a device
type Player struct {
	device Device
	clock  Clock
}

// NewPlayer creates a player for device
func NewPlayer(device Device) *Player {
	return &Player{device: device, clock: SystemClock}
}

// WithClock replaces the clock, used by tests
func (p *Player) WithClock(clock Clock) *Player {
	p.clock = clock
	return p
}

// Play stages each entry, sleeps until its offset and commits it. The device
// is reset on every return path. ctx is only checked between entries so a
// frame is never left staged but uncommitted.
func (p *Player) Play(ctx context.Context, rec *Recording) (stats PlaybackStats, err error) {
	defer func() {
		if resetErr := p.device.Reset(); resetErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to reset device: %w", resetErr))
		}
	}()

	start := p.clock.Now()
	for i, entry := range rec.Entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			stats.Interrupted = true
			return stats, ctxErr
		}

		if err := p.device.SetPendingFrame(entry.Frame); err != nil {
			return stats, fmt.Errorf("failed to stage entry %d: %w", i, err)
		}

		target := start.Add(entry.Offset)
		sleepUntil(p.clock, target)

		if err := p.device.Commit(); err != nil {
			return stats, fmt.Errorf("failed to commit entry %d: %w", i, err)
		}

		late := p.clock.Now().Sub(target)
		if late < 0 {
			late = 0
		}
		stats.Entries++
		stats.TotalLateness += late
		if late > stats.MaxLateness {
			stats.MaxLateness = late
		}
	}

	return stats, nil
}
