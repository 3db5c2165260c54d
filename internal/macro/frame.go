// Package macro records, translates and replays timed controller input.
//
// Recordings are sampled from an XInput-style source pad and replayed on a
// vJoy-style destination device. Translation between the two encodings is
// bit-exact so that previously authored macros keep their meaning.
package macro

import "time"

// SourceFrame is one snapshot of an XInput gamepad
type SourceFrame struct {
	Buttons      uint16 `yaml:"buttons"`
	LeftTrigger  uint8  `yaml:"left_trigger"`
	RightTrigger uint8  `yaml:"right_trigger"`
	ThumbLX      int16  `yaml:"thumb_lx"`
	ThumbLY      int16  `yaml:"thumb_ly"`
	ThumbRX      int16  `yaml:"thumb_rx"`
	ThumbRY      int16  `yaml:"thumb_ry"`
}

// Axes holds destination axis positions
type Axes struct {
	X  int32 `yaml:"x"`
	Y  int32 `yaml:"y"`
	Z  int32 `yaml:"z"`
	RX int32 `yaml:"rx"`
	RY int32 `yaml:"ry"`
	RZ int32 `yaml:"rz"`
}

// Frame is one destination device state
type Frame struct {
	Buttons uint32
	Axes    Axes
}

// NeutralFrame is the state a device returns to on reset
var NeutralFrame = Frame{Axes: Axes{X: axisCenter, Y: axisCenter, RX: axisCenter, RY: axisCenter}}

// Entry is a destination frame scheduled at an offset from playback start
type Entry struct {
	Offset time.Duration
	Frame  Frame
}

// SourceEntry is a sampled source frame at an offset from recording start
type SourceEntry struct {
	Offset time.Duration
	Frame  SourceFrame
}

// Recording is a named, translated macro ready for playback
type Recording struct {
	Name         string
	SampleRateHz int
	Entries      []Entry
}

// Duration returns the offset of the last entry
func (r *Recording) Duration() time.Duration {
	if len(r.Entries) == 0 {
		return 0
	}
	return r.Entries[len(r.Entries)-1].Offset
}

// SourceRecording is a raw recording in source encoding
type SourceRecording struct {
	Name         string
	SampleRateHz int
	Entries      []SourceEntry
}
