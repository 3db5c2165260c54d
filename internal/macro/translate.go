package macro

// XInput button masks
const (
	ButtonDpadUp        uint16 = 0x0001
	ButtonDpadDown      uint16 = 0x0002
	ButtonDpadLeft      uint16 = 0x0004
	ButtonDpadRight     uint16 = 0x0008
	ButtonStart         uint16 = 0x0010
	ButtonBack          uint16 = 0x0020
	ButtonLeftThumb     uint16 = 0x0040
	ButtonRightThumb    uint16 = 0x0080
	ButtonLeftShoulder  uint16 = 0x0100
	ButtonRightShoulder uint16 = 0x0200
	ButtonA             uint16 = 0x1000
	ButtonB             uint16 = 0x2000
	ButtonX             uint16 = 0x4000
	ButtonY             uint16 = 0x8000
)

const (
	// triggerScale is evaluated as an exact constant and then rounded to
	// float64 once, matching 0x7fff / 0xff in double precision.
	triggerScale = 0x7fff / 255.0
	axisCenter   = 0x4000
)

// NamedButton pairs an XInput button name with its mask
type NamedButton struct {
	Name string
	Mask uint16
}

// XInputButtons lists every button that survives translation
var XInputButtons = []NamedButton{
	{"DPAD_UP", ButtonDpadUp},
	{"DPAD_DOWN", ButtonDpadDown},
	{"DPAD_LEFT", ButtonDpadLeft},
	{"DPAD_RIGHT", ButtonDpadRight},
	{"START", ButtonStart},
	{"BACK", ButtonBack},
	{"LEFT_THUMB", ButtonLeftThumb},
	{"RIGHT_THUMB", ButtonRightThumb},
	{"LEFT_SHOULDER", ButtonLeftShoulder},
	{"RIGHT_SHOULDER", ButtonRightShoulder},
	{"A", ButtonA},
	{"B", ButtonB},
	{"X", ButtonX},
	{"Y", ButtonY},
}

type buttonMapping struct {
	mask  uint16
	index uint
}

var buttonMappings = buildButtonMappings()

func buildButtonMappings() []buttonMapping {
	mappings := make([]buttonMapping, 0, len(XInputButtons))
	for _, b := range XInputButtons {
		shifts := uint(0)
		for v := b.Mask; v != 0; v >>= 1 {
			shifts++
		}
		mappings = append(mappings, buttonMapping{mask: b.Mask, index: shifts - 1})
	}
	return mappings
}

// TranslateButtons converts an XInput button mask to the destination mask.
// Bits with no named button are dropped.
func TranslateButtons(src uint16) uint32 {
	var dst uint32
	for _, m := range buttonMappings {
		if src&m.mask != 0 {
			dst |= 1 << m.index
		}
	}
	return dst
}

// TranslateTrigger maps 0..255 to 0..32767
func TranslateTrigger(v uint8) int32 {
	return int32(float64(v) * triggerScale)
}

// TranslateThumb halves and recentres a signed stick value. The result is
// not a linear rescale; recorded macros depend on it staying this way.
func TranslateThumb(v int16) int32 {
	return (int32(v) >> 1) + axisCenter
}

// Translate converts one source frame
func Translate(src SourceFrame) Frame {
	return Frame{
		Buttons: TranslateButtons(src.Buttons),
		Axes: Axes{
			X:  TranslateThumb(src.ThumbLX),
			Y:  TranslateThumb(src.ThumbLY),
			Z:  TranslateTrigger(src.LeftTrigger),
			RX: TranslateThumb(src.ThumbRX),
			RY: TranslateThumb(src.ThumbRY),
			RZ: TranslateTrigger(src.RightTrigger),
		},
	}
}

// TranslateRecording converts a source recording, keeping offsets
func TranslateRecording(src *SourceRecording) *Recording {
	rec := &Recording{
		Name:         src.Name,
		SampleRateHz: src.SampleRateHz,
		Entries:      make([]Entry, len(src.Entries)),
	}
	for i, e := range src.Entries {
		rec.Entries[i] = Entry{Offset: e.Offset, Frame: Translate(e.Frame)}
	}
	return rec
}
