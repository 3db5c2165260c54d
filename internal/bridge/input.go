package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"jordanella.com/seed-finder-go/internal/macro"
)

// Snapshot polls the physical pad the helper is reading.
// The reply is "<buttons> <lt> <rt> <lx> <ly> <rx> <ry>".
func (c *Controller) Snapshot() (macro.SourceFrame, error) {
	reply, err := c.call("POLL")
	if err != nil {
		return macro.SourceFrame{}, err
	}
	return parsePoll(reply)
}

func parsePoll(reply string) (macro.SourceFrame, error) {
	fields := strings.Fields(reply)
	if len(fields) != 7 {
		return macro.SourceFrame{}, fmt.Errorf("malformed POLL reply %q", reply)
	}

	buttons, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return macro.SourceFrame{}, fmt.Errorf("bad buttons in POLL reply: %w", err)
	}

	var triggers [2]uint8
	for i := range triggers {
		v, err := strconv.ParseUint(fields[1+i], 10, 8)
		if err != nil {
			return macro.SourceFrame{}, fmt.Errorf("bad trigger in POLL reply: %w", err)
		}
		triggers[i] = uint8(v)
	}

	var sticks [4]int16
	for i := range sticks {
		v, err := strconv.ParseInt(fields[3+i], 10, 16)
		if err != nil {
			return macro.SourceFrame{}, fmt.Errorf("bad stick in POLL reply: %w", err)
		}
		sticks[i] = int16(v)
	}

	return macro.SourceFrame{
		Buttons:      uint16(buttons),
		LeftTrigger:  triggers[0],
		RightTrigger: triggers[1],
		ThumbLX:      sticks[0],
		ThumbLY:      sticks[1],
		ThumbRX:      sticks[2],
		ThumbRY:      sticks[3],
	}, nil
}
