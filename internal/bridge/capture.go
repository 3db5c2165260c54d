package bridge

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strconv"

	"jordanella.com/seed-finder-go/internal/cv"
)

// maxFrameBytes bounds a single CAPTURE payload
const maxFrameBytes = 64 << 20

// CaptureFrame asks the helper for the current window contents. The reply
// is a byte count line followed by that many bytes of PNG data.
func (c *Controller) CaptureFrame() (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.callLocked("CAPTURE")
	if err != nil {
		return nil, err
	}

	n, err := strconv.Atoi(reply)
	if err != nil || n <= 0 || n > maxFrameBytes {
		return nil, fmt.Errorf("bad CAPTURE length %q", reply)
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(c.stdout, data); err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return cv.ToRGBA(img), nil
}
