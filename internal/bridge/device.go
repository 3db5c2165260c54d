package bridge

import (
	"fmt"

	"jordanella.com/seed-finder-go/internal/macro"
)

// SetPendingFrame stages a frame on the virtual pad without applying it
func (c *Controller) SetPendingFrame(f macro.Frame) error {
	a := f.Axes
	return c.expectOK(fmt.Sprintf("SET %d %d %d %d %d %d %d", f.Buttons, a.X, a.Y, a.Z, a.RX, a.RY, a.RZ))
}

// Commit applies the staged frame
func (c *Controller) Commit() error {
	return c.expectOK("COMMIT")
}

// Reset returns the pad to neutral
func (c *Controller) Reset() error {
	return c.expectOK("RESET")
}
