//go:build windows

package ledger

import (
	"io/fs"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLocked_WindowsViolations(t *testing.T) {
	for _, errno := range []syscall.Errno{32, 33} {
		assert.True(t, isLocked(&fs.PathError{Op: "open", Path: "results.csv", Err: errno}), errno.Error())
	}
}
