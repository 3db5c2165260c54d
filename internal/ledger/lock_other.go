//go:build !windows

package ledger

import "syscall"

var lockErrnos []syscall.Errno
