//go:build windows

package ledger

import "syscall"

// Raised when another program (usually a spreadsheet) holds the file open.
var lockErrnos = []syscall.Errno{
	32, // ERROR_SHARING_VIOLATION
	33, // ERROR_LOCK_VIOLATION
}
