// Package bridge talks to the helper process that owns the target window
// capture and the virtual gamepad.
//
// The helper speaks a line protocol on stdin/stdout. Every command gets one
// reply line, either "OK", "ERR <message>" or a command-specific payload.
package bridge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"jordanella.com/seed-finder-go/internal/logging"
)

// ErrNotConnected is returned when a command is sent before Start
var ErrNotConnected = errors.New("bridge helper not running")

// HelperError is an ERR reply from the helper
type HelperError struct {
	Command string
	Message string
}

func (e *HelperError) Error() string {
	return fmt.Sprintf("helper rejected %s: %s", e.Command, e.Message)
}

// Controller owns one helper process session
type Controller struct {
	path string
	args []string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex

	connected bool
	logger    *logging.Logger
}

// NewController creates a controller for the helper at path
func NewController(path string, args ...string) *Controller {
	return &Controller{
		path:   path,
		args:   args,
		logger: logging.NewLogger("Bridge"),
	}
}

// NewPipeController attaches to an already running helper over r and w
func NewPipeController(r io.Reader, w io.WriteCloser) *Controller {
	return &Controller{
		stdin:     w,
		stdout:    bufio.NewReader(r),
		connected: true,
		logger:    logging.NewLogger("Bridge"),
	}
}

// Start launches the helper and keeps its pipes open for the session
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	c.cmd = exec.Command(c.path, c.args...)

	stdin, err := c.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open helper stdin: %w", err)
	}
	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open helper stdout: %w", err)
	}

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start helper %s: %w", c.path, err)
	}

	c.stdin = stdin
	c.stdout = bufio.NewReader(stdout)
	c.connected = true

	c.logger.InfoWithContext("Helper started", map[string]interface{}{
		"path": c.path,
		"pid":  c.cmd.Process.Pid,
	})
	return nil
}

// Close ends the session and stops the helper
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false

	var errs []error
	if c.stdin != nil {
		errs = append(errs, c.stdin.Close())
	}
	if c.cmd != nil && c.cmd.Process != nil {
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, err)
		}
		_ = c.cmd.Wait()
	}
	return errors.Join(errs...)
}

// call sends one command line and returns the reply line
func (c *Controller) call(command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callLocked(command)
}

func (c *Controller) callLocked(command string) (string, error) {
	if !c.connected {
		return "", ErrNotConnected
	}

	if _, err := io.WriteString(c.stdin, command+"\n"); err != nil {
		return "", fmt.Errorf("failed to send %s: %w", verb(command), err)
	}

	reply, err := c.stdout.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read reply to %s: %w", verb(command), err)
	}
	reply = strings.TrimRight(reply, "\r\n")

	if msg, ok := strings.CutPrefix(reply, "ERR"); ok {
		return "", &HelperError{Command: verb(command), Message: strings.TrimSpace(msg)}
	}
	return reply, nil
}

// expectOK sends a command that expects a bare OK
func (c *Controller) expectOK(command string) error {
	reply, err := c.call(command)
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("unexpected reply to %s: %q", verb(command), reply)
	}
	return nil
}

func verb(command string) string {
	if i := strings.IndexByte(command, ' '); i >= 0 {
		return command[:i]
	}
	return command
}
