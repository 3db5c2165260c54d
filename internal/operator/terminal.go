package operator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Terminal prompts on a text stream
type Terminal struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewTerminal creates a terminal operator over r and w
func NewTerminal(r io.Reader, w io.Writer) *Terminal {
	return &Terminal{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// NewStdioTerminal creates a terminal operator on stdin and stdout
func NewStdioTerminal() *Terminal {
	return NewTerminal(os.Stdin, os.Stdout)
}

// Notify prints message and waits for "k" (keep searching) or "s" (stop)
func (t *Terminal) Notify(ctx context.Context, message string) (Decision, error) {
	fmt.Fprintln(t.writer, message)
	for {
		if err := ctx.Err(); err != nil {
			return DecisionKeepSearching, err
		}

		fmt.Fprint(t.writer, "Keep searching or stop? (k/s): ")
		choice, err := t.readInput()
		if err != nil {
			return DecisionKeepSearching, fmt.Errorf("failed to read input: %w", err)
		}

		switch strings.ToLower(choice) {
		case "k", "keep", "r", "retry":
			return DecisionKeepSearching, nil
		case "s", "stop":
			return DecisionStop, nil
		default:
			fmt.Fprintf(t.writer, "Unrecognized input '%s'.\n", choice)
		}
	}
}

// Confirm prints question and returns true only for "y"
func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(t.writer, "%s (type 'y' to confirm): ", question)
	resp, err := t.readInput()
	if err != nil {
		return false, fmt.Errorf("failed to read input: %w", err)
	}
	return strings.EqualFold(resp, "y"), nil
}

// Resume returns true for any non-empty answer. End of input terminates.
func (t *Terminal) Resume(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintln(t.writer, message)
	fmt.Fprint(t.writer, "Type anything and press Enter to continue, or press Enter alone to exit: ")
	resp, err := t.readInput()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read input: %w", err)
	}
	return resp != "", nil
}

// TableLocked waits for Enter
func (t *Terminal) TableLocked(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintf(t.writer, "Results file %s is locked. Close it and press Enter to retry.\n", path)
	if _, err := t.readInput(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// readInput reads a line of input. A final line without a newline is returned
// as is; io.EOF is only reported when nothing was read.
func (t *Terminal) readInput() (string, error) {
	input, err := t.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && input != "" {
			return strings.TrimSpace(input), nil
		}
		return "", err
	}
	return strings.TrimSpace(input), nil
}
