package bridge

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"jordanella.com/seed-finder-go/internal/macro"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeHelper answers protocol lines from a goroutine on the far side of two pipes
type fakeHelper struct {
	mu       sync.Mutex
	commands []string
	reply    func(line string) []byte
	done     chan struct{}
}

func startFakeHelper(t *testing.T, reply func(line string) []byte) (*Controller, *fakeHelper) {
	t.Helper()

	cmdR, cmdW := io.Pipe()
	replyR, replyW := io.Pipe()

	h := &fakeHelper{reply: reply, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer replyW.Close()
		scanner := bufio.NewScanner(cmdR)
		for scanner.Scan() {
			line := scanner.Text()
			h.mu.Lock()
			h.commands = append(h.commands, line)
			h.mu.Unlock()
			if _, err := replyW.Write(h.reply(line)); err != nil {
				return
			}
		}
	}()

	ctrl := NewPipeController(replyR, cmdW)
	t.Cleanup(func() {
		require.NoError(t, ctrl.Close())
		<-h.done
	})
	return ctrl, h
}

func (h *fakeHelper) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.commands...)
}

func okHelper(string) []byte { return []byte("OK\n") }

func TestDeviceCommands(t *testing.T) {
	ctrl, h := startFakeHelper(t, okHelper)

	frame := macro.Frame{
		Buttons: 1<<3 | 1,
		Axes:    macro.Axes{X: 16384, Y: 0, Z: 32767, RX: 1, RY: 2, RZ: 3},
	}
	require.NoError(t, ctrl.SetPendingFrame(frame))
	require.NoError(t, ctrl.Commit())
	require.NoError(t, ctrl.Reset())

	want := []string{
		"SET 9 16384 0 32767 1 2 3",
		"COMMIT",
		"RESET",
	}
	if diff := cmp.Diff(want, h.seen()); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestHelperError(t *testing.T) {
	ctrl, _ := startFakeHelper(t, func(line string) []byte {
		if line == "COMMIT" {
			return []byte("ERR device unplugged\n")
		}
		return []byte("OK\n")
	})

	err := ctrl.Commit()
	require.Error(t, err)

	var helperErr *HelperError
	require.ErrorAs(t, err, &helperErr)
	assert.Equal(t, "COMMIT", helperErr.Command)
	assert.Equal(t, "device unplugged", helperErr.Message)

	assert.NoError(t, ctrl.Reset())
}

func TestUnexpectedReply(t *testing.T) {
	ctrl, _ := startFakeHelper(t, func(string) []byte { return []byte("MAYBE\n") })

	err := ctrl.Reset()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected reply to RESET")
}

func TestSnapshot(t *testing.T) {
	ctrl, _ := startFakeHelper(t, func(line string) []byte {
		if line == "POLL" {
			return []byte("4096 255 0 -32768 32767 -1 0\n")
		}
		return []byte("OK\n")
	})

	got, err := ctrl.Snapshot()
	require.NoError(t, err)

	want := macro.SourceFrame{
		Buttons:      4096,
		LeftTrigger:  255,
		RightTrigger: 0,
		ThumbLX:      -32768,
		ThumbLY:      32767,
		ThumbRX:      -1,
		ThumbRY:      0,
	}
	assert.Equal(t, want, got)
}

func TestParsePollRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"too few fields", "1 2 3"},
		{"trigger overflow", "0 256 0 0 0 0 0"},
		{"stick overflow", "0 0 0 40000 0 0 0"},
		{"not a number", "x 0 0 0 0 0 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePoll(tt.reply)
			assert.Error(t, err)
		})
	}
}

func TestCaptureFrame(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 2, color.RGBA{R: 200, G: 10, B: 50, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	payload := buf.Bytes()

	ctrl, _ := startFakeHelper(t, func(line string) []byte {
		if line == "CAPTURE" {
			return append([]byte(fmt.Sprintf("%d\n", len(payload))), payload...)
		}
		return []byte("OK\n")
	})

	frame, err := ctrl.CaptureFrame()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), frame.Bounds())
	assert.Equal(t, color.RGBA{R: 200, G: 10, B: 50, A: 255}, frame.RGBAAt(1, 2))

	// The stream stays in sync after a binary payload
	assert.NoError(t, ctrl.Commit())
}

func TestCaptureFrameBadLength(t *testing.T) {
	ctrl, _ := startFakeHelper(t, func(string) []byte { return []byte("-5\n") })

	_, err := ctrl.CaptureFrame()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad CAPTURE length"))
}

func TestNotConnected(t *testing.T) {
	ctrl := NewController("does-not-matter")
	assert.ErrorIs(t, ctrl.Reset(), ErrNotConnected)

	_, err := ctrl.CaptureFrame()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCloseIsIdempotent(t *testing.T) {
	ctrl, _ := startFakeHelper(t, okHelper)
	require.NoError(t, ctrl.Commit())
	require.NoError(t, ctrl.Close())
	require.NoError(t, ctrl.Close())
	assert.ErrorIs(t, ctrl.Commit(), ErrNotConnected)
}

func TestFindHelperPreferredPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/" + "custom-helper"
	require.NoError(t, writeExecutable(path))

	got, err := FindHelper(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func writeExecutable(path string) error {
	return os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755)
}
