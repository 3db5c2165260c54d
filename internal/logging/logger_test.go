package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"jordanella.com/seed-finder-go/internal/events"
)

func observed(component string) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLoggerWithZap(component, zap.New(core)), logs
}

func TestLogger_ContextFields(t *testing.T) {
	log, logs := observed("Classifier")

	log.InfoWithContext("classified", map[string]interface{}{
		"state":      "area_2",
		"confidence": 0.97,
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Classifier", entry.LoggerName)
	assert.Equal(t, "classified", entry.Message)
	assert.Equal(t, "area_2", entry.ContextMap()["state"])
	assert.Equal(t, 0.97, entry.ContextMap()["confidence"])
}

func TestLogger_ErrorCarriesCause(t *testing.T) {
	log, logs := observed("Ledger")

	log.Error("write failed", errors.New("disk full"))
	log.Fatal("giving up", errors.New("no space"))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	assert.Equal(t, "disk full", logs.All()[0].ContextMap()["error"])
	assert.Equal(t, "FATAL", logs.All()[1].ContextMap()["severity"])
}

func TestLogger_ContextLogger(t *testing.T) {
	log, logs := observed("Driver")

	cl := log.WithContext(map[string]interface{}{"attempt": 4})
	cl.Warn("slow frame")

	require.Equal(t, 1, logs.Len())
	assert.EqualValues(t, 4, logs.All()[0].ContextMap()["attempt"])
}

func TestConfigure_MinLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(LogLevelWarn, &buf)
	defer Configure(LogLevelInfo, os.Stdout)

	log := NewLogger("Test")
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
}

func TestEventLogger_LogsBusEvents(t *testing.T) {
	bus := events.NewEventBus(8)
	log, logs := observed("EventLogger")

	el := NewEventLoggerWithLogger(bus, log)
	bus.Publish(events.NewAttemptStartedEvent("driver", 1))
	bus.Publish(events.NewErrorEvent("driver", errors.New("capture failed")))
	bus.Stop()
	require.NoError(t, el.Close())

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "Event: attempt.started", logs.All()[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
}

func TestEventLogger_WritesFile(t *testing.T) {
	bus := events.NewEventBus(8)
	el, err := NewEventLogger(bus, t.TempDir())
	require.NoError(t, err)

	bus.Publish(events.NewPausedEvent("driver", 2, []string{"area_2", "area_3"}))
	bus.Stop()
	require.NoError(t, el.Close())

	data, err := os.ReadFile(el.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "attempt.paused")
}
