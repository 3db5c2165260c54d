package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEventBus_DeliversInPublishOrder(t *testing.T) {
	bus := NewEventBus(16)

	var mu sync.Mutex
	var got []int
	bus.Subscribe(EventTypeAttemptStarted, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Data["attempt"].(int))
	})

	for i := 0; i < 50; i++ {
		bus.Publish(NewAttemptStartedEvent("test", i))
	}
	bus.Stop()

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(4)
	defer bus.Stop()

	delivered := make(chan string, 2)
	id := bus.Subscribe(EventTypeError, func(e Event) {
		delivered <- e.Data["error"].(string)
	})
	bus.Publish(NewErrorEvent("test", errors.New("first")))

	select {
	case got := <-delivered:
		assert.Equal(t, "first", got)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	bus.Unsubscribe(id)
	bus.Publish(NewErrorEvent("test", errors.New("second")))
	bus.Stop()

	assert.Empty(t, delivered)
}

func TestEventBus_HandlerPanicDoesNotStopDispatch(t *testing.T) {
	bus := NewEventBus(4)

	var calls int
	var panicked []EventType
	bus.SetPanicHandler(func(et EventType, _ interface{}) { panicked = append(panicked, et) })
	bus.Subscribe(EventTypeError, func(Event) { panic("boom") })
	bus.Subscribe(EventTypeError, func(Event) { calls++ })

	bus.Publish(NewErrorEvent("test", errors.New("first")))
	bus.Publish(NewErrorEvent("test", errors.New("second")))
	bus.Stop()

	assert.Equal(t, 2, calls)
	assert.Equal(t, []EventType{EventTypeError, EventTypeError}, panicked)
	assert.Equal(t, Stats{Delivered: 2, Panics: 2}, bus.Stats())
}

func TestEventBus_PublishAfterStopIsDropped(t *testing.T) {
	bus := NewEventBus(4)

	var calls int
	bus.Subscribe(EventTypeRunFinished, func(Event) { calls++ })
	bus.Stop()
	bus.Stop()

	bus.Publish(NewRunFinishedEvent("r", 1, nil))
	bus.PublishAsync(NewRunFinishedEvent("r", 1, nil))
	assert.Equal(t, 0, calls)
	assert.Equal(t, uint64(2), bus.Stats().Dropped)
}

func TestEventConstructors_CopyData(t *testing.T) {
	checked := []string{"area_2"}
	e := NewPausedEvent("driver", 3, checked)
	checked[0] = "mutated"
	assert.Equal(t, []string{"area_2"}, e.Data["checked"])

	row := map[string]int{"area_2": 1}
	r := NewResultLoggedEvent(1, row)
	row["area_2"] = 9
	assert.Equal(t, map[string]int{"area_2": 1}, r.Data["row"])

	f := NewRunFinishedEvent("r", 2, errors.New("bad"))
	assert.Equal(t, "bad", f.Data["error"])
}
