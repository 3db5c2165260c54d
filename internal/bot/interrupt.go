package bot

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
)

// Interrupter is polled by the driver between steps
type Interrupter interface {
	// Interrupted reports and consumes a pending interrupt
	Interrupted() bool
}

// InterruptController latches interrupt requests until the driver polls them.
// Several requests before a poll collapse into one.
type InterruptController struct {
	pending atomic.Bool
	total   atomic.Int64
}

// NewInterruptController creates a controller with nothing pending
func NewInterruptController() *InterruptController {
	return &InterruptController{}
}

// Interrupt requests an interrupt at the next checkpoint
func (ic *InterruptController) Interrupt() {
	ic.pending.Store(true)
	ic.total.Add(1)
}

// Interrupted reports and clears a pending interrupt
func (ic *InterruptController) Interrupted() bool {
	return ic.pending.Swap(false)
}

// Total returns how many interrupts were requested
func (ic *InterruptController) Total() int64 {
	return ic.total.Load()
}

// Watch turns the given signals into interrupts until ctx is done or the
// returned stop function is called.
func (ic *InterruptController) Watch(ctx context.Context, sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt}
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ch:
				ic.Interrupt()
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		cancel()
		<-done
	}
}
