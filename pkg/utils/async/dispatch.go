package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/utils/errutil"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
)

// Dispatcher runs handlers in background goroutines and tracks them so callers
// can wait for in-flight work, e.g. pending notifications at shutdown.
type Dispatcher struct {
	wg sync.WaitGroup
}

// NewDispatcher creates an empty Dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch executes handler in a new goroutine with a background context that keeps
// the caller's logger. Errors and panics are logged, never propagated.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger.With("task", name))
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		_ = errutil.Handle(bgCtx, handler(bgCtx), "async handler failed")
	}()
}

// Wait blocks until every dispatched handler returns or ctx is done
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "async handlers still running")
	}
}
