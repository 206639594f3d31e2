package report

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kiranshivaraju/faultline/pkg/models"
)

// Notifier dispatches an occurrence without waiting for the outcome.
type Notifier interface {
	Go(ec models.ErrorContext)
}

// Dispatcher runs reports on background goroutines so callers never block on
// the issue tracker.
type Dispatcher struct {
	reporter Reporter
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher that reports through r.
func NewDispatcher(r Reporter) *Dispatcher {
	return &Dispatcher{reporter: r}
}

// Go reports ec in the background and returns immediately.
func (d *Dispatcher) Go(ec models.ErrorContext) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in background error report", "error", r)
			}
		}()
		d.reporter.ReportError(context.Background(), ec)
	}()
}

// Drain blocks until in-flight reports finish or ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Notifier = (*Dispatcher)(nil)
