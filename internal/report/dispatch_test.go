package report_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiranshivaraju/faultline/internal/report"
	"github.com/kiranshivaraju/faultline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reporterFunc func(ctx context.Context, ec models.ErrorContext) (string, bool)

func (f reporterFunc) ReportError(ctx context.Context, ec models.ErrorContext) (string, bool) {
	return f(ctx, ec)
}

func TestDispatcher_GoAndDrain(t *testing.T) {
	var calls atomic.Int32
	d := report.NewDispatcher(reporterFunc(func(_ context.Context, ec models.ErrorContext) (string, bool) {
		calls.Add(1)
		return "id", true
	}))

	for i := 0; i < 5; i++ {
		d.Go(models.ErrorContext{Message: "boom"})
	}

	require.NoError(t, d.Drain(context.Background()))
	assert.Equal(t, int32(5), calls.Load())
}

func TestDispatcher_GoDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	d := report.NewDispatcher(reporterFunc(func(context.Context, models.ErrorContext) (string, bool) {
		<-release
		return "", false
	}))

	start := time.Now()
	d.Go(models.ErrorContext{Message: "slow"})
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Drain(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, d.Drain(context.Background()))
}

func TestDispatcher_RecoversReporterPanic(t *testing.T) {
	d := report.NewDispatcher(reporterFunc(func(context.Context, models.ErrorContext) (string, bool) {
		panic("reporter bug")
	}))

	d.Go(models.ErrorContext{Message: "boom"})
	assert.NoError(t, d.Drain(context.Background()))
}
