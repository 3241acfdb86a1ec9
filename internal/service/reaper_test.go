package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(context.Context) (int64, error) {
	s.calls.Add(1)
	return 1, s.err
}

func TestHoldReaperTicks(t *testing.T) {
	for _, sweepErr := range []error{nil, errors.New("db down")} {
		sw := &countingSweeper{err: sweepErr}
		r := NewHoldReaper(sw, 20*time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
		r.Start(ctx)
		cancel()

		assert.GreaterOrEqual(t, sw.calls.Load(), int32(2))
	}
}

func TestHoldReaperStopsOnCancel(t *testing.T) {
	r := NewHoldReaper(&countingSweeper{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop on context cancel")
	}
}

func TestHoldReaperDisabled(t *testing.T) {
	sw := &countingSweeper{}
	NewHoldReaper(sw, 0).Start(context.Background())
	assert.Zero(t, sw.calls.Load())
}
