package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRun_TaskFiresRepeatedly(t *testing.T) {
	s := New(zap.NewNop())

	var fired atomic.Int32
	s.Add("tick", 5*time.Millisecond, func(ctx context.Context) {
		fired.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_IndependentIntervals(t *testing.T) {
	s := New(zap.NewNop())

	var fast, slow atomic.Int32
	s.Add("fast", 5*time.Millisecond, func(ctx context.Context) { fast.Add(1) })
	s.Add("slow", 200*time.Millisecond, func(ctx context.Context) { slow.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	assert.Eventually(t, func() bool { return fast.Load() >= 5 }, time.Second, time.Millisecond)
	assert.LessOrEqual(t, slow.Load(), fast.Load())
	cancel()
}

func TestRun_NoTasksReturnsOnCancel(t *testing.T) {
	s := New(zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
