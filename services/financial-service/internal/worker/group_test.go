package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroupStopWaitsForLoops(t *testing.T) {
	g := NewGroup(context.Background())

	var finished int32
	started := make(chan struct{})
	g.Go("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return ctx.Err()
	})
	g.Go("failing", func(ctx context.Context) error {
		return errors.New("broker gone")
	})

	<-started
	g.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))
}

func TestGroupStopsWithParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g := NewGroup(parent)

	done := make(chan struct{})
	g.Go("sweeper", func(ctx context.Context) error {
		NewOverdueSweeper(&fakeMarker{}, time.Millisecond).Start(ctx)
		close(done)
		return nil
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not observe parent cancellation")
	}
	g.Stop()
}
