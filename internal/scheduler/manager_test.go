package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	sizes chan int
	err   error
}

func (c *countingRefresher) RefreshTrending(_ context.Context, n int) (int, int, error) {
	c.calls.Add(1)
	select {
	case c.sizes <- n:
	default:
	}
	return 1, 2, c.err
}

func TestManager_RunsImmediately(t *testing.T) {
	ref := &countingRefresher{sizes: make(chan int, 1)}
	m := NewManager(ref, "@every 1h", 20)
	require.NoError(t, m.Start())
	defer m.Stop()

	select {
	case n := <-ref.sizes:
		assert.Equal(t, 20, n)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not run on start")
	}
	assert.False(t, m.NextRun().IsZero())
}

func TestManager_InvalidSpec(t *testing.T) {
	m := NewManager(&countingRefresher{}, "every now and then", 20)
	assert.Error(t, m.Start())
}

func TestManager_Disabled(t *testing.T) {
	ref := &countingRefresher{}
	m := NewManager(ref, "", 20)
	require.NoError(t, m.Start())
	m.Stop()

	assert.Zero(t, ref.calls.Load())
	assert.True(t, m.NextRun().IsZero())
}

func TestManager_RefreshErrorIsLogged(t *testing.T) {
	ref := &countingRefresher{err: errors.New("catalog down")}
	m := NewManager(ref, "", 5)

	assert.NotPanics(t, m.RefreshTrending)
	assert.EqualValues(t, 1, ref.calls.Load())
}
