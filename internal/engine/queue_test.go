package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/matchlink/internal/wire"
)

func TestTaskQueueFIFO(t *testing.T) {
	q := newTaskQueue()

	for i := 1; i <= 3; i++ {
		i := i
		require.True(t, q.Enqueue(task{payload: wire.Payload{"n": int64(i)}}))
	}
	assert.Equal(t, 3, q.Len())

	for i := 1; i <= 3; i++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, int64(i), got.payload["n"])
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestTaskQueueSignalCoalesces(t *testing.T) {
	q := newTaskQueue()

	q.Enqueue(task{payload: wire.Payload{}})
	q.Enqueue(task{payload: wire.Payload{}})

	// Exactly one signal is buffered no matter how many enqueues fired.
	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("second signal should not be pending")
	default:
	}
	assert.Equal(t, 2, q.Len(), "coalesced signal still leaves all tasks dequeuable")
}

func TestTaskQueueEnqueueAfterClose(t *testing.T) {
	q := newTaskQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(task{payload: wire.Payload{}}))

	// Wait fires immediately once closed.
	select {
	case <-q.Wait():
	default:
		t.Fatal("closed queue must wake waiters")
	}
}

func TestTaskQueueLocalTask(t *testing.T) {
	q := newTaskQueue()

	ran := false
	q.Enqueue(task{local: func(context.Context) error { ran = true; return nil }})

	got, ok := q.TryDequeue()
	require.True(t, ok)
	require.NotNil(t, got.local)
	require.NoError(t, got.local(context.Background()))
	assert.True(t, ran)
}
