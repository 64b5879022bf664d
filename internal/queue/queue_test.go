package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPop(t *testing.T) {
	q := New[[]byte]()
	assert.True(t, q.Empty())

	q.Push([]byte("a"), []byte("b"))
	require.Equal(t, 2, q.Len())

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, []byte("a"), item)

	item, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, []byte("b"), item)

	_, ok = q.Pop()
	assert.False(t, ok)
	assert.True(t, q.Empty())
}

func TestDrain(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	assert.Equal(t, []int{1, 2, 3}, q.Drain())
	assert.True(t, q.Empty())
	assert.Empty(t, q.Drain())
}

func TestConcurrentPushDrain(t *testing.T) {
	const producers = 8
	const perProducer = 100

	q := New[int]()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}

	drained := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		drained += len(q.Drain())
		select {
		case <-done:
			drained += len(q.Drain())
			assert.Equal(t, producers*perProducer, drained)
			return
		default:
		}
	}
}
