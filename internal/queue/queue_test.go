package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type update struct {
	FightID  string
	Sequence int
}

func TestQueue_PushPopOrder(t *testing.T) {
	q := New[update]()
	assert.True(t, q.Empty())

	q.Push(update{FightID: "a", Sequence: 18})
	q.Push(update{FightID: "a", Sequence: 17}, update{FightID: "b", Sequence: 0})
	require.Equal(t, 3, q.Len())

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 18, first.Sequence)

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 17, second.Sequence)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_PopEmpty(t *testing.T) {
	q := New[update]()

	item, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, update{}, item)
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[int](3)

	assert.Zero(t, q.Push(1, 2))
	assert.Equal(t, 2, q.Push(3, 4, 5))
	assert.Equal(t, []int{3, 4, 5}, q.Snapshot())
}

func TestQueue_NewBoundedZeroIsUnbounded(t *testing.T) {
	q := NewBounded[int](0)
	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	assert.Equal(t, 100, q.Len())
}

func TestQueue_SnapshotIsACopy(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)

	snap := q.Snapshot()
	snap[0] = 99

	assert.Equal(t, []int{1, 2}, q.Snapshot())
	assert.Equal(t, 2, q.Len())
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	items := q.GetAndEmpty()

	assert.Equal(t, []int{1, 2, 3}, items)
	assert.True(t, q.Empty())

	q.Push(4)
	assert.Equal(t, []int{1, 2, 3}, items, "returned slice must not alias the queue")
}

func TestQueue_Clear(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)
	q.Clear()
	assert.True(t, q.Empty())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(base*100 + i)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())
}
