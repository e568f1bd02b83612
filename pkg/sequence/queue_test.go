package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOAcrossGrowth(t *testing.T) {
	q := NewQueue[int](2)
	for i := 0; i < 3; i++ {
		q.Enqueue(i)
	}
	v, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 0, v)

	// wrap the ring before it grows again
	for i := 3; i < 10; i++ {
		q.Enqueue(i)
	}
	assert.Equal(t, 9, q.Len())

	for want := 1; want < 10; want++ {
		got, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok = q.Dequeue()
	assert.False(t, ok)
	assert.True(t, q.IsEmpty())
}

func TestQueue_ZeroValue(t *testing.T) {
	var q Queue[string]
	assert.True(t, q.IsEmpty())

	q.Enqueue("a")
	q.Enqueue("b")
	v, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, q.Len())
}

func BenchmarkQueue(b *testing.B) {
	q := NewQueue[int](64)
	for i := 0; i < b.N; i++ {
		q.Enqueue(i)
		if q.Len() > 32 {
			q.Dequeue()
		}
	}
}
