package types

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsOrdered(t *testing.T) {
	prev := NewID()
	for i := 0; i < 1000; i++ {
		next := NewID()
		require.True(t, Less(prev, next), "ids must be strictly increasing")
		prev = next
	}
}

func TestNewIDIsV7(t *testing.T) {
	id := NewID()
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Len(t, id.String(), 36)
}

func TestNewIDConcurrent(t *testing.T) {
	const n = 64
	ids := make([]uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = NewID()
		}(i)
	}
	wg.Wait()

	seen := make(map[uuid.UUID]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestOrderingHelpers(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.True(t, Less(a, b))
	assert.True(t, After(b, a))
	assert.False(t, Less(b, a))
	assert.False(t, After(a, b))
	assert.False(t, Less(a, a))

	assert.True(t, After(a, uuid.Nil), "any generated id sorts after the nil id")
}
