package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtZero(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_ConcurrentNextUnique(t *testing.T) {
	c := NewClock()
	const goroutines = 50
	const perGoroutine = 200

	var wg sync.WaitGroup
	seen := make(chan int64, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seen <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for seq := range seen {
		assert.False(t, unique[seq], "seq %d issued twice", seq)
		unique[seq] = true
	}
	assert.Len(t, unique, goroutines*perGoroutine)
}
