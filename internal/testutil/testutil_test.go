package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())

	other := NewDeterministicClock()
	assert.Equal(t, int64(1), other.Next(), "a new clock replays the same sequence")
}

func TestDeterministicClockConcurrent(t *testing.T) {
	clock := NewDeterministicClock()
	var wg sync.WaitGroup
	seen := make(chan int64, 100)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int64]bool{}
	for v := range seen {
		unique[v] = true
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, int64(101), clock.Next())
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("tx")
	assert.Equal(t, "tx-0001", ids.Generate())
	assert.Equal(t, "tx-0002", ids.Generate())
	assert.Equal(t, "entry-0001", NewSequentialIDs("").Generate())
}
