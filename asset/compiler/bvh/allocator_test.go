package bvh

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBumpAllocator(t *testing.T) {
	a := NewBumpAllocator(10, 20)

	start, err := a.Alloc(4)
	require.NoError(t, err)
	assert.Equal(t, 10, start)

	start, err = a.Alloc(6)
	require.NoError(t, err)
	assert.Equal(t, 14, start)

	_, err = a.Alloc(1)
	assert.Equal(t, ErrCapacityExceeded, err)
	assert.Equal(t, 20, a.Used())
	assert.Equal(t, 20, a.Cap())
}

func TestBumpAllocatorConcurrent(t *testing.T) {
	a := NewBumpAllocator(0, 1000)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		owned = make([]bool, 1000)
		fails int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				start, err := a.Alloc(6)
				mu.Lock()
				if err != nil {
					fails++
				} else {
					for k := start; k < start+6; k++ {
						assert.False(t, owned[k], "slot handed out twice")
						owned[k] = true
					}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 166 regions of 6 slots fit in 1000 slots.
	assert.Equal(t, 200-166, fails)
	assert.Equal(t, 996, a.Used())
}
