package bvh

import "sync"

// A RegionAllocator hands out disjoint regions of the shared reference
// arena. Spatial splits that duplicate references move the right hand side
// of the split into a freshly allocated region.
//
// Implementations must be safe for concurrent use. Alloc returns
// ErrCapacityExceeded when the arena is full; the builder then falls back to
// an object split for that node. Any other error aborts the build.
type RegionAllocator interface {
	Alloc(n int) (start int, err error)

	// Number of arena slots handed out so far.
	Used() int

	// Arena size.
	Cap() int
}

// Creates the allocator for a build. used is the number of arena slots
// already occupied by the input references and capacity the reserved arena
// size.
type AllocatorFactory func(used, capacity int) RegionAllocator

type bumpAllocator struct {
	sync.Mutex

	next     int
	capacity int
}

// Create a bump allocator over [used, capacity).
func NewBumpAllocator(used, capacity int) RegionAllocator {
	return &bumpAllocator{
		next:     used,
		capacity: capacity,
	}
}

func (a *bumpAllocator) Alloc(n int) (int, error) {
	a.Lock()
	defer a.Unlock()

	if a.next+n > a.capacity {
		return 0, ErrCapacityExceeded
	}
	start := a.next
	a.next += n
	return start, nil
}

func (a *bumpAllocator) Used() int {
	a.Lock()
	defer a.Unlock()
	return a.next
}

func (a *bumpAllocator) Cap() int {
	return a.capacity
}
