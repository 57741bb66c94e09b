package bvh

// The Progress interface is implemented by collaborators that want to follow
// or cancel a build.
type Progress interface {
	// Called periodically with the number of references placed in leaves
	// so far and the current total. The total grows when spatial splits
	// duplicate references.
	Update(done, total int)

	// Polled on every recursion step; returning true aborts the build.
	Cancelled() bool
}

type nopProgress struct{}

func (nopProgress) Update(_, _ int) {}

func (nopProgress) Cancelled() bool {
	return false
}
