package bvh

// A splitEvaluator is a split strategy that has scored the best split plane
// for a range and can apply it.
type splitEvaluator interface {
	// The SAH cost of the children produced by the best split, excluding
	// the cost of the node itself. +Inf if no usable split exists.
	Cost() float32

	// Partition the range and return the two child ranges.
	Split() (left, right Range, err error)
}
