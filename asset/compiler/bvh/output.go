package bvh

// A TimeRange is the motion validity window of a primitive slot.
type TimeRange struct {
	From float32
	To   float32
}

// The leaf ordered primitive arrays. Leaves reference slices of them.
type primOutput struct {
	Type   []PrimitiveType
	Index  []int32
	Object []int32
	Time   []TimeRange
}

func newPrimOutput(size, capacity int) primOutput {
	return primOutput{
		Type:   make([]PrimitiveType, size, capacity),
		Index:  make([]int32, size, capacity),
		Object: make([]int32, size, capacity),
		Time:   make([]TimeRange, size, capacity),
	}
}

// Append count zeroed slots and return the index of the first one.
func (o *primOutput) grow(count int) int {
	lo := len(o.Type)
	for i := 0; i < count; i++ {
		o.Type = append(o.Type, PrimNone)
		o.Index = append(o.Index, 0)
		o.Object = append(o.Object, 0)
		o.Time = append(o.Time, TimeRange{})
	}
	return lo
}

// Write the group primitives to consecutive slots starting at lo.
func (o *primOutput) write(lo int, groups []leafGroup) {
	for _, g := range groups {
		for i := range g.refs {
			ref := &g.refs[i]
			primType := ref.Type
			if ref.Type.Base()&PrimCurve != 0 {
				primType = primType.WithSegment(int(ref.Segment))
			}
			o.Type[lo] = primType
			o.Index[lo] = ref.PrimIndex
			o.Object[lo] = ref.Object
			o.Time[lo] = TimeRange{From: ref.TimeFrom, To: ref.TimeTo}
			lo++
		}
	}
}
