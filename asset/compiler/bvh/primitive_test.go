package bvh

import "testing"

func TestPrimitiveTypeClasses(t *testing.T) {
	specs := []struct {
		primType PrimitiveType
		class    int
		motion   bool
		name     string
	}{
		{PrimTriangle, 0, false, "triangle"},
		{PrimMotionTriangle, 1, true, "motion triangle"},
		{PrimCurve, 2, false, "curve"},
		{PrimMotionCurve, 3, true, "motion curve"},
		{PrimPoint, 4, false, "point"},
		{PrimMotionPoint, 5, true, "motion point"},
		{PrimNone, -1, false, "object"},
	}

	for _, spec := range specs {
		if got := spec.primType.class(); got != spec.class {
			t.Errorf("expected %s class to be %d; got %d", spec.name, spec.class, got)
		}
		if got := spec.primType.IsMotion(); got != spec.motion {
			t.Errorf("expected %s IsMotion() to be %t; got %t", spec.name, spec.motion, got)
		}
		if got := spec.primType.String(); got != spec.name {
			t.Errorf("expected String() to be %q; got %q", spec.name, got)
		}
		if spec.class >= 0 && classTypes[spec.class] != spec.primType {
			t.Errorf("expected classTypes[%d] to be %s", spec.class, spec.name)
		}
	}
}

func TestPrimitiveTypeSegment(t *testing.T) {
	packed := PrimMotionCurve.WithSegment(17)
	if packed.Base() != PrimMotionCurve {
		t.Fatalf("expected base type %s; got %s", PrimMotionCurve, packed.Base())
	}
	if packed.Segment() != 17 {
		t.Fatalf("expected segment 17; got %d", packed.Segment())
	}
	if packed.WithSegment(3).Segment() != 3 {
		t.Fatal("expected WithSegment to replace the packed segment")
	}
}
