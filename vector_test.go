package ardrone

import "testing"

func TestVector3Arithmetic(t *testing.T) {
	a := Vector3{X: 1, Y: 2, Z: 3}
	b := Vector3{X: 4, Y: 5, Z: 6}

	if got := a.Add(b); got != (Vector3{5, 7, 9}) {
		t.Fatalf("Add = %+v", got)
	}
	if got := b.Sub(a); got != (Vector3{3, 3, 3}) {
		t.Fatalf("Sub = %+v", got)
	}
	if got := a.Scale(2); got != (Vector3{2, 4, 6}) {
		t.Fatalf("Scale = %+v", got)
	}
}

func TestVector3Normalized(t *testing.T) {
	v := Vector3{X: 3, Y: 4, Z: 0}
	n := v.Normalized()
	if l := n.Length(); l < 0.999 || l > 1.001 {
		t.Fatalf("normalized length = %f, want ~1", l)
	}
}

func TestVector3NormalizedZero(t *testing.T) {
	var v Vector3
	if got := v.Normalized(); got != v {
		t.Fatalf("Normalized of zero vector = %+v, want zero", got)
	}
}

