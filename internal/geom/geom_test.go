package geom

import (
	"math"
	"testing"
)

func TestIsFloatingEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want bool
	}{
		{"zeros", 0, 0, true},
		{"ones", 1, 1, true},
		{"negative", -1, -1, true},
		{"pi", 3.141596, 3.141596, true},
		{"fraction", 1.0 / 17.0, 1 / 17.0, true},
		{"noise", 1.000000001, 1.000000002, true},
		{"large noise", 1e6, 1e6 + 1e-4, true},
		{"different", 0, 1.5, false},
		{"far apart", -10, 3.141596, false},
		{"micro apart", 1.000001, 1.000002, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsFloatingEqual(test.a, test.b); got != test.want {
				t.Errorf("IsFloatingEqual(%v, %v) = %v, want %v", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestIsFloatingZero(t *testing.T) {
	if !IsFloatingZero(0) || !IsFloatingZero(math.Copysign(0, -1)) {
		t.Error("zero should be zero")
	}
	if IsFloatingZero(1) || IsFloatingZero(-1) {
		t.Error("one is not zero")
	}
	if IsFloatingZero(4 * floatEpsilon) {
		t.Error("four epsilons is not zero")
	}
}

func TestCalcLength(t *testing.T) {
	if got := CalcLength(3, 4); got != 5 {
		t.Errorf("expected 5, got %v", got)
	}
}

func TestRectEqual(t *testing.T) {
	a := Rect{Top: 0, Bottom: 1079, Left: 0, Right: 1919}
	b := Rect{Top: 0, Bottom: 1079.0000000001, Left: 0, Right: 1919}
	if !a.Equal(b) {
		t.Error("rects within tolerance should be equal")
	}
	b.Right = 1920
	if a.Equal(b) {
		t.Error("rects with different right edge should differ")
	}
}
