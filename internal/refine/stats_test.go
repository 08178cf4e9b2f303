package refine

import (
	"math"
	"testing"
)

func TestCalcStats(t *testing.T) {
	st := calcStats([]int{4, 1, 3, 2})
	if st.Mean != 2.5 || st.Var != 1.25 {
		t.Errorf("mean %v var %v, want 2.5 1.25", st.Mean, st.Var)
	}
	if st.P50 != 2.5 {
		t.Errorf("p50 = %v, want 2.5", st.P50)
	}
	if math.Abs(st.P90-3.7) > 1e-9 {
		t.Errorf("p90 = %v, want 3.7", st.P90)
	}
	if (calcStats(nil) != Stats{}) {
		t.Error("empty input should give zero stats")
	}
}

func TestWaldHalfWidth(t *testing.T) {
	if got := waldHalfWidth(0.5, 100); math.Abs(got-0.098) > 1e-12 {
		t.Errorf("half-width = %v, want 0.098", got)
	}
	if got := waldHalfWidth(0, 400); got != 0 {
		t.Errorf("degenerate proportion half-width = %v", got)
	}
	if !math.IsInf(waldHalfWidth(0.5, 0), 1) {
		t.Error("no trials should give an infinite half-width")
	}
}
