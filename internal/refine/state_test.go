package refine

import "testing"

func TestGradeOf(t *testing.T) {
	tests := []struct {
		total int
		want  GemGrade
	}{
		{0, GradeBelow},
		{3, GradeBelow},
		{4, GradeLegend},
		{15, GradeLegend},
		{16, GradeRelic},
		{18, GradeRelic},
		{19, GradeAncient},
		{20, GradeAncient},
		{25, GradeAncient},
	}
	for _, tt := range tests {
		if got := GradeOf(tt.total); got != tt.want {
			t.Errorf("GradeOf(%d) = %s, want %s", tt.total, got, tt.want)
		}
	}
}
