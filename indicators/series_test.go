package indicators

import (
	"math"
	"testing"
	"time"

	"stock-dashboard/models"
)

func TestNormalize(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day := func(i int) time.Time { return t0.AddDate(0, 0, i) }

	tests := []struct {
		name       string
		in         []models.Bar
		wantCloses []float64
	}{
		{
			name:       "empty input",
			in:         nil,
			wantCloses: []float64{},
		},
		{
			name: "sorts unsorted bars",
			in: []models.Bar{
				{Timestamp: day(2), Close: 3},
				{Timestamp: day(0), Close: 1},
				{Timestamp: day(1), Close: 2},
			},
			wantCloses: []float64{1, 2, 3},
		},
		{
			name: "duplicate timestamps keep the later bar",
			in: []models.Bar{
				{Timestamp: day(0), Close: 1},
				{Timestamp: day(1), Close: 2},
				{Timestamp: day(0), Close: 9},
			},
			wantCloses: []float64{9, 2},
		},
		{
			name: "drops non-finite bars only",
			in: []models.Bar{
				{Timestamp: day(0), Close: 1},
				{Timestamp: day(1), Close: math.NaN()},
				{Timestamp: day(2), Close: 3, Volume: math.Inf(1)},
				{Timestamp: day(3), Close: 4},
			},
			wantCloses: []float64{1, 4},
		},
		{
			name: "all bars invalid gives empty series",
			in: []models.Bar{
				{Timestamp: day(0), Open: math.NaN()},
			},
			wantCloses: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in).Closes()
			if len(got) != len(tt.wantCloses) {
				t.Fatalf("len = %d, want %d (%v)", len(got), len(tt.wantCloses), got)
			}
			for i := range got {
				if got[i] != tt.wantCloses[i] {
					t.Errorf("close[%d] = %v, want %v", i, got[i], tt.wantCloses[i])
				}
			}
		})
	}
}

func TestNormalize_StrictlyIncreasing(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var in []models.Bar
	for _, d := range []int{5, 3, 3, 1, 4, 1, 2, 5} {
		in = append(in, models.Bar{Timestamp: t0.AddDate(0, 0, d), Close: float64(d)})
	}

	s := Normalize(in)
	if len(s) != 5 {
		t.Fatalf("len = %d, want 5", len(s))
	}
	for i := 1; i < len(s); i++ {
		if !s[i].Timestamp.After(s[i-1].Timestamp) {
			t.Errorf("timestamps not strictly increasing at %d", i)
		}
	}
}
