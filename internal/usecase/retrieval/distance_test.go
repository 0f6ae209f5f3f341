package retrieval

import (
	"math"
	"testing"
)

func TestEuclidean(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"unit apart", []float32{0, 0}, []float32{1, 0}, 1},
		{"pythagorean", []float32{0, 0}, []float32{3, 4}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := euclidean(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("euclidean(%v, %v) = %f, want %f", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	if got := score(0); got != 1 {
		t.Fatalf("identical vectors must score 1, got %f", got)
	}
	if s1, s2 := score(0.5), score(2); s1 <= s2 {
		t.Fatalf("score must decay with distance: %f <= %f", s1, s2)
	}
	if got := score(1e12); got <= 0 {
		t.Fatalf("score must stay positive, got %f", got)
	}
}
