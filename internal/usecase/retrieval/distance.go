package retrieval

import "math"

// euclidean returns the L2 distance between two vectors of equal length.
func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// score maps a distance to (0, 1]: identical vectors score 1, the score
// decays monotonically with distance.
func score(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}
