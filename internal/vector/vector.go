// Package vector holds the distance math used to compare biometric descriptors.
package vector

import (
	"math"
)

// MaxDistance is the non-match sentinel for normalized vectors.
const MaxDistance = 1.0

// EuclideanDistance returns the L2 distance between a and b.
// Vectors of different length never match and yield MaxDistance.
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return MaxDistance
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	return math.Sqrt(sum)
}

// Compare is EuclideanDistance that also reports whether the comparison was meaningful.
// Empty or mismatched inputs return (MaxDistance, false).
func Compare(enrolled, live []float64) (float64, bool) {
	if len(enrolled) == 0 || len(enrolled) != len(live) {
		return MaxDistance, false
	}
	return EuclideanDistance(enrolled, live), true
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit length. A zero vector is returned unchanged.
func Normalize(v []float64) []float64 {
	norm := Magnitude(v)
	if norm == 0 {
		return v
	}

	normalized := make([]float64, len(v))
	for i, x := range v {
		normalized[i] = x / norm
	}

	return normalized
}

// Mean averages rows column-wise. Rows shorter than the first are skipped.
func Mean(rows [][]float64) []float64 {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}

	width := len(rows[0])
	mean := make([]float64, width)
	n := 0
	for _, row := range rows {
		if len(row) != width {
			continue
		}
		for i, x := range row {
			mean[i] += x
		}
		n++
	}

	for i := range mean {
		mean[i] /= float64(n)
	}

	return mean
}

// MatchConfidence maps a distance to a 0-100 percentage relative to the threshold.
func MatchConfidence(distance, threshold float64) int {
	if threshold <= 0 {
		return 0
	}

	c := (1 - distance/(threshold*1.5)) * 100
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}

	return int(math.Round(c))
}

// ToFloat32 converts a descriptor for pgvector storage.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// FromFloat32 widens a pgvector slice back to float64
func FromFloat32(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
