// Package metric provides similarity measures for embedding vectors.
package metric

import (
	"errors"
	"math"
)

// ErrSizeMismatch is returned when two vectors have different dimensions.
var ErrSizeMismatch = errors.New("vector sizes do not match")

// Dot calculates the dot product of two float32 slices of equal length.
func Dot(v1, v2 []float32) float32 {
	var sum float32
	for i := range v1 {
		sum += v1[i] * v2[i]
	}
	return sum
}

// Magnitude calculates the magnitude (length) of a float32 slice.
func Magnitude(v []float32) float32 {
	return float32(math.Sqrt(float64(Dot(v, v))))
}

// CosineSimilarity calculates the cosine similarity between two float32 slices.
func CosineSimilarity(v1, v2 []float32) (float32, error) {
	if len(v1) != len(v2) {
		return 0, ErrSizeMismatch
	}

	magnitudeA := Magnitude(v1)
	magnitudeB := Magnitude(v2)

	// Avoid division by zero
	if magnitudeA == 0 || magnitudeB == 0 {
		return 0, nil
	}

	return Dot(v1, v2) / (magnitudeA * magnitudeB), nil
}
