// Package experiment runs batches of reconciliations across a matrix of parameters and
// aggregates their statistics — the harness a researcher uses to compare Cascade variants,
// as opposed to the engine itself in internal/cascade.
package experiment

import "github.com/qkd-net/cascade/internal/cascade"

// Combination is one point in the experiment matrix: a variant run against a given error
// method, error rate and key size.
type Combination struct {
	Variant     string
	ErrorMethod cascade.ErrorMethod
	ErrorRate   float64
	KeySize     int
}

// Matrix is the cartesian product of variants x error rates x key sizes, each repeated
// Repeats times.
type Matrix struct {
	Combinations []Combination
	Repeats      int
}

// NewMatrix builds the cartesian product of the given axes. A Repeats of 0 is treated as 1.
func NewMatrix(variants []string, method cascade.ErrorMethod, errorRates []float64, keySizes []int, repeats int) Matrix {
	if repeats <= 0 {
		repeats = 1
	}
	var combos []Combination
	for _, variant := range variants {
		for _, rate := range errorRates {
			for _, size := range keySizes {
				combos = append(combos, Combination{
					Variant:     variant,
					ErrorMethod: method,
					ErrorRate:   rate,
					KeySize:     size,
				})
			}
		}
	}
	return Matrix{Combinations: combos, Repeats: repeats}
}
