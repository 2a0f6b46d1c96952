package experiment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/qkd-net/cascade/internal/cascade"
)

func TestNewMatrixCartesianProduct(t *testing.T) {
	require := require.New(t)
	m := NewMatrix(
		[]string{"original", "biconf"},
		cascade.ErrorMethodExact,
		[]float64{0.01, 0.05},
		[]int{1000},
		3,
	)
	require.Equal(3, m.Repeats)

	want := []Combination{
		{Variant: "original", ErrorMethod: cascade.ErrorMethodExact, ErrorRate: 0.01, KeySize: 1000},
		{Variant: "original", ErrorMethod: cascade.ErrorMethodExact, ErrorRate: 0.05, KeySize: 1000},
		{Variant: "biconf", ErrorMethod: cascade.ErrorMethodExact, ErrorRate: 0.01, KeySize: 1000},
		{Variant: "biconf", ErrorMethod: cascade.ErrorMethodExact, ErrorRate: 0.05, KeySize: 1000},
	}
	if diff := cmp.Diff(want, m.Combinations); diff != "" {
		t.Errorf("combinations mismatch (-want +got):\n%s", diff)
	}
}

func TestNewMatrixRepeatsDefaultsToOne(t *testing.T) {
	m := NewMatrix([]string{"original"}, cascade.ErrorMethodExact, []float64{0.05}, []int{100}, 0)
	if m.Repeats != 1 {
		t.Errorf("expected default repeats of 1, got %d", m.Repeats)
	}
}
