package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qkd-net/cascade/internal/cascade"
)

type recordingObserver struct {
	results []Result
}

func (o *recordingObserver) Observe(res Result) {
	o.results = append(o.results, res)
}

func TestRunnerRunConvergesAndReportsRemainingErrors(t *testing.T) {
	require := require.New(t)
	cascade.SeedKeyRNG(123)

	m := NewMatrix([]string{"original", "biconf"}, cascade.ErrorMethodExact, []float64{0.02}, []int{512}, 2)
	obs := &recordingObserver{}
	runner := &Runner{Workers: 4, Observer: obs}

	results, err := runner.Run(context.Background(), m)
	require.NoError(err)
	require.Len(results, 4) // 2 variants x 1 rate x 1 size x 2 repeats
	require.Len(obs.results, 4)

	for _, res := range results {
		require.Equal(0, res.RemainingBitErrors, "variant %s failed to converge", res.Combination.Variant)
		require.False(res.RemainingFrameInError)
	}
}

func TestRunnerRejectsUnknownVariant(t *testing.T) {
	m := NewMatrix([]string{"not-a-variant"}, cascade.ErrorMethodExact, []float64{0.05}, []int{100}, 1)
	runner := &Runner{Workers: 2}
	_, err := runner.Run(context.Background(), m)
	if err == nil {
		t.Fatal("expected an error for an unknown variant in the matrix")
	}
}

func TestRunnerDefaultsToOneWorker(t *testing.T) {
	m := NewMatrix([]string{"original"}, cascade.ErrorMethodExact, []float64{0.02}, []int{200}, 1)
	runner := &Runner{}
	results, err := runner.Run(context.Background(), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}
