package cascade

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyGetSetFlip(t *testing.T) {
	k := NewKey(8)
	for i := 0; i < 8; i++ {
		if k.Get(i) != 0 {
			t.Fatalf("expected fresh key to be all zero at index %d", i)
		}
	}
	k.Set(3, 1)
	if k.Get(3) != 1 {
		t.Errorf("Set(3, 1) did not stick")
	}
	k.Flip(3)
	if k.Get(3) != 0 {
		t.Errorf("Flip did not toggle bit 3 back to 0")
	}
	k.Flip(5)
	if k.Get(5) != 1 {
		t.Errorf("Flip did not set bit 5")
	}
}

func TestKeyCheckIndexPanics(t *testing.T) {
	k := NewKey(4)
	defer func() {
		if recover() == nil {
			t.Error("expected out-of-range Get to panic")
		}
	}()
	k.Get(4)
}

func TestKeyCloneIsIndependent(t *testing.T) {
	require := require.New(t)
	k := NewKey(4)
	k.Set(0, 1)
	clone := k.Clone()
	clone.Set(1, 1)

	require.Equal(1, k.Get(0))
	require.Equal(0, k.Get(1), "mutating the clone must not affect the original")
	require.Equal(1, clone.Get(0))
	require.Equal(1, clone.Get(1))
}

func TestKeyDifference(t *testing.T) {
	require := require.New(t)
	a := NewKey(5)
	b := NewKey(5)
	a.Set(0, 1)
	a.Set(2, 1)
	b.Set(0, 1)
	b.Set(3, 1)

	dist, err := a.Difference(b)
	require.NoError(err)
	require.Equal(2, dist) // indexes 2 and 3 differ

	_, err = a.Difference(NewKey(4))
	require.ErrorIs(err, ErrKeySizeMismatch)
}

func TestCopyWithNoiseExactCount(t *testing.T) {
	require := require.New(t)
	SeedKeyRNG(42)
	original := RandomKey(1000)

	noisy, err := original.CopyWithNoise(0.1, ErrorMethodExact)
	require.NoError(err)

	dist, err := original.Difference(noisy)
	require.NoError(err)
	require.Equal(100, dist)
}

func TestCopyWithNoiseZeroRate(t *testing.T) {
	require := require.New(t)
	original := RandomKey(50)
	noisy, err := original.CopyWithNoise(0, ErrorMethodExact)
	require.NoError(err)
	dist, err := original.Difference(noisy)
	require.NoError(err)
	require.Equal(0, dist)
}

func TestCopyWithNoiseInvalidRate(t *testing.T) {
	k := NewKey(10)
	if _, err := k.CopyWithNoise(1.5, ErrorMethodExact); err == nil {
		t.Error("expected an error for out-of-range rate")
	}
}

func TestCopyWithNoiseUnknownMethod(t *testing.T) {
	k := NewKey(10)
	_, err := k.CopyWithNoise(0.1, ErrorMethod("bogus"))
	if err == nil {
		t.Fatal("expected an error for an unknown error method")
	}
}

func TestCopyWithNoiseBernoulliApproximatesRate(t *testing.T) {
	SeedKeyRNG(7)
	original := RandomKey(20000)
	noisy, err := original.CopyWithNoise(0.05, ErrorMethodBernoulli)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dist, err := original.Difference(noisy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Bernoulli flips are probabilistic: assert the observed rate is within a generous
	// tolerance of the requested one rather than exact.
	rate := float64(dist) / 20000
	if rate < 0.03 || rate > 0.07 {
		t.Errorf("observed noise rate %.4f too far from requested 0.05", rate)
	}
}
