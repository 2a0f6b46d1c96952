package cascade

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// ErrorMethod selects how noise is distributed when deriving a noisy key from a correct one.
type ErrorMethod string

const (
	// ErrorMethodExact flips exactly round(rate*size) distinct positions.
	ErrorMethodExact ErrorMethod = "exact"
	// ErrorMethodBernoulli flips each position independently with probability rate.
	ErrorMethodBernoulli ErrorMethod = "bernoulli"
)

var (
	keyRNGMu sync.Mutex
	keyRNG   = rand.New(rand.NewSource(1))
)

// SeedKeyRNG reseeds the process-scoped PRNG used for random key generation and noise
// application, making experiments reproducible across runs.
func SeedKeyRNG(seed int64) {
	keyRNGMu.Lock()
	defer keyRNGMu.Unlock()
	keyRNG = rand.New(rand.NewSource(seed))
}

// Key is an ordered, fixed-size sequence of bits addressable by index in [0, size).
//
// Bits are stored as the set of indices currently at value 1, in a Roaring bitmap, so that
// Hamming distance reduces to a single Xor-and-count rather than a per-bit scan.
type Key struct {
	size int
	bits *roaring.Bitmap
}

// NewKey creates an all-zero key of the given size.
func NewKey(size int) *Key {
	if size < 0 {
		panic("cascade: negative key size")
	}
	return &Key{size: size, bits: roaring.New()}
}

// RandomKey creates a key of the given size with each bit drawn uniformly from {0, 1} using
// the process-scoped key PRNG.
func RandomKey(size int) *Key {
	keyRNGMu.Lock()
	defer keyRNGMu.Unlock()
	k := NewKey(size)
	for i := 0; i < size; i++ {
		if keyRNG.Intn(2) == 1 {
			k.bits.Add(uint32(i))
		}
	}
	return k
}

// Size returns the number of bits in the key.
func (k *Key) Size() int {
	return k.size
}

func (k *Key) checkIndex(i int) {
	if i < 0 || i >= k.size {
		panic(fmt.Sprintf("cascade: key index %d out of range [0, %d)", i, k.size))
	}
}

// Get returns the value (0 or 1) of the bit at index i.
func (k *Key) Get(i int) int {
	k.checkIndex(i)
	if k.bits.Contains(uint32(i)) {
		return 1
	}
	return 0
}

// Set sets the bit at index i to value (0 or 1).
func (k *Key) Set(i int, value int) {
	k.checkIndex(i)
	if value == 0 {
		k.bits.Remove(uint32(i))
	} else {
		k.bits.Add(uint32(i))
	}
}

// Flip toggles the bit at index i.
func (k *Key) Flip(i int) {
	k.checkIndex(i)
	u := uint32(i)
	if k.bits.Contains(u) {
		k.bits.Remove(u)
	} else {
		k.bits.Add(u)
	}
}

// Clone returns a deep, independent copy of the key.
func (k *Key) Clone() *Key {
	return &Key{size: k.size, bits: k.bits.Clone()}
}

// CopyWithNoise returns a new key of the same size, differing from k according to the given
// error rate and method. rate must be in [0, 1].
func (k *Key) CopyWithNoise(rate float64, method ErrorMethod) (*Key, error) {
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("%w: rate %v", ErrInvalidRate, rate)
	}
	clone := k.Clone()

	keyRNGMu.Lock()
	defer keyRNGMu.Unlock()

	switch method {
	case ErrorMethodExact:
		errorCount := int(round(rate * float64(k.size)))
		for _, idx := range sampleDistinct(keyRNG, k.size, errorCount) {
			clone.Flip(idx)
		}
	case ErrorMethodBernoulli:
		for i := 0; i < k.size; i++ {
			if keyRNG.Float64() < rate {
				clone.Flip(i)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownErrorMethod, method)
	}
	return clone, nil
}

// Difference returns the Hamming distance between k and other. Both keys must have the same
// size.
func (k *Key) Difference(other *Key) (int, error) {
	if k.size != other.size {
		return 0, fmt.Errorf("%w: %d != %d", ErrKeySizeMismatch, k.size, other.size)
	}
	diff := k.bits.Clone()
	diff.Xor(other.bits)
	return int(diff.GetCardinality()), nil
}

// String renders the key as a sequence of '0'/'1' characters, most significant (index 0)
// first. Intended for debugging and small keys only.
func (k *Key) String() string {
	buf := make([]byte, k.size)
	for i := 0; i < k.size; i++ {
		if k.bits.Contains(uint32(i)) {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}

func round(x float64) float64 {
	if x < 0 {
		return -round(-x)
	}
	i := float64(int64(x))
	if x-i >= 0.5 {
		return i + 1
	}
	return i
}

// sampleDistinct draws count distinct values from [0, n) uniformly without replacement.
func sampleDistinct(r *rand.Rand, n, count int) []int {
	if count <= 0 {
		return nil
	}
	if count > n {
		count = n
	}
	// Partial Fisher-Yates over an identity population, which gives a uniform sample of
	// `count` distinct indices without materializing a full permutation.
	population := make([]int, n)
	for i := range population {
		population[i] = i
	}
	for i := 0; i < count; i++ {
		j := i + r.Intn(n-i)
		population[i], population[j] = population[j], population[i]
	}
	return population[:count]
}
