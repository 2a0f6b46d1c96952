package cascade

import (
	"math/big"
	"math/rand"
	"sync"
)

// ShuffleAlgorithm selects how a Shuffle's permutation is generated.
type ShuffleAlgorithm int

const (
	// ShuffleKeepSame is the identity permutation.
	ShuffleKeepSame ShuffleAlgorithm = 0
	// ShuffleRandom is a Fisher-Yates permutation driven by a seeded PRNG.
	ShuffleRandom ShuffleAlgorithm = 1
)

const (
	maxKeySize     = 1_000_000_000
	maxAlgorithm   = 100
	maxShuffleSeed = 1_000_000_000_000
)

var (
	shuffleRNGMu sync.Mutex
	shuffleRNG   = rand.New(rand.NewSource(2))
)

// SeedShuffleRNG reseeds the process-scoped PRNG used to draw shuffle seeds when the caller
// does not supply one explicitly.
func SeedShuffleRNG(seed int64) {
	shuffleRNGMu.Lock()
	defer shuffleRNGMu.Unlock()
	shuffleRNG = rand.New(rand.NewSource(seed))
}

// Shuffle is a reproducible bijection of [0, size) onto itself: shuffleIndex -> keyIndex.
//
// The same Shuffle can be applied to different Key instances of the same size. It encodes
// to a single big.Int identifier so that a peer can reconstruct it from three small numbers
// without ever receiving the permutation itself.
type Shuffle struct {
	size       int
	indexToKey []int32
	algorithm  ShuffleAlgorithm
	seed       int64
	identifier *big.Int
}

// NewShuffle creates a shuffle of the given size. For ShuffleRandom, seed may be 0 to mean
// "draw a fresh seed from the process-scoped shuffle PRNG"; the drawn seed is always in
// [1, maxShuffleSeed) since 0 is reserved to mean ShuffleKeepSame.
func NewShuffle(size int, algorithm ShuffleAlgorithm, seed int64) *Shuffle {
	if size < 0 {
		panic("cascade: negative shuffle size")
	}
	indexToKey := make([]int32, size)
	for i := range indexToKey {
		indexToKey[i] = int32(i)
	}

	effectiveSeed := int64(0)
	if algorithm == ShuffleRandom {
		effectiveSeed = seed
		if effectiveSeed == 0 {
			shuffleRNGMu.Lock()
			effectiveSeed = 1 + shuffleRNG.Int63n(maxShuffleSeed-1)
			shuffleRNGMu.Unlock()
		}
		r := rand.New(rand.NewSource(effectiveSeed))
		r.Shuffle(len(indexToKey), func(i, j int) {
			indexToKey[i], indexToKey[j] = indexToKey[j], indexToKey[i]
		})
	}

	return &Shuffle{
		size:       size,
		indexToKey: indexToKey,
		algorithm:  algorithm,
		seed:       effectiveSeed,
		identifier: encodeIdentifier(size, algorithm, effectiveSeed),
	}
}

// ShuffleFromIdentifier reconstructs a shuffle byte-for-byte from an identifier previously
// produced by Identifier().
func ShuffleFromIdentifier(id *big.Int) *Shuffle {
	size, algorithm, seed := decodeIdentifier(id)
	return NewShuffle(size, algorithm, seed)
}

func encodeIdentifier(size int, algorithm ShuffleAlgorithm, seed int64) *big.Int {
	id := big.NewInt(seed)
	id.Mul(id, big.NewInt(maxAlgorithm))
	id.Add(id, big.NewInt(int64(algorithm)))
	id.Mul(id, big.NewInt(maxKeySize))
	id.Add(id, big.NewInt(int64(size)))
	return id
}

func decodeIdentifier(id *big.Int) (size int, algorithm ShuffleAlgorithm, seed int64) {
	rest := new(big.Int).Set(id)
	keySize := big.NewInt(maxKeySize)
	algoMax := big.NewInt(maxAlgorithm)

	sizePart := new(big.Int)
	rest.DivMod(rest, keySize, sizePart)

	algoPart := new(big.Int)
	rest.DivMod(rest, algoMax, algoPart)

	size = int(sizePart.Int64())
	algorithm = ShuffleAlgorithm(algoPart.Int64())
	seed = rest.Int64()
	if seed == 0 {
		algorithm = ShuffleKeepSame
	}
	return size, algorithm, seed
}

// Size returns the size of the shuffle.
func (s *Shuffle) Size() int {
	return s.size
}

// Identifier returns the shuffle's wire identifier: the only thing a peer needs to
// reconstruct this exact permutation.
func (s *Shuffle) Identifier() *big.Int {
	return s.identifier
}

// KeyIndex returns the key index that a given shuffle index maps to.
func (s *Shuffle) KeyIndex(shuffleIndex int) int {
	return int(s.indexToKey[shuffleIndex])
}

// GetBit returns the bit of key at the given shuffle index, after applying the shuffle.
func (s *Shuffle) GetBit(key *Key, shuffleIndex int) int {
	return key.Get(s.KeyIndex(shuffleIndex))
}

// SetBit sets the bit of key at the given shuffle index, after applying the shuffle.
func (s *Shuffle) SetBit(key *Key, shuffleIndex int, value int) {
	key.Set(s.KeyIndex(shuffleIndex), value)
}

// FlipBit flips the bit of key at the given shuffle index, after applying the shuffle.
func (s *Shuffle) FlipBit(key *Key, shuffleIndex int) {
	key.Flip(s.KeyIndex(shuffleIndex))
}

// CalculateParity returns the XOR of key's bits over the shuffled range [start, end).
func (s *Shuffle) CalculateParity(key *Key, start, end int) int {
	parity := 0
	for i := start; i < end; i++ {
		if key.Get(s.KeyIndex(i)) == 1 {
			parity = 1 - parity
		}
	}
	return parity
}
