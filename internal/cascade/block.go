package cascade

import "math/big"

// ErrorParity describes whether a block's current and correct parities agree.
type ErrorParity int

const (
	// ErrorParityUnknown means the correct parity has not yet been learned or inferred.
	ErrorParityUnknown ErrorParity = iota
	// ErrorParityEven means current and correct parity agree (no, or an even number of,
	// bit errors remain in the block).
	ErrorParityEven
	// ErrorParityOdd means current and correct parity disagree (an odd number of bit
	// errors remain in the block).
	ErrorParityOdd
)

const parityUnknown = -1

// Block is a contiguous range [start, end) of shuffle indices, together with the parity of
// the underlying key's bits over that range.
type Block struct {
	key     *Key
	shuffle *Shuffle
	start   int
	end     int

	parent *Block
	left   *Block
	right  *Block

	currentParity int
	correctParity int // parityUnknown, 0, or 1

	// seq is a creation-order tiebreaker for the try-correct priority queue.
	seq uint64

	// registered marks a block that has been enrolled as a cascader: it participates in
	// cascade re-scheduling when a bit it covers is corrected.
	registered bool
}

func newBlock(key *Key, shuffle *Shuffle, start, end int, parent *Block, seq uint64) *Block {
	if end <= start {
		panic("cascade: block range must contain at least one bit")
	}
	return &Block{
		key:           key,
		shuffle:       shuffle,
		start:         start,
		end:           end,
		parent:        parent,
		currentParity: shuffle.CalculateParity(key, start, end),
		correctParity: parityUnknown,
		seq:           seq,
	}
}

// CreateCoveringBlocks partitions [0, shuffle.Size()) into consecutive top-level blocks of
// exactly blockSize, except possibly the last one, which may be smaller.
func CreateCoveringBlocks(key *Key, shuffle *Shuffle, blockSize int, nextSeq func() uint64) []*Block {
	if blockSize < 1 {
		panic("cascade: block size must be >= 1")
	}
	var blocks []*Block
	remaining := shuffle.Size()
	start := 0
	for remaining > 0 {
		size := blockSize
		if size > remaining {
			size = remaining
		}
		blocks = append(blocks, newBlock(key, shuffle, start, start+size, nil, nextSeq()))
		start += size
		remaining -= size
	}
	return blocks
}

// StartIndex returns the shuffle index (inclusive) at which the block starts.
func (b *Block) StartIndex() int { return b.start }

// EndIndex returns the shuffle index (exclusive) at which the block ends.
func (b *Block) EndIndex() int { return b.end }

// Size returns the number of bits in the block.
func (b *Block) Size() int { return b.end - b.start }

// Shuffle returns the shuffle this block was created under.
func (b *Block) Shuffle() *Shuffle { return b.shuffle }

// ShuffleRange returns the wire-transmissible (shuffle identifier, start, end) triple.
func (b *Block) ShuffleRange() (identifier *big.Int, start, end int) {
	return b.shuffle.Identifier(), b.start, b.end
}

// IsTopBlock reports whether this block was created by covering the key, as opposed to by
// splitting a parent block.
func (b *Block) IsTopBlock() bool { return b.parent == nil }

// CurrentParity returns the cached current parity of the block.
func (b *Block) CurrentParity() int { return b.currentParity }

// CorrectParity returns the known correct parity, or parityUnknown if not yet learned.
func (b *Block) CorrectParity() int { return b.correctParity }

// SetCorrectParity records the correct parity learned from the channel or by inference.
func (b *Block) SetCorrectParity(parity int) { b.correctParity = parity }

// ErrorParity reports whether the block currently has an even or odd number of errors, or
// ErrorParityUnknown if the correct parity is not yet known.
func (b *Block) ErrorParity() ErrorParity {
	if b.correctParity == parityUnknown {
		return ErrorParityUnknown
	}
	if b.currentParity == b.correctParity {
		return ErrorParityEven
	}
	return ErrorParityOdd
}

// FlipParity flips the cached current parity. Called whenever a bit covered by this block
// is corrected.
func (b *Block) FlipParity() {
	b.currentParity = 1 - b.currentParity
}

// FlipBit flips the underlying key bit at the given shuffle index (which must lie in this
// block's range) without touching any cached parity.
func (b *Block) FlipBit(shuffleIndex int) {
	b.shuffle.FlipBit(b.key, shuffleIndex)
}

// KeyIndex returns the key index corresponding to a shuffle index within this block.
func (b *Block) KeyIndex(shuffleIndex int) int {
	return b.shuffle.KeyIndex(shuffleIndex)
}

// KeyIndexes returns the (unordered) key indexes covered by this block.
func (b *Block) KeyIndexes() []int {
	indexes := make([]int, 0, b.Size())
	for i := b.start; i < b.end; i++ {
		indexes = append(indexes, b.shuffle.KeyIndex(i))
	}
	return indexes
}

// sibling returns the other child of this block's parent, or nil if this is a top block or
// the sibling has not been created yet.
func (b *Block) sibling() *Block {
	if b.parent == nil {
		return nil
	}
	if b.parent.left == b {
		return b.parent.right
	}
	return b.parent.left
}

// getOrInferCorrectParity returns the correct parity if known, or infers it from the
// parent's and sibling's correct parities (parent = left XOR right) when possible, caching
// the result. Returns (parity, true) on success, (parityUnknown, false) otherwise.
func (b *Block) getOrInferCorrectParity(inferenceEnabled bool) (int, bool) {
	if b.correctParity != parityUnknown {
		return b.correctParity, true
	}
	if !inferenceEnabled {
		return parityUnknown, false
	}
	if b.parent == nil {
		return parityUnknown, false
	}
	sib := b.sibling()
	if sib == nil {
		return parityUnknown, false
	}
	parentParity := b.parent.correctParity
	if parentParity == parityUnknown {
		return parityUnknown, false
	}
	sibParity := sib.correctParity
	if sibParity == parityUnknown {
		return parityUnknown, false
	}
	inferred := sibParity
	if parentParity == 1 {
		inferred = 1 - sibParity
	}
	b.correctParity = inferred
	return inferred, true
}

// splitMiddle returns the shuffle index at which this block splits: the left half gets the
// extra bit when the size is odd.
func (b *Block) splitMiddle() int {
	return b.start + (b.end-b.start+1)/2
}

// createLeft creates (once) and returns this block's left sub-block.
func (b *Block) createLeft(seq uint64) *Block {
	if b.left == nil {
		b.left = newBlock(b.key, b.shuffle, b.start, b.splitMiddle(), b, seq)
	}
	return b.left
}

// createRight creates (once) and returns this block's right sub-block.
func (b *Block) createRight(seq uint64) *Block {
	if b.right == nil {
		b.right = newBlock(b.key, b.shuffle, b.splitMiddle(), b.end, b, seq)
	}
	return b.right
}
