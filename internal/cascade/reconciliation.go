package cascade

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/procfs"
	"go.uber.org/zap"
)

// messageOverheadBits is the assumed per-round-trip framing cost (message type, length
// prefixes) charged against the realistic efficiency figure but not the unrealistic one.
const messageOverheadBits = 16

// Option configures a Reconciliation at construction time.
type Option func(*Reconciliation)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciliation) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunID overrides the random run identifier used to correlate log lines and stats with
// an externally assigned one (e.g. one generated by the experiment harness).
func WithRunID(id uuid.UUID) Option {
	return func(r *Reconciliation) { r.runID = id }
}

// Reconciliation runs the Cascade protocol to completion on behalf of Bob: it corrects his
// noisy key in place against Alice, reachable only through a ClassicalChannel.
type Reconciliation struct {
	algorithm    Algorithm
	channel      ClassicalChannel
	key          *Key
	estimatedBER float64

	runID  uuid.UUID
	logger *zap.Logger

	seqCounter uint64
	stats      Stats

	// allBlocksIndex maps a key index to every block (of any pass or depth) that currently
	// covers it; used to flip cached parities when the bit at that index is corrected.
	allBlocksIndex map[int][]*Block
	// cascaderIndex maps a key index to the subset of blocks eligible to be rescheduled for
	// try-correct when the bit at that index is corrected (always top blocks; sub-blocks too
	// when the variant enables sub-block reuse).
	cascaderIndex map[int][]*Block

	pendingAsk []askRequest
	tcHeap     tryCorrectHeap

	corrections int
}

type askRequest struct {
	block *Block
	then  func()
}

type tryCorrectItem struct {
	block               *Block
	correctRightSibling bool
	cascadeEnabled      bool
}

type tryCorrectHeap []*tryCorrectItem

func (h tryCorrectHeap) Len() int { return len(h) }
func (h tryCorrectHeap) Less(i, j int) bool {
	if h[i].block.Size() != h[j].block.Size() {
		return h[i].block.Size() < h[j].block.Size()
	}
	return h[i].block.seq < h[j].block.seq
}
func (h tryCorrectHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *tryCorrectHeap) Push(x any)   { *h = append(*h, x.(*tryCorrectItem)) }
func (h *tryCorrectHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// New builds a Reconciliation for the named variant. noisyKey is Bob's key; it is corrected
// in place and also returned by Reconcile for convenience.
func New(variantName string, channel ClassicalChannel, noisyKey *Key, estimatedBER float64, opts ...Option) (*Reconciliation, error) {
	algo, err := VariantByName(variantName)
	if err != nil {
		return nil, err
	}
	if estimatedBER < 0 || estimatedBER > 1 {
		return nil, fmt.Errorf("%w: estimated BER %v", ErrInvalidRate, estimatedBER)
	}
	r := &Reconciliation{
		algorithm:      algo,
		channel:        channel,
		key:            noisyKey,
		estimatedBER:   estimatedBER,
		runID:          uuid.New(),
		logger:         zap.NewNop(),
		allBlocksIndex: make(map[int][]*Block),
		cascaderIndex:  make(map[int][]*Block),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Stats returns a copy of the accumulated statistics. Only meaningful after Reconcile
// returns.
func (r *Reconciliation) Stats() Stats { return r.stats }

func (r *Reconciliation) nextSeq() uint64 {
	r.seqCounter++
	return r.seqCounter
}

// Reconcile runs the cascade passes followed by the BICONF confirmation phase (if the
// variant enables one), returning Bob's corrected key.
func (r *Reconciliation) Reconcile(ctx context.Context) (*Key, error) {
	start := time.Now()
	startCPU := processCPUTime(r.logger)

	if err := r.channel.StartReconciliation(ctx); err != nil {
		return nil, fmt.Errorf("start reconciliation: %w", err)
	}

	for iteration := 1; iteration <= r.algorithm.CascadeIterations; iteration++ {
		r.logger.Debug("cascade pass",
			zap.String("run_id", r.runID.String()),
			zap.Int("iteration", iteration))
		if err := r.runPass(ctx, iteration); err != nil {
			return nil, fmt.Errorf("cascade pass %d: %w", iteration, err)
		}
		r.stats.NormalIterations++
	}

	if err := r.runBiconf(ctx); err != nil {
		return nil, fmt.Errorf("biconf phase: %w", err)
	}

	if err := r.channel.EndReconciliation(ctx); err != nil {
		return nil, fmt.Errorf("end reconciliation: %w", err)
	}

	r.stats.RunID = r.runID
	r.stats.Variant = r.algorithm.Name
	r.stats.ElapsedRealTime = time.Since(start)
	r.stats.ElapsedProcessTime = processCPUTime(r.logger) - startCPU

	idealBits := float64(r.key.Size()) * binaryEntropy(r.estimatedBER)
	leakedBits := float64(r.stats.AskParityBits + r.stats.ReplyParityBits)
	r.stats.UnrealisticEfficiency = computeEfficiency(int(leakedBits), r.estimatedBER, r.key.Size())
	realisticBits := leakedBits + float64(r.stats.AskParityMessages)*messageOverheadBits
	if idealBits > 0 {
		r.stats.RealisticEfficiency = realisticBits / idealBits
	} else {
		r.stats.RealisticEfficiency = 1.0
	}

	return r.key, nil
}

func processCPUTime(logger *zap.Logger) time.Duration {
	proc, err := procfs.Self()
	if err != nil {
		logger.Warn("procfs self unavailable", zap.Error(err))
		return 0
	}
	stat, err := proc.Stat()
	if err != nil {
		logger.Warn("procfs stat unavailable", zap.Error(err))
		return 0
	}
	return time.Duration(stat.CPUTime() * float64(time.Second))
}

// runPass executes one cascade pass: cover the key with fresh blocks (under the identity
// shuffle on the first pass, a random shuffle afterwards), ask their parities in a single
// round trip, then binary-search every block with an odd error parity down to the offending
// bit.
func (r *Reconciliation) runPass(ctx context.Context, iteration int) error {
	blockSize := r.algorithm.BlockSize(r.estimatedBER, r.key.Size(), iteration)
	shuffleAlgorithm := ShuffleRandom
	if iteration == 1 {
		shuffleAlgorithm = ShuffleKeepSame
	}
	shuffle := NewShuffle(r.key.Size(), shuffleAlgorithm, 0)
	blocks := CreateCoveringBlocks(r.key, shuffle, blockSize, r.nextSeq)

	for _, b := range blocks {
		r.registerBlock(b)
		r.scheduleAskParity(b, nil)
	}
	if err := r.drainAskParity(ctx); err != nil {
		return err
	}
	for _, b := range blocks {
		if b.ErrorParity() == ErrorParityOdd {
			r.pushTryCorrect(b, true, true)
		}
	}
	return r.drainWork(ctx)
}

func (r *Reconciliation) registerBlock(block *Block) {
	if block.registered {
		return
	}
	block.registered = true
	keyIndexes := block.KeyIndexes()
	for _, ki := range keyIndexes {
		r.allBlocksIndex[ki] = append(r.allBlocksIndex[ki], block)
	}
	if block.IsTopBlock() || r.algorithm.SubBlockReuse {
		for _, ki := range keyIndexes {
			r.cascaderIndex[ki] = append(r.cascaderIndex[ki], block)
		}
	}
}

func (r *Reconciliation) scheduleAskParity(block *Block, then func()) {
	r.pendingAsk = append(r.pendingAsk, askRequest{block: block, then: then})
}

func (r *Reconciliation) pushTryCorrect(block *Block, correctRightSibling, cascadeEnabled bool) {
	heap.Push(&r.tcHeap, &tryCorrectItem{
		block:               block,
		correctRightSibling: correctRightSibling,
		cascadeEnabled:      cascadeEnabled,
	})
}

// drainWork alternates between popping every pending block off the try-correct queue
// (smallest first) and resolving all the parity questions those steps raised in a single
// channel round trip, until both are empty.
func (r *Reconciliation) drainWork(ctx context.Context) error {
	for len(r.pendingAsk) > 0 || r.tcHeap.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.tcHeap.Len() > 0 {
			item := heap.Pop(&r.tcHeap).(*tryCorrectItem)
			if err := r.tryCorrectStep(item.block, item.correctRightSibling, item.cascadeEnabled); err != nil {
				return err
			}
			continue
		}
		if err := r.drainAskParity(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciliation) drainAskParity(ctx context.Context) error {
	if len(r.pendingAsk) == 0 {
		return nil
	}
	reqs := r.pendingAsk
	r.pendingAsk = nil

	ranges := make([]ShuffleRange, len(reqs))
	for i, req := range reqs {
		id, start, end := req.block.ShuffleRange()
		ranges[i] = ShuffleRange{ShuffleID: id, Start: start, End: end}
		r.stats.AskParityBits += id.BitLen() + bitsInInt(int64(start)) + bitsInInt(int64(end))
	}
	parities, err := r.channel.AskParities(ctx, ranges)
	if err != nil {
		return fmt.Errorf("ask parities: %w", err)
	}
	if len(parities) != len(ranges) {
		return ErrParityReplyLength
	}
	r.stats.AskParityMessages++
	r.stats.AskParityBlocks += len(ranges)
	r.stats.ReplyParityBits += len(parities)

	for i, req := range reqs {
		p := parities[i]
		if p != 0 && p != 1 {
			return ErrParityValue
		}
		req.block.SetCorrectParity(p)
		if req.then != nil {
			req.then()
		}
	}
	return nil
}

// tryCorrectStep implements the BINARY algorithm's recursive step for one block, using an
// explicit work-queue item instead of recursion so that the single pending ask-parity batch
// can interleave fairly with multiple in-flight binary searches. correctRightSibling mirrors
// the flag threaded through the original algorithm's recursive calls: when true, a provably
// erroneous right half is scheduled for correction as soon as its own parity becomes known,
// rather than only when a later pass happens to notice it.
func (r *Reconciliation) tryCorrectStep(block *Block, correctRightSibling, cascadeEnabled bool) error {
	if block.ErrorParity() != ErrorParityOdd {
		return nil
	}
	if block.Size() == 1 {
		r.correctBit(block, cascadeEnabled)
		return nil
	}

	left := block.createLeft(r.nextSeq())
	right := block.createRight(r.nextSeq())
	r.registerBlock(left)
	r.registerBlock(right)

	resolveRight := func() {
		r.pushTryCorrect(left, true, cascadeEnabled)
		// block is known ODD, so exactly one of left/right is ODD; right only needs
		// visiting when left turned out EVEN, and only if the caller wants it corrected
		// now rather than left for a later pass to pick up via the cascade effect.
		if !correctRightSibling || left.ErrorParity() != ErrorParityEven {
			return
		}
		alreadyKnown := right.CorrectParity() != parityUnknown
		if parity, ok := right.getOrInferCorrectParity(r.algorithm.BlockParityInference); ok {
			if !alreadyKnown {
				r.stats.InferParityBlocks++
			}
			right.SetCorrectParity(parity)
			r.pushTryCorrect(right, true, cascadeEnabled)
			return
		}
		r.scheduleAskParity(right, func() {
			r.pushTryCorrect(right, true, cascadeEnabled)
		})
	}

	alreadyKnown := left.CorrectParity() != parityUnknown
	if parity, ok := left.getOrInferCorrectParity(r.algorithm.BlockParityInference); ok {
		if !alreadyKnown {
			r.stats.InferParityBlocks++
		}
		left.SetCorrectParity(parity)
		resolveRight()
		return nil
	}
	r.scheduleAskParity(left, resolveRight)
	return nil
}

func (r *Reconciliation) correctBit(block *Block, cascadeEnabled bool) {
	shuffleIndex := block.StartIndex()
	keyIndex := block.KeyIndex(shuffleIndex)
	block.FlipBit(shuffleIndex)
	r.corrections++

	for _, b := range r.allBlocksIndex[keyIndex] {
		b.FlipParity()
	}
	if !cascadeEnabled {
		return
	}
	for _, b := range r.cascaderIndex[keyIndex] {
		if b == block {
			continue
		}
		if b.ErrorParity() == ErrorParityOdd {
			r.pushTryCorrect(b, true, cascadeEnabled)
		}
	}
}

// runBiconf runs the BICONF confirmation phase: repeatedly split the key into two random
// halves and confirm/correct the first half's parity, stopping once errorFreeStreak
// consecutive iterations found nothing (or, if the variant disables the streak rule, after a
// fixed iteration count).
func (r *Reconciliation) runBiconf(ctx context.Context) error {
	if r.algorithm.BiconfIterations <= 0 {
		return nil
	}
	requiredStreak := r.algorithm.BiconfIterations
	streak := 0
	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.algorithm.BiconfErrorFreeStreak {
			if streak >= requiredStreak {
				break
			}
		} else if iter > requiredStreak {
			break
		}

		corrected, err := r.runBiconfIteration(ctx)
		if err != nil {
			return err
		}
		r.stats.BiconfIterations++
		if corrected {
			streak = 0
		} else {
			streak++
		}
	}
	return nil
}

func (r *Reconciliation) runBiconfIteration(ctx context.Context) (bool, error) {
	if r.key.Size() < 2 {
		return false, nil
	}
	shuffle := NewShuffle(r.key.Size(), ShuffleRandom, 0)
	mid := r.key.Size() / 2

	before := r.corrections

	first := newBlock(r.key, shuffle, 0, mid, nil, r.nextSeq())
	r.registerBlock(first)
	r.scheduleAskParity(first, nil)
	if err := r.drainAskParity(ctx); err != nil {
		return false, err
	}
	if first.ErrorParity() == ErrorParityOdd {
		r.pushTryCorrect(first, true, r.algorithm.BiconfCascade)
		if err := r.drainWork(ctx); err != nil {
			return false, err
		}
	}

	if r.algorithm.BiconfCorrectComplement {
		second := newBlock(r.key, shuffle, mid, r.key.Size(), nil, r.nextSeq())
		r.registerBlock(second)
		// second is a top-level block with no parent, so getOrInferCorrectParity's
		// sibling-based inference can never apply to it; its parity always comes from
		// an actual ask, same as first's.
		r.scheduleAskParity(second, nil)
		if err := r.drainAskParity(ctx); err != nil {
			return false, err
		}
		if second.ErrorParity() == ErrorParityOdd {
			r.pushTryCorrect(second, true, r.algorithm.BiconfCascade)
			if err := r.drainWork(ctx); err != nil {
				return false, err
			}
		}
	}

	return r.corrections > before, nil
}
