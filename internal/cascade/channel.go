package cascade

import (
	"context"
	"math/big"
)

// ShuffleRange is the wire-transmissible description of a block: a shuffle identifier plus
// the shuffle-index range [Start, End) to compute the parity over.
type ShuffleRange struct {
	ShuffleID *big.Int
	Start     int
	End       int
}

// ClassicalChannel abstracts Bob's interactions with Alice over the authenticated classical
// channel. Implementations may batch ask_parities on the wire, but semantically a single
// call is a single round-trip: the engine blocks until the full, positionally-ordered
// reply is available.
type ClassicalChannel interface {
	// StartReconciliation tells the peer that a new reconciliation is beginning.
	StartReconciliation(ctx context.Context) error
	// EndReconciliation tells the peer that the reconciliation has finished.
	EndReconciliation(ctx context.Context) error
	// AskParities asks the peer for the correct parity of each given block, returning the
	// parities (each 0 or 1) in the exact same order as ranges. A peer MUST NOT reorder
	// the reply.
	AskParities(ctx context.Context, ranges []ShuffleRange) ([]int, error)
}
