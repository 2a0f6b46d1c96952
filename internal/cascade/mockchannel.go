package cascade

import (
	"context"
	"fmt"
	"sync"
)

// MockClassicalChannel is a ClassicalChannel backed directly by Alice's correct key. It is
// the test/benchmark collaborator used by the experiment harness and by this package's own
// tests; it never touches a network.
type MockClassicalChannel struct {
	correctKey *Key

	mu      sync.Mutex
	started bool
}

// NewMockClassicalChannel creates a channel that answers parity questions against
// correctKey.
func NewMockClassicalChannel(correctKey *Key) *MockClassicalChannel {
	return &MockClassicalChannel{correctKey: correctKey}
}

// StartReconciliation implements ClassicalChannel.
func (m *MockClassicalChannel) StartReconciliation(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("%w: start called twice", ErrChannelClosed)
	}
	m.started = true
	return nil
}

// EndReconciliation implements ClassicalChannel.
func (m *MockClassicalChannel) EndReconciliation(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return fmt.Errorf("%w: end called before start", ErrChannelClosed)
	}
	m.started = false
	return nil
}

// AskParities implements ClassicalChannel by computing each block's parity directly over
// the correct key under the reconstructed shuffle.
func (m *MockClassicalChannel) AskParities(_ context.Context, ranges []ShuffleRange) ([]int, error) {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return nil, fmt.Errorf("%w: ask_parities before start", ErrChannelClosed)
	}

	parities := make([]int, len(ranges))
	for i, r := range ranges {
		shuffle := ShuffleFromIdentifier(r.ShuffleID)
		parities[i] = shuffle.CalculateParity(m.correctKey, r.Start, r.End)
	}
	return parities, nil
}
