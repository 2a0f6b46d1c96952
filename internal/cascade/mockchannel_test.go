package cascade

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockClassicalChannelLifecycle(t *testing.T) {
	require := require.New(t)
	ch := NewMockClassicalChannel(NewKey(4))
	ctx := context.Background()

	require.NoError(ch.StartReconciliation(ctx))
	require.ErrorIs(ch.StartReconciliation(ctx), ErrChannelClosed)
	require.NoError(ch.EndReconciliation(ctx))
	require.ErrorIs(ch.EndReconciliation(ctx), ErrChannelClosed)
}

func TestMockClassicalChannelAskParitiesBeforeStart(t *testing.T) {
	ch := NewMockClassicalChannel(NewKey(4))
	_, err := ch.AskParities(context.Background(), []ShuffleRange{{ShuffleID: big.NewInt(4), Start: 0, End: 4}})
	if err == nil {
		t.Fatal("expected an error when asking parities before start")
	}
}

func TestMockClassicalChannelAskParities(t *testing.T) {
	require := require.New(t)
	correct := NewKey(8)
	correct.Set(1, 1)
	correct.Set(5, 1)
	correct.Set(6, 1)

	ch := NewMockClassicalChannel(correct)
	ctx := context.Background()
	require.NoError(ch.StartReconciliation(ctx))

	shuffle := NewShuffle(8, ShuffleKeepSame, 0)
	ranges := []ShuffleRange{
		{ShuffleID: shuffle.Identifier(), Start: 0, End: 4}, // covers bit 1 -> odd
		{ShuffleID: shuffle.Identifier(), Start: 4, End: 8}, // covers bits 5,6 -> even
	}
	parities, err := ch.AskParities(ctx, ranges)
	require.NoError(err)
	require.Equal([]int{1, 0}, parities)
}
