package memrank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/hanoilab/leaderboard"
)

func TestFetchReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	list := []leaderboard.Entry{{Name: "AAA", Moves: 7, Time: 1}}
	require.NoError(t, s.WriteTopK(ctx, 3, list))

	got, err := s.FetchTopK(ctx, 3)
	require.NoError(t, err)
	got[0].Name = "XXX"

	again, err := s.FetchTopK(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "AAA", again[0].Name)
}

func TestSwap(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := []leaderboard.Entry{{Name: "AAA", Moves: 7, Time: 1}}

	ok, err := s.SwapTopK(ctx, 3, nil, a)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SwapTopK(ctx, 3, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().FetchTopK(ctx, 3)
	assert.ErrorIs(t, err, context.Canceled)
}
