package sqliterank

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/hanoilab/leaderboard"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFetchEmpty(t *testing.T) {
	s := openTemp(t)
	list, err := s.FetchTopK(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWriteThenFetchKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	list := []leaderboard.Entry{
		{Name: "AAA", Moves: 7, Time: 5, Timestamp: 1},
		{Name: "BBB", Moves: 7, Time: 9, Timestamp: 2},
		{Name: "CCC", Moves: 9, Time: 3, Timestamp: 3},
	}
	require.NoError(t, s.WriteTopK(ctx, 3, list))
	require.NoError(t, s.WriteTopK(ctx, 4, list[:1]))

	got, err := s.FetchTopK(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, list, got)

	// 覆寫應整份取代
	require.NoError(t, s.WriteTopK(ctx, 3, list[2:]))
	got, err = s.FetchTopK(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, list[2:], got)

	boards, err := s.Boards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, boards)
}

func TestSwapDetectsConflict(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	a := []leaderboard.Entry{{Name: "AAA", Moves: 7, Time: 5, Timestamp: 1}}
	b := append(a, leaderboard.Entry{Name: "BBB", Moves: 8, Time: 1, Timestamp: 2})

	ok, err := s.SwapTopK(ctx, 3, nil, a)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SwapTopK(ctx, 3, nil, b)
	require.NoError(t, err)
	assert.False(t, ok, "stale old list must not swap")

	ok, err = s.SwapTopK(ctx, 3, a, b)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.FetchTopK(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "board.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteTopK(ctx, 5, []leaderboard.Entry{{Name: "ZED", Moves: 31, Time: 40, Timestamp: 9}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())
	got, err := s.FetchTopK(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ZED", got[0].Name)
}

func TestQualifierOverSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	q, err := leaderboard.NewQualifier(s, leaderboard.Options{})
	require.NoError(t, err)

	p, err := q.Submit(ctx, 3, "abc", 7, 12)
	require.NoError(t, err)
	assert.True(t, p.Survived)
	assert.Equal(t, 1, p.Rank)

	top, err := s.FetchTopK(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "ABC", top[0].Name)
}
