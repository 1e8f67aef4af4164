package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/storage/memrank"
)

// execute 執行一次指令；旗標變數是全域的，每次先重設。
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	clearYes, showFormat, copyTo, copyMerge = false, "table", "", false
	cfgPath, dataDir, inMemory, boardDriver, boardURL = "", "", false, "", ""

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestParseDisks(t *testing.T) {
	n, err := parseDisks("7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	for _, bad := range []string{"2", "11", "x", ""} {
		_, err := parseDisks(bad)
		assert.Error(t, err, bad)
	}
}

func TestScoresRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"3":{"moves":7,"time":12},"5":{"moves":40,"time":90}}`), 0o600))

	out, err := execute(t, "--data-dir", dir, "--board", "memory", "scores", "import", in)
	require.NoError(t, err)
	assert.Contains(t, out, "2 record(s) improved")

	out, err = execute(t, "--data-dir", dir, "--board", "memory", "scores", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Best Scores")
	assert.Contains(t, out, "7 *")

	exported := filepath.Join(dir, "out.json")
	_, err = execute(t, "--data-dir", dir, "--board", "memory", "scores", "export", exported)
	require.NoError(t, err)
	raw, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"version": 1`)

	// 重複匯入相同內容不算改善
	out, err = execute(t, "--data-dir", dir, "--board", "memory", "scores", "import", exported)
	require.NoError(t, err)
	assert.Contains(t, out, "0 record(s) improved")

	_, err = execute(t, "--data-dir", dir, "--board", "memory", "scores", "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err = execute(t, "--data-dir", dir, "--board", "memory", "scores", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "scores cleared")

	out, err = execute(t, "--data-dir", dir, "--board", "memory", "scores", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "7 *")
}

func TestScoresImportRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"3":{"moves":2,"time":1}}`), 0o600))
	_, err := execute(t, "--in-memory", "--board", "memory", "scores", "import", in)
	assert.Error(t, err)
}

func TestLeaderboardShow(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "--data-dir", dir, "leaderboard", "show", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Leaderboard 4 disks")

	out, err = execute(t, "--data-dir", dir, "leaderboard", "show", "4", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Entries":0`)

	_, err = execute(t, "--data-dir", dir, "leaderboard", "show", "12")
	assert.Error(t, err)
	_, err = execute(t, "--data-dir", dir, "leaderboard", "show", "4", "--format", "xml")
	assert.Error(t, err)
}

func TestCopyBoards(t *testing.T) {
	ctx := context.Background()
	srcStore := memrank.New()
	require.NoError(t, srcStore.WriteTopK(ctx, 3, []leaderboard.Entry{
		{Name: "AAA", Moves: 7, Time: 5, Timestamp: 1},
		{Name: "BBB", Moves: 9, Time: 5, Timestamp: 2},
	}))
	require.NoError(t, srcStore.WriteTopK(ctx, 6, []leaderboard.Entry{{Name: "CCC", Moves: 63, Time: 80, Timestamp: 3}}))
	src, err := leaderboard.NewQualifier(srcStore, leaderboard.Options{})
	require.NoError(t, err)

	dst := memrank.New()
	existing := leaderboard.Entry{Name: "ZZZ", Moves: 8, Time: 1, Timestamp: 4}
	require.NoError(t, dst.WriteTopK(ctx, 3, []leaderboard.Entry{existing}))

	n, err := copyBoards(ctx, src, dst, true, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, _ := dst.FetchTopK(ctx, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"AAA", "ZZZ", "BBB"}, []string{got[0].Name, got[1].Name, got[2].Name})

	n, err = copyBoards(ctx, src, dst, false, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got, _ = dst.FetchTopK(ctx, 3)
	assert.Len(t, got, 2, "replace drops destination-only entries")
	got, _ = dst.FetchTopK(ctx, 6)
	assert.Len(t, got, 1)
}
