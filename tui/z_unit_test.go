package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/catalog"
	"github.com/zintix-labs/hanoilab/puzzle"
	"github.com/zintix-labs/hanoilab/storage/memrank"
)

// 3 disks, poles as keys 1..3
var solve3 = []string{"1", "3", "1", "2", "3", "2", "1", "3", "2", "1", "2", "3", "1", "3"}

func newModel(t *testing.T, withBoard bool) (Model, *memrank.Store) {
	t.Helper()
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	opt := hanoilab.Options{Now: func() time.Time { return now }}
	var board *memrank.Store
	if withBoard {
		board = memrank.New()
		opt.Board = board
	}
	lab, err := hanoilab.New(context.Background(), opt)
	require.NoError(t, err)
	m, err := New(context.Background(), lab, Options{})
	require.NoError(t, err)
	return m, board
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send 送出訊息並同步執行回傳的 cmd（只追一層，足夠測排行榜流程）
func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = send(t, m, runes(k))
	}
	return m, cmd
}

func TestSolveWithoutBoard(t *testing.T) {
	m, _ := newModel(t, false)
	m, cmd := press(t, m, solve3...)
	assert.Nil(t, cmd)
	assert.Equal(t, modePlay, m.mode)
	assert.Equal(t, "PERFECT", m.win.Category)
	assert.Contains(t, m.View(), "PERFECT")

	rec, ok := m.lab.Ledger().Best(3)
	require.True(t, ok)
	assert.Equal(t, 7, rec.Moves)
}

func TestLeaderboardFlow(t *testing.T) {
	m, board := newModel(t, true)
	m, cmd := press(t, m, solve3...)
	require.NotNil(t, cmd)
	assert.Equal(t, modeChecking, m.mode)
	assert.Contains(t, m.View(), "checking leaderboard")

	m, _ = send(t, m, cmd())
	require.Equal(t, modeName, m.mode)
	assert.Equal(t, 1, m.qual.Rank)
	assert.Contains(t, m.View(), "Rank #1")

	// q types into the input instead of quitting
	m, _ = send(t, m, runes("!!"))
	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, modeName, m.mode)
	assert.Equal(t, "Invalid name", m.notice)

	m.input.Reset()
	m, _ = send(t, m, runes("qed"))
	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, modeSubmitting, m.mode)

	m, _ = send(t, m, cmd())
	assert.Equal(t, modePlay, m.mode)
	require.NotNil(t, m.placed)
	assert.Equal(t, "QED", m.placed.Name)
	assert.Contains(t, m.View(), "QED placed #1")

	got, err := board.FetchTopK(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "QED", got[0].Name)
}

func TestSubmitGoesThroughController(t *testing.T) {
	m, board := newModel(t, true)
	m, cmd := press(t, m, solve3...)
	m, _ = send(t, m, cmd())
	m, _ = send(t, m, runes("ann"))
	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = send(t, m, cmd())
	require.NotNil(t, m.placed)

	// reopening the prompt after a placement must not write a second entry
	m.mode = modeName
	m.input.SetValue("bob")
	m, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, modePlay, m.mode)
	assert.Equal(t, "score already submitted", m.notice)

	got, err := board.FetchTopK(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ANN", got[0].Name)
}

func TestSkipName(t *testing.T) {
	m, board := newModel(t, true)
	m, cmd := press(t, m, solve3...)
	m, _ = send(t, m, cmd())
	require.Equal(t, modeName, m.mode)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modePlay, m.mode)
	got, _ := board.FetchTopK(context.Background(), 3)
	assert.Empty(t, got)
}

func TestRestartDropsPendingCheck(t *testing.T) {
	m, _ := newModel(t, true)
	m, cmd := press(t, m, solve3...)
	m, _ = press(t, m, "n")
	m, _ = send(t, m, cmd())
	assert.Equal(t, modePlay, m.mode, "stale qualification is ignored")
	assert.Equal(t, 0, m.ctl.Snapshot().Moves)
}

func TestPlayKeys(t *testing.T) {
	m, _ := newModel(t, false)

	m, _ = press(t, m, "a")
	assert.Equal(t, 0, m.ctl.Snapshot().Selected)
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, -1, m.ctl.Snapshot().Selected)

	m, _ = press(t, m, "+")
	assert.Contains(t, m.View(), "next game: 4 disks")
	m, _ = press(t, m, "n")
	assert.Equal(t, 4, m.ctl.Snapshot().Disks)
	m, _ = press(t, m, "-", "-", "-")
	assert.Equal(t, puzzle.MinDisks, m.ctl.Snapshot().Desired)

	visible := m.lab.Prefs().Values().ScoresVisible
	m, _ = press(t, m, "h")
	assert.Equal(t, !visible, m.lab.Prefs().Values().ScoresVisible)

	m, _ = press(t, m, "t")
	assert.Equal(t, "ocean", m.lab.Prefs().Values().Theme)
	assert.Contains(t, m.View(), "Ocean")

	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
}

func TestRejectedMoveShowsMessage(t *testing.T) {
	m, _ := newModel(t, false)
	m, _ = press(t, m, "2")
	assert.NotEmpty(t, m.ctl.Snapshot().Message)
	assert.Contains(t, m.View(), m.ctl.Snapshot().Message)
}

func TestRenderTowers(t *testing.T) {
	st := newStyles(catalog.Theme{})
	p, err := puzzle.New(3)
	require.NoError(t, err)

	out := renderTowers(p.Towers(), 3, -1, st)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3+1+2)
	for _, l := range lines {
		assert.Equal(t, (2*3+3)*3, runewidth.StringWidth(stripANSI(l)), l)
	}
	assert.Contains(t, out, "<=>")
	assert.Contains(t, out, "<=====>")

	out = renderTowers(p.Towers(), 3, 0, st)
	assert.Contains(t, out, "[1]")
}

func TestCenter(t *testing.T) {
	assert.Equal(t, " ab  ", center("ab", 5))
	assert.Equal(t, "toolong", center("toolong", 3))
	assert.Equal(t, " 河 ", center("河", 4))
}

func stripANSI(s string) string {
	var b strings.Builder
	skip := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			skip = true
		case skip && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			skip = false
		case !skip:
			b.WriteRune(r)
		}
	}
	return b.String()
}
