package hanoilab

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/hanoilab/config"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/metrics"
	"github.com/zintix-labs/hanoilab/session"
	"github.com/zintix-labs/hanoilab/storage"
	"github.com/zintix-labs/hanoilab/storage/httprank"
	"github.com/zintix-labs/hanoilab/storage/memrank"
	"github.com/zintix-labs/hanoilab/storage/sqliterank"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLab(t *testing.T, opt Options) (*Lab, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	if opt.Now == nil {
		opt.Now = clk.Now
	}
	lab, err := New(context.Background(), opt)
	require.NoError(t, err)
	return lab, clk
}

func TestNewDefaults(t *testing.T) {
	lab, _ := newLab(t, Options{})
	assert.Nil(t, lab.Board())
	assert.Nil(t, lab.Store())
	assert.Equal(t, "classic", lab.Themes().Default().ID)
	assert.Equal(t, 3, lab.Prefs().Disks())
	assert.Empty(t, lab.Ledger().Snapshot())

	ctl, err := lab.NewController(0)
	require.NoError(t, err)
	assert.Equal(t, 3, ctl.Snapshot().Disks)
}

func TestNewWithBoard(t *testing.T) {
	board := memrank.New()
	lab, _ := newLab(t, Options{Board: board, Retries: 2})
	require.NotNil(t, lab.Board())
	assert.Same(t, board, lab.Store())
}

func TestNewLoadsStoredState(t *testing.T) {
	kv := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, storage.KeyDisks, "5"))
	require.NoError(t, kv.Set(ctx, storage.KeyHighScores, `{"5":{"moves":31,"time":40}}`))

	lab, _ := newLab(t, Options{KV: kv})
	assert.Equal(t, 5, lab.Prefs().Disks())
	best, ok := lab.Ledger().Best(5)
	require.True(t, ok)
	assert.Equal(t, 31, best.Moves)
}

func TestNewRejectsEmptyThemes(t *testing.T) {
	_, err := New(context.Background(), Options{Themes: Themes(fstest.MapFS{})})
	require.Error(t, err)
}

func TestRuntimeCreateAndDo(t *testing.T) {
	lab, _ := newLab(t, Options{})
	rt := lab.NewRuntime(RuntimeOptions{})
	defer rt.Close()

	id, snap, err := rt.Create(4)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, 4, snap.Disks)
	assert.Equal(t, 1, rt.Len())

	err = rt.Do(context.Background(), id, func(c *session.Controller) error {
		ev := c.Handle(context.Background(), session.Select{Pole: 0})
		assert.Equal(t, session.EvSelected, ev.Kind)
		return nil
	})
	require.NoError(t, err)

	err = rt.Do(context.Background(), "missing", func(*session.Controller) error { return nil })
	assert.True(t, errs.IsKind(err, errs.NotFound))

	sentinel := errors.New("boom")
	err = rt.Do(context.Background(), id, func(*session.Controller) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	assert.True(t, rt.Delete(id))
	assert.False(t, rt.Delete(id))
	assert.Equal(t, 0, rt.Len())
}

func TestRuntimeRejectsBadDisks(t *testing.T) {
	lab, _ := newLab(t, Options{})
	rt := lab.NewRuntime(RuntimeOptions{})
	_, _, err := rt.Create(11)
	require.Error(t, err)
	assert.Equal(t, 0, rt.Len())
}

func TestRuntimeEvictsLeastRecentlyUsed(t *testing.T) {
	lab, _ := newLab(t, Options{})
	rt := lab.NewRuntime(RuntimeOptions{Max: 2})

	a, _, err := rt.Create(3)
	require.NoError(t, err)
	b, _, err := rt.Create(3)
	require.NoError(t, err)

	// touch a so b becomes the oldest
	require.NoError(t, rt.Do(context.Background(), a, func(*session.Controller) error { return nil }))

	c, _, err := rt.Create(3)
	require.NoError(t, err)
	assert.Equal(t, 2, rt.Len())

	noop := func(*session.Controller) error { return nil }
	assert.NoError(t, rt.Do(context.Background(), a, noop))
	assert.NoError(t, rt.Do(context.Background(), c, noop))
	assert.True(t, errs.IsKind(rt.Do(context.Background(), b, noop), errs.NotFound))
}

func TestRuntimeSweep(t *testing.T) {
	lab, clk := newLab(t, Options{})
	rt := lab.NewRuntime(RuntimeOptions{IdleTTL: time.Minute})
	noop := func(*session.Controller) error { return nil }

	old, _, err := rt.Create(3)
	require.NoError(t, err)
	clk.Add(50 * time.Second)
	fresh, _, err := rt.Create(3)
	require.NoError(t, err)

	clk.Add(30 * time.Second)
	assert.Equal(t, 1, rt.Sweep(clk.Now()))
	assert.True(t, errs.IsKind(rt.Do(context.Background(), old, noop), errs.NotFound))
	assert.NoError(t, rt.Do(context.Background(), fresh, noop))

	// the Do above refreshed fresh
	clk.Add(59 * time.Second)
	assert.Equal(t, 0, rt.Sweep(clk.Now()))
}

func TestRuntimeSweepDisabled(t *testing.T) {
	lab, clk := newLab(t, Options{})
	rt := lab.NewRuntime(RuntimeOptions{})
	_, _, err := rt.Create(3)
	require.NoError(t, err)
	clk.Add(24 * time.Hour)
	assert.Equal(t, 0, rt.Sweep(clk.Now()))
}

func TestRuntimeClose(t *testing.T) {
	lab, _ := newLab(t, Options{})
	rt := lab.NewRuntime(RuntimeOptions{IdleTTL: time.Minute})
	id, _, err := rt.Create(3)
	require.NoError(t, err)

	ran := make(chan error, 1)
	go func() { ran <- rt.Run() }()

	rt.Close()
	rt.Close()
	assert.True(t, rt.Closed())
	assert.Equal(t, "closed", rt.ClosedReason())

	select {
	case err := <-ran:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	err = rt.Do(context.Background(), id, func(*session.Controller) error { return nil })
	e, ok := errs.AsErr(err)
	require.True(t, ok)
	assert.Equal(t, errs.Fatal, e.ErrLv)

	_, _, err = rt.Create(3)
	require.Error(t, err)
}

func TestRuntimeShutdownClears(t *testing.T) {
	lab, _ := newLab(t, Options{})
	rt := lab.NewRuntime(RuntimeOptions{})
	_, _, err := rt.Create(3)
	require.NoError(t, err)

	require.NoError(t, rt.Shutdown(context.Background()))
	assert.Equal(t, 0, rt.Len())
	assert.Equal(t, "shutdown", rt.ClosedReason())
}

func TestRuntimeCanceledContext(t *testing.T) {
	lab, _ := newLab(t, Options{})
	rt := lab.NewRuntime(RuntimeOptions{})
	id, _, err := rt.Create(3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = rt.Do(ctx, id, func(*session.Controller) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuntimeConcurrentDo(t *testing.T) {
	lab, _ := newLab(t, Options{})
	rt := lab.NewRuntime(RuntimeOptions{})
	id, _, err := rt.Create(3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(pole int) {
			defer wg.Done()
			_ = rt.Do(context.Background(), id, func(c *session.Controller) error {
				c.Handle(context.Background(), session.Select{Pole: pole})
				return nil
			})
		}(i % 3)
	}
	wg.Wait()

	require.NoError(t, rt.Do(context.Background(), id, func(c *session.Controller) error {
		return c.Puzzle().Check()
	}))
}

func TestOpenStoresMemory(t *testing.T) {
	cfg, err := config.Load("", func(c *config.Config) {
		c.KV.InMemory = true
		c.Leaderboard.Driver = config.DriverMemory
	})
	require.NoError(t, err)

	st := OpenStores(cfg, nil, nil)
	defer st.Close()
	assert.False(t, st.Degraded)
	assert.IsType(t, &storage.Memory{}, st.KV)
	assert.IsType(t, &memrank.Store{}, st.Board)
}

func TestOpenStoresPersistent(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load("", func(c *config.Config) { c.DataDir = dir })
	require.NoError(t, err)

	st := OpenStores(cfg, nil, nil)
	assert.False(t, st.Degraded)
	assert.IsType(t, &sqliterank.Store{}, st.Board)

	lab, err := New(context.Background(), Options{KV: st.KV, Board: st.Board})
	require.NoError(t, err)
	ctl, err := lab.NewController(3)
	require.NoError(t, err)
	for _, p := range []int{0, 2, 0, 1, 2, 1, 0, 2, 1, 0, 1, 2, 0, 2} {
		ctl.Handle(context.Background(), session.Select{Pole: p})
	}
	_, won := ctl.Win()
	require.True(t, won)
	require.NoError(t, st.Close())

	// 重新開啟後成績仍在
	st = OpenStores(cfg, nil, nil)
	defer st.Close()
	lab, err = New(context.Background(), Options{KV: st.KV})
	require.NoError(t, err)
	rec, ok := lab.Ledger().Best(3)
	require.True(t, ok)
	assert.Equal(t, 7, rec.Moves)
}

type persistCounter struct {
	metrics.Nop
	ops []string
}

func (p *persistCounter) PersistenceError(op string) { p.ops = append(p.ops, op) }

func TestOpenStoresDataDirLocked(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load("", func(c *config.Config) { c.DataDir = dir })
	require.NoError(t, err)

	first := OpenStores(cfg, nil, nil)
	defer first.Close()
	require.False(t, first.Degraded)

	// 第二個程序打開同一個目錄：badger 目錄鎖被佔用，退回記憶體 KV
	rec := &persistCounter{}
	second := OpenStores(cfg, nil, rec)
	defer second.Close()
	assert.True(t, second.Degraded)
	assert.IsType(t, &storage.Memory{}, second.KV)
	assert.Equal(t, []string{"open"}, rec.ops)
	assert.NotNil(t, second.Board)

	lab, err := New(context.Background(), Options{KV: second.KV, KVDegraded: second.Degraded, Board: second.Board})
	require.NoError(t, err)
	assert.True(t, lab.Ledger().Degraded())
	assert.True(t, lab.Prefs().Degraded())

	// 降級後仍可正常遊戲與記錄
	ctl, err := lab.NewController(3)
	require.NoError(t, err)
	for _, p := range []int{0, 2, 0, 1, 2, 1, 0, 2, 1, 0, 1, 2, 0, 2} {
		ctl.Handle(context.Background(), session.Select{Pole: p})
	}
	rec3, ok := lab.Ledger().Best(3)
	require.True(t, ok)
	assert.Equal(t, 7, rec3.Moves)
}

func TestOpenStoresBoardUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg, err := config.Load("", func(c *config.Config) {
		c.KV.InMemory = true
		c.Leaderboard.Driver = config.DriverSQLite
		c.Leaderboard.DSN = filepath.Join(blocker, "leaderboard.db")
	})
	require.NoError(t, err)

	st := OpenStores(cfg, nil, nil)
	defer st.Close()
	assert.Nil(t, st.Board)
	assert.False(t, st.Degraded)

	lab, err := New(context.Background(), Options{KV: st.KV, Board: st.Board})
	require.NoError(t, err)
	assert.Nil(t, lab.Board())
}

func TestOpenBoardRemote(t *testing.T) {
	b, closer, err := OpenBoard(config.LeaderboardConfig{Driver: config.DriverRemote, URL: "http://board.local:8080"})
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.IsType(t, &httprank.Client{}, b)

	_, _, err = OpenBoard(config.LeaderboardConfig{Driver: config.DriverRemote, URL: "not a url"})
	assert.Error(t, err)
}
