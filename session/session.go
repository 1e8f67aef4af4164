// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session 串起一局遊戲：輸入 → 驗證 → 狀態機 → 勝利結算 → 排行榜。
//
// Controller 本身不做同步，一個 Controller 同時只應被一個 goroutine 驅動
// （TUI 的 Update 迴圈，或 SessionRuntime 持有的 per-session 鎖）。
// 沒有任何套件層級狀態，多個 Controller 可以並存。
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/ledger"
	"github.com/zintix-labs/hanoilab/metrics"
	"github.com/zintix-labs/hanoilab/prefs"
	"github.com/zintix-labs/hanoilab/puzzle"
)

var (
	ErrNoWin        = errs.NewWarn("no completed game")
	ErrNotQualified = errs.NewWarn("no qualifying win to submit")
	ErrSubmitted    = errs.NewWarn("score already submitted")
	ErrStale        = errs.NewWarn("game changed before the leaderboard answered")
)

// NamePrompter 在入榜時向玩家詢問名稱；ok=false 代表玩家取消（不提交、無副作用）。
type NamePrompter interface {
	PromptName(ctx context.Context, win WinReport, q leaderboard.Qualification) (name string, ok bool, err error)
}

// PromptFunc 讓一般函數滿足 NamePrompter。
type PromptFunc func(ctx context.Context, win WinReport, q leaderboard.Qualification) (string, bool, error)

func (f PromptFunc) PromptName(ctx context.Context, win WinReport, q leaderboard.Qualification) (string, bool, error) {
	return f(ctx, win, q)
}

// Config 建立 Controller 所需的依賴；Ledger 必填，其餘可省略。
type Config struct {
	Ledger *ledger.Ledger
	// Board 為 nil 時不進行排行榜流程
	Board *leaderboard.Qualifier
	// Prefs 為 nil 時下一局圓盤數只存在本 Controller
	Prefs *prefs.Prefs
	// Disks 第一局的圓盤數；0 表示使用偏好
	Disks   int
	Now     func() time.Time
	Log     *slog.Logger
	Metrics metrics.Recorder
}

type Controller struct {
	p       *puzzle.Puzzle
	ledger  *ledger.Ledger
	board   *leaderboard.Qualifier
	prefs   *prefs.Prefs
	desired int

	now func() time.Time
	log *slog.Logger
	rec metrics.Recorder

	start   time.Time
	elapsed int
	message string

	win    *WinReport
	qual   *leaderboard.Qualification
	placed *leaderboard.Placement
}

func New(cfg Config) (*Controller, error) {
	if cfg.Ledger == nil {
		return nil, errs.NewFatal("session requires a ledger")
	}
	c := &Controller{
		ledger: cfg.Ledger,
		board:  cfg.Board,
		prefs:  cfg.Prefs,
		now:    cfg.Now,
		log:    cfg.Log,
		rec:    metrics.OrNop(cfg.Metrics),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	c.desired = puzzle.MinDisks
	if c.prefs != nil {
		c.desired = c.prefs.Disks()
	}
	disks := cfg.Disks
	if disks == 0 {
		disks = c.desired
	}
	p, err := puzzle.New(disks)
	if err != nil {
		return nil, err
	}
	c.p = p
	return c, nil
}

// Handle 處理一個輸入訊息。非法移動不會回傳 error，而是 EvRejected 事件（本地復原）。
func (c *Controller) Handle(ctx context.Context, msg Msg) Event {
	switch m := msg.(type) {
	case Select:
		return c.selectPole(ctx, m.Pole)
	case Cancel:
		if c.p.Cancel() {
			c.message = ""
			return c.event(EvCancelled)
		}
		return c.event(EvIgnored)
	case Restart:
		return c.restart()
	case Tick:
		if c.p.Started() && !c.p.Won() {
			c.elapsed = seconds(c.start, m.Now)
			return c.event(EvTicked)
		}
		return c.event(EvIgnored)
	case AdjustDisks:
		return c.adjust(ctx, m.Delta)
	default:
		return c.event(EvIgnored)
	}
}

func (c *Controller) selectPole(ctx context.Context, pole int) Event {
	res, err := c.p.Select(pole)
	if err != nil {
		c.rec.Rejected(rejectReason(err))
		c.message = messageOf(err)
		ev := c.event(EvRejected)
		ev.Result, ev.Err = res, err
		return ev
	}
	if res.StartedClock {
		c.start = c.now()
	}
	var ev Event
	switch res.Outcome {
	case puzzle.Selected:
		c.message = ""
		ev = c.event(EvSelected)
	case puzzle.Cancelled:
		c.message = ""
		ev = c.event(EvCancelled)
	case puzzle.Moved:
		c.rec.Move()
		c.message = ""
		ev = c.event(EvMoved)
	case puzzle.Solved:
		c.rec.Move()
		c.settle(ctx)
		ev = c.event(EvWon)
	default:
		ev = c.event(EvIgnored)
	}
	ev.Result = res
	return ev
}

// settle 勝利結算：計算秒數、寫入帳本、決定訊息。
func (c *Controller) settle(ctx context.Context) {
	secs := seconds(c.start, c.now())
	c.elapsed = secs
	disks, moves := c.p.Disks(), c.p.Moves()
	perfect := moves == puzzle.MinimalMoves(disks)

	rt, err := c.ledger.RecordOutcome(ctx, disks, moves, secs)
	if err != nil {
		// 狀態機保證 moves ≥ 最少步數，走到這裡代表內部不一致
		c.log.Error("record outcome failed", slog.Any("err", err))
	}
	best, _ := c.ledger.Best(disks)
	c.win = &WinReport{
		Disks:    disks,
		Moves:    moves,
		Seconds:  secs,
		Record:   rt,
		Perfect:  perfect,
		Category: Category(rt, perfect),
		Best:     best,
	}
	c.message = c.win.Category
	c.rec.Win(disks, rt.String())
	c.log.Info("puzzle solved",
		slog.Int("disks", disks), slog.Int("moves", moves), slog.Int("seconds", secs),
		slog.String("record", rt.String()))
}

func (c *Controller) restart() Event {
	p, err := puzzle.New(c.desired)
	if err != nil {
		c.log.Error("restart failed", slog.Int("disks", c.desired), slog.Any("err", err))
		return c.event(EvIgnored)
	}
	c.p = p
	c.start = time.Time{}
	c.elapsed = 0
	c.message = ""
	c.win, c.qual, c.placed = nil, nil, nil
	return c.event(EvRestarted)
}

func (c *Controller) adjust(ctx context.Context, delta int) Event {
	if delta == 0 {
		return c.event(EvIgnored)
	}
	prev := c.desired
	if c.prefs != nil {
		c.desired = c.prefs.AdjustDisks(ctx, delta)
	} else {
		c.desired = min(max(c.desired+delta, puzzle.MinDisks), puzzle.MaxDisks)
	}
	if c.desired == prev {
		return c.event(EvIgnored)
	}
	return c.event(EvDisksChanged)
}

// Finish 完整的勝利後流程：查詢 → 詢問名稱 → 提交。
// 不入榜或玩家取消時回傳 nil, nil。
func (c *Controller) Finish(ctx context.Context, prompt NamePrompter) (*leaderboard.Placement, error) {
	q, err := c.CheckLeaderboard(ctx)
	if err != nil || !q.Qualifies {
		return nil, err
	}
	if prompt == nil {
		return nil, nil
	}
	for {
		name, ok, err := prompt.PromptName(ctx, *c.win, q)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		p, err := c.SubmitName(ctx, name)
		if errors.Is(err, leaderboard.ErrEmptyName) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &p, nil
	}
}

// Snapshot 目前狀態的拷貝。
func (c *Controller) Snapshot() Snapshot {
	sel, ok := c.p.Selected()
	if !ok {
		sel = -1
	}
	s := Snapshot{
		Disks:    c.p.Disks(),
		Towers:   c.p.Towers(),
		Selected: sel,
		Moves:    c.p.Moves(),
		Minimal:  puzzle.MinimalMoves(c.p.Disks()),
		Phase:    c.p.Phase(),
		Started:  c.p.Started(),
		Elapsed:  c.elapsed,
		Desired:  c.desired,
		Message:  c.message,
	}
	if c.win != nil {
		w := *c.win
		s.Win = &w
	}
	if c.qual != nil {
		q := *c.qual
		s.Qualify = &q
	}
	if c.placed != nil {
		p := *c.placed
		s.Placed = &p
	}
	return s
}

// Puzzle 只供測試與除錯端點檢查不變量。
func (c *Controller) Puzzle() *puzzle.Puzzle { return c.p }

func (c *Controller) Win() (WinReport, bool) {
	if c.win == nil {
		return WinReport{}, false
	}
	return *c.win, true
}

func (c *Controller) event(k EventKind) Event {
	ev := Event{Kind: k, Elapsed: c.elapsed, Desired: c.desired}
	if c.win != nil {
		w := *c.win
		ev.Win = &w
	}
	return ev
}

// seconds 經過的整數秒（無條件捨去）；時鐘倒退時為 0。
func seconds(start, now time.Time) int {
	if start.IsZero() {
		return 0
	}
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, puzzle.ErrEmptySource):
		return "empty_source"
	case errors.Is(err, puzzle.ErrSizeViolation):
		return "size_violation"
	case errors.Is(err, puzzle.ErrBadPole):
		return "bad_pole"
	default:
		return "other"
	}
}

func messageOf(err error) string {
	if e, ok := errs.AsErr(err); ok {
		return e.Message
	}
	return err.Error()
}

func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
