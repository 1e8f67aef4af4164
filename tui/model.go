// Package tui 終端機版河內塔（bubbletea）。
//
// 遊戲狀態全部在 session.Controller；Model 只負責把按鍵轉成訊息並畫出快照。
// 排行榜查詢與提交經由 Controller 的 Begin/Apply：tea.Cmd（背景 goroutine）只執行
// 請求本身，結果回到 Update 再交給 Controller 寫回。
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/session"
	"github.com/zintix-labs/hanoilab/stats"
)

type mode uint8

const (
	modePlay mode = iota
	modeChecking
	modeName
	modeSubmitting
)

type (
	tickMsg    time.Time
	qualifyMsg struct {
		req session.CheckRequest
		q   leaderboard.Qualification
		err error
	}
	placedMsg struct {
		req session.SubmitRequest
		p   leaderboard.Placement
		err error
	}
)

type Options struct {
	// Disks 第一局的圓盤數；0 表示使用偏好
	Disks int
	// Timeout 每次排行榜請求的上限，預設 5 秒
	Timeout time.Duration
}

type Model struct {
	ctx     context.Context
	lab     *hanoilab.Lab
	ctl     *session.Controller
	keys    KeyMap
	st      styles
	timeout time.Duration

	mode   mode
	input  textinput.Model
	win    session.WinReport
	qual   leaderboard.Qualification
	placed *leaderboard.Placement
	notice string

	width, height int
}

func New(ctx context.Context, lab *hanoilab.Lab, opt Options) (Model, error) {
	ctl, err := lab.NewController(opt.Disks)
	if err != nil {
		return Model{}, err
	}
	ti := textinput.New()
	ti.Placeholder = "AAA"
	ti.CharLimit = 16
	ti.Width = 16
	ti.Prompt = "name: "

	m := Model{
		ctx:     ctx,
		lab:     lab,
		ctl:     ctl,
		keys:    Keys,
		st:      newStyles(lab.Prefs().Theme()),
		timeout: opt.Timeout,
		input:   ti,
	}
	if m.timeout <= 0 {
		m.timeout = 5 * time.Second
	}
	return m, nil
}

// Run 以全螢幕模式執行直到玩家離開或 ctx 結束。
func Run(ctx context.Context, lab *hanoilab.Lab, opt Options) error {
	m, err := New(ctx, lab, opt)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.ctl.Handle(m.ctx, session.Tick{Now: m.lab.Now()})
		return m, tick()

	case qualifyMsg:
		return m.onQualify(msg)

	case placedMsg:
		return m.onPlaced(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && (m.mode != modeName || msg.Type == tea.KeyCtrlC) {
			return m, tea.Quit
		}
		if m.mode == modeName {
			return m.updateName(msg)
		}
		return m.updatePlay(msg)
	}
	return m, nil
}

func (m Model) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	for i, b := range m.keys.Pole {
		if key.Matches(msg, b) {
			return m.selectPole(i)
		}
	}
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.ctl.Handle(m.ctx, session.Cancel{})
	case key.Matches(msg, m.keys.New):
		m.ctl.Handle(m.ctx, session.Restart{})
		m.resetWin()
	case key.Matches(msg, m.keys.More):
		m.ctl.Handle(m.ctx, session.AdjustDisks{Delta: 1})
	case key.Matches(msg, m.keys.Less):
		m.ctl.Handle(m.ctx, session.AdjustDisks{Delta: -1})
	case key.Matches(msg, m.keys.Scores):
		m.lab.Prefs().ToggleVisible(m.ctx)
	case key.Matches(msg, m.keys.Theme):
		m.st = newStyles(m.lab.Prefs().CycleTheme(m.ctx))
	}
	return m, nil
}

func (m Model) selectPole(pole int) (tea.Model, tea.Cmd) {
	ev := m.ctl.Handle(m.ctx, session.Select{Pole: pole})
	if ev.Kind != session.EvWon || ev.Win == nil {
		return m, nil
	}
	m.win = *ev.Win
	if m.lab.Board() == nil {
		return m, nil
	}
	req, err := m.ctl.BeginCheck()
	if err != nil {
		return m, nil
	}
	m.mode = modeChecking
	ctx, timeout := m.ctx, m.timeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		q, err := req.Run(ctx)
		return qualifyMsg{req: req, q: q, err: err}
	}
}

func (m Model) onQualify(msg qualifyMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeChecking {
		return m, nil
	}
	q, err := m.ctl.ApplyCheck(msg.req, msg.q, msg.err)
	if errors.Is(err, session.ErrStale) {
		return m, nil
	}
	m.mode = modePlay
	if msg.err != nil || err != nil {
		m.notice = "leaderboard unavailable"
		return m, nil
	}
	m.qual = q
	if !q.Qualifies {
		return m, nil
	}
	m.mode = modeName
	m.input.Reset()
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) updateName(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Skip):
		m.mode = modePlay
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		raw := m.input.Value()
		if leaderboard.SanitizeName(raw) == "" {
			m.notice = leaderboard.ErrEmptyName.Message
			return m, nil
		}
		req, err := m.ctl.BeginSubmit(raw)
		if err != nil {
			m.mode = modePlay
			m.input.Blur()
			m.notice = noticeOf(err)
			return m, nil
		}
		m.mode = modeSubmitting
		m.input.Blur()
		ctx, timeout := m.ctx, m.timeout
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			p, err := req.Run(ctx)
			return placedMsg{req: req, p: p, err: err}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) onPlaced(msg placedMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeSubmitting {
		return m, nil
	}
	p, err := m.ctl.ApplySubmit(msg.req, msg.p, msg.err)
	switch {
	case errors.Is(err, session.ErrStale):
		return m, nil
	case err != nil:
		m.lab.Log().Warn("leaderboard submit failed", "err", err)
		// 提交失敗可以重試
		m.mode = modeName
		m.notice = "submit failed: leaderboard unavailable"
		cmd := m.input.Focus()
		return m, cmd
	}
	m.mode = modePlay
	m.placed = &p
	if p.Survived {
		m.notice = fmt.Sprintf("%s placed #%d", p.Name, p.Rank)
	} else {
		m.notice = "pushed off the board by a faster run"
	}
	return m, nil
}

func noticeOf(err error) string {
	if e, ok := errs.AsErr(err); ok {
		return e.Message
	}
	return err.Error()
}

func (m *Model) resetWin() {
	m.mode = modePlay
	m.win = session.WinReport{}
	m.qual = leaderboard.Qualification{}
	m.placed = nil
	m.notice = ""
}

func (m Model) View() string {
	s := m.ctl.Snapshot()
	var b strings.Builder

	b.WriteString(m.st.accent.Render("TOWERS OF HANOI"))
	b.WriteString(m.st.muted.Render(fmt.Sprintf("  theme: %s", m.lab.Prefs().Theme().Name)))
	b.WriteString("\n\n")
	b.WriteString(renderTowers(s.Towers, s.Disks, s.Selected, m.st))
	b.WriteString("\n\n")

	status := fmt.Sprintf("disks %d   moves %d / %d   time %s", s.Disks, s.Moves, s.Minimal, stats.FormatSeconds(s.Elapsed))
	if s.Desired != s.Disks {
		status += fmt.Sprintf("   next game: %d disks", s.Desired)
	}
	b.WriteString(m.st.text.Render(status))
	b.WriteString("\n")

	if s.Message != "" {
		b.WriteString(m.st.accent.Render(s.Message))
		b.WriteString("\n")
	}
	switch m.mode {
	case modeChecking:
		b.WriteString(m.st.muted.Render("checking leaderboard..."))
		b.WriteString("\n")
	case modeName:
		b.WriteString(m.st.accent.Render(fmt.Sprintf("You made the top %d! Rank #%d", leaderboard.K, m.qual.Rank)))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case modeSubmitting:
		b.WriteString(m.st.muted.Render("submitting..."))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.st.text.Render(m.notice))
		b.WriteString("\n")
	}

	if m.lab.Prefs().Values().ScoresVisible {
		b.WriteString("\n")
		b.WriteString(stats.LedgerTable(m.lab.Ledger().Snapshot()))
	}

	b.WriteString("\n")
	if m.mode == modeName {
		b.WriteString(renderHelp(m.keys.nameHelp(), m.st))
	} else {
		b.WriteString(renderHelp(m.keys.playHelp(), m.st))
	}

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
	}
	return b.String()
}
