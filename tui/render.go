package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/hanoilab/catalog"
	"github.com/zintix-labs/hanoilab/puzzle"
)

type styles struct {
	disk     lipgloss.Style
	pole     lipgloss.Style
	base     lipgloss.Style
	selected lipgloss.Style
	text     lipgloss.Style
	accent   lipgloss.Style
	muted    lipgloss.Style
}

func newStyles(t catalog.Theme) styles {
	c := t.Colors
	return styles{
		disk:     lipgloss.NewStyle().Foreground(lipgloss.Color(c.Disk)),
		pole:     lipgloss.NewStyle().Foreground(lipgloss.Color(c.Pole)),
		base:     lipgloss.NewStyle().Foreground(lipgloss.Color(c.Base)),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color(c.Selected)).Bold(true),
		text:     lipgloss.NewStyle().Foreground(lipgloss.Color(c.Text)),
		accent:   lipgloss.NewStyle().Foreground(lipgloss.Color(c.Accent)).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(c.Text)).Faint(true),
	}
}

// diskBar 大小為 size 的圓盤（寬 2*size+1）
func diskBar(size int) string {
	return "<" + strings.Repeat("=", 2*size-1) + ">"
}

// center 以顯示寬度置中到 width
func center(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}

// renderTowers 由上而下畫出三根柱子；selected 為 -1 表示未選。
// 每根柱子的欄寬固定為最大圓盤寬度加兩格空白。
func renderTowers(towers [puzzle.Poles][]int, disks, selected int, st styles) string {
	col := 2*disks + 3
	height := disks + 1
	var b strings.Builder
	for row := height - 1; row >= 0; row-- {
		for p := range puzzle.Poles {
			stack := towers[p]
			var cell string
			style := st.pole
			if row < len(stack) {
				cell = diskBar(stack[row])
				style = st.disk
				if p == selected && row == len(stack)-1 {
					style = st.selected
				}
			} else {
				cell = "|"
			}
			b.WriteString(style.Render(center(cell, col)))
		}
		b.WriteByte('\n')
	}
	b.WriteString(st.base.Render(strings.Repeat("-", col*puzzle.Poles)))
	b.WriteByte('\n')
	for p := range puzzle.Poles {
		label := string(rune('1' + p))
		if p == selected {
			b.WriteString(st.selected.Render(center("["+label+"]", col)))
		} else {
			b.WriteString(st.text.Render(center(label, col)))
		}
	}
	return b.String()
}

func renderHelp(bs []key.Binding, st styles) string {
	parts := make([]string, 0, len(bs))
	for _, k := range bs {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return st.muted.Render(strings.Join(parts, " · "))
}
