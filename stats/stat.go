package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/ledger"
	"github.com/zintix-labs/hanoilab/puzzle"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo" yaml:"Lo"`
	Hi float64 `json:"Hi" yaml:"Hi"`
}

// BoardReport 單一圓盤數排行榜的統計
type BoardReport struct {
	Disks       int       `json:"Disks" yaml:"Disks"`
	Entries     int       `json:"Entries" yaml:"Entries"`
	Minimal     int       `json:"Minimal" yaml:"Minimal"`
	BestMoves   int       `json:"BestMoves" yaml:"BestMoves"`
	BestTime    int       `json:"BestTime" yaml:"BestTime"`
	MeanMoves   float64   `json:"MeanMoves" yaml:"MeanMoves"`
	MeanTime    float64   `json:"MeanTime" yaml:"MeanTime"`
	StdTime     float64   `json:"StdTime" yaml:"StdTime"`
	MedianTime  float64   `json:"MedianTime" yaml:"MedianTime"`
	P90Time     float64   `json:"P90Time" yaml:"P90Time"`
	Efficiency  float64   `json:"Efficiency" yaml:"Efficiency"` // 最少步數 / 平均步數
	Perfect     int       `json:"Perfect" yaml:"Perfect"`
	PerfectRate PointStat `json:"PerfectRate" yaml:"PerfectRate"` // 最少步數完成的比例（95% Clopper-Pearson）
	TimeBucket  []string  `json:"TimeBucket" yaml:"TimeBucket"`
	TimeCollect []int     `json:"TimeCollect" yaml:"TimeCollect"`
}

// Summarize 計算一份排行榜的統計；空名單只填 Disks / Minimal。
func Summarize(disks int, list []leaderboard.Entry) *BoardReport {
	r := &BoardReport{
		Disks:      disks,
		Entries:    len(list),
		Minimal:    puzzle.MinimalMoves(disks),
		TimeBucket: Buckets.Labels(),
	}
	r.TimeCollect = make([]int, len(r.TimeBucket))
	if len(list) == 0 {
		return r
	}
	moves := make([]float64, len(list))
	times := make([]float64, len(list))
	r.BestMoves, r.BestTime = list[0].Moves, list[0].Time
	for i, e := range list {
		moves[i] = float64(e.Moves)
		times[i] = float64(e.Time)
		if e.Moves == r.Minimal {
			r.Perfect++
		}
		r.TimeCollect[Buckets.Index(e.Time)]++
	}
	r.MeanMoves = stat.Mean(moves, nil)
	r.MeanTime, r.StdTime = stat.MeanStdDev(times, nil)
	if math.IsNaN(r.StdTime) {
		r.StdTime = 0
	}
	r.MedianTime = quantilePoint(times, 0.5)
	r.P90Time = quantilePoint(times, 0.9)
	if r.MeanMoves > 0 {
		r.Efficiency = float64(r.Minimal) / r.MeanMoves
	}
	hat, ci := proportionCICP(r.Perfect, len(list), 0.95)
	r.PerfectRate = PointStat{Hat: hat, CI: ci}
	return r
}

func (r *BoardReport) WriteWith(w io.Writer, rep Render[BoardReport]) error {
	return rep.Write(w, r)
}

// Table 文字表格形式
func (r *BoardReport) Table() string {
	p := message.NewPrinter(lang)
	m := map[string]string{
		"Disks":        p.Sprintf("%d", r.Disks),
		"Entries":      p.Sprintf("%d", r.Entries),
		"Minimal":      p.Sprintf("%d", r.Minimal),
		"Best":         p.Sprintf("%d moves / %s", r.BestMoves, FormatSeconds(r.BestTime)),
		"Mean Moves":   p.Sprintf("%.2f", r.MeanMoves),
		"Mean Time":    p.Sprintf("%.2f s", r.MeanTime),
		"Time STD":     p.Sprintf("%.2f s", r.StdTime),
		"Median Time":  p.Sprintf("%.0f s", r.MedianTime),
		"P90 Time":     p.Sprintf("%.0f s", r.P90Time),
		"Efficiency":   p.Sprintf("%.2f %%", 100*r.Efficiency),
		"Perfect Runs": fmtHatCIpct01(r.PerfectRate.Hat, r.PerfectRate.CI),
	}
	keys := []string{"Disks", "Entries", "Minimal", "Best", "Mean Moves", "Mean Time", "Time STD", "Median Time", "P90 Time", "Efficiency", "Perfect Runs"}
	if r.Entries == 0 {
		keys = keys[:3]
	}
	return fmtTable(fmt.Sprintf("Leaderboard %d disks", r.Disks), keys, m)
}

// LeaderboardTable 名次表：# / NAME / MOVES / TIME / DATE
func LeaderboardTable(disks int, list []leaderboard.Entry) string {
	p := message.NewPrinter(lang)
	rows := make([][]string, 0, len(list))
	for i, e := range list {
		rows = append(rows, []string{
			p.Sprintf("%d", i+1),
			e.Name,
			p.Sprintf("%d", e.Moves),
			FormatSeconds(e.Time),
			fmtDate(e.Timestamp),
		})
	}
	return fmtGrid(fmt.Sprintf("Top %d, %d disks", leaderboard.K, disks),
		[]string{"#", "NAME", "MOVES", "TIME", "DATE"}, rows)
}

// LedgerTable 本地最佳成績表：DISKS / MOVES / MINIMAL / TIME / DATE
func LedgerTable(m ledger.Mapping) string {
	p := message.NewPrinter(lang)
	disks := make([]int, 0, len(m))
	for d := puzzle.MinDisks; d <= puzzle.MaxDisks; d++ {
		if _, ok := m[d]; ok {
			disks = append(disks, d)
		}
	}
	rows := make([][]string, 0, len(disks))
	for _, d := range disks {
		rec := m[d]
		mark := ""
		if rec.Moves == puzzle.MinimalMoves(d) {
			mark = " *"
		}
		rows = append(rows, []string{
			p.Sprintf("%d", d),
			p.Sprintf("%d%s", rec.Moves, mark),
			p.Sprintf("%d", puzzle.MinimalMoves(d)),
			FormatSeconds(rec.Time),
			fmtDate(rec.Timestamp),
		})
	}
	return fmtGrid("Best Scores", []string{"DISKS", "MOVES", "MINIMAL", "TIME", "DATE"}, rows)
}

// FormatSeconds 以 m:ss 或 h:mm:ss 顯示秒數。
func FormatSeconds(sec int) string {
	if sec < 0 {
		sec = 0
	}
	d := time.Duration(sec) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := sec % 60
	if h == 0 {
		return fmt.Sprintf("%d:%02d", m, s)
	}
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func fmtDate(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%.1f%% [%.1f%%, %.1f%%]", 100*hat, 100*ci.Lo, 100*ci.Hi)
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for _, k := range keys {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(msg[k]); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	// 標題比兩欄還寬時，把值欄撐開
	if tw := runewidth.StringWidth(title); tw > maxKeyLen+maxValLen+1 {
		maxValLen = tw - maxKeyLen - 1
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

// fmtGrid 多欄表格；沒有資料列時顯示 (empty)。
func fmtGrid(title string, header []string, rows [][]string) string {
	width := make([]int, len(header))
	for i, h := range header {
		width[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if w := runewidth.StringWidth(c); w > width[i] {
				width[i] = w
			}
		}
	}
	inner := len(header) - 1
	for _, w := range width {
		inner += w + 2
	}
	if tw := runewidth.StringWidth(title); tw > inner {
		width[len(width)-1] += tw - inner
		inner = tw
	}

	var b strings.Builder
	divider := "+"
	for _, w := range width {
		divider += strings.Repeat("-", w+2) + "+"
	}
	divider += "\n"
	line := func(cells []string) {
		b.WriteString("|")
		for i, c := range cells {
			b.WriteString(" " + c + blank(width[i]-runewidth.StringWidth(c)) + " |")
		}
		b.WriteString("\n")
	}

	tw := runewidth.StringWidth(title)
	left := (inner - tw) / 2
	b.WriteString("+" + strings.Repeat("-", inner) + "+\n")
	b.WriteString("|" + blank(left) + title + blank(inner-tw-left) + "|\n")
	b.WriteString(divider)
	line(header)
	b.WriteString(divider)
	if len(rows) == 0 {
		b.WriteString("|" + blank((inner-7)/2) + "(empty)" + blank(inner-7-(inner-7)/2) + "|\n")
	}
	for _, row := range rows {
		line(row)
	}
	b.WriteString(divider)
	return b.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
