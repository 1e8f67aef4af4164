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

// Package puzzle 提供河內塔的合法移動驗證與狀態機。
//
// 本包不依賴任何渲染、儲存或計時器：輸入只有「選柱」與「取消」，
// 輸出只有狀態變化與錯誤，可以 head-less 地被測試與重用。
package puzzle

import (
	"fmt"

	"github.com/zintix-labs/hanoilab/errs"
)

// Phase 狀態機目前所處階段
type Phase uint8

const (
	Idle           Phase = iota // 尚未選取來源柱
	SourceSelected              // 已選取來源柱，等待目標柱
	Won                         // 終局：目標柱擁有全部圓盤
)

func (ph Phase) String() string {
	switch ph {
	case Idle:
		return "idle"
	case SourceSelected:
		return "source_selected"
	case Won:
		return "won"
	default:
		return "unknown"
	}
}

func (ph Phase) MarshalText() ([]byte, error) {
	return []byte(ph.String()), nil
}

// Outcome 一次 Select 的結果分類
type Outcome uint8

const (
	Ignored   Outcome = iota // 終局後的輸入，靜默忽略
	Selected                 // 記錄來源柱
	Cancelled                // 同柱再選一次：取消
	Moved                    // 完成一次合法移動
	Rejected                 // 非法輸入，狀態回到 Idle（或維持 Idle）
	Solved                   // 完成移動且達成勝利
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Selected:
		return "selected"
	case Cancelled:
		return "cancelled"
	case Moved:
		return "moved"
	case Rejected:
		return "rejected"
	case Solved:
		return "solved"
	default:
		return "unknown"
	}
}

// Result 描述一次 Select 造成的狀態變化。
type Result struct {
	Outcome Outcome
	From    int
	To      int
	Disk    int // 被移動的圓盤大小（僅 Moved/Solved）
	// StartedClock 僅在本實例「第一次成功選柱」時為 true，呼叫端據此啟動計時。
	StartedClock bool
}

// Puzzle 單一局河內塔的完整狀態。
//
// towers[i] 由底到頂儲存圓盤大小；每根柱子由底到頂嚴格遞減。
// 同一時間三根柱子恰好分割 {1..N}。
type Puzzle struct {
	towers   [Poles][]int
	selected int // -1 代表未選取
	moves    int
	disks    int
	won      bool
	started  bool
}

// New 建立 disks 個圓盤、全部位於第一根柱子的新局。
func New(disks int) (*Puzzle, error) {
	if !ValidDiskCount(disks) {
		return nil, errs.WrapWithExtra(ErrBadDiskCount, "new puzzle", fmt.Sprintf("disks=%d", disks))
	}
	p := &Puzzle{selected: -1, disks: disks}
	p.towers[0] = make([]int, 0, disks)
	for d := disks; d >= 1; d-- {
		p.towers[0] = append(p.towers[0], d)
	}
	for i := 1; i < Poles; i++ {
		p.towers[i] = make([]int, 0, disks)
	}
	return p, nil
}

// Select 處理一次選柱輸入。
//
//   - Won：忽略（Outcome=Ignored，err=nil）。
//   - Idle：空柱回傳 ErrEmptySource；否則記錄來源柱。
//   - SourceSelected：同柱即取消；否則驗證並移動，非法時回到 Idle 並回傳錯誤。
func (p *Puzzle) Select(i int) (Result, error) {
	if p.won {
		return Result{Outcome: Ignored, From: -1, To: -1}, nil
	}
	if !validPole(i) {
		return Result{Outcome: Rejected, From: p.selected, To: i}, ErrBadPole
	}

	if p.selected < 0 {
		if len(p.towers[i]) == 0 {
			return Result{Outcome: Rejected, From: i, To: -1}, ErrEmptySource
		}
		p.selected = i
		res := Result{Outcome: Selected, From: i, To: -1}
		if !p.started {
			p.started = true
			res.StartedClock = true
		}
		return res, nil
	}

	from := p.selected
	p.selected = -1
	if from == i {
		return Result{Outcome: Cancelled, From: from, To: i}, nil
	}
	if err := ValidateMove(p, from, i); err != nil {
		return Result{Outcome: Rejected, From: from, To: i}, err
	}

	src := p.towers[from]
	disk := src[len(src)-1]
	p.towers[from] = src[:len(src)-1]
	p.towers[i] = append(p.towers[i], disk)
	p.moves++

	res := Result{Outcome: Moved, From: from, To: i, Disk: disk}
	if len(p.towers[GoalPole]) == p.disks {
		p.won = true
		res.Outcome = Solved
	}
	return res, nil
}

// Cancel 清除尚未完成的選取；沒有選取時為 no-op。
func (p *Puzzle) Cancel() bool {
	if p.won || p.selected < 0 {
		return false
	}
	p.selected = -1
	return true
}

func (p *Puzzle) Phase() Phase {
	switch {
	case p.won:
		return Won
	case p.selected >= 0:
		return SourceSelected
	default:
		return Idle
	}
}

func (p *Puzzle) Disks() int    { return p.disks }
func (p *Puzzle) Moves() int    { return p.moves }
func (p *Puzzle) Won() bool     { return p.won }
func (p *Puzzle) Started() bool { return p.started }

// Selected 回傳目前選取的來源柱；未選取時 ok=false。
func (p *Puzzle) Selected() (int, bool) {
	if p.selected < 0 {
		return -1, false
	}
	return p.selected, true
}

// Top 回傳第 i 根柱子頂端圓盤大小；空柱回傳 0。
func (p *Puzzle) Top(i int) int {
	if !validPole(i) || len(p.towers[i]) == 0 {
		return 0
	}
	t := p.towers[i]
	return t[len(t)-1]
}

// Towers 回傳三根柱子的深拷貝（由底到頂）。
func (p *Puzzle) Towers() [Poles][]int {
	var out [Poles][]int
	for i := range p.towers {
		out[i] = append([]int(nil), p.towers[i]...)
	}
	return out
}

// Check 驗證狀態不變式：三柱分割 {1..N}，且每根柱子由底到頂嚴格遞減。
func (p *Puzzle) Check() error {
	seen := make([]bool, p.disks+1)
	total := 0
	for i, t := range p.towers {
		for j, d := range t {
			if d < 1 || d > p.disks {
				return errs.Fatalf("pole %d holds disk %d outside 1..%d", i, d, p.disks)
			}
			if seen[d] {
				return errs.Fatalf("disk %d appears twice", d)
			}
			seen[d] = true
			if j > 0 && t[j-1] <= d {
				return errs.Fatalf("pole %d is not strictly decreasing at %d", i, j)
			}
			total++
		}
	}
	if total != p.disks {
		return errs.Fatalf("expected %d disks, found %d", p.disks, total)
	}
	return nil
}
