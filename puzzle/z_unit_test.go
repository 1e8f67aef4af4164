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

package puzzle

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func mustNew(t *testing.T, n int) *Puzzle {
	t.Helper()
	p, err := New(n)
	if err != nil {
		t.Fatalf("New(%d): %v", n, err)
	}
	return p
}

func move(t *testing.T, p *Puzzle, from, to int) Result {
	t.Helper()
	if _, err := p.Select(from); err != nil {
		t.Fatalf("select source %d: %v", from, err)
	}
	res, err := p.Select(to)
	if err != nil {
		t.Fatalf("move %d->%d: %v", from, to, err)
	}
	return res
}

func TestMinimalMoves(t *testing.T) {
	want := map[int]int{3: 7, 4: 15, 5: 31, 6: 63, 7: 127, 8: 255, 9: 511, 10: 1023}
	for n, w := range want {
		if got := MinimalMoves(n); got != w {
			t.Fatalf("MinimalMoves(%d)=%d want %d", n, got, w)
		}
	}
}

func TestNewRejectsOutOfRange(t *testing.T) {
	for _, n := range []int{0, 2, 11, -1} {
		if _, err := New(n); !errors.Is(err, ErrBadDiskCount) {
			t.Fatalf("New(%d) err=%v, want ErrBadDiskCount", n, err)
		}
	}
	p := mustNew(t, 5)
	towers := p.Towers()
	if len(towers[0]) != 5 || towers[0][0] != 5 || towers[0][4] != 1 {
		t.Fatalf("unexpected initial tower: %v", towers[0])
	}
	if err := p.Check(); err != nil {
		t.Fatalf("initial state invalid: %v", err)
	}
}

func TestValidateMove(t *testing.T) {
	p := mustNew(t, 3)
	if err := ValidateMove(p, 1, 0); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("empty source: got %v", err)
	}
	if err := ValidateMove(p, 0, 1); err != nil {
		t.Fatalf("move onto empty pole should be legal: %v", err)
	}
	move(t, p, 0, 1) // disk 1 -> pole 1
	if err := ValidateMove(p, 0, 1); !errors.Is(err, ErrSizeViolation) {
		t.Fatalf("larger onto smaller: got %v", err)
	}
	if err := ValidateMove(p, 1, 0); err != nil {
		t.Fatalf("smaller onto larger should be legal: %v", err)
	}
	if err := ValidateMove(p, 0, 3); !errors.Is(err, ErrBadPole) {
		t.Fatalf("bad pole: got %v", err)
	}
	// 驗證不可有副作用
	if p.Moves() != 1 || p.Phase() != Idle {
		t.Fatalf("ValidateMove mutated state: moves=%d phase=%v", p.Moves(), p.Phase())
	}
}

func TestSelectEmptyPoleFromIdle(t *testing.T) {
	p := mustNew(t, 3)
	res, err := p.Select(2)
	if !errors.Is(err, ErrEmptySource) || res.Outcome != Rejected {
		t.Fatalf("expected EmptySource rejection, got %v / %v", res.Outcome, err)
	}
	if p.Phase() != Idle || p.Started() {
		t.Fatalf("rejected selection must not change state")
	}
}

func TestSamePoleCancels(t *testing.T) {
	p := mustNew(t, 4)
	before := p.Towers()
	res, err := p.Select(0)
	if err != nil || res.Outcome != Selected || !res.StartedClock {
		t.Fatalf("first select: %+v %v", res, err)
	}
	if p.Phase() != SourceSelected {
		t.Fatalf("phase=%v", p.Phase())
	}
	res, err = p.Select(0)
	if err != nil || res.Outcome != Cancelled {
		t.Fatalf("second select: %+v %v", res, err)
	}
	if p.Phase() != Idle || p.Moves() != 0 {
		t.Fatalf("cancel changed state: phase=%v moves=%d", p.Phase(), p.Moves())
	}
	after := p.Towers()
	for i := range before {
		if len(before[i]) != len(after[i]) {
			t.Fatalf("cancel mutated towers: %v -> %v", before, after)
		}
	}
	// 時鐘只在第一次成功選柱啟動
	res, _ = p.Select(0)
	if res.StartedClock {
		t.Fatalf("clock must start only once")
	}
}

func TestIllegalMoveReturnsToIdle(t *testing.T) {
	p := mustNew(t, 3)
	move(t, p, 0, 2) // 1 -> pole 2
	if _, err := p.Select(0); err != nil {
		t.Fatal(err)
	}
	res, err := p.Select(2) // 2 onto 1
	if !errors.Is(err, ErrSizeViolation) || res.Outcome != Rejected {
		t.Fatalf("expected size violation, got %+v %v", res, err)
	}
	if p.Phase() != Idle || p.Moves() != 1 {
		t.Fatalf("illegal move mutated state: phase=%v moves=%d", p.Phase(), p.Moves())
	}
}

func TestCancel(t *testing.T) {
	p := mustNew(t, 3)
	if p.Cancel() {
		t.Fatalf("cancel without selection should report false")
	}
	_, _ = p.Select(0)
	if !p.Cancel() || p.Phase() != Idle {
		t.Fatalf("cancel should clear the selection")
	}
}

func TestOptimalThreeDiskSolution(t *testing.T) {
	p := mustNew(t, 3)
	seq := [][2]int{{0, 2}, {0, 1}, {2, 1}, {0, 2}, {1, 0}, {1, 2}, {0, 2}}
	for i, mv := range seq {
		res := move(t, p, mv[0], mv[1])
		last := i == len(seq)-1
		if last && res.Outcome != Solved {
			t.Fatalf("final move outcome=%v", res.Outcome)
		}
		if !last && res.Outcome != Moved {
			t.Fatalf("move %d outcome=%v", i, res.Outcome)
		}
		if p.Moves() != i+1 {
			t.Fatalf("moves=%d want %d", p.Moves(), i+1)
		}
	}
	if !p.Won() || p.Phase() != Won {
		t.Fatalf("expected won")
	}
	// 終局後輸入一律忽略
	res, err := p.Select(2)
	if err != nil || res.Outcome != Ignored {
		t.Fatalf("post-win input: %+v %v", res, err)
	}
	if p.Moves() != MinimalMoves(3) {
		t.Fatalf("moves=%d", p.Moves())
	}
}

func TestWinOnlyOnGoalPole(t *testing.T) {
	// 把三個圓盤全部搬到第二根柱子不算勝利
	p := mustNew(t, 3)
	seq := [][2]int{{0, 1}, {0, 2}, {1, 2}, {0, 1}, {2, 0}, {2, 1}, {0, 1}}
	for _, mv := range seq {
		move(t, p, mv[0], mv[1])
	}
	if p.Won() {
		t.Fatalf("pole 1 holding every disk must not count as a win")
	}
	if got := len(p.Towers()[1]); got != 3 {
		t.Fatalf("pole 1 len=%d", got)
	}
}

// 隨機合法/非法輸入下，不變式永遠成立。
func TestInvariantUnderRandomPlay(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for n := MinDisks; n <= MaxDisks; n++ {
		p := mustNew(t, n)
		for step := 0; step < 4000 && !p.Won(); step++ {
			beforeMoves := p.Moves()
			from, hasSel := p.Selected()
			var lenBefore [Poles]int
			for i, tw := range p.Towers() {
				lenBefore[i] = len(tw)
			}
			pole := r.IntN(Poles)
			res, _ := p.Select(pole)
			if res.Outcome == Moved || res.Outcome == Solved {
				if !hasSel || from == pole {
					t.Fatalf("move without a distinct source")
				}
				tw := p.Towers()
				if len(tw[from]) != lenBefore[from]-1 || len(tw[pole]) != lenBefore[pole]+1 {
					t.Fatalf("legal move changed lengths incorrectly")
				}
				if p.Moves() != beforeMoves+1 {
					t.Fatalf("move count must grow by exactly one")
				}
			} else if p.Moves() != beforeMoves {
				t.Fatalf("non-move changed move count")
			}
			if err := p.Check(); err != nil {
				t.Fatalf("n=%d step=%d: %v", n, step, err)
			}
		}
	}
}
