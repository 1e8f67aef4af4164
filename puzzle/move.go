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
	"github.com/zintix-labs/hanoilab/errs"
)

const (
	MinDisks = 3
	MaxDisks = 10
	Poles    = 3
	// GoalPole 目標柱（第三根，索引 2）
	GoalPole = 2
)

var (
	ErrEmptySource   = errs.Rejected("empty source pole")
	ErrSizeViolation = errs.Rejected("cannot place a larger disk on a smaller one")
	ErrBadPole       = errs.Rejected("pole index out of range")
	ErrBadDiskCount  = errs.Rejected("disk count out of range")
)

// MinimalMoves 回傳 n 個圓盤的理論最少步數 2^n - 1。
func MinimalMoves(n int) int {
	if n <= 0 {
		return 0
	}
	return 1<<uint(n) - 1
}

// ValidDiskCount 回報 n 是否落在 [MinDisks, MaxDisks]。
func ValidDiskCount(n int) bool {
	return n >= MinDisks && n <= MaxDisks
}

// ValidateMove 檢查「把 from 柱頂端圓盤移到 to 柱」是否合法。
//
// 純函數：不修改 p，任何時間點都可以呼叫。
// from == to 不算驗證失敗（由狀態機當成取消處理），此處回傳 nil。
func ValidateMove(p *Puzzle, from, to int) error {
	if !validPole(from) || !validPole(to) {
		return ErrBadPole
	}
	src := p.towers[from]
	if len(src) == 0 {
		return ErrEmptySource
	}
	dst := p.towers[to]
	if len(dst) == 0 {
		return nil
	}
	if dst[len(dst)-1] < src[len(src)-1] {
		return ErrSizeViolation
	}
	return nil
}

func validPole(i int) bool {
	return i >= 0 && i < Poles
}
