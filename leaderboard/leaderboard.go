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

// Package leaderboard 判斷一次完成能否進入全域前 K 名，並負責名稱清理與提交。
//
// 外部排行榜以 RankedStore 抽象；讀取與寫回之間沒有交易保證。
// 若 store 另外實作 Swapper（compare-and-swap），Qualifier 會在衝突時重試；
// 否則採用 best-effort 寫回，併發提交可能互相覆蓋（已知且接受的競態）。
package leaderboard

import (
	"hash/fnv"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/puzzle"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// K 每個圓盤數最多保留的名次
	K = 10
	// MaxTime 可提交的最長秒數（一天）
	MaxTime = 86400
	// NameLen 名稱最多字元數
	NameLen = 3
)

// 提交驗證失敗原因（訊息固定，供前端直接顯示）
var (
	ErrInvalidDisks = errs.NewWarn("Invalid disk count")
	ErrInvalidMoves = errs.NewWarn("Invalid move count")
	ErrInvalidTime  = errs.NewWarn("Invalid time")
	ErrEmptyName    = errs.NewWarn("Invalid name")
)

// Entry 排行榜單筆
type Entry struct {
	Name      string `json:"name"`
	Moves     int    `json:"moves"`
	Time      int    `json:"time"`
	Timestamp int64  `json:"timestamp"`
}

// Less 排序規則：步數遞增，其次時間遞增。
func Less(a, b Entry) bool {
	if a.Moves != b.Moves {
		return a.Moves < b.Moves
	}
	return a.Time < b.Time
}

func cmpEntry(a, b Entry) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}

// ValidateSubmission 檢查提交是否在合法範圍內。
func ValidateSubmission(disks, moves, seconds int) error {
	if !puzzle.ValidDiskCount(disks) {
		return ErrInvalidDisks
	}
	if moves < puzzle.MinimalMoves(disks) {
		return ErrInvalidMoves
	}
	if seconds < 0 || seconds > MaxTime {
		return ErrInvalidTime
	}
	return nil
}

// ValidateList 檢查一份完整名單：長度不超過 K、每筆合法且已排序。
// 用於接收遠端整份寫回（PUT）時。
func ValidateList(disks int, list []Entry) error {
	if !puzzle.ValidDiskCount(disks) {
		return ErrInvalidDisks
	}
	if len(list) > K {
		return errs.Warnf("list longer than %d", K)
	}
	for i, e := range list {
		if err := ValidateSubmission(disks, e.Moves, e.Time); err != nil {
			return err
		}
		if e.Name == "" || SanitizeName(e.Name) != e.Name {
			return ErrEmptyName
		}
		if i > 0 && Less(e, list[i-1]) {
			return errs.NewWarn("list is not sorted")
		}
	}
	return nil
}

// Qualifies 判斷 (moves, seconds) 能否進入 top。
//
// 不滿 K 筆時一律入榜，名次為 len(top)+1。
// 滿 K 筆時必須嚴格優於最後一名；名次為排在所有相等成績之後的 1-based 插入位置。
func Qualifies(top []Entry, moves, seconds int) (bool, int) {
	if len(top) < K {
		return true, len(top) + 1
	}
	cand := Entry{Moves: moves, Time: seconds}
	if !Less(cand, top[len(top)-1]) {
		return false, 0
	}
	return true, insertPos(top, cand) + 1
}

// insertPos 回傳 cand 排在所有「不比它差」的成績之後的位置（0-based）。
func insertPos(top []Entry, cand Entry) int {
	i, _ := slices.BinarySearchFunc(top, cand, func(e, c Entry) int {
		if Less(c, e) {
			return 1
		}
		return -1
	})
	return i
}

// Insert 把 e 放進 list 並保持排序（相等者新進者在後），截到 K 筆。
// 回傳新名單，以及 e 是否存活與其 1-based 名次（未存活時為 0）。
func Insert(list []Entry, e Entry) ([]Entry, bool, int) {
	out := make([]Entry, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, e)
	slices.SortStableFunc(out, cmpEntry)
	pos := -1
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] == e {
			pos = i
			break
		}
	}
	if len(out) > K {
		out = out[:K]
	}
	if pos < 0 || pos >= K {
		return out, false, 0
	}
	return out, true, pos + 1
}

// Version 名單內容的指紋，用作 HTTP ETag；內容相同則版本相同（空名單也有固定版本）。
func Version(list []Entry) string {
	h := fnv.New64a()
	var b []byte
	for _, e := range list {
		b = b[:0]
		b = append(b, e.Name...)
		b = append(b, '|')
		b = strconv.AppendInt(b, int64(e.Moves), 10)
		b = append(b, '|')
		b = strconv.AppendInt(b, int64(e.Time), 10)
		b = append(b, '|')
		b = strconv.AppendInt(b, e.Timestamp, 10)
		b = append(b, ';')
		h.Write(b)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// SanitizeName 把任意輸入變成排行榜名稱。
//
// 先做相容性分解（NFKD，例如全形字母 → 半形）並去除附加符號（é → e），
// 再只保留 ASCII 英數字、轉大寫、取前 3 個字元。
func SanitizeName(raw string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, stripMarks), raw)
	if err != nil {
		folded = raw
	}
	var b strings.Builder
	for _, r := range folded {
		if b.Len() >= NameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}
