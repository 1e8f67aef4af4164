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

// Package ledger 保存每個圓盤數的本地最佳成績，並負責匯入匯出與合併。
//
// 排序規則：步數少者較佳；步數相同時，時間短者較佳。
// 任何非 None 的結果都會立刻把整份對照表寫回 KV（write-through）。
// KV 失敗只會記錄並把帳本標記為降級，記憶體中的結果仍然成立。
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/metrics"
	"github.com/zintix-labs/hanoilab/puzzle"
	"github.com/zintix-labs/hanoilab/storage"
)

// RecordType 一次完成對帳本造成的結果分類
type RecordType uint8

const (
	None RecordType = iota
	First
	Moves
	Time
	Perfect
)

var recordNames = map[RecordType]string{
	None:    "none",
	First:   "first",
	Moves:   "moves",
	Time:    "time",
	Perfect: "perfect",
}

func (r RecordType) String() string {
	if s, ok := recordNames[r]; ok {
		return s
	}
	return "unknown"
}

func (r RecordType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

var ErrBadOutcome = errs.Rejected("outcome out of range")

// Record 單一圓盤數的最佳成績。Time 單位為秒，Timestamp 為 Unix 毫秒。
type Record struct {
	Moves     int   `json:"moves"`
	Time      int   `json:"time"`
	Timestamp int64 `json:"timestamp"`
}

// Better 回報 a 是否嚴格優於 b。
func Better(a, b Record) bool {
	if a.Moves != b.Moves {
		return a.Moves < b.Moves
	}
	return a.Time < b.Time
}

// Mapping 以圓盤數為鍵的成績表；JSON 形式的鍵為 "3".."10"。
type Mapping map[int]Record

// Options 建立 Ledger 的選用依賴
type Options struct {
	Log     *slog.Logger
	Metrics metrics.Recorder
	// Now 預設 time.Now
	Now func() time.Time
	// Degraded 表示 kv 是持久層開不起來時的記憶體替代品
	Degraded bool
}

type Ledger struct {
	mu       sync.Mutex
	kv       storage.KV
	scores   Mapping
	degraded bool

	log *slog.Logger
	rec metrics.Recorder
	now func() time.Time
}

// New 建立空帳本；kv 為 nil 時只在記憶體中運作（視為降級）。
// 通常接著呼叫 Load 從 KV 讀回既有成績。
func New(kv storage.KV, opt Options) *Ledger {
	l := &Ledger{
		kv:     kv,
		scores: Mapping{},
		log:    opt.Log,
		rec:    metrics.OrNop(opt.Metrics),
		now:    opt.Now,
	}
	if l.log == nil {
		l.log = slog.New(slog.DiscardHandler)
	}
	if l.now == nil {
		l.now = time.Now
	}
	if kv == nil || opt.Degraded {
		l.degraded = true
	}
	return l
}

// Load 從 KV 讀回成績表。
//
// 讀取失敗或外層結構不合法時，帳本保持空白並回傳錯誤；呼叫端可以只記錄而繼續遊戲。
// 個別條目不合法時只丟棄該條目並記錄，其餘照常載入。
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.kv == nil {
		return nil
	}
	raw, ok, err := l.kv.Get(ctx, storage.KeyHighScores)
	if err != nil {
		l.degraded = true
		l.rec.PersistenceError("get")
		l.log.Warn("ledger load failed, continuing in memory", slog.Any("err", err))
		return errs.Unavailable(errs.PersistenceUnavailable, err, "load high scores")
	}
	if !ok || raw == "" {
		return nil
	}
	m, bad, err := decodeLenient([]byte(raw))
	if err != nil {
		l.log.Warn("stored high scores are malformed, starting empty", slog.Any("err", err))
		return err
	}
	for key, reason := range bad {
		l.log.Warn("dropping malformed stored record", slog.String("key", key), slog.Any("err", reason))
	}
	l.scores = m
	return nil
}

// RecordOutcome 以一次完成的 (步數, 秒數) 更新帳本並回傳結果分類。
//
//   - 無紀錄：建立；步數等於最少步數時為 Perfect，否則 First。
//   - 步數更少：覆寫；達到最少步數時為 Perfect，否則 Moves。
//   - 步數相同且時間更短：只覆寫時間；Time。
//   - 其餘：None，帳本不變。
func (l *Ledger) RecordOutcome(ctx context.Context, disks, moves, seconds int) (RecordType, error) {
	if !puzzle.ValidDiskCount(disks) || moves < puzzle.MinimalMoves(disks) || seconds < 0 {
		return None, errs.WrapWithExtra(ErrBadOutcome, "record outcome",
			fmt.Sprintf("disks=%d moves=%d time=%d", disks, moves, seconds))
	}
	minimal := puzzle.MinimalMoves(disks)

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UnixMilli()
	cur, ok := l.scores[disks]
	var rt RecordType
	switch {
	case !ok:
		rt = First
		if moves == minimal {
			rt = Perfect
		}
		l.scores[disks] = Record{Moves: moves, Time: seconds, Timestamp: ts}
	case moves < cur.Moves:
		rt = Moves
		if moves == minimal {
			rt = Perfect
		}
		l.scores[disks] = Record{Moves: moves, Time: seconds, Timestamp: ts}
	case moves == cur.Moves && seconds < cur.Time:
		rt = Time
		cur.Time = seconds
		cur.Timestamp = ts
		l.scores[disks] = cur
	default:
		return None, nil
	}
	l.persistLocked(ctx, "record")
	return rt, nil
}

// Best 回傳指定圓盤數的最佳成績。
func (l *Ledger) Best(disks int) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.scores[disks]
	return r, ok
}

// Snapshot 回傳整份成績表的拷貝。
func (l *Ledger) Snapshot() Mapping {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.scores)
}

// Disks 回傳已有紀錄的圓盤數（遞增）。
func (l *Ledger) Disks() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Sorted(maps.Keys(l.scores))
}

// Degraded 回報本帳本是否曾經寫入/讀取 KV 失敗（目前僅存在記憶體中）。
func (l *Ledger) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

// Clear 清除全部成績；破壞性操作，confirm 必須為 true。
func (l *Ledger) Clear(ctx context.Context, confirm bool) error {
	if !confirm {
		return errs.NewWarn("clearing scores requires confirmation")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scores = Mapping{}
	if l.kv == nil {
		return nil
	}
	if err := l.kv.Delete(ctx, storage.KeyHighScores); err != nil {
		l.markDegradedLocked("delete", err)
	}
	return nil
}

// persistLocked 把整份成績表寫回 KV；呼叫端必須持有 mu。
func (l *Ledger) persistLocked(ctx context.Context, op string) {
	if l.kv == nil {
		return
	}
	raw, err := json.Marshal(l.scores)
	if err != nil {
		l.markDegradedLocked(op, err)
		return
	}
	if err := l.kv.Set(ctx, storage.KeyHighScores, string(raw)); err != nil {
		l.markDegradedLocked(op, err)
	}
}

func (l *Ledger) markDegradedLocked(op string, err error) {
	l.degraded = true
	l.rec.PersistenceError(op)
	l.log.Warn("ledger persistence failed, keeping scores in memory",
		slog.String("op", op), slog.Any("err", err))
}
