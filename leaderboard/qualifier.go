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

package leaderboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/metrics"
)

// RankedStore 外部排行榜：每個圓盤數一份已排序、最多 K 筆的名單。
type RankedStore interface {
	FetchTopK(ctx context.Context, disks int) ([]Entry, error)
	WriteTopK(ctx context.Context, disks int, list []Entry) error
}

// Swapper 可選：只有當目前名單仍等於 old 時才寫入 next。
// swapped=false 代表有人搶先寫入，呼叫端應重新讀取後重試。
type Swapper interface {
	SwapTopK(ctx context.Context, disks int, old, next []Entry) (swapped bool, err error)
}

// Qualification 入榜判斷結果
type Qualification struct {
	Qualifies bool `json:"qualifies"`
	Rank      int  `json:"rank"`
}

// Placement 提交後的實際結果
type Placement struct {
	Name     string `json:"name"`
	Survived bool   `json:"survived"`
	Rank     int    `json:"rank"`
	Attempts int    `json:"attempts"`
}

// Qualifier 把入榜判斷與提交流程綁在一個 RankedStore 上。
type Qualifier struct {
	store   RankedStore
	log     *slog.Logger
	rec     metrics.Recorder
	now     func() time.Time
	retries int
}

// Options 建立 Qualifier 的選用依賴
type Options struct {
	Log     *slog.Logger
	Metrics metrics.Recorder
	Now     func() time.Time
	// Retries CAS 衝突時最多重試次數（只對 Swapper 有效），預設 3
	Retries int
}

func NewQualifier(store RankedStore, opt Options) (*Qualifier, error) {
	if store == nil {
		return nil, errs.NewFatal("ranked store is required")
	}
	q := &Qualifier{
		store:   store,
		log:     opt.Log,
		rec:     metrics.OrNop(opt.Metrics),
		now:     opt.Now,
		retries: opt.Retries,
	}
	if q.log == nil {
		q.log = slog.New(slog.DiscardHandler)
	}
	if q.now == nil {
		q.now = time.Now
	}
	if q.retries <= 0 {
		q.retries = 3
	}
	return q, nil
}

// Top 讀取目前名單；遠端失敗包成 RemoteUnavailable。
func (q *Qualifier) Top(ctx context.Context, disks int) ([]Entry, error) {
	list, err := q.store.FetchTopK(ctx, disks)
	if err != nil {
		return nil, remote(err, "fetch leaderboard")
	}
	return list, nil
}

// Check 判斷一次完成能否入榜。
//
// 遠端不可用時視為不入榜，並回傳 RemoteUnavailable 讓呼叫端記錄。
func (q *Qualifier) Check(ctx context.Context, disks, moves, seconds int) (Qualification, error) {
	if err := ValidateSubmission(disks, moves, seconds); err != nil {
		return Qualification{}, err
	}
	top, err := q.Top(ctx, disks)
	if err != nil {
		return Qualification{}, err
	}
	ok, rank := Qualifies(top, moves, seconds)
	return Qualification{Qualifies: ok, Rank: rank}, nil
}

// Submit 清理名稱、驗證並寫入排行榜。
//
// 讀取 → 插入 → 穩定排序 → 截到 K → 寫回。
// store 實作 Swapper 時以 CAS 迴圈重試；否則一次 best-effort 寫回。
// 新成績可能在截斷時被擠出（例如其他 session 同時提交），此時 Survived=false。
func (q *Qualifier) Submit(ctx context.Context, disks int, rawName string, moves, seconds int) (Placement, error) {
	name := SanitizeName(rawName)
	if name == "" {
		q.rec.Submission("rejected")
		return Placement{}, ErrEmptyName
	}
	if err := ValidateSubmission(disks, moves, seconds); err != nil {
		q.rec.Submission("rejected")
		return Placement{}, err
	}
	e := Entry{Name: name, Moves: moves, Time: seconds, Timestamp: q.now().UnixMilli()}

	sw, canSwap := q.store.(Swapper)
	for attempt := 1; ; attempt++ {
		cur, err := q.Top(ctx, disks)
		if err != nil {
			q.rec.Submission("unavailable")
			return Placement{}, err
		}
		next, survived, rank := Insert(cur, e)
		p := Placement{Name: name, Survived: survived, Rank: rank, Attempts: attempt}

		if !canSwap {
			if err := q.store.WriteTopK(ctx, disks, next); err != nil {
				q.rec.Submission("unavailable")
				return Placement{}, remote(err, "write leaderboard")
			}
			q.record(p)
			return p, nil
		}

		swapped, err := sw.SwapTopK(ctx, disks, cur, next)
		if err != nil {
			q.rec.Submission("unavailable")
			return Placement{}, remote(err, "swap leaderboard")
		}
		if swapped {
			q.record(p)
			return p, nil
		}
		if attempt >= q.retries {
			q.rec.Submission("conflict")
			return Placement{}, errs.Unavailable(errs.RemoteUnavailable, nil, "leaderboard kept changing, gave up")
		}
		q.log.Debug("leaderboard swap conflict, retrying",
			slog.Int("disks", disks), slog.Int("attempt", attempt))
	}
}

func (q *Qualifier) record(p Placement) {
	if p.Survived {
		q.rec.Submission("accepted")
	} else {
		q.rec.Submission("evicted")
	}
}

func remote(err error, msg string) error {
	if errs.IsKind(err, errs.RemoteUnavailable) {
		return err
	}
	// ctx 取消/逾時保持原樣，讓 HTTP 邊界層能對應到 408/504
	if ctxErr(err) {
		return err
	}
	return errs.Unavailable(errs.RemoteUnavailable, err, msg)
}

func ctxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
