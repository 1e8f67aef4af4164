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

package session

import (
	"context"
	"log/slog"

	"github.com/zintix-labs/hanoilab/leaderboard"
)

// 排行榜流程分成三段：Begin（讀狀態）、Run（只碰 Qualifier，可放到背景 goroutine）、
// Apply（寫回狀態）。Begin 與 Apply 必須和 Handle 在同一個 goroutine 呼叫；
// 同步呼叫端直接用 CheckLeaderboard / SubmitName。

// CheckRequest 一次入榜查詢
type CheckRequest struct {
	win    *WinReport
	board  *leaderboard.Qualifier
	cached *leaderboard.Qualification
}

// Run 查詢排行榜；已有結果或沒有排行榜時不連線。
func (r CheckRequest) Run(ctx context.Context) (leaderboard.Qualification, error) {
	if r.cached != nil {
		return *r.cached, nil
	}
	if r.board == nil {
		return leaderboard.Qualification{}, nil
	}
	return r.board.Check(ctx, r.win.Disks, r.win.Moves, r.win.Seconds)
}

// BeginCheck 準備查詢目前這次完成。
func (c *Controller) BeginCheck() (CheckRequest, error) {
	if c.win == nil {
		return CheckRequest{}, ErrNoWin
	}
	return CheckRequest{win: c.win, board: c.board, cached: c.qual}, nil
}

// ApplyCheck 記下查詢結果。
//
// 遠端不可用時記錄並視為不入榜（回傳零值且無錯誤）；只有 ctx 結束才回傳錯誤。
// 查詢期間玩家已開新局時回傳 ErrStale，狀態不變。
func (c *Controller) ApplyCheck(r CheckRequest, q leaderboard.Qualification, err error) (leaderboard.Qualification, error) {
	if r.win == nil || r.win != c.win {
		return leaderboard.Qualification{}, ErrStale
	}
	if c.qual != nil {
		return *c.qual, nil
	}
	if err != nil {
		if ctxDone(err) {
			return leaderboard.Qualification{}, err
		}
		c.log.Warn("leaderboard check failed, treating as not qualifying", slog.Any("err", err))
		q = leaderboard.Qualification{}
	}
	c.qual = &q
	return q, nil
}

// CheckLeaderboard 詢問排行榜這次完成能否入榜（同步版本）。
func (c *Controller) CheckLeaderboard(ctx context.Context) (leaderboard.Qualification, error) {
	r, err := c.BeginCheck()
	if err != nil {
		return leaderboard.Qualification{}, err
	}
	q, err := r.Run(ctx)
	return c.ApplyCheck(r, q, err)
}

// SubmitRequest 一次名稱提交
type SubmitRequest struct {
	win   *WinReport
	board *leaderboard.Qualifier
	name  string
}

func (r SubmitRequest) Run(ctx context.Context) (leaderboard.Placement, error) {
	return r.board.Submit(ctx, r.win.Disks, r.name, r.win.Moves, r.win.Seconds)
}

// BeginSubmit 確認目前可以提交：必須有入榜的完成且尚未提交過。
func (c *Controller) BeginSubmit(raw string) (SubmitRequest, error) {
	if c.win == nil {
		return SubmitRequest{}, ErrNoWin
	}
	if c.placed != nil {
		return SubmitRequest{}, ErrSubmitted
	}
	if c.qual == nil || !c.qual.Qualifies || c.board == nil {
		return SubmitRequest{}, ErrNotQualified
	}
	return SubmitRequest{win: c.win, board: c.board, name: raw}, nil
}

// ApplySubmit 記下提交結果；失敗（含名稱不合法）時狀態不變，可重試。
func (c *Controller) ApplySubmit(r SubmitRequest, p leaderboard.Placement, err error) (leaderboard.Placement, error) {
	if r.win == nil || r.win != c.win {
		return leaderboard.Placement{}, ErrStale
	}
	if err != nil {
		return leaderboard.Placement{}, err
	}
	if c.placed != nil {
		return leaderboard.Placement{}, ErrSubmitted
	}
	c.placed = &p
	c.log.Info("leaderboard submission",
		slog.String("name", p.Name), slog.Int("rank", p.Rank), slog.Bool("survived", p.Survived))
	return p, nil
}

// SubmitName 在入榜後提交名稱（同步版本）；名稱清理後為空時回傳錯誤並允許重試。
func (c *Controller) SubmitName(ctx context.Context, raw string) (leaderboard.Placement, error) {
	r, err := c.BeginSubmit(raw)
	if err != nil {
		return leaderboard.Placement{}, err
	}
	p, err := r.Run(ctx)
	return c.ApplySubmit(r, p, err)
}
