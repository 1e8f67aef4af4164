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

// Package hanoilab 是河內塔遊戲的「組裝入口（assembler）」。
//
// Lab 把下列地基組裝在一起，並提供建立 session.Controller 的入口：
//  1. KV：本地最佳成績與偏好的持久化（badgerkv 或記憶體）。
//  2. Ledger / Prefs：建立在 KV 之上的帳本與偏好。
//  3. Catalog：主題目錄，來源一律以 fs.FS 注入（預設為內建 themes.FS）。
//  4. Qualifier：可選，外部排行榜（memrank / sqliterank / httprank）。
//
// 設計重點：
//   - Lab 本身不綁定任何檔案路徑；KV 與排行榜後端由呼叫端建立後注入。
//   - 儲存失敗只會降級（僅記憶體），不會讓 New 失敗；只有缺少必要元件才回傳錯誤。
//   - 多人服務（HTTP）請透過 NewRuntime 取得 SessionRuntime；單人終端直接用 NewController。
package hanoilab

import (
	"context"
	"io/fs"
	"log/slog"
	"time"

	"github.com/zintix-labs/hanoilab/catalog"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/ledger"
	"github.com/zintix-labs/hanoilab/metrics"
	"github.com/zintix-labs/hanoilab/prefs"
	"github.com/zintix-labs/hanoilab/session"
	"github.com/zintix-labs/hanoilab/storage"
	"github.com/zintix-labs/hanoilab/themes"
)

// Themes 語法糖，對應 Options.Themes
func Themes(src ...fs.FS) []fs.FS {
	return src
}

type Options struct {
	// KV 為 nil 時使用記憶體 KV（不跨程序保存）
	KV storage.KV
	// KVDegraded 表示 KV 是持久層開啟失敗後的記憶體替代品（見 Stores.Degraded）
	KVDegraded bool
	// Themes 為空時使用內建主題
	Themes []fs.FS
	// Board 為 nil 時不啟用排行榜
	Board   leaderboard.RankedStore
	Retries int
	Now     func() time.Time
	Log     *slog.Logger
	Metrics metrics.Recorder
}

type Lab struct {
	kv     storage.KV
	ledger *ledger.Ledger
	prefs  *prefs.Prefs
	themes *catalog.Catalog
	store  leaderboard.RankedStore
	board  *leaderboard.Qualifier

	now func() time.Time
	log *slog.Logger
	rec metrics.Recorder
}

func New(ctx context.Context, opt Options) (*Lab, error) {
	lab := &Lab{
		kv:    opt.KV,
		store: opt.Board,
		now:   opt.Now,
		log:   opt.Log,
		rec:   metrics.OrNop(opt.Metrics),
	}
	if lab.kv == nil {
		lab.kv = storage.NewMemory()
	}
	if lab.now == nil {
		lab.now = time.Now
	}
	if lab.log == nil {
		lab.log = slog.New(slog.DiscardHandler)
	}

	src := opt.Themes
	if len(src) == 0 {
		src = Themes(themes.FS)
	}
	cat, err := catalog.New(src...)
	if err != nil {
		return nil, errs.Wrap(err, "load themes")
	}
	lab.themes = cat

	lab.ledger = ledger.New(lab.kv, ledger.Options{Log: lab.log, Metrics: lab.rec, Now: lab.now, Degraded: opt.KVDegraded})
	if err := lab.ledger.Load(ctx); err != nil {
		// 已由 ledger 記錄；帳本從空白開始
		lab.log.Debug("ledger starts empty", slog.Any("err", err))
	}

	lab.prefs, err = prefs.New(ctx, lab.kv, cat, prefs.Options{Log: lab.log, Metrics: lab.rec, Degraded: opt.KVDegraded})
	if err != nil {
		return nil, err
	}

	if opt.Board != nil {
		lab.board, err = leaderboard.NewQualifier(opt.Board, leaderboard.Options{
			Log:     lab.log,
			Metrics: lab.rec,
			Now:     lab.now,
			Retries: opt.Retries,
		})
		if err != nil {
			return nil, err
		}
	}
	return lab, nil
}

// NewController 建立一局；disks 為 0 時使用偏好的圓盤數。
func (l *Lab) NewController(disks int) (*session.Controller, error) {
	return session.New(session.Config{
		Ledger:  l.ledger,
		Board:   l.board,
		Prefs:   l.prefs,
		Disks:   disks,
		Now:     l.now,
		Log:     l.log,
		Metrics: l.rec,
	})
}

func (l *Lab) Ledger() *ledger.Ledger { return l.ledger }

func (l *Lab) Prefs() *prefs.Prefs { return l.prefs }

func (l *Lab) Themes() *catalog.Catalog { return l.themes }

// Board 排行榜；未啟用時為 nil。
func (l *Lab) Board() *leaderboard.Qualifier { return l.board }

// Store 排行榜的原始後端（PUT 整份取代用）；未啟用時為 nil。
func (l *Lab) Store() leaderboard.RankedStore { return l.store }

func (l *Lab) Metrics() metrics.Recorder { return l.rec }

func (l *Lab) Log() *slog.Logger { return l.log }

func (l *Lab) Now() time.Time { return l.now() }
