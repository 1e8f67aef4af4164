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

// Package prefs 玩家偏好：成績面板是否顯示、主題、下一局的圓盤數。
//
// 每次變更立即寫回 KV；寫入失敗只記錄並保留在記憶體（降級），不影響遊戲。
package prefs

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/zintix-labs/hanoilab/catalog"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/metrics"
	"github.com/zintix-labs/hanoilab/puzzle"
	"github.com/zintix-labs/hanoilab/storage"
)

// Values 偏好快照
type Values struct {
	ScoresVisible bool   `json:"scores_visible"`
	Theme         string `json:"theme"`
	Disks         int    `json:"disks"`
}

// Patch 部分更新；nil 欄位不變。
type Patch struct {
	ScoresVisible *bool
	Theme         *string
	Disks         *int
}

type Options struct {
	Log     *slog.Logger
	Metrics metrics.Recorder
	// Degraded 表示 kv 是持久層開不起來時的記憶體替代品
	Degraded bool
}

type Prefs struct {
	mu       sync.Mutex
	kv       storage.KV
	themes   *catalog.Catalog
	v        Values
	degraded bool

	log *slog.Logger
	rec metrics.Recorder
}

// New 建立偏好並從 KV 讀回；缺值或不合法的值使用預設。
func New(ctx context.Context, kv storage.KV, themes *catalog.Catalog, opt Options) (*Prefs, error) {
	if themes == nil {
		return nil, errs.NewFatal("theme catalog is required")
	}
	p := &Prefs{
		kv:     kv,
		themes: themes,
		v: Values{
			ScoresVisible: true,
			Theme:         themes.Default().ID,
			Disks:         puzzle.MinDisks,
		},
		log:      opt.Log,
		rec:      metrics.OrNop(opt.Metrics),
		degraded: opt.Degraded,
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	if kv == nil {
		p.degraded = true
		return p, nil
	}
	p.load(ctx)
	return p, nil
}

func (p *Prefs) load(ctx context.Context) {
	get := func(key string) (string, bool) {
		raw, ok, err := p.kv.Get(ctx, key)
		if err != nil {
			p.markDegraded("get", err)
			return "", false
		}
		return raw, ok
	}
	if raw, ok := get(storage.KeyScoreVisible); ok {
		if b, err := strconv.ParseBool(raw); err == nil {
			p.v.ScoresVisible = b
		}
	}
	if raw, ok := get(storage.KeyTheme); ok {
		if t, found := p.themes.Get(raw); found {
			p.v.Theme = t.ID
		}
	}
	if raw, ok := get(storage.KeyDisks); ok {
		if n, err := strconv.Atoi(raw); err == nil && puzzle.ValidDiskCount(n) {
			p.v.Disks = n
		}
	}
}

func (p *Prefs) Values() Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v
}

func (p *Prefs) Disks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v.Disks
}

// Theme 目前主題的完整定義。
func (p *Prefs) Theme() catalog.Theme {
	p.mu.Lock()
	id := p.v.Theme
	p.mu.Unlock()
	t, _ := p.themes.Get(id)
	return t
}

func (p *Prefs) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

// ToggleVisible 切換成績面板並回傳新值。
func (p *Prefs) ToggleVisible(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.v.ScoresVisible = !p.v.ScoresVisible
	p.setLocked(ctx, storage.KeyScoreVisible, strconv.FormatBool(p.v.ScoresVisible))
	return p.v.ScoresVisible
}

// CycleTheme 切到下一個主題（循環）。
func (p *Prefs) CycleTheme(ctx context.Context) catalog.Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.themes.Next(p.v.Theme)
	p.v.Theme = t.ID
	p.setLocked(ctx, storage.KeyTheme, t.ID)
	return t
}

// IncDisks / DecDisks 調整下一局的圓盤數，限制在 [3,10]；回傳新值。
func (p *Prefs) IncDisks(ctx context.Context) int { return p.AdjustDisks(ctx, 1) }

func (p *Prefs) DecDisks(ctx context.Context) int { return p.AdjustDisks(ctx, -1) }

func (p *Prefs) AdjustDisks(ctx context.Context, delta int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := min(max(p.v.Disks+delta, puzzle.MinDisks), puzzle.MaxDisks)
	if n != p.v.Disks {
		p.v.Disks = n
		p.setLocked(ctx, storage.KeyDisks, strconv.Itoa(n))
	}
	return n
}

// Apply 套用部分更新；任一欄位不合法則整批拒絕。
func (p *Prefs) Apply(ctx context.Context, patch Patch) (Values, error) {
	if patch.Theme != nil && !p.themes.Has(*patch.Theme) {
		return Values{}, errs.Warnf("unknown theme %q", *patch.Theme)
	}
	if patch.Disks != nil && !puzzle.ValidDiskCount(*patch.Disks) {
		return Values{}, errs.Warnf("disks must be in [%d,%d]", puzzle.MinDisks, puzzle.MaxDisks)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if patch.ScoresVisible != nil && *patch.ScoresVisible != p.v.ScoresVisible {
		p.v.ScoresVisible = *patch.ScoresVisible
		p.setLocked(ctx, storage.KeyScoreVisible, strconv.FormatBool(p.v.ScoresVisible))
	}
	if patch.Theme != nil {
		t, _ := p.themes.Get(*patch.Theme)
		if t.ID != p.v.Theme {
			p.v.Theme = t.ID
			p.setLocked(ctx, storage.KeyTheme, t.ID)
		}
	}
	if patch.Disks != nil && *patch.Disks != p.v.Disks {
		p.v.Disks = *patch.Disks
		p.setLocked(ctx, storage.KeyDisks, strconv.Itoa(p.v.Disks))
	}
	return p.v, nil
}

func (p *Prefs) setLocked(ctx context.Context, key, value string) {
	if p.kv == nil {
		return
	}
	if err := p.kv.Set(ctx, key, value); err != nil {
		p.markDegraded("prefs", err)
	}
}

func (p *Prefs) markDegraded(op string, err error) {
	p.degraded = true
	p.rec.PersistenceError(op)
	p.log.Warn("preference persistence failed, keeping value in memory",
		slog.String("op", op), slog.Any("err", err))
}
