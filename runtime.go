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

package hanoilab

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/session"
)

// RuntimeOptions SessionRuntime 的容量與回收設定
type RuntimeOptions struct {
	// Max 同時存在的 session 上限；超過時淘汰最久未使用者。預設 1024
	Max int
	// IdleTTL 閒置超過此時間的 session 會被回收；0 表示不回收
	IdleTTL time.Duration
	// SweepEvery Run 的回收週期；預設 IdleTTL/2（最少 1 秒）
	SweepEvery time.Duration
}

// SessionRuntime 多人服務用的 session 容器。
//
// Controller 本身不可併發使用；這裡每個 session 一把鎖，
// 同一 session 的請求依序執行，不同 session 互不阻塞。
type SessionRuntime struct {
	lab *Lab

	mu   sync.Mutex
	byID map[string]*list.Element
	lru  *list.List // front = 最近使用

	max   int
	ttl   time.Duration
	sweep time.Duration

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string
}

type sessionEntry struct {
	id   string
	mu   sync.Mutex
	ctl  *session.Controller
	used time.Time
}

// NewRuntime 建立 SessionRuntime。背景回收由 Run 負責（可註冊為 app.Component）。
func (l *Lab) NewRuntime(opt RuntimeOptions) *SessionRuntime {
	rt := &SessionRuntime{
		lab:   l,
		byID:  make(map[string]*list.Element, 64),
		lru:   list.New(),
		max:   opt.Max,
		ttl:   opt.IdleTTL,
		sweep: opt.SweepEvery,
		done:  make(chan struct{}),
	}
	if rt.max <= 0 {
		rt.max = 1024
	}
	if rt.ttl > 0 && rt.sweep <= 0 {
		rt.sweep = max(rt.ttl/2, time.Second)
	}
	return rt
}

// Create 開新局並回傳 session id 與初始快照。disks 為 0 時使用偏好。
func (rt *SessionRuntime) Create(disks int) (string, session.Snapshot, error) {
	if rt.isClosed() {
		return "", session.Snapshot{}, errs.NewFatal("session runtime closed: " + rt.ClosedReason())
	}
	ctl, err := rt.lab.NewController(disks)
	if err != nil {
		return "", session.Snapshot{}, err
	}
	e := &sessionEntry{id: uuid.NewString(), ctl: ctl, used: rt.lab.Now()}
	snap := ctl.Snapshot()

	rt.mu.Lock()
	rt.byID[e.id] = rt.lru.PushFront(e)
	evicted := 0
	for rt.lru.Len() > rt.max {
		rt.removeLocked(rt.lru.Back())
		evicted++
	}
	n := rt.lru.Len()
	rt.mu.Unlock()

	if evicted > 0 {
		rt.lab.Log().Info("session evicted", slog.Int("count", evicted), slog.Int("max", rt.max))
	}
	rt.lab.Metrics().ActiveSessions(n)
	return e.id, snap, nil
}

// Do 在 session 的鎖內執行 fn。找不到 id 回傳 NotFound。
func (rt *SessionRuntime) Do(ctx context.Context, id string, fn func(*session.Controller) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-rt.done:
		rt.closed.Store(true)
		return errs.NewFatal("session runtime closed: " + rt.ClosedReason())
	default:
	}

	rt.mu.Lock()
	el, ok := rt.byID[id]
	if !ok {
		rt.mu.Unlock()
		return errs.NotFoundf("session %q not found", id)
	}
	rt.lru.MoveToFront(el)
	e := el.Value.(*sessionEntry)
	rt.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.used = rt.lab.Now()
	return fn(e.ctl)
}

// Delete 移除 session；回傳是否存在。
func (rt *SessionRuntime) Delete(id string) bool {
	rt.mu.Lock()
	el, ok := rt.byID[id]
	if ok {
		rt.removeLocked(el)
	}
	n := rt.lru.Len()
	rt.mu.Unlock()
	if ok {
		rt.lab.Metrics().ActiveSessions(n)
	}
	return ok
}

func (rt *SessionRuntime) Len() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.lru.Len()
}

// Sweep 回收在 now 之前已閒置超過 IdleTTL 的 session，回傳回收數量。
func (rt *SessionRuntime) Sweep(now time.Time) int {
	if rt.ttl <= 0 {
		return 0
	}
	cut := now.Add(-rt.ttl)

	rt.mu.Lock()
	removed := 0
	for el := rt.lru.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*sessionEntry)
		// 正在執行中的 session 視為活躍
		if !e.mu.TryLock() {
			el = prev
			continue
		}
		idle := e.used.Before(cut)
		e.mu.Unlock()
		if idle {
			rt.removeLocked(el)
			removed++
		}
		el = prev
	}
	n := rt.lru.Len()
	rt.mu.Unlock()

	if removed > 0 {
		rt.lab.Log().Debug("idle sessions swept", slog.Int("removed", removed), slog.Int("active", n))
		rt.lab.Metrics().ActiveSessions(n)
	}
	return removed
}

// Run 阻塞直到 runtime 關閉；IdleTTL > 0 時週期性呼叫 Sweep。
func (rt *SessionRuntime) Run() error {
	if rt.ttl <= 0 {
		<-rt.done
		return nil
	}
	t := time.NewTicker(rt.sweep)
	defer t.Stop()
	for {
		select {
		case <-rt.done:
			return nil
		case <-t.C:
			rt.Sweep(rt.lab.Now())
		}
	}
}

func (rt *SessionRuntime) removeLocked(el *list.Element) {
	e := rt.lru.Remove(el).(*sessionEntry)
	delete(rt.byID, e.id)
}

func (rt *SessionRuntime) isClosed() bool {
	select {
	case <-rt.done:
		rt.closed.Store(true)
		return true
	default:
		return false
	}
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *SessionRuntime) Close() {
	rt.closeWithReason("closed")
}

func (rt *SessionRuntime) Name() string { return "sessions" }

// Shutdown 供 app.Component 使用：關閉 runtime 並清空所有 session。
func (rt *SessionRuntime) Shutdown(ctx context.Context) error {
	rt.closeWithReason("shutdown")
	rt.mu.Lock()
	rt.byID = make(map[string]*list.Element)
	rt.lru.Init()
	rt.mu.Unlock()
	rt.lab.Metrics().ActiveSessions(0)
	return ctx.Err()
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *SessionRuntime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *SessionRuntime) Closed() bool {
	return rt.closed.Load()
}

func (rt *SessionRuntime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
