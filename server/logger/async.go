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

package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// AsyncHandler 把任一 slog.Handler 變成非阻塞：Handle 只把 record 放進佇列，
// 由背景 goroutine 寫出。佇列滿或已關閉時丟棄並計數，不把延遲帶回請求路徑。
//
// slog.Logger 會忽略 Handle 的錯誤，I/O 錯誤只能在 next 裡處理。
type AsyncHandler struct {
	next slog.Handler
	d    *dispatcher
}

type dispatcher struct {
	ch      chan queued
	closed  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Uint64
	// sink 關閉時回報丟棄數用（未經 WithAttrs/WithGroup 的原始 handler）
	sink slog.Handler
}

type queued struct {
	ctx context.Context
	rec slog.Record
	h   slog.Handler
}

// NewAsyncHandler buf 為佇列長度（<= 0 時 1024）；越大越不容易丟棄，關閉時要排空的也越多。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev)
	}
	if buf <= 0 {
		buf = 1024
	}
	d := &dispatcher{
		ch:     make(chan queued, buf),
		closed: make(chan struct{}),
		sink:   next,
	}
	d.wg.Add(1)
	go d.run()
	return &AsyncHandler{next: next, d: d}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.d != nil
}

// Dropped 因佇列滿或已關閉而丟棄的筆數
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.d.dropped.Load()
}

// Close 停止收新 record、排空佇列後返回；有丟棄時最後補寫一筆 Warn。可重複呼叫。
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	h.d.once.Do(func() {
		close(h.d.closed)
		h.d.wg.Wait()
		if n := h.d.dropped.Load(); n > 0 {
			rec := slog.NewRecord(time.Now(), slog.LevelWarn, "log records dropped", 0)
			rec.AddAttrs(slog.Uint64("count", n))
			_ = h.d.sink.Handle(context.Background(), rec)
		}
	})
	h.d.wg.Wait()
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case q := <-d.ch:
			_ = q.h.Handle(q.ctx, q.rec)
		case <-d.closed:
			for {
				select {
				case q := <-d.ch:
					_ = q.h.Handle(q.ctx, q.rec)
				default:
					return
				}
			}
		}
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	select {
	case <-h.d.closed:
		h.d.dropped.Add(1)
		return nil
	default:
	}
	// Clone：record 的屬性切片會跨 goroutine
	select {
	case h.d.ch <- queued{ctx: context.WithoutCancel(ctx), rec: r.Clone(), h: h.next}:
	default:
		h.d.dropped.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), d: h.d}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), d: h.d}
}
