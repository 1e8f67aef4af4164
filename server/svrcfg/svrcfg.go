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

package svrcfg

import (
	"log/slog"
	"time"

	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/metrics"
	"github.com/zintix-labs/hanoilab/server/logger"
)

// DefaultAddr 未指定監聽位址時使用
const DefaultAddr = ":8080"

type SvrCfg struct {
	Log  *slog.Logger
	Addr string
	Lab  *hanoilab.Lab
	// Prom 非 nil 時掛上 /metrics
	Prom *metrics.Prometheus

	Sessions hanoilab.RuntimeOptions
	// 排行榜提交限流（每個 IP）
	SubmitPerMinute int
	SubmitBurst     int
	// Timeout 單一請求處理上限（含遠端排行榜），也是關閉時的寬限期
	Timeout time.Duration
}

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}
	if sc.Lab == nil {
		return errs.NewFatal("lab is required")
	}
	if sc.Addr == "" {
		sc.Addr = DefaultAddr
	}

	// 資源管理
	if sc.Sessions.Max <= 0 {
		sc.Sessions.Max = 1024
	}
	sc.Sessions.Max = min(sc.Sessions.Max, 100000)
	sc.SubmitPerMinute = max(1, sc.SubmitPerMinute)
	sc.SubmitBurst = max(1, sc.SubmitBurst)
	if sc.Timeout <= 0 {
		sc.Timeout = 5 * time.Second
	}
	return nil
}
