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

// Package metrics 收集遊玩與排行榜事件的計數。
//
// 核心套件只面向 Recorder 介面；server 端注入 Prometheus 版本，測試與 CLI 使用 Nop。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder interface {
	Move()
	Rejected(reason string)
	Win(disks int, record string)
	Submission(result string)
	PersistenceError(op string)
	ActiveSessions(n int)
}

// Nop 什麼都不做
type Nop struct{}

func (Nop) Move()                   {}
func (Nop) Rejected(string)         {}
func (Nop) Win(int, string)         {}
func (Nop) Submission(string)       {}
func (Nop) PersistenceError(string) {}
func (Nop) ActiveSessions(int)      {}

// OrNop 讓 nil Recorder 也能安全呼叫
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Prometheus 以 client_golang 實作 Recorder。
type Prometheus struct {
	reg         *prometheus.Registry
	moves       prometheus.Counter
	rejected    *prometheus.CounterVec
	wins        *prometheus.CounterVec
	submissions *prometheus.CounterVec
	persistErrs *prometheus.CounterVec
	sessions    prometheus.Gauge
}

// NewPrometheus 在獨立的 registry 上註冊所有 collector；reg 為 nil 時自行建立。
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Prometheus{
		reg: reg,
		moves: f.NewCounter(prometheus.CounterOpts{
			Name: "hanoi_moves_total",
			Help: "Legal moves applied across all sessions",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hanoi_rejected_inputs_total",
			Help: "Rejected gameplay inputs by reason",
		}, []string{"reason"}),
		wins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hanoi_wins_total",
			Help: "Solved puzzles by disk count and record type",
		}, []string{"disks", "record"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hanoi_leaderboard_submissions_total",
			Help: "Leaderboard submissions by result",
		}, []string{"result"}),
		persistErrs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hanoi_persistence_errors_total",
			Help: "Key-value store failures by operation",
		}, []string{"op"}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "hanoi_active_sessions",
			Help: "Live sessions held by the server runtime",
		}),
	}
}

func (p *Prometheus) Move() { p.moves.Inc() }

func (p *Prometheus) Rejected(reason string) { p.rejected.WithLabelValues(reason).Inc() }

func (p *Prometheus) Win(disks int, record string) {
	p.wins.WithLabelValues(strconv.Itoa(disks), record).Inc()
}

func (p *Prometheus) Submission(result string) { p.submissions.WithLabelValues(result).Inc() }

func (p *Prometheus) PersistenceError(op string) { p.persistErrs.WithLabelValues(op).Inc() }

func (p *Prometheus) ActiveSessions(n int) { p.sessions.Set(float64(n)) }

// Registry 回傳底層 registry（測試用 testutil 讀值）。
func (p *Prometheus) Registry() *prometheus.Registry { return p.reg }

// Handler 回傳 /metrics 的 http.Handler。
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}
