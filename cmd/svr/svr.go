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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/config"
	"github.com/zintix-labs/hanoilab/metrics"
	"github.com/zintix-labs/hanoilab/perf"
	"github.com/zintix-labs/hanoilab/server"
	"github.com/zintix-labs/hanoilab/server/logger"
	"github.com/zintix-labs/hanoilab/server/svrcfg"
)

// HTTP 版河內塔：設定檔先覆蓋預設值，命令列旗標最後覆蓋。
func main() {
	f := parseFlags()
	mode, err := perf.ParseMode(f.PProf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sCfg, release, err := f.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer release()
	if err := perf.Run(f.PProfDir, mode, func() { server.Run(context.Background(), sCfg) }); err != nil {
		sCfg.Log.Error("write profile failed", slog.Any("err", err))
	}
}

type flags struct {
	Config   string
	Addr     string
	LogMode  string
	DataDir  string
	InMemory bool
	Board    string
	BoardURL string
	PProf    string
	PProfDir string
}

func parseFlags() *flags {
	f := new(flags)
	flag.StringVar(&f.Config, "config", "", "YAML config file")
	flag.StringVar(&f.Addr, "addr", "", "listen address (default :8080)")
	flag.StringVar(&f.LogMode, "log-mode", "", "log mode: ModeDev|ModeProd|ModeSilence")
	flag.StringVar(&f.DataDir, "data-dir", "", "data directory for badger and sqlite")
	flag.BoolVar(&f.InMemory, "in-memory", false, "keep scores and preferences in memory only")
	flag.StringVar(&f.Board, "board", "", "leaderboard driver: memory|sqlite|remote")
	flag.StringVar(&f.BoardURL, "board-url", "", "remote leaderboard base url")
	flag.StringVar(&f.PProf, "pprof", "", "profile the whole run: cpu|heap|allocs")
	flag.StringVar(&f.PProfDir, "pprof-dir", perf.DefaultDir, "profile output directory")
	flag.Parse()
	return f
}

// load 組出 SvrCfg；release 關閉儲存後端並排空非同步日誌。
func (f *flags) load() (sCfg *svrcfg.SvrCfg, release func(), err error) {
	cfg, err := config.Load(f.Config, f.apply)
	if err != nil {
		return nil, nil, err
	}

	log, logs := logger.NewAsync(4096, logger.ParseMode(cfg.LogMode))
	prom := metrics.NewPrometheus(prometheus.NewRegistry())
	stores := hanoilab.OpenStores(cfg, log, prom)
	release = func() {
		if err := stores.Close(); err != nil {
			log.Error("close stores failed", slog.Any("err", err))
		}
		logs.Close()
	}

	lab, err := hanoilab.New(context.Background(), hanoilab.Options{
		KV:         stores.KV,
		KVDegraded: stores.Degraded,
		Board:      stores.Board,
		Retries:    cfg.Leaderboard.Retries,
		Log:        log,
		Metrics:    prom,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	log.Info("config loaded",
		slog.String("data_dir", cfg.DataDir),
		slog.Bool("kv_in_memory", cfg.KV.InMemory),
		slog.Bool("kv_degraded", stores.Degraded),
		slog.String("leaderboard", cfg.Leaderboard.Driver))

	sCfg = &svrcfg.SvrCfg{
		Log:  log,
		Addr: cfg.Addr,
		Lab:  lab,
		Prom: prom,
		Sessions: hanoilab.RuntimeOptions{
			Max:     cfg.Sessions.Max,
			IdleTTL: cfg.Sessions.IdleTTL,
		},
		SubmitPerMinute: cfg.SubmitLimit.PerMinute,
		SubmitBurst:     cfg.SubmitLimit.Burst,
		Timeout:         cfg.Leaderboard.Timeout,
	}
	return sCfg, release, nil
}

// apply 只覆蓋有指定的旗標
func (f *flags) apply(c *config.Config) {
	if f.Addr != "" {
		c.Addr = f.Addr
	}
	if f.LogMode != "" {
		c.LogMode = f.LogMode
	}
	if f.DataDir != "" {
		c.DataDir = f.DataDir
	}
	if f.InMemory {
		c.KV.InMemory = true
	}
	if f.Board != "" {
		c.Leaderboard.Driver = f.Board
	}
	if f.BoardURL != "" {
		c.Leaderboard.URL = f.BoardURL
		if f.Board == "" {
			c.Leaderboard.Driver = config.DriverRemote
		}
	}
}
