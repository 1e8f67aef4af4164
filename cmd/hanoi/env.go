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
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/config"
	"github.com/zintix-labs/hanoilab/server/logger"
)

// env 一次指令所需的設定、日誌與 Lab
type env struct {
	cfg    *config.Config
	log    *slog.Logger
	stores *hanoilab.Stores
	lab    *hanoilab.Lab

	logFile io.Closer
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	return config.Load(cfgPath, func(c *config.Config) {
		if flags.Changed("data-dir") {
			c.DataDir = dataDir
		}
		if inMemory {
			c.KV.InMemory = true
		}
		if flags.Changed("board") {
			c.Leaderboard.Driver = boardDriver
		}
		if boardURL != "" {
			c.Leaderboard.URL = boardURL
			if !flags.Changed("board") {
				c.Leaderboard.Driver = config.DriverRemote
			}
		}
	})
}

// openLog 終端機被 TUI 佔用，日誌寫到 data_dir/hanoi.log；純記憶體模式則不落地。
func openLog(cfg *config.Config) (*slog.Logger, io.Closer) {
	if cfg.KV.InMemory || cfg.DataDir == "" {
		return logger.NewDefaultLogger(logger.ModeSilence), nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return logger.NewDefaultLogger(logger.ModeSilence), nil
	}
	f, err := os.OpenFile(filepath.Join(cfg.DataDir, "hanoi.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return logger.NewDefaultLogger(logger.ModeSilence), nil
	}
	return logger.NewWriterLogger(logger.ParseMode(cfg.LogMode), f), f
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, lf := openLog(cfg)
	e := &env{cfg: cfg, log: log, logFile: lf}

	e.stores = hanoilab.OpenStores(cfg, log, nil)
	e.lab, err = hanoilab.New(cmd.Context(), hanoilab.Options{
		KV:         e.stores.KV,
		KVDegraded: e.stores.Degraded,
		Board:      e.stores.Board,
		Retries:    cfg.Leaderboard.Retries,
		Log:        log,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *env) Close() error {
	var err error
	if e.stores != nil {
		err = e.stores.Close()
	}
	if e.logFile != nil {
		e.logFile.Close()
	}
	return err
}
