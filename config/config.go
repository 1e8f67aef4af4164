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

// Package config 兩個執行檔共用的 YAML 設定。
//
// 順序：Default() → 檔案覆蓋（Load）→ 旗標覆蓋（由 cmd 自行處理）→ Validate() 正規化。
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zintix-labs/hanoilab/errs"
	"gopkg.in/yaml.v3"
)

// 排行榜後端
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRemote = "remote"
)

// 日誌模式（對應 server/logger）
const (
	LogDev     = "ModeDev"
	LogProd    = "ModeProd"
	LogSilence = "ModeSilence"
)

type Config struct {
	Addr        string            `yaml:"addr"`
	LogMode     string            `yaml:"log_mode"`
	DataDir     string            `yaml:"data_dir"`
	KV          KVConfig          `yaml:"kv"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	SubmitLimit SubmitLimitConfig `yaml:"submit_limit"`
}

type KVConfig struct {
	InMemory bool `yaml:"in_memory"`
}

type LeaderboardConfig struct {
	Driver  string        `yaml:"driver"`
	DSN     string        `yaml:"dsn"`
	URL     string        `yaml:"url"`
	Retries int           `yaml:"retries"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionsConfig struct {
	Max     int           `yaml:"max"`
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// SubmitLimitConfig 每個 client IP 的排行榜提交速率；PerMinute=0 表示不限制。
type SubmitLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

func Default() *Config {
	return &Config{
		Addr:    ":8080",
		LogMode: LogDev,
		DataDir: defaultDataDir(),
		Leaderboard: LeaderboardConfig{
			Driver:  DriverSQLite,
			Retries: 3,
			Timeout: 5 * time.Second,
		},
		Sessions: SessionsConfig{
			Max:     1024,
			IdleTTL: 30 * time.Minute,
		},
		SubmitLimit: SubmitLimitConfig{
			PerMinute: 30,
			Burst:     5,
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "hanoilab")
	}
	return ".hanoilab"
}

// Load 讀取 path 覆蓋預設值；path 為空時只用預設值。未知欄位視為錯誤。
// overrides（通常來自命令列旗標）在檔案之後、Validate 之前套用。
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(err, "read config")
		}
		if err := cfg.Overlay(raw); err != nil {
			return nil, err
		}
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay 以 YAML 內容覆蓋目前設定（只覆蓋有出現的欄位）。
func (c *Config) Overlay(raw []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errs.WrapWithExtra(err, "parse config", "yaml")
	}
	return nil
}

// Validate 正規化並檢查設定。
func (c *Config) Validate() error {
	c.Addr = strings.TrimSpace(c.Addr)
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	switch c.LogMode {
	case LogDev, LogProd, LogSilence:
	case "":
		c.LogMode = LogDev
	default:
		return errs.Warnf("unknown log_mode %q", c.LogMode)
	}
	if c.DataDir == "" && !c.KV.InMemory {
		return errs.NewWarn("data_dir is required unless kv.in_memory is set")
	}

	lb := &c.Leaderboard
	lb.Driver = strings.ToLower(strings.TrimSpace(lb.Driver))
	switch lb.Driver {
	case "", DriverMemory:
		lb.Driver = DriverMemory
	case DriverSQLite:
		if lb.DSN == "" {
			if c.DataDir == "" {
				return errs.NewWarn("leaderboard.dsn is required when data_dir is empty")
			}
			lb.DSN = filepath.Join(c.DataDir, "leaderboard.db")
		}
	case DriverRemote:
		if lb.URL == "" {
			return errs.NewWarn("leaderboard.url is required for the remote driver")
		}
	default:
		return errs.Warnf("unknown leaderboard.driver %q", lb.Driver)
	}
	lb.Retries = min(max(lb.Retries, 1), 10)
	if lb.Timeout <= 0 {
		lb.Timeout = 5 * time.Second
	}

	c.Sessions.Max = min(max(c.Sessions.Max, 1), 100_000)
	if c.Sessions.IdleTTL < time.Minute {
		c.Sessions.IdleTTL = time.Minute
	}

	if c.SubmitLimit.PerMinute < 0 {
		c.SubmitLimit.PerMinute = 0
	}
	if c.SubmitLimit.Burst < 1 {
		c.SubmitLimit.Burst = 1
	}
	return nil
}

// KVPath badger 目錄
func (c *Config) KVPath() string {
	return filepath.Join(c.DataDir, "kv")
}
