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

// Package badgerkv 以 BadgerDB 實作 storage.KV。
//
// 所有鍵都加上 "hanoi/" 前綴，讓同一個資料目錄可以與其他用途共存。
// 開啟時若設定了 GCInterval，會啟動背景 value-log GC，Close 時一併停止。
package badgerkv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/zintix-labs/hanoilab/errs"
)

const prefix = "hanoi/"

// Config BadgerDB 開啟參數
type Config struct {
	// Path 資料目錄；InMemory 時忽略。
	Path     string
	InMemory bool
	// SyncWrites 每次寫入都 fsync
	SyncWrites bool
	// Logger 為 nil 時關閉 badger 內部日誌
	Logger *slog.Logger
	// GCInterval 為 0 時不跑 value-log GC
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// DefaultConfig 正式環境預設值：同步寫入、每 5 分鐘 GC 一次。
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig 測試用：不落地、不 GC。
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger 把 slog 接到 badger.Logger 介面
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.log.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

// Store BadgerDB 版本的 KV。
type Store struct {
	db *badger.DB

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

// Open 依設定開啟資料庫。
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errs.NewFatal("badger path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, errs.Unavailable(errs.PersistenceUnavailable, err, "create badger directory")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{log: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Unavailable(errs.PersistenceUnavailable, err, "open badger")
	}

	s := &Store{db: db, log: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio > 1 {
			ratio = 0.5
		}
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.gcLoop(cfg.GCInterval, ratio)
	}
	return s, nil
}

func (s *Store) gcLoop(every time.Duration, ratio float64) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// ErrNoRewrite 代表不需要 GC
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				if s.log != nil {
					s.log.Warn("badger value log gc", slog.Any("err", err))
				}
			}
		}
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var (
		val   []byte
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", false, errs.Unavailable(errs.PersistenceUnavailable, err, "badger get "+key)
	}
	return string(val), found, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefix+key), []byte(value))
	})
	if err != nil {
		return errs.Unavailable(errs.PersistenceUnavailable, err, "badger set "+key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefix + key))
	})
	if err != nil {
		return errs.Unavailable(errs.PersistenceUnavailable, err, "badger delete "+key)
	}
	return nil
}

// Close 停止 GC 並關閉資料庫；可重複呼叫。
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
			<-s.done
		}
		err = s.db.Close()
	})
	return err
}
