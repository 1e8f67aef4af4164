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
	"errors"
	"io"
	"log/slog"

	"github.com/zintix-labs/hanoilab/config"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/metrics"
	"github.com/zintix-labs/hanoilab/storage"
	"github.com/zintix-labs/hanoilab/storage/badgerkv"
	"github.com/zintix-labs/hanoilab/storage/httprank"
	"github.com/zintix-labs/hanoilab/storage/memrank"
	"github.com/zintix-labs/hanoilab/storage/sqliterank"
)

// Stores 依設定開啟的儲存後端。Close 以開啟的反向順序釋放。
type Stores struct {
	KV    storage.KV
	Board leaderboard.RankedStore
	// Degraded 持久 KV 開不起來，KV 是記憶體替代品（成績不跨程序保存）
	Degraded bool

	closers []io.Closer
}

// OpenStores 依 cfg 開啟本機 KV 與排行榜；cfg 應已通過 Validate。
//
// 不會失敗：KV 開不起來（例如另一個程序持有目錄鎖）時改用記憶體 KV 並標記 Degraded；
// 排行榜開不起來時 Board 為 nil，遊戲照常進行但沒有排行榜。
func OpenStores(cfg *config.Config, log *slog.Logger, rec metrics.Recorder) *Stores {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	rec = metrics.OrNop(rec)
	s := &Stores{}

	if cfg.KV.InMemory {
		s.KV = storage.NewMemory()
	} else {
		bcfg := badgerkv.DefaultConfig(cfg.KVPath())
		bcfg.Logger = log.With(slog.String("component", "badger"))
		kv, err := badgerkv.Open(bcfg)
		if err != nil {
			rec.PersistenceError("open")
			log.Warn("kv unavailable, scores and preferences will not persist",
				slog.String("path", cfg.KVPath()), slog.Any("err", err))
			s.KV = storage.NewMemory()
			s.Degraded = true
		} else {
			s.KV = kv
			s.closers = append(s.closers, kv)
		}
	}

	board, closer, err := OpenBoard(cfg.Leaderboard)
	switch {
	case err != nil:
		log.Warn("leaderboard unavailable, running without it",
			slog.String("driver", cfg.Leaderboard.Driver), slog.Any("err", err))
	default:
		s.Board = board
		if closer != nil {
			s.closers = append(s.closers, closer)
		}
	}
	log.Debug("stores opened",
		slog.Bool("kv_in_memory", cfg.KV.InMemory),
		slog.Bool("kv_degraded", s.Degraded),
		slog.Bool("leaderboard", s.Board != nil))
	return s
}

// OpenBoard 依 driver 建立排行榜；closer 可能為 nil。
func OpenBoard(cfg config.LeaderboardConfig) (leaderboard.RankedStore, io.Closer, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqliterank.Open(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case config.DriverRemote:
		c, err := httprank.New(cfg.URL, httprank.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	default:
		return memrank.New(), nil, nil
	}
}

func (s *Stores) Close() error {
	var all []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			all = append(all, err)
		}
	}
	s.closers = nil
	return errors.Join(all...)
}
