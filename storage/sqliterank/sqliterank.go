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

// Package sqliterank 以 SQLite（modernc.org/sqlite，純 Go）保存排行榜。
//
// 每個圓盤數的名單以 (disks, pos) 為主鍵逐列存放；整份寫回與 CAS 都在單一交易內完成。
package sqliterank

import (
	"context"
	"database/sql"
	"slices"

	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/leaderboard"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open 開啟資料庫並執行 migration。dsn 例如 "file:board.db" 或 ":memory:"。
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Unavailable(errs.RemoteUnavailable, err, "open sqlite")
	}
	// 單一連線：寫入天然序列化，:memory: 也不會因為多連線而分裂成多個資料庫
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errs.Unavailable(errs.RemoteUnavailable, err, "enable wal")
	}
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate 建立資料表（可重複執行）。
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS leaderboard (
			disks  INTEGER NOT NULL,
			pos    INTEGER NOT NULL,
			name   TEXT    NOT NULL,
			moves  INTEGER NOT NULL,
			time_s INTEGER NOT NULL,
			ts     INTEGER NOT NULL,
			PRIMARY KEY (disks, pos)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_rank ON leaderboard(disks, moves, time_s)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return errs.Wrap(err, "sqlite migration failed")
		}
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func fetch(ctx context.Context, q queryer, disks int) ([]leaderboard.Entry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT name, moves, time_s, ts FROM leaderboard WHERE disks = ? ORDER BY pos`, disks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]leaderboard.Entry, 0, leaderboard.K)
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.Name, &e.Moves, &e.Time, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func replace(ctx context.Context, tx *sql.Tx, disks int, list []leaderboard.Entry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM leaderboard WHERE disks = ?`, disks); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leaderboard (disks, pos, name, moves, time_s, ts) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range list {
		if _, err := stmt.ExecContext(ctx, disks, i, e.Name, e.Moves, e.Time, e.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) FetchTopK(ctx context.Context, disks int) ([]leaderboard.Entry, error) {
	list, err := fetch(ctx, s.db, disks)
	if err != nil {
		return nil, errs.Unavailable(errs.RemoteUnavailable, err, "sqlite fetch")
	}
	return list, nil
}

func (s *Store) WriteTopK(ctx context.Context, disks int, list []leaderboard.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Unavailable(errs.RemoteUnavailable, err, "sqlite begin")
	}
	defer tx.Rollback()
	if err := replace(ctx, tx, disks, list); err != nil {
		return errs.Unavailable(errs.RemoteUnavailable, err, "sqlite write")
	}
	if err := tx.Commit(); err != nil {
		return errs.Unavailable(errs.RemoteUnavailable, err, "sqlite commit")
	}
	return nil
}

// SwapTopK 在同一交易內比對目前名單，相同才寫入。
func (s *Store) SwapTopK(ctx context.Context, disks int, old, next []leaderboard.Entry) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errs.Unavailable(errs.RemoteUnavailable, err, "sqlite begin")
	}
	defer tx.Rollback()

	cur, err := fetch(ctx, tx, disks)
	if err != nil {
		return false, errs.Unavailable(errs.RemoteUnavailable, err, "sqlite fetch")
	}
	if !slices.Equal(cur, old) {
		return false, nil
	}
	if err := replace(ctx, tx, disks, next); err != nil {
		return false, errs.Unavailable(errs.RemoteUnavailable, err, "sqlite write")
	}
	if err := tx.Commit(); err != nil {
		return false, errs.Unavailable(errs.RemoteUnavailable, err, "sqlite commit")
	}
	return true, nil
}

// Boards 回傳目前有資料的圓盤數（遞增）。
func (s *Store) Boards(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT disks FROM leaderboard ORDER BY disks`)
	if err != nil {
		return nil, errs.Unavailable(errs.RemoteUnavailable, err, "sqlite boards")
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, errs.Unavailable(errs.RemoteUnavailable, err, "sqlite boards")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
