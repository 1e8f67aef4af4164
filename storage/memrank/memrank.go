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

// Package memrank 記憶體版排行榜，支援 compare-and-swap。
package memrank

import (
	"context"
	"slices"
	"sync"

	"github.com/zintix-labs/hanoilab/leaderboard"
)

type Store struct {
	mu    sync.Mutex
	lists map[int][]leaderboard.Entry
}

func New() *Store {
	return &Store{lists: make(map[int][]leaderboard.Entry, 8)}
}

func (s *Store) FetchTopK(ctx context.Context, disks int) ([]leaderboard.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lists[disks]), nil
}

func (s *Store) WriteTopK(ctx context.Context, disks int, list []leaderboard.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.lists[disks] = slices.Clone(list)
	s.mu.Unlock()
	return nil
}

func (s *Store) SwapTopK(ctx context.Context, disks int, old, next []leaderboard.Entry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Equal(s.lists[disks], old) {
		return false, nil
	}
	s.lists[disks] = slices.Clone(next)
	return true, nil
}
