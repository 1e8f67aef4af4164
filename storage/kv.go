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

// Package storage 定義本地持久化所需的最小鍵值合約（KV）。
//
// 帳本與偏好設定只依賴 KV 介面；實際落地可以是記憶體（測試/降級）或 BadgerDB（storage/badgerkv）。
package storage

import (
	"context"
	"sort"
	"sync"
)

// 本程序獨佔的鍵
const (
	KeyHighScores   = "hanoi.highscores"
	KeyScoreVisible = "hanoi.scores.visible"
	KeyTheme        = "hanoi.theme"
	KeyDisks        = "hanoi.disks"
)

// KV 不透明的字串鍵值儲存。
//
// 實作可能隨時失敗（磁碟滿、權限、關閉中）；呼叫端必須把錯誤視為「可降級」而非致命。
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Memory 以 map 實作的 KV，可安全併發使用。
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string, 8)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Keys 回傳目前所有鍵（排序後），方便除錯與測試。
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
