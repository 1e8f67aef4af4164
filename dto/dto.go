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

// Package dto HTTP 邊界的請求與回應結構。
package dto

import (
	"github.com/zintix-labs/hanoilab/catalog"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/ledger"
	"github.com/zintix-labs/hanoilab/prefs"
	"github.com/zintix-labs/hanoilab/session"
)

// GameResponse 所有 /v1/games 端點的回應
type GameResponse struct {
	ID    string           `json:"id"`
	State session.Snapshot `json:"state"`
	Event *session.Event   `json:"event,omitempty"`
}

// QualifyResponse GET /v1/games/{id}/qualify
type QualifyResponse struct {
	// Enabled 為 false 表示伺服器未設定排行榜
	Enabled bool `json:"enabled"`
	leaderboard.Qualification
}

type ScoresResponse struct {
	Scores   ledger.Mapping `json:"scores"`
	Degraded bool           `json:"degraded"`
}

type ImportResponse struct {
	Updated int `json:"updated"`
}

type PrefsResponse struct {
	prefs.Values
	Degraded bool `json:"degraded"`
}

type ThemesResponse struct {
	Default string          `json:"default"`
	Themes  []catalog.Theme `json:"themes"`
}

// ErrorBody 錯誤回應
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
