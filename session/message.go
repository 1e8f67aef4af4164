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

package session

import (
	"time"

	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/ledger"
	"github.com/zintix-labs/hanoilab/puzzle"
)

// Msg 送進 Controller.Handle 的輸入。所有輸入（按鍵、HTTP、計時器）都先轉成 Msg。
type Msg interface{ isMsg() }

// Select 選擇柱子 0..2
type Select struct{ Pole int }

// Cancel 取消目前的選柱
type Cancel struct{}

// Restart 以偏好的圓盤數開新局
type Restart struct{}

// Tick 每秒一次的計時訊號，只更新顯示用的經過秒數
type Tick struct{ Now time.Time }

// AdjustDisks 調整下一局的圓盤數（下一次 Restart 才生效）
type AdjustDisks struct{ Delta int }

func (Select) isMsg()      {}
func (Cancel) isMsg()      {}
func (Restart) isMsg()     {}
func (Tick) isMsg()        {}
func (AdjustDisks) isMsg() {}

// EventKind Handle 的結果分類
type EventKind uint8

const (
	EvIgnored EventKind = iota
	EvSelected
	EvCancelled
	EvMoved
	EvRejected
	EvWon
	EvRestarted
	EvTicked
	EvDisksChanged
)

var eventNames = map[EventKind]string{
	EvIgnored:      "ignored",
	EvSelected:     "selected",
	EvCancelled:    "cancelled",
	EvMoved:        "moved",
	EvRejected:     "rejected",
	EvWon:          "won",
	EvRestarted:    "restarted",
	EvTicked:       "ticked",
	EvDisksChanged: "disks_changed",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return "unknown"
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event 一次 Handle 的結果；Err 只在 EvRejected 時有值（非法輸入，已在本地復原）。
type Event struct {
	Kind    EventKind     `json:"kind"`
	Result  puzzle.Result `json:"-"`
	Err     error         `json:"-"`
	Elapsed int           `json:"elapsed"`
	Desired int           `json:"desired_disks"`
	Win     *WinReport    `json:"win,omitempty"`
}

// 勝利訊息分類
const (
	CategoryPerfect   = "PERFECT"
	CategoryNewRecord = "NEW RECORD"
	CategoryFaster    = "FASTER TIME"
	CategoryFirst     = "FIRST COMPLETION"
	CategorySolved    = "SOLVED"
)

// WinReport 一次完成的結算。
type WinReport struct {
	Disks    int               `json:"disks"`
	Moves    int               `json:"moves"`
	Seconds  int               `json:"seconds"`
	Record   ledger.RecordType `json:"record"`
	Perfect  bool              `json:"perfect"`
	Category string            `json:"category"`
	Best     ledger.Record     `json:"best"`
}

// Category 依紀錄類型決定顯示訊息：最少步數優先，其次依紀錄類型。
func Category(rt ledger.RecordType, perfect bool) string {
	if perfect || rt == ledger.Perfect {
		return CategoryPerfect
	}
	switch rt {
	case ledger.Moves:
		return CategoryNewRecord
	case ledger.Time:
		return CategoryFaster
	case ledger.First:
		return CategoryFirst
	default:
		return CategorySolved
	}
}

// Snapshot 給畫面或 API 的唯讀狀態。
type Snapshot struct {
	Disks    int                        `json:"disks"`
	Towers   [puzzle.Poles][]int        `json:"towers"`
	Selected int                        `json:"selected"` // -1 表示未選
	Moves    int                        `json:"moves"`
	Minimal  int                        `json:"minimal"`
	Phase    puzzle.Phase               `json:"phase"`
	Started  bool                       `json:"started"`
	Elapsed  int                        `json:"elapsed"`
	Desired  int                        `json:"desired_disks"`
	Message  string                     `json:"message,omitempty"`
	Win      *WinReport                 `json:"win,omitempty"`
	Qualify  *leaderboard.Qualification `json:"qualification,omitempty"`
	Placed   *leaderboard.Placement     `json:"placement,omitempty"`
}
