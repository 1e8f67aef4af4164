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

package dto

import (
	"github.com/zintix-labs/hanoilab/leaderboard"
)

// LeaderboardDoc GET /v1/leaderboard/{disks} 的回應，也是遠端 store 的讀取格式。
// Version 同時放在 ETag header。
type LeaderboardDoc struct {
	Disks   int                 `json:"disks"`
	Version string              `json:"version"`
	Entries []leaderboard.Entry `json:"entries"`
}

func NewLeaderboardDoc(disks int, list []leaderboard.Entry) LeaderboardDoc {
	if list == nil {
		list = []leaderboard.Entry{}
	}
	return LeaderboardDoc{Disks: disks, Version: leaderboard.Version(list), Entries: list}
}

// LeaderboardPut PUT /v1/leaderboard/{disks}：整份取代。
// 帶 If-Match 時為 compare-and-swap，版本不符回 412。
type LeaderboardPut struct {
	Entries []leaderboard.Entry `json:"entries" validate:"max=10"`
}

// SubmitRequest POST /v1/leaderboard/{disks}：由伺服器端判斷是否入榜並寫入。
// 數值合法性交給 leaderboard.ValidateSubmission，才能回傳固定的原因訊息。
type SubmitRequest struct {
	Name  string `json:"name" validate:"required,max=64"`
	Moves int    `json:"moves"`
	Time  int    `json:"time"`
}

// SubmitResponse POST /v1/leaderboard/{disks} 的回應；未入榜時 Placement 為 nil。
type SubmitResponse struct {
	leaderboard.Qualification
	Placement *leaderboard.Placement `json:"placement,omitempty"`
}
