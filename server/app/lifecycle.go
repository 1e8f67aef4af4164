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

package app

import "context"

// Component 由 App 管理的長生命週期元件（HTTP server、session 回收迴圈）。
//   - Run 阻塞直到元件停止；被 Shutdown 要求停止時應回傳 nil。
//   - Shutdown 要在 ctx 期限內讓 Run 返回。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Named 選用：元件在日誌中的名稱。
type Named interface {
	Name() string
}

func nameOf(c Component) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	return "component"
}
