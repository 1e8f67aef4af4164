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

// Package netsvr 把 HTTP server 抽成兩層介面：api 層只拿 NetRouter 註冊路由，
// server.Run 拿 NetSvr 交給 app.App 管理啟停。
package netsvr

import (
	"net/http"

	"github.com/zintix-labs/hanoilab/server/app"
)

// NetSvr 可註冊路由、可被 app.App 啟停的 server。
type NetSvr interface {
	NetRouter
	app.Component
	// Address 設定的監聽位址
	Address() string
	// Handler 完整路由（httptest 用）
	Handler() http.Handler
}

// NetRouter 只有路由行為。api 層與 Group 回呼只看得到這一層，碰不到 Run/Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	Group(path string, fn func(NetRouter))
}
