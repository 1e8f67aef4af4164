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

// Package logger 組裝服務與命令列使用的 *slog.Logger。
//
// 所有元件只接 *slog.Logger；模式（dev/prod/silence）與輸出位置在這裡決定，
// 需要非阻塞寫出時再用 AsyncHandler 包一層。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type LogMode uint8

const (
	// ModeDev 文字格式、Debug 以上，寫到 stderr
	ModeDev LogMode = iota
	// ModeProd JSON、Info 以上，寫到 stdout（給 Loki / Promtail）
	ModeProd
	// ModeSilence 全部丟棄
	ModeSilence
)

// ParseMode 解析設定檔 / flag 的字串（"prod"、"ModeProd" 皆可）；無法辨識時回傳 ModeDev。
func ParseMode(s string) LogMode {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(s, "Mode"), "mode")) {
	case "prod":
		return ModeProd
	case "silence", "silent":
		return ModeSilence
	default:
		return ModeDev
	}
}

func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode))
}

// NewWriterLogger 依 mode 建立寫到 w 的 logger；w 為 nil 時靜默。
// 終端遊戲畫面佔用 stdout/stderr 時改寫到檔案。
func NewWriterLogger(mode LogMode, w io.Writer) *slog.Logger {
	if w == nil {
		mode = ModeSilence
	}
	return slog.New(handlerFor(mode, w))
}

// NewAsync 以 mode 的預設輸出建立非阻塞 logger；呼叫端結束前應 Close 回傳的 handler。
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode), buf)
	return slog.New(ah), ah
}

func buildHandler(mode LogMode) slog.Handler {
	switch mode {
	case ModeProd:
		return handlerFor(mode, os.Stdout)
	case ModeSilence:
		return handlerFor(mode, io.Discard)
	default:
		return handlerFor(ModeDev, os.Stderr)
	}
}

func handlerFor(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeProd:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilence:
		return slog.DiscardHandler
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
