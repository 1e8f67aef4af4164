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

package errs

import (
	"errors"
	"fmt"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None ErrLevel = iota
	Fatal
	Warn
	Log
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func ErrLv(errlv ErrLevel) string {
	if str, ok := errLvMap[errlv]; ok {
		return str
	}
	return ""
}

// Kind 錯誤分類：描述「發生了什麼事」，與 ErrLevel（多嚴重）互相獨立。
//
// 遊戲內任何錯誤都不應讓程序中止；最壞情況是「該功能降級，謎題仍可遊玩」。
type Kind uint8

const (
	KindNone Kind = iota
	// InputRejected 非法移動、空柱選取等；本地復原，只需提示使用者。
	InputRejected
	// PersistenceUnavailable KV 儲存不可用；降級為僅記憶體。
	PersistenceUnavailable
	// ImportValidationFailure 匯入內容不合法；整批拒絕，帳本不變。
	ImportValidationFailure
	// RemoteUnavailable 排行榜遠端不可用；視為「未入榜」。
	RemoteUnavailable
	// NotFound 查無資源（例如 session id）。
	NotFound
)

var kindMap = map[Kind]string{
	KindNone:                "",
	InputRejected:           "input_rejected",
	PersistenceUnavailable:  "persistence_unavailable",
	ImportValidationFailure: "import_invalid",
	RemoteUnavailable:       "remote_unavailable",
	NotFound:                "not_found",
}

func (k Kind) String() string {
	if str, ok := kindMap[k]; ok {
		return str
	}
	return ""
}

// E 是統一的錯誤型別。
// Message 為主訊息；Extra 為呼叫端可追加的額外上下文；
// Cause 可串接下層錯誤（wrap）；ErrLv 表示嚴重度；Kind 表示錯誤分類。
type E struct {
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
	Kind    Kind
}

// Error 實作 error 介面並回傳格式化後的錯誤訊息。
func (e *E) Error() string {
	base := fmt.Sprintf("errlv=%s %s", ErrLv(e.ErrLv), e.Message)
	if e.Kind != KindNone {
		base = fmt.Sprintf("errlv=%s kind=%s %s", ErrLv(e.ErrLv), e.Kind, e.Message)
	}
	if e.Extra != "" {
		base += " | extra: " + e.Extra
	}
	if e.Cause != nil {
		base += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return base
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// New 依錯誤等級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

// Rejected 建立一個 InputRejected 類別的錯誤（Warn 等級）。
func Rejected(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: InputRejected}
}

// Invalid 建立一個 ImportValidationFailure 類別的錯誤。
func Invalid(msg string) *E {
	return &E{Message: msg, ErrLv: Warn, Kind: ImportValidationFailure}
}

func Invalidf(format string, a ...any) *E {
	return Invalid(fmt.Sprintf(format, a...))
}

// NotFoundf 建立一個 NotFound 類別的錯誤。
func NotFoundf(format string, a ...any) *E {
	return &E{Message: fmt.Sprintf(format, a...), ErrLv: Warn, Kind: NotFound}
}

// Unavailable 以指定分類包裝下層 I/O 錯誤（儲存或遠端）。
// 這類錯誤屬於可降級的情況，因此等級為 Log 而非 Fatal。
func Unavailable(kind Kind, cause error, msg string) *E {
	return &E{Message: msg, Cause: cause, ErrLv: Log, Kind: kind}
}

// NewWithExtra 與 New 相同，但可附加額外上下文字串（不影響主訊息）。
func NewWithExtra(errLv ErrLevel, msg string, extra string) *E {
	e := New(errLv, msg)
	e.Extra = extra
	return e
}

// Wrap 使用給定的訊息包裝底層錯誤，建立一個 *E。
//
// ErrLevel / Kind 規則：
//   - 若 cause 已經是 *E，則沿用其 ErrLv 與 Kind（保持原本嚴重度與分類）。
//   - 若 cause 不是本包定義的 *E（多半是標準庫或三方依賴錯誤），則 ErrLv 一律視為 Fatal。
func Wrap(cause error, msg string) *E {
	var e *E
	errLv := Fatal
	kind := KindNone
	if errors.As(cause, &e) {
		errLv = e.ErrLv
		kind = e.Kind
	}
	r := New(errLv, msg)
	r.Kind = kind
	r.Cause = cause
	return r
}

// WrapWithExtra 與 Wrap 相同，但附加上下文。
func WrapWithExtra(cause error, msg string, extra string) *E {
	r := Wrap(cause, msg)
	r.Extra = extra
	return r
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}

// KindOf 取出錯誤鏈上第一個 *E 的分類；非本包錯誤回傳 KindNone。
func KindOf(err error) Kind {
	if e, ok := AsErr(err); ok {
		return e.Kind
	}
	return KindNone
}

// IsKind 回報 err 是否屬於指定分類。
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
