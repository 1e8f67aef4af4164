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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/hanoilab/dto"
	"github.com/zintix-labs/hanoilab/errs"
)

func StatusCode(err error) int {
	status := http.StatusInternalServerError

	// 1) 先處理 context 取消/超時（即使被 wrap 也能被 errors.Is 命中）
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout // 504
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout // 408
	default:
		// fallthrough
	}

	// 2) 錯誤分類優先於分級
	switch errs.KindOf(err) {
	case errs.InputRejected:
		return http.StatusConflict // 409
	case errs.ImportValidationFailure:
		return http.StatusUnprocessableEntity // 422
	case errs.NotFound:
		return http.StatusNotFound // 404
	case errs.RemoteUnavailable, errs.PersistenceUnavailable:
		return http.StatusServiceUnavailable // 503
	}

	// 3) 再處理內部錯誤分級（errs.E/Wrap）
	var e *errs.E
	if errors.As(err, &e) {
		switch e.ErrLv {
		case errs.Warn:
			status = http.StatusBadRequest // 400
		case errs.Fatal:
			status = http.StatusInternalServerError // 500
		default:
			status = http.StatusInternalServerError
		}
	}

	return status
}

// Body 對外的錯誤內容：只帶主訊息與分類，不外洩 cause。
func Body(err error) dto.ErrorBody {
	if e, ok := errs.AsErr(err); ok {
		return dto.ErrorBody{Error: e.Message, Kind: e.Kind.String()}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dto.ErrorBody{Error: err.Error()}
	}
	return dto.ErrorBody{Error: http.StatusText(StatusCode(err))}
}

// Errs HTTP 邊界層：決定 status code 並寫回 JSON 錯誤。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	Write(w, StatusCode(err), Body(err))
}

// Write 以指定狀態碼寫回 JSON 錯誤（供 middleware 等沒有 errs.E 的地方使用）。
func Write(w http.ResponseWriter, status int, body dto.ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	if (status == 408) || (status == 409) || (status == 429) || (status == 503) {
		log.Warn(msg, slog.Int("status", status), slog.Any("err", err))
	} else if (status >= 500) && (status < 600) {
		log.Error(msg, slog.Int("status", status), slog.Any("err", err))
	}
}
