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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/prefs"
)

// MaxBody 請求 body 上限（1MiB）
const MaxBody = 1 << 20

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// 錯誤訊息使用 json 欄位名
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Decode 把 JSON body 解碼成 T 並以 validate tag 檢查。
//
// 注意：
//   - body 上限 MaxBody；空 body 視為零值（之後仍會驗證 required 欄位）。
//   - 開啟 DisallowUnknownFields()，未知欄位直接拒絕，避免靜默丟資料。
//   - 任何解碼或驗證失敗都是 Warn（對應 HTTP 400）。
func Decode[T any](r *http.Request) (*T, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	req := new(T)
	if r.Body != nil && r.Body != http.NoBody {
		dec := json.NewDecoder(io.LimitReader(r.Body, MaxBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
			return nil, errs.Warnf("invalid json: %v", err)
		}
	}
	if err := Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate 以 validate tag 檢查結構，失敗時回傳 Warn。
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errs.Warnf("invalid request: %v", err)
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fe.Field()+" failed "+fe.Tag()+"="+fe.Param())
		} else {
			parts = append(parts, fe.Field()+" failed "+fe.Tag())
		}
	}
	return errs.NewWarn("invalid request: " + strings.Join(parts, "; "))
}

// NewGameRequest POST /v1/games；disks 省略時使用偏好的圓盤數。
type NewGameRequest struct {
	Disks *int `json:"disks,omitempty" validate:"omitnil,min=3,max=10"`
}

// SelectRequest POST /v1/games/{id}/select
//
// 柱號範圍交給遊戲本身判斷（超出範圍是 InputRejected，而不是格式錯誤）。
type SelectRequest struct {
	Pole *int `json:"pole" validate:"required"`
}

// AdjustDisksRequest POST /v1/games/{id}/disks
type AdjustDisksRequest struct {
	Delta int `json:"delta" validate:"required,min=-7,max=7"`
}

// NameRequest POST /v1/games/{id}/name
type NameRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// PrefsRequest PUT /v1/prefs；省略的欄位不變。
type PrefsRequest struct {
	ScoresVisible *bool   `json:"scores_visible,omitempty"`
	Theme         *string `json:"theme,omitempty" validate:"omitnil,min=1,max=64"`
	Disks         *int    `json:"disks,omitempty" validate:"omitnil,min=3,max=10"`
}

func (r PrefsRequest) Patch() prefs.Patch {
	return prefs.Patch{ScoresVisible: r.ScoresVisible, Theme: r.Theme, Disks: r.Disks}
}
