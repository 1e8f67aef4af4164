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

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/puzzle"
)

// ExportVersion 匯出檔格式版本
const ExportVersion = 1

// maxField 匯入數值上限，避免 float → int 溢位
const maxField = 1 << 40

// Document 匯出檔格式
type Document struct {
	Version    int     `json:"version"`
	ExportedAt string  `json:"exportedAt"`
	Scores     Mapping `json:"scores"`
}

// Export 產生匯出檔（縮排 JSON）。
func (l *Ledger) Export(now time.Time) ([]byte, error) {
	doc := Document{
		Version:    ExportVersion,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Scores:     l.Snapshot(),
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errs.Wrap(err, "export scores")
	}
	return raw, nil
}

// Import 驗證並合併匯入內容；驗證失敗時帳本完全不變。
func (l *Ledger) Import(ctx context.Context, raw []byte) (int, error) {
	m, err := ValidateImportPayload(raw)
	if err != nil {
		return 0, err
	}
	return l.MergeImported(ctx, m)
}

// MergeImported 逐鍵保留較佳者；本地沒有的鍵直接採用（缺少時間戳時補上現在時間）。
//
// 完全相同（步數與時間都相等）不算更好，不更新；因此重複合併同一份內容是冪等的。
// 回傳實際變動的鍵數，有變動時只寫回 KV 一次。
func (l *Ledger) MergeImported(ctx context.Context, m Mapping) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UnixMilli()
	changed := 0
	for _, disks := range slices.Sorted(maps.Keys(m)) {
		imp := m[disks]
		if imp.Timestamp <= 0 {
			imp.Timestamp = now
		}
		cur, ok := l.scores[disks]
		if ok && !Better(imp, cur) {
			continue
		}
		l.scores[disks] = imp
		changed++
	}
	if changed > 0 {
		l.persistLocked(ctx, "import")
	}
	return changed, nil
}

// ValidateImportPayload 解析匯入內容。
//
// 接受兩種形式：
//   - 裸對照表：{"3": {"moves": 7, "time": 12}}
//   - 包裝形式：{"version": 1, "exportedAt": "...", "scores": {...}}
//
// 任一條目不合法即整批拒絕（ImportValidationFailure）：
// 鍵必須是 3..10 的整數；moves/time 必須是整數；moves 不得低於最少步數；time 不得為負。
// timestamp 可省略，若提供必須是整數。
func ValidateImportPayload(raw []byte) (Mapping, error) {
	scores, err := scoresObject(raw)
	if err != nil {
		return nil, err
	}
	out := make(Mapping, len(scores))
	for key, val := range scores {
		disks, rec, err := parseEntry(key, val)
		if err != nil {
			return nil, err
		}
		out[disks] = rec
	}
	return out, nil
}

// decodeLenient 與 ValidateImportPayload 同樣的規則，但逐條判斷：
// 合法的條目保留，不合法的條目以 bad 回傳（鍵 → 原因）。外層結構不合法時回傳 err。
func decodeLenient(raw []byte) (out Mapping, bad map[string]error, err error) {
	scores, err := scoresObject(raw)
	if err != nil {
		return nil, nil, err
	}
	out = make(Mapping, len(scores))
	for key, val := range scores {
		disks, rec, err := parseEntry(key, val)
		if err != nil {
			if bad == nil {
				bad = map[string]error{}
			}
			bad[key] = err
			continue
		}
		out[disks] = rec
	}
	return out, bad, nil
}

// scoresObject 取出成績對照表本體（裸形式或包裝形式的 scores）。
func scoresObject(raw []byte) (map[string]json.RawMessage, error) {
	top, err := decodeObject(raw)
	if err != nil {
		return nil, errs.Invalid("payload is not a JSON object")
	}
	_, hasVersion := top["version"]
	inner, hasScores := top["scores"]
	if !hasVersion || !hasScores {
		return top, nil
	}
	if _, err := intField(top["version"]); err != nil {
		return nil, errs.Invalid("version must be an integer")
	}
	scores, err := decodeObject(inner)
	if err != nil {
		return nil, errs.Invalid("scores is not a JSON object")
	}
	return scores, nil
}

func parseEntry(key string, val json.RawMessage) (int, Record, error) {
	disks, err := strconv.Atoi(key)
	if err != nil || strconv.Itoa(disks) != key || !puzzle.ValidDiskCount(disks) {
		return 0, Record{}, errs.Invalidf("invalid disk count key %q", key)
	}
	fields, err := decodeObject(val)
	if err != nil {
		return 0, Record{}, errs.Invalidf("entry %q is not an object", key)
	}
	mv, ok := fields["moves"]
	if !ok {
		return 0, Record{}, errs.Invalidf("entry %q lacks moves", key)
	}
	moves, err := intField(mv)
	if err != nil {
		return 0, Record{}, errs.Invalidf("entry %q: moves %v", key, err)
	}
	tv, ok := fields["time"]
	if !ok {
		return 0, Record{}, errs.Invalidf("entry %q lacks time", key)
	}
	secs, err := intField(tv)
	if err != nil {
		return 0, Record{}, errs.Invalidf("entry %q: time %v", key, err)
	}
	if moves < int64(puzzle.MinimalMoves(disks)) {
		return 0, Record{}, errs.Invalidf("entry %q: moves %d below minimal %d", key, moves, puzzle.MinimalMoves(disks))
	}
	if secs < 0 {
		return 0, Record{}, errs.Invalidf("entry %q: negative time", key)
	}
	rec := Record{Moves: int(moves), Time: int(secs)}
	if tsv, ok := fields["timestamp"]; ok && !isNull(tsv) {
		ts, err := intField(tsv)
		if err != nil {
			return 0, Record{}, errs.Invalidf("entry %q: timestamp %v", key, err)
		}
		rec.Timestamp = ts
	}
	return disks, rec, nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errs.NewWarn("not an object")
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// intField 接受 JSON number 且值為整數（7 與 7.0 都可），拒絕字串、布林與小數。
func intField(raw json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, errs.NewWarn("must be a number")
	}
	if i, err := n.Int64(); err == nil {
		if i > maxField || i < -maxField {
			return 0, errs.NewWarn("out of range")
		}
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, errs.NewWarn("must be an integer")
	}
	if f > maxField || f < -maxField {
		return 0, errs.NewWarn("out of range")
	}
	return int64(f), nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
