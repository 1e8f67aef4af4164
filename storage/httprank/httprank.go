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

// Package httprank 透過 HTTP 存取另一台 hanoilab 伺服器的排行榜。
//
//	GET /v1/leaderboard/{disks}  → dto.LeaderboardDoc（ETag = 名單版本）
//	PUT /v1/leaderboard/{disks}  → 整份取代；帶 If-Match 時不符回 412
//
// 任何傳輸層失敗（連線、逾時、非 2xx、回應無法解析）都回傳 errs.RemoteUnavailable，
// 呼叫端據此把這次完成視為「未入榜」。
package httprank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zintix-labs/hanoilab/dto"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/leaderboard"
)

const maxBody = 1 << 20

type Client struct {
	base *url.URL
	hc   *http.Client
}

type Option func(*Client)

// WithHTTPClient 以 hc 的設定（Transport、Jar 等）為底。hc 會被複製，
// 之後的選項不會改到呼叫端的 client（例如 http.DefaultClient）。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.hc = &cp
		}
	}
}

// WithTimeout 設定每次請求的逾時，預設 5 秒。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			cp := *c.hc
			cp.Timeout = d
			c.hc = &cp
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errs.Warnf("invalid leaderboard url %q", baseURL)
	}
	c := &Client{base: u, hc: &http.Client{Timeout: 5 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) endpoint(disks int) string {
	return c.base.JoinPath("v1", "leaderboard", strconv.Itoa(disks)).String()
}

func (c *Client) FetchTopK(ctx context.Context, disks int) ([]leaderboard.Entry, error) {
	doc, err := c.fetch(ctx, disks)
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

func (c *Client) fetch(ctx context.Context, disks int) (dto.LeaderboardDoc, error) {
	var doc dto.LeaderboardDoc
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(disks), nil)
	if err != nil {
		return doc, errs.Unavailable(errs.RemoteUnavailable, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return doc, unavailable(ctx, err, "GET leaderboard")
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return doc, statusErr(resp, "GET leaderboard")
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&doc); err != nil {
		return doc, errs.Unavailable(errs.RemoteUnavailable, err, "decode leaderboard")
	}
	if doc.Entries == nil {
		doc.Entries = []leaderboard.Entry{}
	}
	return doc, nil
}

func (c *Client) WriteTopK(ctx context.Context, disks int, list []leaderboard.Entry) error {
	_, err := c.put(ctx, disks, list, "")
	return err
}

// SwapTopK 以 old 的版本作為 If-Match；伺服器回 412 代表名單已被改動。
func (c *Client) SwapTopK(ctx context.Context, disks int, old, next []leaderboard.Entry) (bool, error) {
	return c.put(ctx, disks, next, leaderboard.Version(old))
}

func (c *Client) put(ctx context.Context, disks int, list []leaderboard.Entry, ifMatch string) (bool, error) {
	if list == nil {
		list = []leaderboard.Entry{}
	}
	body, err := json.Marshal(dto.LeaderboardPut{Entries: list})
	if err != nil {
		return false, errs.Wrap(err, "encode leaderboard")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint(disks), bytes.NewReader(body))
	if err != nil {
		return false, errs.Unavailable(errs.RemoteUnavailable, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if ifMatch != "" {
		req.Header.Set("If-Match", strconv.Quote(ifMatch))
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return false, unavailable(ctx, err, "PUT leaderboard")
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusPreconditionFailed:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, statusErr(resp, "PUT leaderboard")
	}
}

// Boards 依序探測 3..10，回傳非空的圓盤數；供 CLI 複製整份排行榜。
func (c *Client) Boards(ctx context.Context, from, to int) ([]int, error) {
	var out []int
	for d := from; d <= to; d++ {
		doc, err := c.fetch(ctx, d)
		if err != nil {
			return nil, err
		}
		if len(doc.Entries) > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

func unavailable(ctx context.Context, err error, msg string) error {
	// 呼叫端自己的 ctx 結束時保留原錯誤，邊界層才能對應 408/504
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errs.Unavailable(errs.RemoteUnavailable, err, msg)
}

func statusErr(resp *http.Response, op string) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	e := errs.Unavailable(errs.RemoteUnavailable, nil, fmt.Sprintf("%s: status %d", op, resp.StatusCode))
	e.Extra = strings.TrimSpace(string(b))
	return e
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
	_ = resp.Body.Close()
}
