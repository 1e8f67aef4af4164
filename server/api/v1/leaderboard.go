package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/dto"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/server/svrcfg"
	"github.com/zintix-labs/hanoilab/stats"
)

var errBoardDisabled = errs.NotFoundf("leaderboard is not enabled")

// BoardHandler /v1/leaderboard/{disks}
//
// 同一組端點同時是：
//   - 給瀏覽器 / 終端的排行榜查詢與伺服器端提交（POST）。
//   - 給其他 hanoilab 節點的遠端 RankedStore（GET + PUT，見 storage/httprank）。
type BoardHandler struct {
	lab     *hanoilab.Lab
	log     *slog.Logger
	timeout time.Duration
}

func NewBoardHandler(sCfg *svrcfg.SvrCfg) *BoardHandler {
	return &BoardHandler{lab: sCfg.Lab, log: sCfg.Log, timeout: sCfg.Timeout}
}

func (h *BoardHandler) Get(w http.ResponseWriter, r *http.Request) {
	disks, list, ok := h.top(w, r)
	if !ok {
		return
	}
	h.writeDoc(w, dto.NewLeaderboardDoc(disks, list))
}

// Put 整份取代（已驗證、已排序、最多 K 筆）。
// 帶 If-Match 時只有目前版本相符才寫入，否則 412。
func (h *BoardHandler) Put(w http.ResponseWriter, r *http.Request) {
	store := h.lab.Store()
	if store == nil {
		fail(w, h.log, "put leaderboard", errBoardDisabled)
		return
	}
	disks, err := disksParam(r)
	if err != nil {
		fail(w, h.log, "put leaderboard", err)
		return
	}
	req, err := dto.Decode[dto.LeaderboardPut](r)
	if err != nil {
		fail(w, h.log, "put leaderboard", err)
		return
	}
	if err := leaderboard.ValidateList(disks, req.Entries); err != nil {
		fail(w, h.log, "put leaderboard", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	want, conditional := ifMatch(r)
	if !conditional {
		if err := store.WriteTopK(ctx, disks, req.Entries); err != nil {
			fail(w, h.log, "put leaderboard", err)
			return
		}
		h.writeDoc(w, dto.NewLeaderboardDoc(disks, req.Entries))
		return
	}

	cur, err := store.FetchTopK(ctx, disks)
	if err != nil {
		fail(w, h.log, "put leaderboard", err)
		return
	}
	if v := leaderboard.Version(cur); v != want {
		w.Header().Set("ETag", strconv.Quote(v))
		h.preconditionFailed(w, disks)
		return
	}
	if sw, ok := store.(leaderboard.Swapper); ok {
		swapped, err := sw.SwapTopK(ctx, disks, cur, req.Entries)
		if err != nil {
			fail(w, h.log, "put leaderboard", err)
			return
		}
		if !swapped {
			h.preconditionFailed(w, disks)
			return
		}
	} else if err := store.WriteTopK(ctx, disks, req.Entries); err != nil {
		fail(w, h.log, "put leaderboard", err)
		return
	}
	h.writeDoc(w, dto.NewLeaderboardDoc(disks, req.Entries))
}

// Submit 伺服器端判斷是否入榜，入榜才寫入。
func (h *BoardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	board := h.lab.Board()
	if board == nil {
		fail(w, h.log, "submit score", errBoardDisabled)
		return
	}
	disks, err := disksParam(r)
	if err != nil {
		fail(w, h.log, "submit score", err)
		return
	}
	req, err := dto.Decode[dto.SubmitRequest](r)
	if err != nil {
		fail(w, h.log, "submit score", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, err := board.Check(ctx, disks, req.Moves, req.Time)
	if err != nil {
		fail(w, h.log, "submit score", err)
		return
	}
	resp := dto.SubmitResponse{Qualification: q}
	if q.Qualifies {
		p, err := board.Submit(ctx, disks, req.Name, req.Moves, req.Time)
		if err != nil {
			fail(w, h.log, "submit score", err)
			return
		}
		resp.Placement = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats 名單的統計摘要；?format=yaml|table 切換輸出格式，預設 JSON。
func (h *BoardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	disks, list, ok := h.top(w, r)
	if !ok {
		return
	}
	rep := stats.Summarize(disks, list)
	switch r.URL.Query().Get("format") {
	case "yaml":
		w.Header().Set("Content-Type", "application/yaml")
		if err := rep.WriteWith(w, stats.YAMLRender[stats.BoardReport]{}); err != nil {
			h.log.Error("render stats", slog.Any("err", err))
		}
	case "table":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(rep.Table()))
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

func (h *BoardHandler) top(w http.ResponseWriter, r *http.Request) (int, []leaderboard.Entry, bool) {
	board := h.lab.Board()
	if board == nil {
		fail(w, h.log, "get leaderboard", errBoardDisabled)
		return 0, nil, false
	}
	disks, err := disksParam(r)
	if err != nil {
		fail(w, h.log, "get leaderboard", err)
		return 0, nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	list, err := board.Top(ctx, disks)
	if err != nil {
		fail(w, h.log, "get leaderboard", err)
		return 0, nil, false
	}
	return disks, list, true
}

func (h *BoardHandler) writeDoc(w http.ResponseWriter, doc dto.LeaderboardDoc) {
	w.Header().Set("ETag", strconv.Quote(doc.Version))
	writeJSON(w, http.StatusOK, doc)
}

func (h *BoardHandler) preconditionFailed(w http.ResponseWriter, disks int) {
	h.log.Debug("leaderboard put conflict", slog.Int("disks", disks))
	writeJSON(w, http.StatusPreconditionFailed, dto.ErrorBody{Error: "leaderboard changed"})
}

// ifMatch 解析 If-Match；"*" 或未提供都視為無條件寫入。
func ifMatch(r *http.Request) (string, bool) {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "" || v == "*" {
		return "", false
	}
	v = strings.TrimPrefix(v, "W/")
	if u, err := strconv.Unquote(v); err == nil {
		return u, true
	}
	return v, true
}
