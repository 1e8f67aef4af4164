package v1

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/dto"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/server/svrcfg"
)

// ScoreHandler /v1/scores：本地最佳成績帳本
type ScoreHandler struct {
	lab *hanoilab.Lab
	log *slog.Logger
}

func NewScoreHandler(sCfg *svrcfg.SvrCfg) *ScoreHandler {
	return &ScoreHandler{lab: sCfg.Lab, log: sCfg.Log}
}

func (h *ScoreHandler) List(w http.ResponseWriter, r *http.Request) {
	l := h.lab.Ledger()
	writeJSON(w, http.StatusOK, dto.ScoresResponse{Scores: l.Snapshot(), Degraded: l.Degraded()})
}

func (h *ScoreHandler) Export(w http.ResponseWriter, r *http.Request) {
	raw, err := h.lab.Ledger().Export(h.lab.Now())
	if err != nil {
		fail(w, h.log, "export scores", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="hanoi-scores.json"`)
	_, _ = w.Write(raw)
}

// Import 整批驗證後合併；任一條目不合法回 422，帳本不變。
func (h *ScoreHandler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, dto.MaxBody+1))
	if err != nil {
		fail(w, h.log, "import scores", errs.Warnf("read body: %v", err))
		return
	}
	if len(raw) > dto.MaxBody {
		fail(w, h.log, "import scores", errs.NewWarn("payload too large"))
		return
	}
	n, err := h.lab.Ledger().Import(r.Context(), raw)
	if err != nil {
		fail(w, h.log, "import scores", err)
		return
	}
	h.log.Info("scores imported", slog.Int("updated", n))
	writeJSON(w, http.StatusOK, dto.ImportResponse{Updated: n})
}

// Clear DELETE /v1/scores?confirm=true
func (h *ScoreHandler) Clear(w http.ResponseWriter, r *http.Request) {
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.lab.Ledger().Clear(r.Context(), confirm); err != nil {
		fail(w, h.log, "clear scores", err)
		return
	}
	h.log.Info("scores cleared")
	w.WriteHeader(http.StatusNoContent)
}
