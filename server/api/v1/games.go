package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/dto"
	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/server/httperr"
	"github.com/zintix-labs/hanoilab/server/svrcfg"
	"github.com/zintix-labs/hanoilab/session"
)

// GameHandler /v1/games：每個 session 一局，狀態留在伺服器。
type GameHandler struct {
	rt      *hanoilab.SessionRuntime
	lab     *hanoilab.Lab
	log     *slog.Logger
	timeout time.Duration
}

func NewGameHandler(sCfg *svrcfg.SvrCfg, rt *hanoilab.SessionRuntime) (*GameHandler, error) {
	if rt == nil {
		return nil, errs.NewFatal("session runtime is required")
	}
	return &GameHandler{rt: rt, lab: sCfg.Lab, log: sCfg.Log, timeout: sCfg.Timeout}, nil
}

func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.NewGameRequest](r)
	if err != nil {
		fail(w, h.log, "new game", err)
		return
	}
	disks := 0
	if req.Disks != nil {
		disks = *req.Disks
	}
	id, snap, err := h.rt.Create(disks)
	if err != nil {
		fail(w, h.log, "new game", err)
		return
	}
	w.Header().Set("Location", "/v1/games/"+id)
	writeJSON(w, http.StatusCreated, dto.GameResponse{ID: id, State: snap})
}

func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, session.Tick{Now: h.lab.Now()}, false)
}

func (h *GameHandler) Select(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.SelectRequest](r)
	if err != nil {
		fail(w, h.log, "select", err)
		return
	}
	h.handle(w, r, session.Select{Pole: *req.Pole}, true)
}

func (h *GameHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, session.Cancel{}, true)
}

func (h *GameHandler) Restart(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, session.Restart{}, true)
}

func (h *GameHandler) Disks(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.AdjustDisksRequest](r)
	if err != nil {
		fail(w, h.log, "adjust disks", err)
		return
	}
	h.handle(w, r, session.AdjustDisks{Delta: req.Delta}, true)
}

// handle 把一個訊息送進 session；非法移動回 409，並附上訊息。
func (h *GameHandler) handle(w http.ResponseWriter, r *http.Request, msg session.Msg, withEvent bool) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var resp dto.GameResponse
	err := h.rt.Do(ctx, id, func(c *session.Controller) error {
		ev := c.Handle(ctx, msg)
		if ev.Kind == session.EvRejected {
			return ev.Err
		}
		resp = dto.GameResponse{ID: id, State: c.Snapshot()}
		if withEvent {
			resp.Event = &ev
		}
		return nil
	})
	if err != nil {
		fail(w, h.log, "game message", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Qualify 查詢最近一次勝利能否入榜（結果會快取在 session）。
func (h *GameHandler) Qualify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var resp dto.QualifyResponse
	err := h.rt.Do(ctx, id, func(c *session.Controller) error {
		q, err := c.CheckLeaderboard(ctx)
		if err != nil {
			return err
		}
		resp = dto.QualifyResponse{Enabled: h.lab.Board() != nil, Qualification: q}
		return nil
	})
	if err != nil {
		fail(w, h.log, "qualify", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Name 入榜後提交名稱；名稱清理後為空回 400，可重試。
func (h *GameHandler) Name(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.NameRequest](r)
	if err != nil {
		fail(w, h.log, "submit name", err)
		return
	}
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var resp dto.GameResponse
	err = h.rt.Do(ctx, id, func(c *session.Controller) error {
		if _, err := c.CheckLeaderboard(ctx); err != nil {
			return err
		}
		if _, err := c.SubmitName(ctx, req.Name); err != nil {
			return err
		}
		resp = dto.GameResponse{ID: id, State: c.Snapshot()}
		return nil
	})
	if err != nil {
		fail(w, h.log, "submit name", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.rt.Delete(id) {
		httperr.Errs(w, errs.NotFoundf("session %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
