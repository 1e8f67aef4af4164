package v1

import (
	"log/slog"
	"net/http"

	"github.com/zintix-labs/hanoilab"
	"github.com/zintix-labs/hanoilab/dto"
	"github.com/zintix-labs/hanoilab/server/svrcfg"
)

// PrefsHandler /v1/prefs 與 /v1/themes
type PrefsHandler struct {
	lab *hanoilab.Lab
	log *slog.Logger
}

func NewPrefsHandler(sCfg *svrcfg.SvrCfg) *PrefsHandler {
	return &PrefsHandler{lab: sCfg.Lab, log: sCfg.Log}
}

func (h *PrefsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := h.lab.Prefs()
	writeJSON(w, http.StatusOK, dto.PrefsResponse{Values: p.Values(), Degraded: p.Degraded()})
}

func (h *PrefsHandler) Put(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.PrefsRequest](r)
	if err != nil {
		fail(w, h.log, "update prefs", err)
		return
	}
	p := h.lab.Prefs()
	v, err := p.Apply(r.Context(), req.Patch())
	if err != nil {
		fail(w, h.log, "update prefs", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PrefsResponse{Values: v, Degraded: p.Degraded()})
}

func (h *PrefsHandler) Themes(w http.ResponseWriter, r *http.Request) {
	cat := h.lab.Themes()
	writeJSON(w, http.StatusOK, dto.ThemesResponse{Default: cat.Default().ID, Themes: cat.All()})
}
