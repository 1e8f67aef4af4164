package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/hanoilab/leaderboard"
	"github.com/zintix-labs/hanoilab/puzzle"
	"github.com/zintix-labs/hanoilab/server/httperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail 記錄（依狀態碼決定等級）並寫回錯誤
func fail(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	httperr.Log(log, msg, err)
	httperr.Errs(w, err)
}

// disksParam 解析路徑上的 {disks}
func disksParam(r *http.Request) (int, error) {
	d, err := strconv.Atoi(chi.URLParam(r, "disks"))
	if err != nil || !puzzle.ValidDiskCount(d) {
		return 0, leaderboard.ErrInvalidDisks
	}
	return d, nil
}
