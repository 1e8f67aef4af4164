package dto

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zintix-labs/hanoilab/errs"
	"github.com/zintix-labs/hanoilab/leaderboard"
)

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func isWarn(err error) bool {
	e, ok := errs.AsErr(err)
	return ok && e.ErrLv == errs.Warn
}

func TestDecodeSelect(t *testing.T) {
	req, err := Decode[SelectRequest](post(`{"pole":0}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Pole == nil || *req.Pole != 0 {
		t.Fatalf("pole 0 must survive decoding: %+v", req)
	}

	// out-of-range poles are left to the game
	req, err = Decode[SelectRequest](post(`{"pole":7}`))
	if err != nil || *req.Pole != 7 {
		t.Fatalf("unexpected: %+v %v", req, err)
	}

	if _, err := Decode[SelectRequest](post(`{}`)); !isWarn(err) {
		t.Fatalf("missing pole must be a warn, got %v", err)
	} else if !strings.Contains(err.Error(), "pole failed required") {
		t.Fatalf("error should name the json field: %v", err)
	}
}

func TestDecodeEmptyBody(t *testing.T) {
	req, err := Decode[NewGameRequest](httptest.NewRequest(http.MethodPost, "/", nil))
	if err != nil {
		t.Fatalf("empty body should decode: %v", err)
	}
	if req.Disks != nil {
		t.Fatalf("disks should be omitted: %+v", req)
	}

	req, err = Decode[NewGameRequest](post(""))
	if err != nil || req.Disks != nil {
		t.Fatalf("unexpected: %+v %v", req, err)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"disks":3,"extra":1}`,
		"bad json":      `{"disks":`,
		"too few":       `{"disks":2}`,
		"too many":      `{"disks":11}`,
		"wrong type":    `{"disks":"3"}`,
	}
	for name, body := range cases {
		if _, err := Decode[NewGameRequest](post(body)); !isWarn(err) {
			t.Fatalf("%s: expected warn, got %v", name, err)
		}
	}
}

func TestDecodeBodyLimit(t *testing.T) {
	big := `{"name":"` + strings.Repeat("a", MaxBody) + `"}`
	if _, err := Decode[NameRequest](post(big)); !isWarn(err) {
		t.Fatalf("oversized body must be rejected, got %v", err)
	}
}

func TestDecodeNilRequest(t *testing.T) {
	if _, err := Decode[NameRequest](nil); !isWarn(err) {
		t.Fatalf("expected warn, got %v", err)
	}
}

func TestAdjustDisksRequest(t *testing.T) {
	if _, err := Decode[AdjustDisksRequest](post(`{"delta":0}`)); err == nil {
		t.Fatal("zero delta should be rejected")
	}
	req, err := Decode[AdjustDisksRequest](post(`{"delta":-1}`))
	if err != nil || req.Delta != -1 {
		t.Fatalf("unexpected: %+v %v", req, err)
	}
}

func TestPrefsRequestPatch(t *testing.T) {
	req, err := Decode[PrefsRequest](post(`{"theme":"ocean","disks":6}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := req.Patch()
	if p.ScoresVisible != nil || *p.Theme != "ocean" || *p.Disks != 6 {
		t.Fatalf("unexpected patch: %+v", p)
	}
	if _, err := Decode[PrefsRequest](post(`{"theme":""}`)); err == nil {
		t.Fatal("empty theme should be rejected")
	}
}

func TestLeaderboardPutLimit(t *testing.T) {
	entries := make([]string, leaderboard.K+1)
	for i := range entries {
		entries[i] = `{"name":"AAA","moves":7,"time":1,"timestamp":1}`
	}
	body := `{"entries":[` + strings.Join(entries, ",") + `]}`
	if _, err := Decode[LeaderboardPut](post(body)); !isWarn(err) {
		t.Fatalf("more than K entries must be rejected, got %v", err)
	}
}

func TestNewLeaderboardDoc(t *testing.T) {
	doc := NewLeaderboardDoc(3, nil)
	if doc.Entries == nil || len(doc.Entries) != 0 {
		t.Fatalf("entries should be an empty list: %+v", doc)
	}
	if doc.Version != leaderboard.Version(nil) {
		t.Fatalf("version mismatch: %s", doc.Version)
	}
}
