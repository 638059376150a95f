package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestSearchFiltersUnplayable(t *testing.T) {
	env := newTestEnv(t)
	cookie := login(t, env)

	w := doJSON(t, env, http.MethodGet, "/api/search?q=daft+punk", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp SearchResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Songs) != 1 {
		t.Fatalf("got %d songs, want 1 (no-preview track filtered)", len(resp.Songs))
	}
	if resp.Songs[0].ID != "track1" || resp.Songs[0].Year != 2001 {
		t.Errorf("song = %+v", resp.Songs[0])
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	cookie := login(t, env)

	if w := doJSON(t, env, http.MethodGet, "/api/search", nil, cookie); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	cookie := login(t, env)

	if w := doJSON(t, env, http.MethodGet, "/api/search?q=down", nil, cookie); w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}
