package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stereoclub/blindtest/internal/team"
)

func TestTeamCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	cookie := login(t, env)

	w := doJSON(t, env, http.MethodPost, "/api/teams", TeamCreateRequest{Name: "Les Zikos"}, cookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created team.Team
	json.NewDecoder(w.Body).Decode(&created)
	if created.Name != "Les Zikos" || created.ID == "" {
		t.Errorf("created = %+v", created)
	}
	if created.Color != team.Colors[0] {
		t.Errorf("color = %q, want first palette entry", created.Color)
	}

	w = doJSON(t, env, http.MethodGet, "/api/teams", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listed []team.Team
	json.NewDecoder(w.Body).Decode(&listed)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("listed = %+v", listed)
	}
}

func TestTeamCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := login(t, env)

	cases := []struct {
		name string
		body TeamCreateRequest
	}{
		{"empty name", TeamCreateRequest{Name: "  "}},
		{"name too long", TeamCreateRequest{Name: "a team name that is way too long"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := doJSON(t, env, http.MethodPost, "/api/teams", tc.body, cookie); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestTeamCreateDuplicateName(t *testing.T) {
	env := newTestEnv(t)
	cookie := login(t, env)

	if w := doJSON(t, env, http.MethodPost, "/api/teams", TeamCreateRequest{Name: "Rockers"}, cookie); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	// Uniqueness is case-insensitive.
	if w := doJSON(t, env, http.MethodPost, "/api/teams", TeamCreateRequest{Name: "ROCKERS"}, cookie); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate create = %d, want 400", w.Code)
	}
}

func TestTeamDelete(t *testing.T) {
	env := newTestEnv(t)
	cookie := login(t, env)

	w := doJSON(t, env, http.MethodPost, "/api/teams", TeamCreateRequest{Name: "Bye"}, cookie)
	var created team.Team
	json.NewDecoder(w.Body).Decode(&created)

	if w := doJSON(t, env, http.MethodDelete, "/api/teams/"+created.ID, nil, cookie); w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := doJSON(t, env, http.MethodDelete, "/api/teams/"+created.ID, nil, cookie); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
	if env.teams.Len() != 0 {
		t.Errorf("store still has %d teams", env.teams.Len())
	}
}
