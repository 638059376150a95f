package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stereoclub/blindtest/internal/game"
	"github.com/stereoclub/blindtest/internal/team"
)

// TeamCreateRequest is the request body for POST /api/teams.
type TeamCreateRequest struct {
	Name string `json:"name"`
}

func handleTeamList(teams *team.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, teams.List())
	}
}

func handleTeamCreate(teams *team.Store, ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamCreateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if ctrl.Phase() == game.PhasePlaying {
			writeError(w, http.StatusConflict, "teams cannot change during a game")
			return
		}

		t, err := teams.Add(req.Name)
		if err != nil {
			writeGameError(w, err)
			return
		}
		ctrl.PersistTeams(r.Context())
		writeJSON(w, http.StatusCreated, t)
	}
}

func handleTeamDelete(teams *team.Store, ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctrl.Phase() == game.PhasePlaying {
			writeError(w, http.StatusConflict, "teams cannot change during a game")
			return
		}

		if err := teams.Remove(chi.URLParam(r, "id")); err != nil {
			if errors.Is(err, team.ErrNotFound) {
				writeError(w, http.StatusNotFound, "team not found")
				return
			}
			writeGameError(w, err)
			return
		}
		ctrl.PersistTeams(r.Context())
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
