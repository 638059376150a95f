package server

import (
	"context"
	"net/http"

	"github.com/stereoclub/blindtest/internal/game"
	"github.com/stereoclub/blindtest/internal/scoring"
)

// AnswerRequest is the request body for POST /api/game/answer. The host
// adjudicates: the buzzing team, whether the title/artist was right, and
// which extra categories were also right.
type AnswerRequest struct {
	RoundToken   string `json:"roundToken"`
	TeamID       string `json:"teamId"`
	IsCorrect    bool   `json:"isCorrect"`
	AlbumCorrect bool   `json:"albumCorrect"`
	YearCorrect  bool   `json:"yearCorrect"`
}

func handleGameStart(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The game outlives the request; rounds run on their own timers.
		if err := ctrl.Start(context.WithoutCancel(r.Context())); err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ctrl.State())
	}
}

func handleGamePause(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.Pause(); err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ctrl.State())
	}
}

func handleGameResume(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.Resume(); err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ctrl.State())
	}
}

func handleGameAnswer(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TeamID == "" {
			writeError(w, http.StatusBadRequest, "teamId is required")
			return
		}

		outcome, err := ctrl.SubmitAnswer(r.Context(), req.RoundToken, req.TeamID, req.IsCorrect, scoring.Verdict{
			AlbumCorrect: req.AlbumCorrect,
			YearCorrect:  req.YearCorrect,
		})
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

func handleGameReset(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl.Reset(r.Context())
		writeJSON(w, http.StatusOK, ctrl.State())
	}
}

func handleGameState(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctrl.State())
	}
}

func handleGameStats(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := ctrl.Stats(r.Context())
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
