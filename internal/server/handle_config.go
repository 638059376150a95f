package server

import (
	"net/http"

	"github.com/stereoclub/blindtest/internal/game"
)

func handleConfigGet(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctrl.Config())
	}
}

func handleConfigPut(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg game.Config
		if err := readJSON(r, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := ctrl.SetConfig(r.Context(), cfg); err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Config())
	}
}
