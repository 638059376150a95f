package server

import (
	"encoding/json"
	"net/http"

	"github.com/stereoclub/blindtest/internal/gameerr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeGameError maps the error taxonomy onto HTTP statuses: validation is
// the caller's fault, game means the action conflicts with the current
// state, storage and network point at a dependency.
func writeGameError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch gameerr.CategoryOf(err) {
	case gameerr.Validation:
		status = http.StatusBadRequest
	case gameerr.Game:
		status = http.StatusConflict
	case gameerr.Network, gameerr.Storage:
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}
