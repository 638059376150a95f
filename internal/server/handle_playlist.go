package server

import (
	"net/http"

	"github.com/stereoclub/blindtest/internal/game"
	"github.com/stereoclub/blindtest/internal/song"
)

// PlaylistRequest is the request body for PUT /api/playlist.
type PlaylistRequest struct {
	Songs []song.Song `json:"songs"`
}

// PlaylistResponse is the response for GET /api/playlist.
type PlaylistResponse struct {
	Songs []song.Song `json:"songs"`
}

func handlePlaylistGet(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		songs := ctrl.Playlist()
		if songs == nil {
			songs = []song.Song{}
		}
		writeJSON(w, http.StatusOK, PlaylistResponse{Songs: songs})
	}
}

func handlePlaylistPut(ctrl *game.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaylistRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := ctrl.SetPlaylist(r.Context(), req.Songs); err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"size": len(req.Songs)})
	}
}
