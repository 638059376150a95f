package server

import (
	"net/http"

	"github.com/stereoclub/blindtest/internal/song"
)

// SearchResponse is the response for GET /api/search.
type SearchResponse struct {
	Songs []song.Song `json:"songs"`
}

// handleSearch queries the track provider and returns only playable songs;
// results without a preview never reach the host's picker.
func handleSearch(search Searcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := search.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeGameError(w, err)
			return
		}

		songs := song.FromProviderAll(tracks)
		if songs == nil {
			songs = []song.Song{}
		}
		writeJSON(w, http.StatusOK, SearchResponse{Songs: songs})
	}
}
