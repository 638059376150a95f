// Package song defines the one validated track representation used inside
// the game. Provider search results only become Songs through FromProvider,
// which rejects anything without a playable preview; past that boundary a
// Song's preview URL can be assumed non-empty.
package song

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/stereoclub/blindtest/internal/gameerr"
)

// Song is an immutable playlist entry.
type Song struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	AlbumCover  string `json:"albumCover,omitempty"`
	PreviewURL  string `json:"previewUrl"`
	ProviderURI string `json:"providerUri"`
	Year        int    `json:"year,omitempty"`
}

// Playable reports whether the song carries a preview clip.
func (s Song) Playable() bool { return s.PreviewURL != "" }

// ProviderTrack is the loose shape returned by a track search provider.
type ProviderTrack struct {
	ID         string
	Name       string
	Artists    []string
	Album      string
	AlbumCover string
	Year       int
	PreviewURL string
	URI        string
}

// FromProvider converts a provider track into a Song. Tracks without a
// preview URL are invalid here; they must never reach a playlist.
func FromProvider(t ProviderTrack) (Song, error) {
	if strings.TrimSpace(t.PreviewURL) == "" {
		return Song{}, gameerr.New(gameerr.Validation,
			fmt.Sprintf("track %q has no playable preview", t.Name))
	}
	if t.ID == "" || t.Name == "" {
		return Song{}, gameerr.New(gameerr.Validation, "track is missing id or name")
	}
	return Song{
		ID:          t.ID,
		Name:        t.Name,
		Artist:      strings.Join(t.Artists, ", "),
		Album:       t.Album,
		AlbumCover:  t.AlbumCover,
		PreviewURL:  t.PreviewURL,
		ProviderURI: t.URI,
		Year:        t.Year,
	}, nil
}

// FromProviderAll converts a batch of provider tracks, silently dropping the
// unplayable ones.
func FromProviderAll(tracks []ProviderTrack) []Song {
	songs := make([]Song, 0, len(tracks))
	for _, t := range tracks {
		s, err := FromProvider(t)
		if err != nil {
			continue
		}
		songs = append(songs, s)
	}
	return songs
}

// ValidatePlaylist checks that a playlist can back a game of the given
// round count.
func ValidatePlaylist(list []Song, rounds int) error {
	if len(list) < rounds {
		return gameerr.New(gameerr.Validation,
			fmt.Sprintf("playlist has %d songs, need at least %d", len(list), rounds))
	}
	for _, s := range list {
		if !s.Playable() {
			return gameerr.New(gameerr.Game,
				fmt.Sprintf("song %q has no playable preview", s.Name))
		}
	}
	return nil
}

// Shuffle returns a shuffled copy, leaving the input untouched.
func Shuffle(list []Song, rng *rand.Rand) []Song {
	out := make([]Song, len(list))
	copy(out, list)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
