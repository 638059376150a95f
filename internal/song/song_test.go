package song

import (
	"math/rand"
	"testing"

	"github.com/stereoclub/blindtest/internal/gameerr"
)

func track(name, preview string) ProviderTrack {
	return ProviderTrack{
		ID:         "id-" + name,
		Name:       name,
		Artists:    []string{"Daft Punk"},
		Album:      "Discovery",
		PreviewURL: preview,
		URI:        "spotify:track:" + name,
		Year:       2001,
	}
}

func TestFromProviderRejectsMissingPreview(t *testing.T) {
	for _, preview := range []string{"", "   "} {
		_, err := FromProvider(track("One More Time", preview))
		if err == nil {
			t.Fatalf("preview %q: expected rejection", preview)
		}
		if !gameerr.IsCategory(err, gameerr.Validation) {
			t.Errorf("expected validation category, got %q", gameerr.CategoryOf(err))
		}
	}
}

func TestFromProviderJoinsArtists(t *testing.T) {
	tr := track("Get Lucky", "https://p.scdn.co/a.mp3")
	tr.Artists = []string{"Daft Punk", "Pharrell Williams"}

	s, err := FromProvider(tr)
	if err != nil {
		t.Fatalf("FromProvider: %v", err)
	}
	if s.Artist != "Daft Punk, Pharrell Williams" {
		t.Errorf("Artist = %q", s.Artist)
	}
	if !s.Playable() {
		t.Error("converted song must be playable")
	}
}

func TestFromProviderAllFilters(t *testing.T) {
	tracks := []ProviderTrack{
		track("a", "https://p.scdn.co/a.mp3"),
		track("b", ""),
		track("c", "https://p.scdn.co/c.mp3"),
	}
	songs := FromProviderAll(tracks)
	if len(songs) != 2 {
		t.Fatalf("got %d songs, want 2", len(songs))
	}
	for _, s := range songs {
		if !s.Playable() {
			t.Errorf("unplayable song %q leaked through", s.Name)
		}
	}
}

func TestValidatePlaylist(t *testing.T) {
	playable := func(n string) Song {
		s, _ := FromProvider(track(n, "https://p.scdn.co/"+n+".mp3"))
		return s
	}

	if err := ValidatePlaylist([]Song{playable("a"), playable("b")}, 3); err == nil {
		t.Error("expected error for playlist shorter than rounds")
	}
	if err := ValidatePlaylist([]Song{playable("a"), {ID: "x", Name: "broken"}}, 2); err == nil {
		t.Error("expected error for unplayable song")
	} else if !gameerr.IsCategory(err, gameerr.Game) {
		t.Errorf("expected game category, got %q", gameerr.CategoryOf(err))
	}
	if err := ValidatePlaylist([]Song{playable("a"), playable("b"), playable("c")}, 3); err != nil {
		t.Errorf("valid playlist rejected: %v", err)
	}
}

func TestShuffleKeepsContents(t *testing.T) {
	var list []Song
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		s, _ := FromProvider(track(n, "https://p.scdn.co/"+n+".mp3"))
		list = append(list, s)
	}

	rng := rand.New(rand.NewSource(42))
	got := Shuffle(list, rng)

	if len(got) != len(list) {
		t.Fatalf("len = %d, want %d", len(got), len(list))
	}
	seen := map[string]bool{}
	for _, s := range got {
		seen[s.ID] = true
	}
	for _, s := range list {
		if !seen[s.ID] {
			t.Errorf("song %q missing after shuffle", s.ID)
		}
	}
	if list[0].ID != "id-a" {
		t.Error("input slice was mutated")
	}
}
