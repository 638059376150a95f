package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stereoclub/blindtest/internal/audio"
	"github.com/stereoclub/blindtest/internal/gameerr"
	"github.com/stereoclub/blindtest/internal/round"
	"github.com/stereoclub/blindtest/internal/scoring"
	"github.com/stereoclub/blindtest/internal/song"
	"github.com/stereoclub/blindtest/internal/storage"
	"github.com/stereoclub/blindtest/internal/team"
)

// fakeKV is an in-memory stand-in for the SQLite store.
type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string][]byte{}} }

func (f *fakeKV) Get(_ context.Context, key string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	if !ok {
		return storage.ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

func (f *fakeKV) Set(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
	return nil
}

var _ storage.KV = (*fakeKV)(nil)

// nopSink satisfies audio.Sink without doing anything.
type nopSink struct{}

var _ audio.Sink = nopSink{}

func (nopSink) Load(string) error                  { return nil }
func (nopSink) Play(context.Context, string) error { return nil }
func (nopSink) Pause()                             {}
func (nopSink) Stop()                              {}
func (nopSink) SetVolume(float64, bool)            {}
func (nopSink) FadeTo(float64, time.Duration)      {}
func (nopSink) Volume() float64                    { return 1 }

type roundEvent struct {
	number int
	state  round.State
}

type recorder struct {
	rounds   chan roundEvent
	finished chan Stats
	errs     chan error
}

func newRecorder() *recorder {
	return &recorder{
		rounds:   make(chan roundEvent, 64),
		finished: make(chan Stats, 1),
		errs:     make(chan error, 8),
	}
}

func (r *recorder) events() Events {
	return Events{
		Round:    func(n int, s round.State) { r.rounds <- roundEvent{n, s} },
		Finished: func(st Stats) { r.finished <- st },
		Error:    func(err error) { r.errs <- err },
	}
}

func (r *recorder) waitRound(t *testing.T, number int, state round.State) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-r.rounds:
			if e.number == number && e.state == state {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for round %d state %q", number, state)
		}
	}
}

func testConfig(rounds int) Config {
	cfg := DefaultConfig()
	cfg.Rounds = rounds
	cfg.Duration = minDuration
	cfg.RoundSettings = RoundSettings{
		PreparationTime: 0.005,
		RevealDelay:     0.005,
		TransitionDelay: 0.005,
	}
	return cfg
}

func testPlaylist(n int) []song.Song {
	songs := make([]song.Song, n)
	for i := range songs {
		songs[i] = song.Song{
			ID:         fmt.Sprintf("s%d", i+1),
			Name:       fmt.Sprintf("Song %d", i+1),
			Artist:     "Artist",
			PreviewURL: fmt.Sprintf("https://p.scdn.co/%d.mp3", i+1),
		}
	}
	return songs
}

func testController(t *testing.T, teamNames []string, rounds int) (*Controller, *team.Store, *fakeKV, *recorder) {
	t.Helper()
	teams := team.NewStore(team.WithIDFunc(seqIDs(teamNames)))
	for _, name := range teamNames {
		if _, err := teams.Add(name); err != nil {
			t.Fatalf("adding team %q: %v", name, err)
		}
	}

	kv := newFakeKV()
	rec := newRecorder()
	c := New(teams, nopSink{}, kv, slog.Default(), rec.events(),
		WithRand(rand.New(rand.NewSource(1))))

	ctx := context.Background()
	if err := c.SetConfig(ctx, testConfig(rounds)); err != nil {
		t.Fatalf("config: %v", err)
	}
	if err := c.SetPlaylist(ctx, testPlaylist(rounds+1)); err != nil {
		t.Fatalf("playlist: %v", err)
	}
	return c, teams, kv, rec
}

func seqIDs(names []string) func() string {
	n := 0
	return func() string {
		n++
		return names[n-1] + "-id"
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rounds", func(c *Config) { c.Rounds = 0 }},
		{"duration too short", func(c *Config) { c.Duration = 5 }},
		{"duration too long", func(c *Config) { c.Duration = 90 }},
		{"volume above one", func(c *Config) { c.VolumeStart = 1.5 }},
		{"negative volume", func(c *Config) { c.VolumeEnd = -0.1 }},
		{"zero base points", func(c *Config) { c.PointSystem.BasePoints = 0 }},
		{"negative delay", func(c *Config) { c.RoundSettings.RevealDelay = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !gameerr.IsCategory(err, gameerr.Validation) {
				t.Errorf("category = %q, want validation", gameerr.CategoryOf(err))
			}
		})
	}
}

func TestStartRequiresTwoTeams(t *testing.T) {
	c, _, _, _ := testController(t, []string{"Solo"}, 2)
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("start with one team should fail")
	}
}

func TestStartRequiresEnoughSongs(t *testing.T) {
	c, _, _, _ := testController(t, []string{"A", "B"}, 2)
	if err := c.SetPlaylist(context.Background(), testPlaylist(1)); err != nil {
		t.Fatalf("playlist: %v", err)
	}
	err := c.Start(context.Background())
	if err == nil {
		t.Fatal("start with a short playlist should fail")
	}
	if !gameerr.IsCategory(err, gameerr.Validation) {
		t.Errorf("category = %q, want validation", gameerr.CategoryOf(err))
	}
}

func TestSetPlaylistRejectsUnplayable(t *testing.T) {
	c, _, _, _ := testController(t, []string{"A", "B"}, 2)
	songs := testPlaylist(3)
	songs[1].PreviewURL = ""
	if err := c.SetPlaylist(context.Background(), songs); err == nil {
		t.Fatal("playlist with an unplayable song should be rejected")
	}
}

func TestFullGame(t *testing.T) {
	c, teams, kv, rec := testController(t, []string{"A", "B"}, 2)
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if c.Phase() != PhasePlaying {
		t.Fatalf("phase = %q, want playing", c.Phase())
	}

	// Round 1: team A answers correctly.
	rec.waitRound(t, 1, round.StatePlaying)
	snap := c.State()
	if snap.Round == nil || snap.Round.Number != 1 {
		t.Fatalf("state round = %+v", snap.Round)
	}
	if _, err := c.SubmitAnswer(ctx, snap.Round.Token, "A-id", true, scoring.Verdict{}); err != nil {
		t.Fatalf("round 1 answer: %v", err)
	}

	// Round 2: team B buzzes wrong; the window closes without a winner.
	rec.waitRound(t, 2, round.StatePlaying)
	snap = c.State()
	if _, err := c.SubmitAnswer(ctx, snap.Round.Token, "B-id", false, scoring.Verdict{}); err != nil {
		t.Fatalf("round 2 answer: %v", err)
	}

	var st Stats
	select {
	case st = <-rec.finished:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the game to finish")
	}

	if c.Phase() != PhaseFinished {
		t.Errorf("phase = %q, want finished", c.Phase())
	}
	if st.RoundsPlayed != 2 {
		t.Errorf("roundsPlayed = %d, want 2", st.RoundsPlayed)
	}
	if st.WinnerID != "A-id" {
		t.Errorf("winner = %q, want A-id", st.WinnerID)
	}
	a, _ := teams.Get("A-id")
	if st.TotalPoints != a.Score || a.Score < c.Config().PointSystem.BasePoints {
		t.Errorf("totalPoints = %v, team score = %v", st.TotalPoints, a.Score)
	}
	if st.FastestTeam != "A-id" {
		t.Errorf("fastestTeam = %q", st.FastestTeam)
	}

	// Stats and the final team snapshot are persisted.
	var persisted Stats
	if err := kv.Get(ctx, "last_game_stats", &persisted); err != nil {
		t.Fatalf("persisted stats: %v", err)
	}
	if persisted.WinnerID != "A-id" {
		t.Errorf("persisted winner = %q", persisted.WinnerID)
	}
	var savedTeams []team.Team
	if err := kv.Get(ctx, "teams", &savedTeams); err != nil {
		t.Fatalf("persisted teams: %v", err)
	}
	if len(savedTeams) != 2 {
		t.Errorf("persisted %d teams, want 2", len(savedTeams))
	}

	got, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.WinnerID != st.WinnerID || got.RoundsPlayed != st.RoundsPlayed {
		t.Errorf("stats mismatch: %+v vs %+v", got, st)
	}
}

func TestResetAbandonsGame(t *testing.T) {
	c, _, _, rec := testController(t, []string{"A", "B"}, 2)
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	rec.waitRound(t, 1, round.StatePlaying)
	token := c.State().Round.Token

	c.Reset(ctx)
	if c.Phase() != PhaseHome {
		t.Errorf("phase = %q, want home", c.Phase())
	}
	if _, err := c.SubmitAnswer(ctx, token, "A-id", true, scoring.Verdict{}); err == nil {
		t.Error("answer after reset should fail")
	}
	if snap := c.State(); snap.Round != nil {
		t.Errorf("round survived reset: %+v", snap.Round)
	}
}

func TestConfigFrozenDuringGame(t *testing.T) {
	c, _, _, rec := testController(t, []string{"A", "B"}, 2)
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	rec.waitRound(t, 1, round.StatePlaying)

	if err := c.SetConfig(ctx, testConfig(3)); err == nil {
		t.Error("config change during a game should fail")
	}
	if err := c.SetPlaylist(ctx, testPlaylist(5)); err == nil {
		t.Error("playlist change during a game should fail")
	}
}

func TestLoadRestoresPersistedState(t *testing.T) {
	kv := newFakeKV()
	ctx := context.Background()

	cfg := testConfig(3)
	if err := kv.Set(ctx, "config", cfg); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, "playlist", testPlaylist(4)); err != nil {
		t.Fatal(err)
	}
	saved := []team.Team{
		{ID: "x-id", Name: "X", Color: team.Colors[0], Score: 250},
		{ID: "y-id", Name: "Y", Color: team.Colors[1]},
	}
	if err := kv.Set(ctx, "teams", saved); err != nil {
		t.Fatal(err)
	}

	teams := team.NewStore()
	c := New(teams, nopSink{}, kv, slog.Default(), Events{})
	c.Load(ctx)

	if got := c.Config(); got.Rounds != 3 {
		t.Errorf("restored rounds = %d, want 3", got.Rounds)
	}
	if got := c.Playlist(); len(got) != 4 {
		t.Errorf("restored playlist len = %d, want 4", len(got))
	}
	if got := teams.List(); len(got) != 2 || got[0].Score != 250 {
		t.Errorf("restored teams = %+v", got)
	}
}

func TestLoadIgnoresInvalidConfig(t *testing.T) {
	kv := newFakeKV()
	ctx := context.Background()
	bad := DefaultConfig()
	bad.Rounds = 0
	if err := kv.Set(ctx, "config", bad); err != nil {
		t.Fatal(err)
	}

	c := New(team.NewStore(), nopSink{}, kv, slog.Default(), Events{})
	c.Load(ctx)

	if got := c.Config(); got.Rounds != DefaultConfig().Rounds {
		t.Errorf("rounds = %d, want default", got.Rounds)
	}
}

func TestStatsWithoutFinishedGame(t *testing.T) {
	c := New(team.NewStore(), nopSink{}, newFakeKV(), slog.Default(), Events{})
	if _, err := c.Stats(context.Background()); err == nil {
		t.Fatal("expected an error with no finished game")
	}
}

func TestStatsFallsBackToPersisted(t *testing.T) {
	kv := newFakeKV()
	ctx := context.Background()
	if err := kv.Set(ctx, "last_game_stats", Stats{RoundsPlayed: 5, WinnerID: "old-id"}); err != nil {
		t.Fatal(err)
	}

	c := New(team.NewStore(), nopSink{}, kv, slog.Default(), Events{})
	st, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.RoundsPlayed != 5 || st.WinnerID != "old-id" {
		t.Errorf("stats = %+v", st)
	}
}
