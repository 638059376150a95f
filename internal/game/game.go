// Package game is the session controller: it owns the overall phase
// (home, preparation, playing, finished), sequences rounds, folds outcomes
// into the end-of-game stats, and persists teams, playlist, config, and the
// last game's stats through the key-value store.
package game

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/stereoclub/blindtest/internal/audio"
	"github.com/stereoclub/blindtest/internal/gameerr"
	"github.com/stereoclub/blindtest/internal/round"
	"github.com/stereoclub/blindtest/internal/scoring"
	"github.com/stereoclub/blindtest/internal/song"
	"github.com/stereoclub/blindtest/internal/storage"
	"github.com/stereoclub/blindtest/internal/team"
)

type Phase string

const (
	PhaseHome        Phase = "home"
	PhasePreparation Phase = "preparation"
	PhasePlaying     Phase = "playing"
	PhaseFinished    Phase = "finished"
)

// Persistence keys. Values are JSON documents in the kv store.
const (
	keyTeams    = "teams"
	keyConfig   = "config"
	keyPlaylist = "playlist"
	keyStats    = "last_game_stats"
)

// Events are forwarded to the event stream for the SPA. Handlers must not
// call back into the controller synchronously.
type Events struct {
	Phase    func(Phase)
	Round    func(number int, s round.State)
	Tick     func(remaining time.Duration)
	Reveal   func(o round.Outcome)
	Error    func(err error)
	Finished func(st Stats)
}

type Option func(*Controller)

// WithRand replaces the playlist shuffle source, used by tests.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithRoundOptions passes extra options to every round machine.
func WithRoundOptions(opts ...round.Option) Option {
	return func(c *Controller) { c.roundOpts = opts }
}

// Controller drives one game at a time. All public methods are safe for
// concurrent use; rounds are strictly sequential.
type Controller struct {
	logger *slog.Logger
	teams  *team.Store
	sink   audio.Sink
	kv     storage.KV
	ev     Events

	rng       *rand.Rand
	now       func() time.Time
	roundOpts []round.Option

	mu        sync.Mutex
	phase     Phase
	config    Config
	playlist  []song.Song
	order     []song.Song // shuffled copy for the active game
	current   *round.Machine
	outcomes  []round.Outcome
	lastStats *Stats
	ctx       context.Context
}

func New(teams *team.Store, sink audio.Sink, kv storage.KV, logger *slog.Logger, ev Events, opts ...Option) *Controller {
	c := &Controller{
		logger: logger,
		teams:  teams,
		sink:   sink,
		kv:     kv,
		ev:     ev,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		phase:  PhaseHome,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load restores teams, config, and playlist from the store. Missing keys are
// normal on first run; other storage failures are non-fatal and leave the
// defaults in place.
func (c *Controller) Load(ctx context.Context) {
	var teams []team.Team
	switch err := c.kv.Get(ctx, keyTeams, &teams); {
	case err == nil:
		c.teams.Replace(teams)
	case !errors.Is(err, storage.ErrNotFound):
		c.logger.Warn("restoring teams failed", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var cfg Config
	switch err := c.kv.Get(ctx, keyConfig, &cfg); {
	case err == nil:
		if err := cfg.Validate(); err == nil {
			c.config = cfg
		} else {
			c.logger.Warn("persisted config invalid, using defaults", "error", err)
		}
	case !errors.Is(err, storage.ErrNotFound):
		c.logger.Warn("restoring config failed", "error", err)
	}

	var playlist []song.Song
	switch err := c.kv.Get(ctx, keyPlaylist, &playlist); {
	case err == nil:
		c.playlist = playlist
	case !errors.Is(err, storage.ErrNotFound):
		c.logger.Warn("restoring playlist failed", "error", err)
	}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// SetConfig replaces the game configuration. Rejected while a game is in
// progress; the config is frozen from start to finish.
func (c *Controller) SetConfig(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.phase == PhasePlaying {
		c.mu.Unlock()
		return gameerr.New(gameerr.Game, "config cannot change during a game")
	}
	c.config = cfg
	c.toPreparationLocked()
	c.mu.Unlock()

	c.persist(ctx, keyConfig, cfg)
	return nil
}

func (c *Controller) Playlist() []song.Song {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]song.Song, len(c.playlist))
	copy(out, c.playlist)
	return out
}

// SetPlaylist replaces the playlist. Songs without a playable preview are
// rejected here so an active playlist never holds one.
func (c *Controller) SetPlaylist(ctx context.Context, songs []song.Song) error {
	for _, s := range songs {
		if !s.Playable() {
			return gameerr.New(gameerr.Validation, "playlist contains a song without a preview")
		}
	}

	c.mu.Lock()
	if c.phase == PhasePlaying {
		c.mu.Unlock()
		return gameerr.New(gameerr.Game, "playlist cannot change during a game")
	}
	c.playlist = make([]song.Song, len(songs))
	copy(c.playlist, songs)
	c.toPreparationLocked()
	c.mu.Unlock()

	c.persist(ctx, keyPlaylist, songs)
	return nil
}

// toPreparationLocked marks that the host has begun setting up a game.
func (c *Controller) toPreparationLocked() {
	if c.phase == PhaseHome {
		c.phase = PhasePreparation
		c.emitPhaseLocked()
	}
}

func (c *Controller) emitPhaseLocked() {
	if c.ev.Phase == nil {
		return
	}
	phase := c.phase
	cb := c.ev.Phase
	go cb(phase)
}

// Start begins a new game: scores reset, the playlist is shuffled, and round
// one starts. Preconditions: at least two teams, a valid config, and a
// playlist at least as long as the configured round count.
func (c *Controller) Start(ctx context.Context) error {
	if c.teams.Len() < 2 {
		return gameerr.New(gameerr.Validation, "at least 2 teams are required to start")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhasePlaying {
		return gameerr.New(gameerr.Game, "a game is already in progress")
	}
	if err := c.config.Validate(); err != nil {
		return err
	}
	if err := song.ValidatePlaylist(c.playlist, c.config.Rounds); err != nil {
		return err
	}

	c.teams.ResetScores()
	c.order = song.Shuffle(c.playlist, c.rng)[:c.config.Rounds]
	c.outcomes = nil
	c.ctx = ctx
	c.phase = PhasePlaying
	c.emitPhaseLocked()

	c.logger.Info("game started",
		"rounds", c.config.Rounds,
		"teams", c.teams.Len(),
		"playlist", len(c.playlist))

	c.startRoundLocked(1)
	return nil
}

func (c *Controller) startRoundLocked(n int) {
	set := c.config.roundSettings(n == c.config.Rounds)
	m := round.New(n, c.order[n-1], c.teams, c.sink, set, round.Events{
		State:  c.ev.Round,
		Tick:   c.ev.Tick,
		Reveal: c.ev.Reveal,
		Error:  c.onRoundError,
		Done:   c.roundDone,
	}, c.roundOpts...)
	c.current = m
	m.Begin(c.ctx)
}

func (c *Controller) onRoundError(err error) {
	c.logger.Error("round error",
		"category", gameerr.CategoryOf(err),
		"error", err)
	if c.ev.Error != nil {
		c.ev.Error(err)
	}
}

// roundDone folds one outcome in and either starts the next round or
// finishes the game. Called from the round machine's own goroutine, never
// while the controller lock is held.
func (c *Controller) roundDone(o round.Outcome) {
	c.mu.Lock()
	if c.phase != PhasePlaying || c.current == nil || c.current.Number() != o.Number {
		c.mu.Unlock()
		return
	}
	c.outcomes = append(c.outcomes, o)
	ctx := c.ctx

	if o.Number < c.config.Rounds {
		c.startRoundLocked(o.Number + 1)
		c.mu.Unlock()
		c.persist(ctx, keyTeams, c.teams.List())
		return
	}

	c.current = nil
	c.phase = PhaseFinished
	st := foldStats(c.outcomes, c.teams.Sorted(), c.now())
	c.lastStats = &st
	c.emitPhaseLocked()
	finishedCb := c.ev.Finished
	c.mu.Unlock()

	c.persist(ctx, keyTeams, c.teams.List())
	c.persist(ctx, keyStats, st)
	c.logger.Info("game finished",
		"rounds", st.RoundsPlayed,
		"totalPoints", st.TotalPoints,
		"winner", st.WinnerID)
	if finishedCb != nil {
		finishedCb(st)
	}
}

// SubmitAnswer forwards the host's adjudication to the active round.
func (c *Controller) SubmitAnswer(ctx context.Context, token, teamID string, isCorrect bool, v scoring.Verdict) (round.Outcome, error) {
	c.mu.Lock()
	m := c.current
	c.mu.Unlock()
	if m == nil {
		return round.Outcome{}, gameerr.New(gameerr.Game, "no round in progress")
	}

	o, err := m.SubmitAnswer(token, teamID, isCorrect, v)
	if err != nil {
		return round.Outcome{}, err
	}
	c.persist(ctx, keyTeams, c.teams.List())
	return o, nil
}

// Pause freezes the active round.
func (c *Controller) Pause() error {
	c.mu.Lock()
	m := c.current
	c.mu.Unlock()
	if m == nil {
		return gameerr.New(gameerr.Game, "no round in progress")
	}
	m.Pause()
	return nil
}

// Resume reopens a paused round.
func (c *Controller) Resume() error {
	c.mu.Lock()
	m := c.current
	c.mu.Unlock()
	if m == nil {
		return gameerr.New(gameerr.Game, "no round in progress")
	}
	m.Resume()
	return nil
}

// Reset abandons any game in progress and returns to the home phase. Teams,
// playlist, and config survive; round state does not.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	m := c.current
	c.current = nil
	c.outcomes = nil
	c.order = nil
	c.phase = PhaseHome
	c.emitPhaseLocked()
	c.mu.Unlock()

	if m != nil {
		m.Close()
	}
	c.persist(ctx, keyTeams, c.teams.List())
}

// RoundSnapshot describes the active round for the state endpoint.
type RoundSnapshot struct {
	Number    int           `json:"number"`
	Token     string        `json:"token"`
	State     round.State   `json:"state"`
	Song      song.Song     `json:"song"`
	Remaining float64       `json:"remainingSeconds"`
	Guesses   []round.Guess `json:"guesses,omitempty"`
}

// Snapshot is the full observable game state.
type Snapshot struct {
	Phase    Phase          `json:"phase"`
	Config   Config         `json:"config"`
	Teams    []team.Team    `json:"teams"`
	Playlist int            `json:"playlistSize"`
	Round    *RoundSnapshot `json:"round,omitempty"`
}

func (c *Controller) State() Snapshot {
	c.mu.Lock()
	snap := Snapshot{
		Phase:    c.phase,
		Config:   c.config,
		Playlist: len(c.playlist),
	}
	m := c.current
	c.mu.Unlock()

	snap.Teams = c.teams.List()
	if m != nil {
		snap.Round = &RoundSnapshot{
			Number:    m.Number(),
			Token:     m.Token(),
			State:     m.State(),
			Song:      m.Song(),
			Remaining: m.Remaining().Seconds(),
			Guesses:   m.Guesses(),
		}
	}
	return snap
}

// Stats returns the finished game's aggregate, falling back to the persisted
// one from a previous session.
func (c *Controller) Stats(ctx context.Context) (Stats, error) {
	c.mu.Lock()
	last := c.lastStats
	c.mu.Unlock()

	if last != nil {
		return *last, nil
	}

	var st Stats
	if err := c.kv.Get(ctx, keyStats, &st); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Stats{}, gameerr.New(gameerr.Game, "no finished game yet")
		}
		return Stats{}, err
	}
	return st, nil
}

// persist writes one key, logging failures instead of propagating them. A
// broken store must not take the running game down with it.
func (c *Controller) persist(ctx context.Context, key string, v any) {
	if err := c.kv.Set(ctx, key, v); err != nil {
		c.logger.Warn("persist failed", "key", key, "error", err)
		if c.ev.Error != nil {
			c.ev.Error(gameerr.Wrap(gameerr.Storage, "saving "+key, err))
		}
	}
}

// PersistTeams saves the current team list, used by the team handlers after
// create/delete.
func (c *Controller) PersistTeams(ctx context.Context) {
	c.persist(ctx, keyTeams, c.teams.List())
}
