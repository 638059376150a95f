// Package round implements the question lifecycle: countdown, the playing
// window with audio and fade, answer capture, reveal, and the transition to
// the next round.
//
// All state mutations funnel through a single mutex-guarded advance path, so
// a timeout firing and an answer arriving in the same instant cannot both
// score the round: whichever enters first moves the state out of playing and
// the other becomes a no-op. Every machine carries an identity token;
// submissions tagged with a stale token are rejected, which keeps a buzz for
// a finished round from landing on the next one.
package round

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stereoclub/blindtest/internal/audio"
	"github.com/stereoclub/blindtest/internal/gameerr"
	"github.com/stereoclub/blindtest/internal/scoring"
	"github.com/stereoclub/blindtest/internal/song"
	"github.com/stereoclub/blindtest/internal/team"
	"github.com/stereoclub/blindtest/internal/timer"
)

type State string

const (
	StateCountdown  State = "countdown"
	StatePlaying    State = "playing"
	StatePaused     State = "paused"
	StateGuessing   State = "guessing"
	StateRevealing  State = "revealing"
	StateScoring    State = "scoring"
	StateTransition State = "transition"
)

// Guess records one team's submission during the playing window.
type Guess struct {
	TeamID       string    `json:"teamId"`
	Timestamp    time.Time `json:"timestamp"`
	IsCorrect    bool      `json:"isCorrect"`
	PointsEarned float64   `json:"pointsEarned"`
	BonusesUsed  []string  `json:"bonusesUsed,omitempty"`
}

// Outcome is the terminal result of one round, folded into the game stats
// by the session controller.
type Outcome struct {
	Number   int            `json:"number"`
	Song     song.Song      `json:"song"`
	Guesses  []Guess        `json:"guesses,omitempty"`
	WinnerID string         `json:"winnerId,omitempty"`
	TimedOut bool           `json:"timedOut"`
	Skipped  bool           `json:"skipped"`
	Elapsed  time.Duration  `json:"elapsed"`
	Result   scoring.Result `json:"result"`
}

// Settings is the per-round slice of the game config.
type Settings struct {
	Duration        time.Duration
	PreparationTime time.Duration
	RevealDelay     time.Duration
	TransitionDelay time.Duration
	VolumeStart     float64
	VolumeEnd       float64
	Bonuses         scoring.Bonuses
	Points          scoring.PointSystem
	// Last suppresses the transition phase after the final reveal.
	Last bool
}

// Events are the machine's outbound notifications. Handlers must not call
// back into the machine synchronously.
type Events struct {
	State  func(number int, s State)
	Tick   func(remaining time.Duration)
	Reveal func(o Outcome)
	Error  func(err error)
	Done   func(o Outcome)
}

type Option func(*Machine)

// WithClock replaces the wall clock used for answer timing.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithTickInterval sets the countdown tick granularity.
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) { m.tickInterval = d }
}

// Machine drives a single round.
type Machine struct {
	mu        sync.Mutex
	number    int
	song      song.Song
	teams     *team.Store
	sink      audio.Sink
	set       Settings
	ev        Events
	token     string
	state     State
	startTime time.Time
	outcome   Outcome
	closed    bool
	done      bool
	tm        *timer.Timer
	delay     *time.Timer
	ctx       context.Context

	now          func() time.Time
	tickInterval time.Duration
}

func New(number int, s song.Song, teams *team.Store, sink audio.Sink, set Settings, ev Events, opts ...Option) *Machine {
	m := &Machine{
		number:       number,
		song:         s,
		teams:        teams,
		sink:         sink,
		set:          set,
		ev:           ev,
		token:        uuid.NewString(),
		now:          time.Now,
		tickInterval: time.Second,
		outcome:      Outcome{Number: number, Song: s},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.tm = timer.New(set.Duration,
		timer.WithInterval(m.tickInterval),
		timer.WithOnTick(func(remaining time.Duration) {
			if ev.Tick != nil {
				ev.Tick(remaining)
			}
		}),
		timer.WithOnComplete(m.timeout),
	)
	return m
}

// Token identifies this round instance. Submissions must carry it.
func (m *Machine) Token() string { return m.token }

func (m *Machine) Number() int { return m.number }

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Song() song.Song { return m.song }

func (m *Machine) Guesses() []Guess {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Guess, len(m.outcome.Guesses))
	copy(out, m.outcome.Guesses)
	return out
}

// Remaining reports the time left in the answer window.
func (m *Machine) Remaining() time.Duration { return m.tm.Remaining() }

// Begin starts the round. A song without a playable preview is an invariant
// violation (playlist validation should have excluded it); the round reports
// a game error and skips itself.
func (m *Machine) Begin(ctx context.Context) {
	m.mu.Lock()
	if m.closed || m.done || m.state != "" {
		m.mu.Unlock()
		return
	}
	m.ctx = ctx

	if !m.song.Playable() {
		m.outcome.Skipped = true
		errCb := m.ev.Error
		m.scheduleLocked(0, m.finish)
		m.mu.Unlock()

		if errCb != nil {
			errCb(gameerr.New(gameerr.Game,
				fmt.Sprintf("round %d started without a playable preview", m.number)))
		}
		return
	}

	m.state = StateCountdown
	m.scheduleLocked(m.set.PreparationTime, m.startPlaying)
	stateCb := m.ev.State
	m.mu.Unlock()

	if stateCb != nil {
		stateCb(m.number, StateCountdown)
	}
}

// scheduleLocked arms the phase-delay timer. The previous one, if any, is
// cancelled; only one phase delay is ever pending.
func (m *Machine) scheduleLocked(d time.Duration, fn func()) {
	if m.delay != nil {
		m.delay.Stop()
	}
	m.delay = time.AfterFunc(d, fn)
}

// startPlaying fires when the countdown expires.
func (m *Machine) startPlaying() {
	m.mu.Lock()
	if m.closed || m.state != StateCountdown {
		m.mu.Unlock()
		return
	}
	m.state = StatePlaying
	m.startTime = m.now()
	ctx := m.ctx
	stateCb := m.ev.State
	errCb := m.ev.Error
	m.mu.Unlock()

	if stateCb != nil {
		stateCb(m.number, StatePlaying)
	}

	// Audio failure degrades the round: the answer window still runs so
	// the game is not blocked.
	m.sink.SetVolume(m.set.VolumeStart, false)
	if err := m.sink.Play(ctx, m.song.PreviewURL); err != nil {
		if errCb != nil {
			errCb(err)
		}
	} else {
		m.sink.FadeTo(m.set.VolumeEnd, m.set.Duration)
	}

	m.tm.Start()
}

// SubmitAnswer accepts the first submission of the playing window. The host
// adjudicates correctness; the machine only keeps score. Later submissions,
// stale tokens, and submissions outside the window are rejected.
func (m *Machine) SubmitAnswer(token, teamID string, isCorrect bool, v scoring.Verdict) (Outcome, error) {
	m.mu.Lock()
	if token != m.token {
		m.mu.Unlock()
		return Outcome{}, gameerr.New(gameerr.Game, "answer for a different round")
	}
	if m.closed || m.state != StatePlaying {
		m.mu.Unlock()
		return Outcome{}, gameerr.New(gameerr.Game, "no answer window is open")
	}
	if _, ok := m.teams.Get(teamID); !ok {
		m.mu.Unlock()
		return Outcome{}, gameerr.New(gameerr.Validation, "unknown team")
	}

	answeredAt := m.now()
	elapsed := answeredAt.Sub(m.startTime)
	m.state = StateGuessing

	guess := Guess{TeamID: teamID, Timestamp: answeredAt, IsCorrect: isCorrect}

	if isCorrect {
		m.state = StateScoring
		current, _ := m.teams.Get(teamID)
		result := scoring.Calculate(elapsed.Seconds(), current.Streak, m.set.Bonuses, v, m.set.Points)
		guess.PointsEarned = result.Points
		guess.BonusesUsed = result.Breakdown.Categories()

		m.teams.ApplyOutcome(teamID, result, answeredAt)
		m.outcome.WinnerID = teamID
		m.outcome.Elapsed = elapsed
		m.outcome.Result = result
	} else {
		// A wrong buzz still ends the window; every streak resets.
		m.teams.ApplyOutcome("", scoring.Result{}, answeredAt)
	}
	m.outcome.Guesses = append(m.outcome.Guesses, guess)

	outcome := m.outcome
	m.toRevealLocked()
	stateCb := m.ev.State
	revealCb := m.ev.Reveal
	m.mu.Unlock()

	if stateCb != nil {
		stateCb(m.number, StateRevealing)
	}
	if revealCb != nil {
		revealCb(outcome)
	}
	return outcome, nil
}

// timeout fires when the answer window elapses with no accepted answer.
func (m *Machine) timeout() {
	m.mu.Lock()
	if m.closed || m.state != StatePlaying {
		m.mu.Unlock()
		return
	}
	m.outcome.TimedOut = true
	m.teams.ApplyOutcome("", scoring.Result{}, m.now())

	outcome := m.outcome
	m.toRevealLocked()
	stateCb := m.ev.State
	revealCb := m.ev.Reveal
	m.mu.Unlock()

	if stateCb != nil {
		stateCb(m.number, StateRevealing)
	}
	if revealCb != nil {
		revealCb(outcome)
	}
}

func (m *Machine) toRevealLocked() {
	m.tm.Reset()
	m.sink.Stop()
	m.state = StateRevealing
	m.scheduleLocked(m.set.RevealDelay, m.afterReveal)
}

func (m *Machine) afterReveal() {
	m.mu.Lock()
	if m.closed || m.state != StateRevealing {
		m.mu.Unlock()
		return
	}
	if m.set.Last {
		m.mu.Unlock()
		m.finish()
		return
	}

	m.state = StateTransition
	m.scheduleLocked(m.set.TransitionDelay, m.finish)
	stateCb := m.ev.State
	m.mu.Unlock()

	if stateCb != nil {
		stateCb(m.number, StateTransition)
	}
}

func (m *Machine) finish() {
	m.mu.Lock()
	if m.closed || m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	outcome := m.outcome
	doneCb := m.ev.Done
	m.mu.Unlock()

	if doneCb != nil {
		doneCb(outcome)
	}
}

// Pause freezes the answer window and the audio.
func (m *Machine) Pause() {
	m.mu.Lock()
	if m.state != StatePlaying {
		m.mu.Unlock()
		return
	}
	m.state = StatePaused
	m.tm.Pause()
	stateCb := m.ev.State
	m.mu.Unlock()

	m.sink.Pause()
	if stateCb != nil {
		stateCb(m.number, StatePaused)
	}
}

// Resume reopens a paused answer window, preserving elapsed time.
func (m *Machine) Resume() {
	m.mu.Lock()
	if m.state != StatePaused {
		m.mu.Unlock()
		return
	}
	m.state = StatePlaying
	// Shift the answer-time origin so the paused span doesn't count.
	m.startTime = m.now().Add(-(m.set.Duration - m.tm.Remaining()))
	m.tm.Resume()
	ctx := m.ctx
	stateCb := m.ev.State
	errCb := m.ev.Error
	m.mu.Unlock()

	if err := m.sink.Play(ctx, ""); err != nil && errCb != nil {
		errCb(err)
	}
	if stateCb != nil {
		stateCb(m.number, StatePlaying)
	}
}

// Close tears the round down: pending delays are cancelled, the countdown
// stops, audio stops. Late timer or audio events become no-ops.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	if m.delay != nil {
		m.delay.Stop()
		m.delay = nil
	}
	m.tm.Reset()
	m.mu.Unlock()

	m.sink.Stop()
}
