// Package team tracks the competing teams and their score/streak
// bookkeeping. The store is in-memory; the game controller persists it
// through the key-value store between sessions.
package team

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/stereoclub/blindtest/internal/gameerr"
	"github.com/stereoclub/blindtest/internal/scoring"
)

const (
	MaxTeams   = 4
	MaxNameLen = 20
)

// Colors are assigned round-robin at creation, matching the UI's gradient
// palette.
var Colors = []string{
	"from-purple-500 to-pink-500",
	"from-blue-500 to-teal-500",
	"from-orange-500 to-red-500",
	"from-green-500 to-emerald-500",
}

var ErrNotFound = errors.New("team not found")

// BonusCounters counts how many times each bonus category fired for a team.
type BonusCounters struct {
	Speed  int `json:"speed"`
	Streak int `json:"streak"`
	Album  int `json:"album"`
	Artist int `json:"artist"`
}

type Team struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Color               string        `json:"color"`
	Score               float64       `json:"score"`
	Streak              int           `json:"streak"`
	StreakRecord        int           `json:"streakRecord"`
	BonusesUsed         BonusCounters `json:"bonusesUsed"`
	LastAnswerTime      *time.Time    `json:"lastAnswerTime,omitempty"`
	TotalCorrectAnswers int           `json:"totalCorrectAnswers"`
}

type Option func(*Store)

// WithIDFunc replaces the ID generator, used by tests for stable IDs.
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

type Store struct {
	mu    sync.RWMutex
	teams []Team
	newID func() string
}

func NewStore(opts ...Option) *Store {
	s := &Store{newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add creates a team. Names are unique case-insensitively; at most MaxTeams
// may exist at once.
func (s *Store) Add(name string) (Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Team{}, gameerr.New(gameerr.Validation, "team name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return Team{}, gameerr.New(gameerr.Validation,
			fmt.Sprintf("team name cannot exceed %d characters", MaxNameLen))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.teams) >= MaxTeams {
		return Team{}, gameerr.New(gameerr.Validation,
			fmt.Sprintf("at most %d teams are allowed", MaxTeams))
	}
	for _, t := range s.teams {
		if strings.EqualFold(t.Name, name) {
			return Team{}, gameerr.New(gameerr.Validation,
				fmt.Sprintf("team name %q is already taken", name))
		}
	}

	t := Team{
		ID:    s.newID(),
		Name:  name,
		Color: Colors[len(s.teams)%len(Colors)],
	}
	s.teams = append(s.teams, t)
	return t, nil
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.teams {
		if t.ID == id {
			s.teams = append(s.teams[:i], s.teams[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// List returns the teams in creation order.
func (s *Store) List() []Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Team, len(s.teams))
	copy(out, s.teams)
	return out
}

// Sorted returns the teams ordered by score, highest first. Ties keep
// creation order.
func (s *Store) Sorted() []Team {
	out := s.List()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func (s *Store) Get(id string) (Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams)
}

// ResetScores zeroes all scoring state, keeping the teams themselves.
// Called at game start.
func (s *Store) ResetScores() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.teams {
		s.teams[i].Score = 0
		s.teams[i].Streak = 0
		s.teams[i].StreakRecord = 0
		s.teams[i].BonusesUsed = BonusCounters{}
		s.teams[i].LastAnswerTime = nil
		s.teams[i].TotalCorrectAnswers = 0
	}
}

// Replace swaps in a previously persisted team list.
func (s *Store) Replace(teams []Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = make([]Team, len(teams))
	copy(s.teams, teams)
}

// ResetStreak zeroes one team's streak, used when its answer was wrong.
func (s *Store) ResetStreak(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.teams {
		if s.teams[i].ID == id {
			s.teams[i].Streak = 0
			return
		}
	}
}

// ApplyOutcome folds a round result into the store: the winning team earns
// the points and extends its streak, every other team's streak resets. An
// empty winnerID (timeout) resets all streaks.
func (s *Store) ApplyOutcome(winnerID string, result scoring.Result, answeredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := winnerID == ""
	for i := range s.teams {
		t := &s.teams[i]
		if t.ID != winnerID {
			t.Streak = 0
			continue
		}
		found = true
		t.Score += result.Points
		t.Streak++
		if t.Streak > t.StreakRecord {
			t.StreakRecord = t.Streak
		}
		t.TotalCorrectAnswers++
		at := answeredAt
		t.LastAnswerTime = &at

		if result.Breakdown.Speed > 0 {
			t.BonusesUsed.Speed++
		}
		if result.Breakdown.Streak > 0 {
			t.BonusesUsed.Streak++
		}
		if result.Breakdown.Album > 0 {
			t.BonusesUsed.Album++
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}
