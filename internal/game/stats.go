package game

import (
	"time"

	"github.com/stereoclub/blindtest/internal/round"
	"github.com/stereoclub/blindtest/internal/team"
)

// TeamStats is one team's line on the end-of-game board.
type TeamStats struct {
	TeamID         string             `json:"teamId"`
	Name           string             `json:"name"`
	Color          string             `json:"color"`
	Score          float64            `json:"score"`
	StreakRecord   int                `json:"streakRecord"`
	CorrectAnswers int                `json:"correctAnswers"`
	BonusesUsed    team.BonusCounters `json:"bonusesUsed"`
}

// Stats is the end-of-game aggregate, computed purely by folding over the
// per-round outcomes and the final team snapshot.
type Stats struct {
	RoundsPlayed      int         `json:"roundsPlayed"`
	TotalPoints       float64     `json:"totalPoints"`
	LongestStreak     int         `json:"longestStreak"`
	LongestStreakTeam string      `json:"longestStreakTeam,omitempty"`
	FastestTeam       string      `json:"fastestTeam,omitempty"`
	FastestAnswer     float64     `json:"fastestAnswerSeconds,omitempty"`
	AverageResponse   float64     `json:"averageResponseSeconds,omitempty"`
	WinnerID          string      `json:"winnerId,omitempty"`
	Teams             []TeamStats `json:"teams"`
	FinishedAt        time.Time   `json:"finishedAt"`
}

// foldStats builds the aggregate from the round outcomes and the teams as
// they stand at game end. Teams come back highest score first; ties keep
// creation order, so the winner is teams[0].
func foldStats(outcomes []round.Outcome, teams []team.Team, finishedAt time.Time) Stats {
	st := Stats{
		RoundsPlayed: len(outcomes),
		FinishedAt:   finishedAt,
	}

	var answered int
	var totalElapsed time.Duration
	fastest := time.Duration(-1)
	for _, o := range outcomes {
		st.TotalPoints += o.Result.Points
		if o.WinnerID == "" {
			continue
		}
		answered++
		totalElapsed += o.Elapsed
		if fastest < 0 || o.Elapsed < fastest {
			fastest = o.Elapsed
			st.FastestTeam = o.WinnerID
			st.FastestAnswer = o.Elapsed.Seconds()
		}
	}
	if answered > 0 {
		st.AverageResponse = (totalElapsed / time.Duration(answered)).Seconds()
	}

	for _, t := range teams {
		if t.StreakRecord > st.LongestStreak {
			st.LongestStreak = t.StreakRecord
			st.LongestStreakTeam = t.ID
		}
		st.Teams = append(st.Teams, TeamStats{
			TeamID:         t.ID,
			Name:           t.Name,
			Color:          t.Color,
			Score:          t.Score,
			StreakRecord:   t.StreakRecord,
			CorrectAnswers: t.TotalCorrectAnswers,
			BonusesUsed:    t.BonusesUsed,
		})
	}
	if len(teams) > 0 {
		st.WinnerID = teams[0].ID
	}
	return st
}
