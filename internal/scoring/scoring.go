// Package scoring holds the pure point-calculation rules. Nothing here
// validates a guess against a song; the host adjudicates correctness and the
// caller passes the verdict in.
package scoring

// Flat amounts for the host-adjudicated category bonuses.
const (
	AlbumBonusPoints = 25
	YearBonusPoints  = 50
)

// PointSystem is the tunable half of the scoring rules.
type PointSystem struct {
	BasePoints       float64 `json:"basePoints"`
	SpeedBonus       float64 `json:"speedBonus"` // points per second under the threshold
	StreakMultiplier float64 `json:"streakMultiplier"`
	MaxSpeedBonus    float64 `json:"maxSpeedBonus"`
	MinSpeedForBonus float64 `json:"minSpeedForBonus"` // seconds
}

// Bonuses are the per-category enable flags from the game config.
type Bonuses struct {
	AlbumName   bool `json:"albumName"`
	ReleaseYear bool `json:"releaseYear"`
	Artist      bool `json:"artist"`
	Streak      bool `json:"streak"`
	Speed       bool `json:"speed"`
}

// Verdict carries the host's judgment of the flat bonus categories for a
// correct answer.
type Verdict struct {
	AlbumCorrect bool `json:"albumCorrect"`
	YearCorrect  bool `json:"yearCorrect"`
}

// Breakdown reports how much each bonus category contributed.
type Breakdown struct {
	Speed  float64 `json:"speed"`
	Streak float64 `json:"streak"`
	Album  float64 `json:"album"`
	Year   float64 `json:"year"`
}

// Categories lists the bonus categories that fired, in a stable order.
func (b Breakdown) Categories() []string {
	var cats []string
	if b.Speed > 0 {
		cats = append(cats, "speed")
	}
	if b.Streak > 0 {
		cats = append(cats, "streak")
	}
	if b.Album > 0 {
		cats = append(cats, "album")
	}
	if b.Year > 0 {
		cats = append(cats, "year")
	}
	return cats
}

// Result is the outcome of scoring one correct answer.
type Result struct {
	Points    float64   `json:"points"`
	Breakdown Breakdown `json:"breakdown"`
}

// Calculate maps (elapsed seconds, team streak, enabled bonuses, verdict,
// point system) to the points awarded. Every bonus contribution is clamped
// to zero on degenerate input, so the total is never below BasePoints.
func Calculate(timeTaken float64, streak int, enabled Bonuses, v Verdict, ps PointSystem) Result {
	r := Result{Points: ps.BasePoints}

	if enabled.Speed {
		r.Breakdown.Speed = speedBonus(timeTaken, ps)
		r.Points += r.Breakdown.Speed
	}

	if enabled.Streak && streak > 0 {
		bonus := float64(streak) * ps.StreakMultiplier
		if bonus < 0 {
			bonus = 0
		}
		r.Breakdown.Streak = bonus
		r.Points += bonus
	}

	if enabled.AlbumName && v.AlbumCorrect {
		r.Breakdown.Album = AlbumBonusPoints
		r.Points += AlbumBonusPoints
	}

	if enabled.ReleaseYear && v.YearCorrect {
		r.Breakdown.Year = YearBonusPoints
		r.Points += YearBonusPoints
	}

	return r
}

func speedBonus(timeTaken float64, ps PointSystem) float64 {
	// A negative elapsed time or a non-positive threshold cannot earn a
	// bonus; this also keeps NaN out of the math.
	if timeTaken < 0 || ps.MinSpeedForBonus <= 0 || timeTaken >= ps.MinSpeedForBonus {
		return 0
	}
	bonus := (ps.MinSpeedForBonus - timeTaken) * ps.SpeedBonus
	if bonus < 0 {
		return 0
	}
	if bonus > ps.MaxSpeedBonus {
		return ps.MaxSpeedBonus
	}
	return bonus
}
