package game

import (
	"fmt"
	"time"

	"github.com/stereoclub/blindtest/internal/gameerr"
	"github.com/stereoclub/blindtest/internal/round"
	"github.com/stereoclub/blindtest/internal/scoring"
)

// RoundSettings are the artificial delays between round phases, in seconds.
type RoundSettings struct {
	PreparationTime float64 `json:"preparationTime"`
	RevealDelay     float64 `json:"revealDelay"`
	TransitionDelay float64 `json:"transitionDelay"`
}

// Config is the host-editable game configuration. It is frozen for the
// duration of a game and persisted across sessions.
type Config struct {
	Rounds        int                 `json:"rounds"`
	Duration      float64             `json:"duration"` // seconds
	VolumeStart   float64             `json:"volumeStart"`
	VolumeEnd     float64             `json:"volumeEnd"`
	Bonuses       scoring.Bonuses     `json:"bonuses"`
	PointSystem   scoring.PointSystem `json:"pointSystem"`
	RoundSettings RoundSettings       `json:"roundSettings"`
}

func DefaultConfig() Config {
	return Config{
		Rounds:      5,
		Duration:    30,
		VolumeStart: 1,
		VolumeEnd:   0,
		Bonuses: scoring.Bonuses{
			AlbumName:   true,
			ReleaseYear: true,
			Streak:      true,
			Speed:       true,
		},
		PointSystem: scoring.PointSystem{
			BasePoints:       100,
			SpeedBonus:       50,
			StreakMultiplier: 1.5,
			MaxSpeedBonus:    200,
			MinSpeedForBonus: 5,
		},
		RoundSettings: RoundSettings{
			PreparationTime: 3,
			RevealDelay:     2,
			TransitionDelay: 3,
		},
	}
}

const (
	minDuration = 10
	maxDuration = 60
)

func (c Config) Validate() error {
	if c.Rounds < 1 {
		return gameerr.New(gameerr.Validation, "rounds must be at least 1")
	}
	if c.Duration < minDuration || c.Duration > maxDuration {
		return gameerr.New(gameerr.Validation,
			fmt.Sprintf("round duration must be between %d and %d seconds", minDuration, maxDuration))
	}
	if c.VolumeStart < 0 || c.VolumeStart > 1 || c.VolumeEnd < 0 || c.VolumeEnd > 1 {
		return gameerr.New(gameerr.Validation, "volume bounds must be between 0 and 1")
	}
	if c.PointSystem.BasePoints <= 0 {
		return gameerr.New(gameerr.Validation, "base points must be positive")
	}
	if c.PointSystem.SpeedBonus < 0 || c.PointSystem.MaxSpeedBonus < 0 ||
		c.PointSystem.MinSpeedForBonus < 0 || c.PointSystem.StreakMultiplier < 0 {
		return gameerr.New(gameerr.Validation, "point system values cannot be negative")
	}
	rs := c.RoundSettings
	if rs.PreparationTime < 0 || rs.RevealDelay < 0 || rs.TransitionDelay < 0 {
		return gameerr.New(gameerr.Validation, "round delays cannot be negative")
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// roundSettings maps the config onto one round's settings.
func (c Config) roundSettings(last bool) round.Settings {
	return round.Settings{
		Duration:        seconds(c.Duration),
		PreparationTime: seconds(c.RoundSettings.PreparationTime),
		RevealDelay:     seconds(c.RoundSettings.RevealDelay),
		TransitionDelay: seconds(c.RoundSettings.TransitionDelay),
		VolumeStart:     c.VolumeStart,
		VolumeEnd:       c.VolumeEnd,
		Bonuses:         c.Bonuses,
		Points:          c.PointSystem,
		Last:            last,
	}
}
