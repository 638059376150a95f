package server

import (
	"errors"
	"time"

	"github.com/stereoclub/blindtest/internal/game"
	"github.com/stereoclub/blindtest/internal/gameerr"
	"github.com/stereoclub/blindtest/internal/round"
	"github.com/stereoclub/blindtest/internal/timer"
)

// GameEvents adapts the broker into the controller's event callbacks. Every
// round transition the SPA renders flows through here.
func GameEvents(b *Broker) game.Events {
	return game.Events{
		Phase: func(p game.Phase) {
			b.Publish(Event{Type: "phase", Phase: p})
		},
		Round: func(n int, s round.State) {
			b.Publish(Event{Type: "round", Round: n, State: s})
		},
		Tick: func(remaining time.Duration) {
			b.Publish(Event{
				Type:      "tick",
				Remaining: remaining.Seconds(),
				Display:   timer.Format(remaining),
			})
		},
		Reveal: func(o round.Outcome) {
			b.Publish(Event{Type: "reveal", Round: o.Number, Outcome: &o})
		},
		Error: func(err error) {
			ev := Event{Type: "error", Error: err.Error(), Category: string(gameerr.CategoryOf(err))}
			var ge *gameerr.Error
			if errors.As(err, &ge) {
				ev.Retryable = ge.Retryable
			}
			b.Publish(ev)
		},
		Finished: func(st game.Stats) {
			b.Publish(Event{Type: "finished", Stats: &st})
		},
	}
}

// VolumeEvents publishes fade-envelope updates so the SPA's audio element
// tracks the server-side volume.
func VolumeEvents(b *Broker) func(v float64) {
	return func(v float64) {
		b.Publish(Event{Type: "volume", Volume: &v})
	}
}
