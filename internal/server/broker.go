package server

import (
	"encoding/json"
	"sync"

	"github.com/stereoclub/blindtest/internal/game"
	"github.com/stereoclub/blindtest/internal/round"
)

// Event is the payload pushed to SSE subscribers. Type selects which of the
// optional fields are set.
type Event struct {
	Type      string         `json:"type"`
	Phase     game.Phase     `json:"phase,omitempty"`
	Round     int            `json:"round,omitempty"`
	State     round.State    `json:"state,omitempty"`
	Remaining float64        `json:"remainingSeconds,omitempty"`
	Display   string         `json:"display,omitempty"`
	Volume    *float64       `json:"volume,omitempty"`
	Outcome   *round.Outcome `json:"outcome,omitempty"`
	Stats     *game.Stats    `json:"stats,omitempty"`
	Error     string         `json:"error,omitempty"`
	Category  string         `json:"category,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// Broker is an in-process pub/sub fanning game events out to every connected
// SSE client. There is one game, so there is one stream.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the subscribers.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish sends an event to all subscribers.
func (b *Broker) Publish(event Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
