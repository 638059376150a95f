// Package audio implements the playback sink for song previews.
//
// The browser produces the actual sound; this controller owns the playback
// state the game logic cares about: which source is loaded, whether it is
// playing, how far into the preview window it is, and the volume envelope.
// Volume changes and the natural end of a preview are reported through
// callbacks so the UI can mirror them.
package audio

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/stereoclub/blindtest/internal/gameerr"
)

const (
	defaultPreviewLength = 30 * time.Second
	defaultFadeDuration  = time.Second
	defaultFadeStep      = 50 * time.Millisecond
)

// Sink is the playback contract consumed by the round machine.
type Sink interface {
	// Load sets the media source without starting playback.
	Load(url string) error
	// Play starts playback; an empty url resumes the current source.
	Play(ctx context.Context, url string) error
	Pause()
	Stop()
	// SetVolume applies v immediately, or fades to it over the default
	// fade duration when fade is true.
	SetVolume(v float64, fade bool)
	// FadeTo linearly interpolates the volume to v over the given window.
	FadeTo(v float64, over time.Duration)
	Volume() float64
}

// Probe checks that a media source is reachable before playback starts.
type Probe func(ctx context.Context, url string) error

type Option func(*Controller)

func WithPreviewLength(d time.Duration) Option {
	return func(c *Controller) { c.previewLen = d }
}

func WithFadeDuration(d time.Duration) Option {
	return func(c *Controller) { c.fadeDur = d }
}

func WithFadeStep(d time.Duration) Option {
	return func(c *Controller) { c.fadeStep = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithProbe(p Probe) Option {
	return func(c *Controller) { c.probe = p }
}

// WithOnEnded registers a callback fired when a preview reaches its natural
// end. Manual Pause and Stop never fire it.
func WithOnEnded(f func()) Option {
	return func(c *Controller) { c.onEnded = f }
}

// WithOnVolume registers a callback fired on every volume change, including
// each fade step.
func WithOnVolume(f func(v float64)) Option {
	return func(c *Controller) { c.onVolume = f }
}

// Controller implements Sink.
type Controller struct {
	mu        sync.Mutex
	src       string
	playing   bool
	paused    bool
	volume    float64
	position  time.Duration
	startedAt time.Time
	endTimer  *time.Timer
	fadeStop  chan struct{}
	gen       int

	previewLen time.Duration
	fadeDur    time.Duration
	fadeStep   time.Duration
	now        func() time.Time
	probe      Probe
	onEnded    func()
	onVolume   func(float64)
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		volume:     1,
		previewLen: defaultPreviewLength,
		fadeDur:    defaultFadeDuration,
		fadeStep:   defaultFadeStep,
		now:        time.Now,
		probe:      HTTPProbe(&http.Client{Timeout: 5 * time.Second}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPProbe verifies a preview URL with a HEAD request.
func HTTPProbe(client *http.Client) Probe {
	return func(ctx context.Context, url string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("preview returned status %d", resp.StatusCode)
		}
		return nil
	}
}

func (c *Controller) Load(url string) error {
	if url == "" {
		return gameerr.New(gameerr.Audio, "empty media source")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.src = url
	c.position = 0
	return nil
}

func (c *Controller) Play(ctx context.Context, url string) error {
	if url != "" {
		if err := c.Load(url); err != nil {
			return err
		}
	}

	c.mu.Lock()
	if c.src == "" {
		c.mu.Unlock()
		return gameerr.New(gameerr.Audio, "no media source loaded")
	}
	if c.playing && !c.paused {
		c.mu.Unlock()
		return nil
	}
	fresh := c.position == 0
	src := c.src
	gen := c.gen
	c.mu.Unlock()

	// Only probe a fresh start; resuming a source that already played is
	// not re-validated.
	if fresh && c.probe != nil {
		if err := c.probe(ctx, src); err != nil {
			return gameerr.Wrap(gameerr.Audio, "media source not playable", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Stop and Load bump the generation; a start that raced one of them
	// while the probe ran is stale and must not resurrect playback.
	if c.gen != gen {
		return gameerr.New(gameerr.Audio, "playback interrupted")
	}
	c.playing = true
	c.paused = false
	c.startedAt = c.now()
	c.gen++
	gen = c.gen

	remaining := c.previewLen - c.position
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	if c.endTimer != nil {
		c.endTimer.Stop()
	}
	c.endTimer = time.AfterFunc(remaining, func() { c.ended(gen) })
	return nil
}

// ended fires when the preview window elapses. A stale generation means the
// playback that armed this timer was stopped or replaced.
func (c *Controller) ended(gen int) {
	c.mu.Lock()
	if gen != c.gen || !c.playing || c.paused {
		c.mu.Unlock()
		return
	}
	c.playing = false
	c.position = 0
	cb := c.onEnded
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing || c.paused {
		return
	}
	c.position += c.now().Sub(c.startedAt)
	c.paused = true
	if c.endTimer != nil {
		c.endTimer.Stop()
	}
}

func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	c.gen++
	c.playing = false
	c.paused = false
	c.position = 0
	if c.endTimer != nil {
		c.endTimer.Stop()
		c.endTimer = nil
	}
	if c.fadeStop != nil {
		close(c.fadeStop)
		c.fadeStop = nil
	}
}

func (c *Controller) SetVolume(v float64, fade bool) {
	if fade {
		c.FadeTo(v, c.fadeDur)
		return
	}
	c.mu.Lock()
	c.cancelFadeLocked()
	c.volume = clampVolume(v)
	cb := c.onVolume
	v = c.volume
	c.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

func (c *Controller) FadeTo(target float64, over time.Duration) {
	target = clampVolume(target)
	if over <= 0 {
		c.SetVolume(target, false)
		return
	}

	c.mu.Lock()
	c.cancelFadeLocked()
	stop := make(chan struct{})
	c.fadeStop = stop
	start := c.volume
	c.mu.Unlock()

	go c.fade(start, target, over, stop)
}

func (c *Controller) fade(start, target float64, over time.Duration, stop chan struct{}) {
	begin := c.now()
	ticker := time.NewTicker(c.fadeStep)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			progress := float64(c.now().Sub(begin)) / float64(over)
			if progress > 1 {
				progress = 1
			}
			v := clampVolume(start + (target-start)*progress)

			c.mu.Lock()
			if c.fadeStop != stop {
				c.mu.Unlock()
				return
			}
			c.volume = v
			if progress >= 1 {
				c.fadeStop = nil
			}
			cb := c.onVolume
			c.mu.Unlock()

			if cb != nil {
				cb(v)
			}
			if progress >= 1 {
				return
			}
		}
	}
}

func (c *Controller) cancelFadeLocked() {
	if c.fadeStop != nil {
		close(c.fadeStop)
		c.fadeStop = nil
	}
}

func (c *Controller) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Playing reports whether a source is actively playing (not paused).
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing && !c.paused
}

// Position reports the elapsed time within the current preview.
func (c *Controller) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing && !c.paused {
		return c.position + c.now().Sub(c.startedAt)
	}
	return c.position
}

// Source reports the currently loaded media URL.
func (c *Controller) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
