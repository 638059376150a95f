package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stereoclub/blindtest/internal/gameerr"
)

func noProbe() Probe {
	return func(ctx context.Context, url string) error { return nil }
}

func TestPlayWithoutSource(t *testing.T) {
	c := NewController(WithProbe(noProbe()))
	err := c.Play(context.Background(), "")
	if err == nil {
		t.Fatal("expected error playing without a source")
	}
	if !gameerr.IsCategory(err, gameerr.Audio) {
		t.Errorf("expected audio category, got %q", gameerr.CategoryOf(err))
	}
}

func TestPlayProbeFailure(t *testing.T) {
	probeErr := errors.New("404")
	c := NewController(WithProbe(func(ctx context.Context, url string) error {
		return probeErr
	}))

	err := c.Play(context.Background(), "https://cdn.example.com/preview.mp3")
	if err == nil {
		t.Fatal("expected probe failure to surface")
	}
	if !errors.Is(err, probeErr) {
		t.Error("expected the probe error in the chain")
	}
	if c.Playing() {
		t.Error("controller must not be playing after a failed probe")
	}
}

func TestStopDuringProbeKeepsControllerStopped(t *testing.T) {
	var c *Controller
	c = NewController(WithProbe(func(ctx context.Context, url string) error {
		c.Stop()
		return nil
	}))

	err := c.Play(context.Background(), "https://cdn.example.com/a.mp3")
	if err == nil {
		t.Fatal("expected the interrupted start to fail")
	}
	if !gameerr.IsCategory(err, gameerr.Audio) {
		t.Errorf("expected audio category, got %q", gameerr.CategoryOf(err))
	}
	if c.Playing() {
		t.Error("a Stop landing during the probe must win over the start")
	}
}

func TestEndedFiresOnNaturalEnd(t *testing.T) {
	ended := make(chan struct{}, 1)
	c := NewController(
		WithProbe(noProbe()),
		WithPreviewLength(20*time.Millisecond),
		WithOnEnded(func() { ended <- struct{}{} }),
	)

	if err := c.Play(context.Background(), "https://cdn.example.com/a.mp3"); err != nil {
		t.Fatalf("play: %v", err)
	}

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("ended callback never fired")
	}
	if c.Playing() {
		t.Error("controller should not report playing after natural end")
	}
}

func TestPauseDoesNotFireEnded(t *testing.T) {
	ended := make(chan struct{}, 1)
	c := NewController(
		WithProbe(noProbe()),
		WithPreviewLength(30*time.Millisecond),
		WithOnEnded(func() { ended <- struct{}{} }),
	)

	if err := c.Play(context.Background(), "https://cdn.example.com/a.mp3"); err != nil {
		t.Fatalf("play: %v", err)
	}
	c.Pause()

	select {
	case <-ended:
		t.Fatal("ended must not fire for a manual pause")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestStopCancelsEnded(t *testing.T) {
	ended := make(chan struct{}, 1)
	c := NewController(
		WithProbe(noProbe()),
		WithPreviewLength(30*time.Millisecond),
		WithOnEnded(func() { ended <- struct{}{} }),
	)

	if err := c.Play(context.Background(), "https://cdn.example.com/a.mp3"); err != nil {
		t.Fatalf("play: %v", err)
	}
	c.Stop()

	select {
	case <-ended:
		t.Fatal("ended must not fire after Stop")
	case <-time.After(80 * time.Millisecond):
	}
	if c.Position() != 0 {
		t.Error("Stop should reset the position")
	}
}

func TestSetVolumeImmediate(t *testing.T) {
	var mu sync.Mutex
	var seen []float64
	c := NewController(WithOnVolume(func(v float64) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	}))

	c.SetVolume(0.5, false)
	c.SetVolume(1.7, false)
	c.SetVolume(-0.2, false)

	if got := c.Volume(); got != 0 {
		t.Errorf("Volume() = %v, want 0 (clamped)", got)
	}
	mu.Lock()
	defer mu.Unlock()
	want := []float64{0.5, 1, 0}
	if len(seen) != len(want) {
		t.Fatalf("got %d volume callbacks, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("callback %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestFadeReachesTargetMonotonically(t *testing.T) {
	var mu sync.Mutex
	var seen []float64
	c := NewController(
		WithFadeStep(2*time.Millisecond),
		WithOnVolume(func(v float64) {
			mu.Lock()
			seen = append(seen, v)
			mu.Unlock()
		}),
	)
	c.SetVolume(1, false)
	mu.Lock()
	seen = nil
	mu.Unlock()

	c.FadeTo(0, 30*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Volume() == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := c.Volume(); got != 0 {
		t.Fatalf("Volume() = %v, want 0 after fade", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 {
		t.Fatalf("expected multiple fade steps, got %d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] > seen[i-1] {
			t.Errorf("fade went up at step %d: %v -> %v", i, seen[i-1], seen[i])
		}
	}
}

func TestFadeReplacesPreviousFade(t *testing.T) {
	c := NewController(WithFadeStep(2 * time.Millisecond))
	c.SetVolume(1, false)

	c.FadeTo(0, 500*time.Millisecond)
	c.FadeTo(0.8, 20*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Volume() == 0.8 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Volume() = %v, want 0.8 from the replacing fade", c.Volume())
}
