package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestBrokerFansOut(t *testing.T) {
	b := NewBroker()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish(Event{Type: "tick", Remaining: 12})

	for _, ch := range []chan []byte{ch1, ch2} {
		select {
		case data := <-ch:
			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if ev.Type != "tick" || ev.Remaining != 12 {
				t.Errorf("event = %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber got no event")
		}
	}
}

func TestBrokerDropsSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill past the buffer; publishes must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: "tick", Remaining: float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestHandleEventsStreams(t *testing.T) {
	b := NewBroker()
	h := handleEvents(b)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/game/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h(rec, req)
	}()

	// Give the handler time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	b.Publish(Event{Type: "phase", Phase: "playing"})
	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	body := rec.Body.String()
	if !strings.Contains(body, "event: game") {
		t.Errorf("body missing event frame: %q", body)
	}
	if !strings.Contains(body, `"type":"phase"`) {
		t.Errorf("body missing payload: %q", body)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content-type = %q", got)
	}
}
