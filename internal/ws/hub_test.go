package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"hospital-jobs/internal/domain"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotifier_BroadcastsBatchEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(log.New(io.Discard, "", 0))
	go hub.Run(ctx)

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(client)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	NewNotifier(hub).BatchCompleted(domain.BatchEvent{Kind: domain.BatchScrape, Processed: 5, Errors: 1})

	select {
	case msg := <-client.send:
		var evt domain.BatchEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if evt.Type != EventBatchCompleted || evt.Kind != domain.BatchScrape || evt.Processed != 5 {
			t.Fatalf("unexpected event: %+v", evt)
		}
		if evt.Timestamp.IsZero() {
			t.Fatalf("expected timestamp to be set")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event delivered")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(log.New(io.Discard, "", 0))
	go hub.Run(ctx)

	slow := &Client{hub: hub, send: make(chan []byte)}
	hub.Register(slow)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Broadcast([]byte(`{}`))
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	if _, ok := <-slow.send; ok {
		t.Fatalf("expected send channel to be closed")
	}
}

func TestNotifier_NilHubIsNoop(t *testing.T) {
	var n *Notifier
	n.BatchCompleted(domain.BatchEvent{})
	NewNotifier(nil).BatchCompleted(domain.BatchEvent{})
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://admin.example/", " https://ops.example"})

	req := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "http://localhost/ws/pipeline", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	if !check(req("https://admin.example")) || !check(req("https://OPS.example")) {
		t.Fatalf("expected allow-listed origins to pass")
	}
	if check(req("https://evil.example")) {
		t.Fatalf("expected foreign origin to be rejected")
	}
	if !check(req("")) {
		t.Fatalf("expected non-browser clients without Origin to pass")
	}
	if !originChecker([]string{"*"})(req("https://evil.example")) {
		t.Fatalf("expected wildcard to admit any origin")
	}
}
