package notify

import (
	"context"
	"io"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		rc.Close()
		m.Close()
	})
	return rc
}

func TestRedisBridgeRelaysBetweenInstances(t *testing.T) {
	rc := setupRedis(t)

	hubA, hubB := NewHub(), NewHub()
	a := NewRedisBridge(rc, "changes", hubA, quietLogger())
	b := NewRedisBridge(rc, "changes", hubB, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	doneA, doneB := make(chan struct{}), make(chan struct{})
	go func() { a.Run(ctx); close(doneA) }()
	go func() { b.Run(ctx); close(doneB) }()
	// wait for subscriptions to start
	time.Sleep(50 * time.Millisecond)

	subA := hubA.Subscribe("tasks")
	subB := hubB.Subscribe("tasks")

	a.Notify("tasks")

	select {
	case ev := <-subB.Ch():
		if ev.Table != "tasks" {
			t.Fatalf("remote table = %q", ev.Table)
		}
	case <-time.After(time.Second):
		t.Fatal("remote instance never saw the change")
	}

	select {
	case <-subA.Ch():
	case <-time.After(time.Second):
		t.Fatal("local hub not notified")
	}
	// The echo of a's own publish must not reach hubA a second time.
	time.Sleep(100 * time.Millisecond)
	select {
	case <-subA.Ch():
		t.Fatal("own event relayed back")
	default:
	}

	cancel()
	for _, done := range []chan struct{}{doneA, doneB} {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}
}

func TestRedisBridgeIgnoresGarbage(t *testing.T) {
	rc := setupRedis(t)
	hub := NewHub()
	bridge := NewRedisBridge(rc, "changes", hub, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	sub := hub.Subscribe()
	if err := rc.Publish(context.Background(), "changes", "not json").Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := rc.Publish(context.Background(), "changes", `{"table":"companies","origin":"other"}`).Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case ev := <-sub.Ch():
		if ev.Table != "companies" {
			t.Fatalf("table = %q", ev.Table)
		}
	case <-time.After(time.Second):
		t.Fatal("valid event not relayed")
	}
}

func TestRedisBridgeNotifyDoesNotWaitOnRedis(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	defer rc.Close()
	m.Close()

	hub := NewHub()
	bridge := NewRedisBridge(rc, "changes", hub, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { bridge.Run(ctx); close(done) }()
	defer func() {
		cancel()
		<-done
	}()

	sub := hub.Subscribe("tasks")
	start := time.Now()
	for i := 0; i < publishBuffer*2; i++ {
		bridge.Notify("tasks")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Notify blocked for %s with redis down", elapsed)
	}

	select {
	case <-sub.Ch():
	default:
		t.Fatal("local hub not notified")
	}
}
