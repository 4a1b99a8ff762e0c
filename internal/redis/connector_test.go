package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(ctx context.Context) *redis.StatusCmd {
	p.calls++
	cmd := redis.NewStatusCmd(ctx)
	if p.calls <= p.failures {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func testOptions() Options {
	return Options{
		Addr:           "localhost:6379",
		ConnectTimeout: time.Second,
		RetryInterval:  time.Millisecond,
		MaxWait:        4 * time.Millisecond,
		PingTimeout:    100 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	b := backoff{next: time.Second, max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.step(); got != w {
			t.Fatalf("step %d: got %v, want %v", i, got, w)
		}
	}
}

func TestWaitReadyRetriesUntilPong(t *testing.T) {
	p := &flakyPinger{failures: 3}
	err := waitReady(context.Background(), p, testOptions(), logger.New("error", false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 4 {
		t.Fatalf("expected 4 ping attempts, got %d", p.calls)
	}
}

func TestWaitReadyGivesUp(t *testing.T) {
	opts := testOptions()
	opts.ConnectTimeout = 20 * time.Millisecond
	p := &flakyPinger{failures: 1 << 30}

	err := waitReady(context.Background(), p, opts, logger.New("error", false))
	if err == nil {
		t.Fatal("expected an error once the connect budget is spent")
	}
	if p.calls < 2 {
		t.Fatalf("expected several attempts, got %d", p.calls)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		ok     bool
	}{
		{"valid", func(*Options) {}, true},
		{"empty addr", func(o *Options) { o.Addr = "" }, false},
		{"zero connect timeout", func(o *Options) { o.ConnectTimeout = 0 }, false},
		{"zero retry interval", func(o *Options) { o.RetryInterval = 0 }, false},
		{"zero max wait", func(o *Options) { o.MaxWait = 0 }, false},
		{"zero ping timeout", func(o *Options) { o.PingTimeout = 0 }, false},
		{"negative warn threshold", func(o *Options) { o.WarnThreshold = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOptions()
			tt.mutate(&o)
			err := o.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
