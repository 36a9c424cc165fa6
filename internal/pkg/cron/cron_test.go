package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := New()
	var runs atomic.Int32
	s.Register(Job{Name: "sweep", Interval: 10 * time.Millisecond, Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}})
	s.Register(Job{Name: "broken", Interval: 10 * time.Millisecond, Fn: func(context.Context) error {
		return errors.New("boom")
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	waitFor(t, func() bool { return runs.Load() >= 2 })
	waitFor(t, func() bool {
		items := s.List()
		return items[0].Name == "broken" && items[0].Status == StatusReject && items[0].Message == "boom"
	})

	items := s.List()
	if len(items) != 2 || items[1].Name != "sweep" || items[1].LastRunAt == nil {
		t.Fatalf("unexpected list %+v", items)
	}
}

func TestSchedulerStopsWithContext(t *testing.T) {
	s := New()
	var runs atomic.Int32
	s.Register(Job{Name: "tick", Interval: 5 * time.Millisecond, Fn: func(context.Context) error {
		runs.Add(1)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	waitFor(t, func() bool { return runs.Load() >= 1 })
	cancel()
	time.Sleep(20 * time.Millisecond)
	before := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != before {
		t.Fatalf("job kept running after cancel")
	}
}
