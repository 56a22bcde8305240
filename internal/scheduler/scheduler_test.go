package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingJob struct {
	name  string
	freq  Frequency
	count atomic.Int64
	err   error
	panic bool
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Frequency() Frequency { return j.freq }
func (j *countingJob) Execute(context.Context) error {
	j.count.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerSkipsFirstImmediateTick(t *testing.T) {
	job := &countingJob{name: "test", freq: Seconds(1)}
	s := New(silentLogger())
	s.Register(job)
	s.Start()
	defer func() { s.Shutdown(); s.WaitForShutdown(time.Second) }()

	time.Sleep(200 * time.Millisecond)
	if got := job.count.Load(); got != 0 {
		t.Fatalf("job ran %d times before first tick elapsed, want 0", got)
	}
}

func TestSchedulerRunsOnTick(t *testing.T) {
	job := &countingJob{name: "test", freq: Seconds(1)}
	s := New(silentLogger())
	s.Register(job)
	s.Start()
	defer func() { s.Shutdown(); s.WaitForShutdown(time.Second) }()

	time.Sleep(1200 * time.Millisecond)
	if got := job.count.Load(); got < 1 {
		t.Fatalf("job ran %d times after one tick, want >= 1", got)
	}
}

func TestSchedulerIsolatesPanickingJob(t *testing.T) {
	panicky := &countingJob{name: "panicky", freq: Seconds(1), panic: true}
	healthy := &countingJob{name: "healthy", freq: Seconds(1)}

	s := New(silentLogger())
	s.Register(panicky)
	s.Register(healthy)
	s.Start()
	defer func() { s.Shutdown(); s.WaitForShutdown(time.Second) }()

	time.Sleep(1200 * time.Millisecond)
	if got := panicky.count.Load(); got < 1 {
		t.Fatal("panicking job never ran")
	}
	if got := healthy.count.Load(); got < 1 {
		t.Fatal("healthy job did not continue running alongside a panicking sibling")
	}
}

func TestSchedulerLogsJobError(t *testing.T) {
	job := &countingJob{name: "erroring", freq: Seconds(1), err: errors.New("boom")}
	s := New(silentLogger())
	s.Register(job)
	s.Start()
	defer func() { s.Shutdown(); s.WaitForShutdown(time.Second) }()

	time.Sleep(1200 * time.Millisecond)
	if got := job.count.Load(); got < 1 {
		t.Fatal("erroring job never ran")
	}
}

func TestSchedulerShutdownStopsAllTasks(t *testing.T) {
	job := &countingJob{name: "test", freq: Seconds(1)}
	s := New(silentLogger())
	s.Register(job)
	s.Start()

	s.Shutdown()
	s.WaitForShutdown(time.Second)

	countAfterShutdown := job.count.Load()
	time.Sleep(1200 * time.Millisecond)
	if job.count.Load() != countAfterShutdown {
		t.Fatal("job kept running after shutdown")
	}
}

func TestSchedulerRegisterAfterStartIsIgnored(t *testing.T) {
	s := New(silentLogger())
	s.Start()
	defer func() { s.Shutdown(); s.WaitForShutdown(time.Second) }()

	late := &countingJob{name: "late", freq: Seconds(1)}
	s.Register(late)

	time.Sleep(1200 * time.Millisecond)
	if got := late.count.Load(); got != 0 {
		t.Fatalf("late-registered job ran %d times, want 0", got)
	}
}
