package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/little-explorers/storefront/pkg/logger"
)

type fakeLock struct {
	held     bool
	denied   bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.denied || f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type recordedRun struct {
	job    string
	failed bool
}

type fakeRecorder struct {
	runs []recordedRun
}

func (f *fakeRecorder) ObserveRun(job string, _ time.Duration, err error) {
	f.runs = append(f.runs, recordedRun{job: job, failed: err != nil})
}

func TestRunCycleRunsEveryJobEvenAfterFailure(t *testing.T) {
	failing := &testJob{name: "fail", err: errors.New("boom")}
	passing := &testJob{name: "pass"}
	lock := &fakeLock{}
	recorder := &fakeRecorder{}
	svc, err := NewService(ServiceParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Jobs:    []Job{failing, nil, passing},
		Lock:    lock,
		Metrics: recorder,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if failing.runs != 1 || passing.runs != 1 {
		t.Fatalf("expected each job once, got fail=%d pass=%d", failing.runs, passing.runs)
	}
	if len(recorder.runs) != 2 || !recorder.runs[0].failed || recorder.runs[1].failed {
		t.Fatalf("unexpected recorded runs %+v", recorder.runs)
	}
	if lock.held || lock.released != 1 {
		t.Fatalf("expected lock released once, got held=%v released=%d", lock.held, lock.released)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	job := &testJob{name: "pass"}
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Jobs:   []Job{job},
		Lock:   &fakeLock{denied: true},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected no runs without the lock, got %d", job.runs)
	}
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "cron-test"})}); err == nil {
		t.Fatal("expected lock error")
	}
}
