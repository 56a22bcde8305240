package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeReportStore struct {
	pending   []ReportJob
	completed map[uuid.UUID]string
	failed    map[uuid.UUID]string
	expiredN  int
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{completed: map[uuid.UUID]string{}, failed: map[uuid.UUID]string{}}
}

func (f *fakeReportStore) PopPending(context.Context, int) ([]ReportJob, error) { return f.pending, nil }
func (f *fakeReportStore) MarkCompleted(_ context.Context, id uuid.UUID, filePath string, _ time.Time) error {
	f.completed[id] = filePath
	return nil
}
func (f *fakeReportStore) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}
func (f *fakeReportStore) DeleteExpired(context.Context) (int, error) { return f.expiredN, nil }

type fakeRenderer struct {
	err error
}

func (r fakeRenderer) Render(_ context.Context, job ReportJob) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "/reports/" + job.ID.String() + ".pdf", nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReportGenerationMarksCompleted(t *testing.T) {
	id := uuid.New()
	store := newFakeReportStore()
	store.pending = []ReportJob{{ID: id, ReportType: "usage"}}

	job := &ReportGeneration{Store: store, Renderer: fakeRenderer{}, Logger: silentLogger()}
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if store.completed[id] == "" {
		t.Fatal("report was not marked completed")
	}
}

func TestReportGenerationMarksFailed(t *testing.T) {
	id := uuid.New()
	store := newFakeReportStore()
	store.pending = []ReportJob{{ID: id, ReportType: "usage"}}

	job := &ReportGeneration{Store: store, Renderer: fakeRenderer{err: errors.New("render error")}, Logger: silentLogger()}
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if store.failed[id] == "" {
		t.Fatal("report was not marked failed")
	}
	if _, ok := store.completed[id]; ok {
		t.Fatal("failed report should not also be marked completed")
	}
}

func TestReportCleanupDeletesExpired(t *testing.T) {
	store := newFakeReportStore()
	store.expiredN = 3

	job := &ReportCleanup{Store: store, Logger: silentLogger()}
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}
