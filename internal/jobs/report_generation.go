package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetbeacon/fleetbeacon/internal/scheduler"
)

// reportExpiry is how long a generated report file stays downloadable.
const reportExpiry = 7 * 24 * time.Hour

// reportGenerationBatchSize bounds how many pending reports one tick renders.
const reportGenerationBatchSize = 5

// ReportGeneration pops pending report jobs and renders each one.
type ReportGeneration struct {
	Store    ReportStore
	Renderer ReportRenderer
	Logger   *slog.Logger
}

func (j *ReportGeneration) Name() string                 { return "report-generation" }
func (j *ReportGeneration) Frequency() scheduler.Frequency { return scheduler.Seconds(30) }

func (j *ReportGeneration) Execute(ctx context.Context) error {
	pending, err := j.Store.PopPending(ctx, reportGenerationBatchSize)
	if err != nil {
		return err
	}

	for _, job := range pending {
		filePath, err := j.Renderer.Render(ctx, job)
		if err != nil {
			j.Logger.Error("report rendering failed", "report_id", job.ID, "error", err)
			if markErr := j.Store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
				j.Logger.Error("marking report failed", "report_id", job.ID, "error", markErr)
			}
			continue
		}
		if err := j.Store.MarkCompleted(ctx, job.ID, filePath, time.Now().Add(reportExpiry)); err != nil {
			j.Logger.Error("marking report completed", "report_id", job.ID, "error", err)
		}
	}
	return nil
}
