package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/sinkhole-watch/app/lock"
	"github.com/lysyi3m/sinkhole-watch/app/metrics"
	"github.com/lysyi3m/sinkhole-watch/app/notify"
)

// ReconcileReportsTask finishes reports an earlier run created but never
// marked. A report whose notification went out before the mark failed is
// announced again.
type ReconcileReportsTask struct {
	Task
	pipeline *Pipeline
	resumed  int
}

func NewReconcileReportsTask(pipeline *Pipeline) *ReconcileReportsTask {
	return &ReconcileReportsTask{
		Task:     NewTask(TaskTypeReconcileReports),
		pipeline: pipeline,
	}
}

func (t *ReconcileReportsTask) Resumed() int {
	return t.resumed
}

func (t *ReconcileReportsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	release, err := t.pipeline.acquire(ctx)
	if errors.Is(err, lock.ErrLocked) {
		slog.Warn("Another run is in progress, skipping", "type", string(t.Type), "id", t.ID)
		t.pipeline.Metrics.RecordRun(string(t.Type), metrics.OutcomeSkipped, t.GetDuration())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer release()

	resumed, err := t.Run(ctx)
	t.resumed = resumed

	if err != nil {
		t.pipeline.Metrics.RecordRun(string(t.Type), metrics.OutcomeFailure, t.GetDuration())
		return err
	}
	t.pipeline.Metrics.RecordRun(string(t.Type), metrics.OutcomeSuccess, t.GetDuration())

	slog.Info("Task completed",
		"type", "ReconcileReports",
		"duration", t.GetDuration(),
		"resumed", resumed)

	return nil
}

// Run notifies and marks every unnotified report, oldest first. It returns
// the number of reports marked before any failure.
func (t *ReconcileReportsTask) Run(ctx context.Context) (int, error) {
	p := t.pipeline

	reports, err := p.ReportRepo.ListUnnotified(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unnotified reports: %w", err)
	}

	resumed := 0
	for _, report := range reports {
		if err := ctx.Err(); err != nil {
			return resumed, err
		}

		p.Notifier.Notify(ctx, notify.FormatReport(report))

		if err := p.ReportRepo.MarkNotified(ctx, report.ID); err != nil {
			return resumed, fmt.Errorf("failed to reconcile report %s: %w", report.ID, err)
		}
		resumed++
	}

	p.Metrics.AddEntries("marked", resumed)

	return resumed, nil
}
