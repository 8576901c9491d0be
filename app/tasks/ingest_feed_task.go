package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lysyi3m/sinkhole-watch/app/database"
	"github.com/lysyi3m/sinkhole-watch/app/feed"
	"github.com/lysyi3m/sinkhole-watch/app/lock"
	"github.com/lysyi3m/sinkhole-watch/app/metrics"
	"github.com/lysyi3m/sinkhole-watch/app/notify"
)

// RunResult summarises one ingestion run. Matched is the run's reported
// count even when the run aborts part-way.
type RunResult struct {
	Matched int
	Created int
	Skipped int
	Marked  int
}

func (r RunResult) Message() string {
	return fmt.Sprintf("Processed %d news items", r.Matched)
}

type IngestFeedTask struct {
	Task
	pipeline *Pipeline
	result   RunResult
}

func NewIngestFeedTask(pipeline *Pipeline) *IngestFeedTask {
	return &IngestFeedTask{
		Task:     NewTask(TaskTypeIngestFeed),
		pipeline: pipeline,
	}
}

// Result returns the outcome of the last Execute call.
func (t *IngestFeedTask) Result() RunResult {
	return t.result
}

func (t *IngestFeedTask) Execute(ctx context.Context) error {
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

	result, err := t.Run(ctx)
	t.result = result

	m := t.pipeline.Metrics
	m.AddEntries("matched", result.Matched)
	m.AddEntries("created", result.Created)
	m.AddEntries("skipped", result.Skipped)
	m.AddEntries("marked", result.Marked)

	if err != nil {
		m.RecordRun(string(t.Type), metrics.OutcomeFailure, t.GetDuration())
		return err
	}
	m.RecordRun(string(t.Type), metrics.OutcomeSuccess, t.GetDuration())

	slog.Info("Task completed",
		"type", "IngestFeed",
		"duration", t.GetDuration(),
		"matched", result.Matched,
		"created", result.Created,
		"skipped", result.Skipped,
		"marked", result.Marked)

	return nil
}

// Run fetches, parses and filters the feed, then creates, announces and
// marks every matching entry in document order. The first store failure ends
// the run; entries already created stay in place.
func (t *IngestFeedTask) Run(ctx context.Context) (RunResult, error) {
	var result RunResult
	p := t.pipeline

	data, err := t.fetchFeed(ctx, p.FeedURL)
	if err != nil {
		return result, &RunError{Err: err}
	}

	entries, err := p.Parser.Run(data)
	if err != nil {
		return result, &RunError{Err: err}
	}

	matched := p.Matcher.Filter(entries)
	result.Matched = len(matched)

	slog.Debug("Feed filtered", "total", len(entries), "matched", len(matched))

	for _, entry := range matched {
		if err := ctx.Err(); err != nil {
			return result, &RunError{Err: err}
		}

		if p.DedupByGUID {
			existing, err := p.ReportRepo.FindByGUID(ctx, entry.GUID)
			if err != nil {
				return result, &RunError{Err: err}
			}
			if existing != nil {
				slog.Debug("Entry already stored, skipping", "guid", entry.GUID, "report_id", existing.ID)
				result.Skipped++
				continue
			}
		}

		report := t.buildReport(entry)

		if err := p.ReportRepo.CreateReport(ctx, report); err != nil {
			return result, &RunError{Err: err}
		}
		result.Created++

		p.Notifier.Notify(ctx, notify.FormatReport(report))

		if err := p.ReportRepo.MarkNotified(ctx, report.ID); err != nil {
			return result, &RunError{Err: err}
		}
		result.Marked++
	}

	return result, nil
}

func (t *IngestFeedTask) buildReport(entry feed.Entry) database.Report {
	report := database.Report{
		ID:        t.pipeline.newID(),
		Title:     entry.Title,
		Summary:   entry.Summary,
		Link:      entry.Link,
		GUID:      entry.GUID,
		PubDate:   database.FormatTimestamp(entry.PublishedAt),
		Creator:   entry.Creator,
		Notified:  false,
		State:     database.StateCreated,
		CreatedAt: database.FormatTimestamp(t.pipeline.now()),
	}

	if entry.Media != nil {
		report.MediaContent = &database.MediaContent{URL: entry.Media.URL, Type: entry.Media.Type}
	}

	return report
}

func (t *IngestFeedTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	p := t.pipeline
	if p.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.FetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", p.UserAgent)

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return data, nil
}
