package tasks

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/sinkhole-watch/app/database"
	"github.com/lysyi3m/sinkhole-watch/app/feed"
	"github.com/lysyi3m/sinkhole-watch/app/lock"
	"github.com/lysyi3m/sinkhole-watch/app/metrics"
	"github.com/lysyi3m/sinkhole-watch/app/notify"
)

const defaultLockName = "pipeline"

// Pipeline bundles the handles shared by every ingestion and reconciliation
// task. It is built once at startup and never mutated afterwards.
type Pipeline struct {
	FeedURL      string
	HTTPClient   *http.Client
	UserAgent    string
	FetchTimeout time.Duration
	DedupByGUID  bool

	Parser     *feed.Parser
	Matcher    *feed.Matcher
	ReportRepo database.ReportRepository
	Notifier   notify.Notifier

	// Locker is optional; without it runs are not serialised.
	Locker   lock.Locker
	LockName string
	Metrics  *metrics.Metrics

	// NewID and Now default to uuid.NewString and time.Now.
	NewID func() string
	Now   func() time.Time
}

func (p *Pipeline) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

func (p *Pipeline) acquire(ctx context.Context) (func(), error) {
	if p.Locker == nil {
		return func() {}, nil
	}
	name := p.LockName
	if name == "" {
		name = defaultLockName
	}
	return p.Locker.Acquire(ctx, name)
}
