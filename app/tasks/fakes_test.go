package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/sinkhole-watch/app/database"
	"github.com/lysyi3m/sinkhole-watch/app/feed"
	"github.com/lysyi3m/sinkhole-watch/app/lock"
)

var errInjected = errors.New("injected store failure")

// fakeReportRepository keeps reports in memory and can fail the k-th create
// or mark call.
type fakeReportRepository struct {
	mu          sync.Mutex
	reports     map[string]database.Report
	order       []string
	createCalls int
	markCalls   int
	failCreate  int
	failMark    int
}

func newFakeReportRepository() *fakeReportRepository {
	return &fakeReportRepository{reports: make(map[string]database.Report)}
}

func (r *fakeReportRepository) CreateReport(ctx context.Context, report database.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.createCalls++
	if r.failCreate == r.createCalls {
		return &database.StoreWriteError{Op: "create report", ID: report.ID, Err: errInjected}
	}
	if _, exists := r.reports[report.ID]; exists {
		return &database.StoreWriteError{Op: "create report", ID: report.ID, Err: errors.New("duplicate id")}
	}
	r.reports[report.ID] = report
	r.order = append(r.order, report.ID)
	return nil
}

func (r *fakeReportRepository) MarkNotified(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.markCalls++
	if r.failMark == r.markCalls {
		return &database.StoreWriteError{Op: "mark report notified", ID: id, Err: errInjected}
	}
	report, ok := r.reports[id]
	if !ok {
		return &database.StoreWriteError{Op: "mark report notified", ID: id, Err: database.ErrReportNotFound}
	}
	report.Notified = true
	report.State = database.StateMarked
	r.reports[id] = report
	return nil
}

func (r *fakeReportRepository) ListReports(ctx context.Context) ([]database.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reports := make([]database.Report, 0, len(r.order))
	for _, id := range r.order {
		reports = append(reports, r.reports[id])
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].PubDate > reports[j].PubDate })
	return reports, nil
}

func (r *fakeReportRepository) UpdateLocation(ctx context.Context, id string, location database.Location) (*database.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, &database.StoreWriteError{Op: "update report location", ID: id, Err: database.ErrReportNotFound}
	}
	report.Location, report.Lat, report.Lng = location.Location, location.Lat, location.Lng
	r.reports[id] = report
	return &report, nil
}

func (r *fakeReportRepository) GetReport(ctx context.Context, id string) (*database.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, nil
	}
	return &report, nil
}

func (r *fakeReportRepository) FindByGUID(ctx context.Context, guid string) (*database.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		if r.reports[id].GUID == guid {
			report := r.reports[id]
			return &report, nil
		}
	}
	return nil, nil
}

func (r *fakeReportRepository) ListUnnotified(ctx context.Context) ([]database.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reports []database.Report
	for _, id := range r.order {
		if !r.reports[id].Notified {
			reports = append(reports, r.reports[id])
		}
	}
	return reports, nil
}

func (r *fakeReportRepository) CountReports(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports), nil
}

func (r *fakeReportRepository) stored() []database.Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	reports := make([]database.Report, 0, len(r.order))
	for _, id := range r.order {
		reports = append(reports, r.reports[id])
	}
	return reports
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(ctx context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type feedServer struct {
	*httptest.Server
	requests atomic.Int32
}

func newFeedServer(t *testing.T, status int, body string) *feedServer {
	t.Helper()

	fs := &feedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newTestPipeline(feedURL string, repo *fakeReportRepository, notifier *fakeNotifier) *Pipeline {
	var counter atomic.Int32
	return &Pipeline{
		FeedURL:      feedURL,
		HTTPClient:   http.DefaultClient,
		UserAgent:    "Sinkhole Watch/test",
		FetchTimeout: 5 * time.Second,
		Parser:       feed.NewParser(),
		Matcher:      feed.NewMatcher(feed.DefaultKeywords),
		ReportRepo:   repo,
		Notifier:     notifier,
		Locker:       lock.NewLocalLocker(),
		NewID: func() string {
			return fmt.Sprintf("report-%d", counter.Add(1))
		},
		Now: func() time.Time {
			return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		},
	}
}

func feedWithItems(items ...string) string {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>연합뉴스 최신기사</title>
    <link>https://www.yna.co.kr/news</link>`
	for _, item := range items {
		body += item
	}
	return body + `
  </channel>
</rss>`
}

func item(guid, title, description string) string {
	return fmt.Sprintf(`
    <item>
      <title><![CDATA[%s]]></title>
      <link>https://test.com/news/%s</link>
      <guid>%s</guid>
      <pubDate>Tue, 15 Nov 2023 09:00:00 GMT</pubDate>
      <description><![CDATA[%s]]></description>
    </item>`, title, guid, guid, description)
}
