package api

import (
	"fmt"

	"github.com/lysyi3m/sinkhole-watch/app/database"
	"github.com/lysyi3m/sinkhole-watch/app/feed"
	"github.com/lysyi3m/sinkhole-watch/app/metrics"
	"github.com/lysyi3m/sinkhole-watch/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, reports []database.Report) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	reportRepo database.ReportRepository
	generator  GeneratorInterface
	channel    feed.Channel
	scheduler  tasks.TaskSchedulerInterface
	metrics    *metrics.Metrics
	version    string
}

// UpdateLocationRequest is the body of PUT /sinkholes/:id. Absent fields
// clear the stored value.
type UpdateLocationRequest struct {
	Location *string  `json:"location"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

func (r UpdateLocationRequest) toLocation() database.Location {
	return database.Location{Location: r.Location, Lat: r.Lat, Lng: r.Lng}
}

// AuthorizationError rejects a request that lacks the configured API key.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}
