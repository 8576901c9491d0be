package database

import (
	"context"
)

type ReportRepository interface {
	CreateReport(ctx context.Context, report Report) error
	MarkNotified(ctx context.Context, id string) error
	ListReports(ctx context.Context) ([]Report, error)
	UpdateLocation(ctx context.Context, id string, location Location) (*Report, error)

	GetReport(ctx context.Context, id string) (*Report, error)
	FindByGUID(ctx context.Context, guid string) (*Report, error)
	ListUnnotified(ctx context.Context) ([]Report, error)
	CountReports(ctx context.Context) (int, error)
}
