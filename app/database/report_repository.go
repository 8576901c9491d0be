package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ ReportRepository = (*SQLReportRepository)(nil)

const reportColumns = `id, title, summary, link, guid, pub_date, creator, media_url, media_type,
	location, lat, lng, notified, state, created_at`

// SQLReportRepository stores reports in a single table. Queries are written
// with ? placeholders and rebound for the active driver.
type SQLReportRepository struct {
	db    *DB
	table string
}

func NewReportRepository(db *DB, table string) (*SQLReportRepository, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	return &SQLReportRepository{db: db, table: table}, nil
}

func (r *SQLReportRepository) query(format string) string {
	return r.db.Rebind(fmt.Sprintf(format, r.table))
}

// CreateReport inserts a new row. It never overwrites: an id collision is a
// write error.
func (r *SQLReportRepository) CreateReport(ctx context.Context, report Report) error {
	var mediaURL, mediaType *string
	if report.MediaContent != nil {
		mediaURL = &report.MediaContent.URL
		mediaType = &report.MediaContent.Type
	}

	state := report.State
	if state == "" {
		state = StateCreated
	}

	_, err := r.db.ExecContext(ctx, r.query(`
		INSERT INTO %s (
			id, title, summary, link, guid, pub_date, creator, media_url, media_type,
			location, lat, lng, notified, state, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), report.ID, report.Title, report.Summary, report.Link, report.GUID, report.PubDate,
		report.Creator, mediaURL, mediaType,
		report.Location, report.Lat, report.Lng, report.Notified, state, report.CreatedAt)
	if err != nil {
		return &StoreWriteError{Op: "create report", ID: report.ID, Err: err}
	}

	return nil
}

func (r *SQLReportRepository) MarkNotified(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.query(`
		UPDATE %s SET notified = ?, state = ? WHERE id = ?
	`), true, StateMarked, id)
	if err != nil {
		return &StoreWriteError{Op: "mark report notified", ID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &StoreWriteError{Op: "mark report notified", ID: id, Err: err}
	}
	if affected == 0 {
		return &StoreWriteError{Op: "mark report notified", ID: id, Err: ErrReportNotFound}
	}

	return nil
}

// ListReports returns every report, newest publication first.
func (r *SQLReportRepository) ListReports(ctx context.Context) ([]Report, error) {
	reports, err := r.selectReports(ctx, r.query(`
		SELECT `+reportColumns+`
		FROM %s
		ORDER BY pub_date DESC, created_at DESC
	`))
	if err != nil {
		return nil, &StoreReadError{Op: "list reports", Err: err}
	}
	return reports, nil
}

func (r *SQLReportRepository) ListUnnotified(ctx context.Context) ([]Report, error) {
	reports, err := r.selectReports(ctx, r.query(`
		SELECT `+reportColumns+`
		FROM %s
		WHERE notified = ?
		ORDER BY created_at ASC
	`), false)
	if err != nil {
		return nil, &StoreReadError{Op: "list unnotified reports", Err: err}
	}
	return reports, nil
}

// UpdateLocation overwrites the geocoding fields and returns the updated row.
func (r *SQLReportRepository) UpdateLocation(ctx context.Context, id string, location Location) (*Report, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &StoreWriteError{Op: "update report location", ID: id, Err: err}
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, r.query(`
		UPDATE %s SET location = ?, lat = ?, lng = ? WHERE id = ?
	`), location.Location, location.Lat, location.Lng, id)
	if err != nil {
		return nil, &StoreWriteError{Op: "update report location", ID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, &StoreWriteError{Op: "update report location", ID: id, Err: err}
	}
	if affected == 0 {
		return nil, &StoreWriteError{Op: "update report location", ID: id, Err: ErrReportNotFound}
	}

	var row reportRow
	if err := tx.GetContext(ctx, &row, r.query(`SELECT `+reportColumns+` FROM %s WHERE id = ?`), id); err != nil {
		return nil, &StoreWriteError{Op: "update report location", ID: id, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &StoreWriteError{Op: "update report location", ID: id, Err: err}
	}

	report := row.toReport()
	return &report, nil
}

// GetReport returns nil when no report has the id.
func (r *SQLReportRepository) GetReport(ctx context.Context, id string) (*Report, error) {
	report, err := r.getOne(ctx, r.query(`SELECT `+reportColumns+` FROM %s WHERE id = ?`), id)
	if err != nil {
		return nil, &StoreReadError{Op: "get report", Err: err}
	}
	return report, nil
}

// FindByGUID returns the oldest report with the guid, or nil.
func (r *SQLReportRepository) FindByGUID(ctx context.Context, guid string) (*Report, error) {
	report, err := r.getOne(ctx, r.query(`
		SELECT `+reportColumns+`
		FROM %s
		WHERE guid = ?
		ORDER BY created_at ASC
		LIMIT 1
	`), guid)
	if err != nil {
		return nil, &StoreReadError{Op: "find report by guid", Err: err}
	}
	return report, nil
}

func (r *SQLReportRepository) CountReports(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.query(`SELECT COUNT(*) FROM %s`)); err != nil {
		return 0, &StoreReadError{Op: "count reports", Err: err}
	}
	return count, nil
}

func (r *SQLReportRepository) selectReports(ctx context.Context, query string, args ...any) ([]Report, error) {
	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.toReport())
	}
	return reports, nil
}

func (r *SQLReportRepository) getOne(ctx context.Context, query string, args ...any) (*Report, error) {
	var row reportRow
	err := r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	report := row.toReport()
	return &report, nil
}
