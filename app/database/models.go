package database

import (
	"database/sql"
	"time"
)

// PubDateLayout is the canonical timestamp layout. It is fixed-width UTC, so
// string order and chronological order agree.
const PubDateLayout = "2006-01-02T15:04:05.000Z"

const (
	StateCreated = "created"
	StateMarked  = "marked"
)

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(PubDateLayout)
}

type Report struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Summary      string        `json:"summary"`
	Link         string        `json:"link"`
	GUID         string        `json:"guid"`
	PubDate      string        `json:"pubDate"`
	Creator      *string       `json:"creator"`
	MediaContent *MediaContent `json:"mediaContent"`
	Location     *string       `json:"location"`
	Lat          *float64      `json:"lat"`
	Lng          *float64      `json:"lng"`
	Notified     bool          `json:"notified"`
	State        string        `json:"state"`
	CreatedAt    string        `json:"createdAt"`
}

type MediaContent struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Location carries the geocoding fields set by an update. Nil members are
// stored as NULL.
type Location struct {
	Location *string  `json:"location"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

type reportRow struct {
	ID        string          `db:"id"`
	Title     string          `db:"title"`
	Summary   string          `db:"summary"`
	Link      string          `db:"link"`
	GUID      string          `db:"guid"`
	PubDate   string          `db:"pub_date"`
	Creator   sql.NullString  `db:"creator"`
	MediaURL  sql.NullString  `db:"media_url"`
	MediaType sql.NullString  `db:"media_type"`
	Location  sql.NullString  `db:"location"`
	Lat       sql.NullFloat64 `db:"lat"`
	Lng       sql.NullFloat64 `db:"lng"`
	Notified  bool            `db:"notified"`
	State     string          `db:"state"`
	CreatedAt string          `db:"created_at"`
}

func (r reportRow) toReport() Report {
	report := Report{
		ID:        r.ID,
		Title:     r.Title,
		Summary:   r.Summary,
		Link:      r.Link,
		GUID:      r.GUID,
		PubDate:   r.PubDate,
		Creator:   nullString(r.Creator),
		Location:  nullString(r.Location),
		Lat:       nullFloat(r.Lat),
		Lng:       nullFloat(r.Lng),
		Notified:  r.Notified,
		State:     r.State,
		CreatedAt: r.CreatedAt,
	}

	if r.MediaURL.Valid && r.MediaType.Valid {
		report.MediaContent = &MediaContent{URL: r.MediaURL.String, Type: r.MediaType.String}
	}

	return report
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
