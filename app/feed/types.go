package feed

import (
	"time"
)

// Feed processing types

type Entry struct {
	GUID        string // explicit guid, or the link when the feed has none
	Title       string
	Link        string
	Summary     string
	Creator     *string
	PublishedAt time.Time
	Media       *Media
}

type Media struct {
	URL  string
	Type string
}

// Topic configuration types

type Topic struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Channel describes the feed published by the Generator.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
	Language    string
}
