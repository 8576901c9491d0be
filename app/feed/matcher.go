package feed

import (
	"strings"
)

// DefaultKeywords is the built-in sinkhole vocabulary.
var DefaultKeywords = []string{"싱크홀", "도로 꺼짐", "지반 침하"}

// Matcher decides topic relevance by literal, case-sensitive substring search.
type Matcher struct {
	keywords []string
}

func NewMatcher(keywords []string) *Matcher {
	kept := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if keyword != "" {
			kept = append(kept, keyword)
		}
	}
	return &Matcher{keywords: kept}
}

func (m *Matcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}

func (m *Matcher) Match(text string) bool {
	for _, keyword := range m.keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func (m *Matcher) MatchEntry(entry Entry) bool {
	return m.Match(entry.Title) || m.Match(entry.Summary)
}

// Filter keeps relevant entries in their original order.
func (m *Matcher) Filter(entries []Entry) []Entry {
	matched := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if m.MatchEntry(entry) {
			matched = append(matched, entry)
		}
	}
	return matched
}
