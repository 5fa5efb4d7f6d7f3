// Package logs defines the normalized log entry model shared by every
// backend, together with the query parameters and client-side filtering
// applied to fetched entries.
package logs

import (
	"sort"
	"strings"
	"time"
)

// Entry is one normalized log line. Timestamp is always set (ingestion
// time when the source line carried none); Message may be empty.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Group     string    `json:"group"`
	Stream    string    `json:"stream,omitempty"`
	Region    string    `json:"region,omitempty"`
}

// Query holds the immutable parameters of one search. Include patterns
// must all match (case-insensitive substring); any matching exclude
// pattern drops the line. The window is [Start, End).
type Query struct {
	Include []string
	Exclude []string
	Start   time.Time
	End     time.Time
	Limit   int
}

// Matches reports whether message passes the query's include and exclude
// patterns. An empty include list matches everything.
func (q Query) Matches(message string) bool {
	lower := strings.ToLower(message)
	for _, p := range q.Include {
		if !strings.Contains(lower, strings.ToLower(p)) {
			return false
		}
	}
	for _, p := range q.Exclude {
		if strings.Contains(lower, strings.ToLower(p)) {
			return false
		}
	}
	return true
}

// Filter returns the entries whose messages pass the query patterns,
// preserving input order.
func Filter(entries []Entry, q Query) []Entry {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if q.Matches(e.Message) {
			kept = append(kept, e)
		}
	}
	return kept
}

// SortAscending orders entries oldest first. Used for interleaved output.
func SortAscending(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}

// SortDescending orders entries newest first. Backends use this before
// truncating to the result cap.
func SortDescending(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[j].Timestamp.Before(entries[i].Timestamp)
	})
}

// Truncate caps entries at limit. A limit of zero or less means no cap.
func Truncate(entries []Entry, limit int) []Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// GroupBySource splits entries by their Group field. Keys are returned in
// first-seen order so grouped output is deterministic.
func GroupBySource(entries []Entry) ([]string, map[string][]Entry) {
	byGroup := make(map[string][]Entry)
	var order []string
	for _, e := range entries {
		if _, ok := byGroup[e.Group]; !ok {
			order = append(order, e.Group)
		}
		byGroup[e.Group] = append(byGroup[e.Group], e)
	}
	return order, byGroup
}
