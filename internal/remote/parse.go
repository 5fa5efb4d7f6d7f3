package remote

import (
	"strings"
	"time"

	"logscout/internal/logs"
)

// lineTimestampFormats are tried after RFC3339Nano for the prefix of a
// timestamped log line.
var lineTimestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseLine converts one raw "timestamp SP message" line into an entry.
// A line without a parsable timestamp prefix becomes a message-only
// entry stamped with the ingestion time, so no line is ever lost.
func parseLine(line, host, service string) (logs.Entry, bool) {
	if strings.TrimSpace(line) == "" {
		return logs.Entry{}, false
	}

	entry := logs.Entry{
		Group:  host,
		Stream: service,
	}

	prefix, rest, found := strings.Cut(line, " ")
	if !found {
		entry.Timestamp = time.Now().UTC()
		entry.Message = line
		return entry, true
	}

	if t, ok := parseLineTimestamp(prefix); ok {
		entry.Timestamp = t
		entry.Message = rest
		return entry, true
	}

	entry.Timestamp = time.Now().UTC()
	entry.Message = line
	return entry, true
}

func parseLineTimestamp(value string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), true
	}
	for _, format := range lineTimestampFormats {
		if t, err := time.ParseInLocation(format, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
