package cloudwatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"logscout/internal/logs"
)

// buildQuery renders the Insights query string for the include patterns.
// Patterns are ANDed as @message substring matches. Exclude patterns are
// not expressible efficiently in the query language and are applied
// client-side after retrieval.
func buildQuery(include []string, limit int) string {
	conditions := make([]string, 0, len(include))
	for _, p := range include {
		escaped := strings.ReplaceAll(p, `'`, `\'`)
		conditions = append(conditions, fmt.Sprintf("@message like /%s/", escaped))
	}

	var b strings.Builder
	b.WriteString("fields @timestamp, @message, @logStream\n")
	if len(conditions) > 0 {
		fmt.Fprintf(&b, "| filter %s\n", strings.Join(conditions, " and "))
	}
	b.WriteString("| sort @timestamp desc\n")
	fmt.Fprintf(&b, "| limit %d", limit)
	return b.String()
}

// parseResultRow converts one Insights result row (a field bag) into an
// entry. Rows missing a timestamp or message are dropped, not errors.
func parseResultRow(row []types.ResultField, group, region string) (logs.Entry, bool) {
	var timestamp time.Time
	var message string
	var stream string
	var haveTimestamp, haveMessage bool

	for _, field := range row {
		switch aws.ToString(field.Field) {
		case "@timestamp":
			if t, ok := parseResultTimestamp(aws.ToString(field.Value)); ok {
				timestamp = t
				haveTimestamp = true
			}
		case "@message":
			if field.Value != nil {
				message = *field.Value
				haveMessage = true
			}
		case "@logStream":
			stream = aws.ToString(field.Value)
		}
	}

	if !haveTimestamp || !haveMessage {
		return logs.Entry{}, false
	}

	return logs.Entry{
		Timestamp: timestamp,
		Message:   message,
		Group:     group,
		Stream:    stream,
		Region:    region,
	}, true
}

// resultTimestampFormats covers the "YYYY-MM-DD HH:MM:SS[.fff]" family
// the query service returns.
var resultTimestampFormats = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseResultTimestamp(value string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), true
	}
	for _, format := range resultTimestampFormats {
		if t, err := time.ParseInLocation(format, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
