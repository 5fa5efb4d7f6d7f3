// Package timeutil parses the flexible relative durations and absolute
// timestamps accepted on the command line and converts them into query
// time windows.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Range is the absolute [Start, End) window of one query.
type Range struct {
	Start time.Time
	End   time.Time
}

// RelativeRange builds a range ending now and starting the parsed
// duration ago (e.g. "1h", "2d12h").
func RelativeRange(duration string) (Range, error) {
	d, err := ParseDuration(duration)
	if err != nil {
		return Range{}, err
	}
	end := time.Now().UTC()
	return Range{Start: end.Add(-d), End: end}, nil
}

// ExplicitRange builds a range from explicit start and optional end
// strings. An empty end defaults to now.
func ExplicitRange(start, end string) (Range, error) {
	startAt, err := ParseTime(start)
	if err != nil {
		return Range{}, err
	}

	endAt := time.Now().UTC()
	if end != "" {
		endAt, err = ParseTime(end)
		if err != nil {
			return Range{}, err
		}
	}

	return Range{Start: startAt, End: endAt}, nil
}

// componentRe matches one "<number><unit>" duration component. Units may
// be spelled tersely ("h") or verbosely ("hours"), in any case.
var componentRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(s(?:ec(?:ond)?s?)?|m(?:in(?:ute)?s?)?|h(?:(?:ou)?rs?)?|d(?:ays?)?|w(?:eeks?)?)`)

// ParseDuration parses a relative duration such as "30s", "1h30m",
// "2d12h", "1.5h" or "2hours". Components are summed.
func ParseDuration(input string) (time.Duration, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var totalSeconds float64
	matched := false

	for _, m := range componentRe.FindAllStringSubmatch(input, -1) {
		matched = true

		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in duration: %q", m[1])
		}

		var multiplier float64
		switch m[2][0] {
		case 's':
			multiplier = 1
		case 'm':
			multiplier = 60
		case 'h':
			multiplier = 3600
		case 'd':
			multiplier = 86400
		case 'w':
			multiplier = 604800
		}

		totalSeconds += value * multiplier
	}

	if !matched {
		return 0, fmt.Errorf("invalid duration %q (examples: 1h, 30m, 2d, 1h30m, 1.5h)", input)
	}

	return time.Duration(totalSeconds * float64(time.Second)), nil
}

// timeFormats are tried in order after RFC3339. Date-only inputs default
// the time of day to midnight.
var timeFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an absolute timestamp: RFC3339 first, then a small
// fixed set of "date[ time]" formats interpreted as UTC.
func ParseTime(input string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t.UTC(), nil
	}

	for _, format := range timeFormats {
		if t, err := time.ParseInLocation(format, input, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time %q (expected RFC3339, YYYY-MM-DD HH:MM:SS, or YYYY-MM-DD)", input)
}

// DockerSince validates a relative duration and normalizes it to the
// form accepted by docker logs --since.
func DockerSince(duration string) (string, error) {
	if _, err := ParseDuration(duration); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(duration)), nil
}
