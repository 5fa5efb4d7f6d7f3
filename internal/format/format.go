// Package format renders search results for the terminal: interleaved,
// grouped, streaming and JSON modes, plus the log group listing table.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"logscout/internal/logs"
)

// Mode selects how merged results are displayed.
type Mode string

const (
	// ModeInterleaved merges all entries sorted by timestamp.
	ModeInterleaved Mode = "interleaved"
	// ModeGrouped shows entries grouped by source.
	ModeGrouped Mode = "grouped"
	// ModeStreaming shows each target's results as they complete.
	ModeStreaming Mode = "streaming"
	// ModeJSON emits the entries as a JSON array.
	ModeJSON Mode = "json"
)

// ParseMode validates a mode flag value.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(value)) {
	case ModeInterleaved:
		return ModeInterleaved, nil
	case ModeGrouped:
		return ModeGrouped, nil
	case ModeStreaming:
		return ModeStreaming, nil
	case ModeJSON:
		return ModeJSON, nil
	default:
		return "", fmt.Errorf("unsupported output mode: %s (expected interleaved, grouped, streaming, or json)", value)
	}
}

// Options controls entry rendering.
type Options struct {
	Color bool
	// MaxWidth truncates rendered lines; zero means no truncation.
	MaxWidth int
}

// entryTimestampFormat shows millisecond precision.
const entryTimestampFormat = "2006-01-02 15:04:05.000"

// WriteEntries renders entries in the given mode.
func WriteEntries(w io.Writer, entries []logs.Entry, mode Mode, opts Options) error {
	if mode == ModeJSON {
		return writeJSON(w, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No matching logs found.") //nolint:errcheck
		return nil
	}

	switch mode {
	case ModeGrouped:
		writeGrouped(w, entries, opts)
	default:
		// Streaming falls back to interleaved when handed a full set.
		writeInterleaved(w, entries, opts)
	}
	return nil
}

func writeInterleaved(w io.Writer, entries []logs.Entry, opts Options) {
	logs.SortAscending(entries)

	fmt.Fprintf(w, "Found %d results:\n\n", len(entries)) //nolint:errcheck
	for _, entry := range entries {
		PrintEntry(w, entry, opts)
	}
}

func writeGrouped(w io.Writer, entries []logs.Entry, opts Options) {
	order, byGroup := GroupSorted(entries)

	for _, group := range order {
		header := fmt.Sprintf("━━━ %s (%d results)", group, len(byGroup[group]))
		if opts.Color {
			header = text.FgCyan.Sprint(header)
		}
		fmt.Fprintf(w, "\n%s\n\n", header) //nolint:errcheck

		for _, entry := range byGroup[group] {
			PrintEntry(w, entry, opts)
		}
	}
}

// GroupSorted groups entries by source and sorts each group ascending.
func GroupSorted(entries []logs.Entry) ([]string, map[string][]logs.Entry) {
	order, byGroup := logs.GroupBySource(entries)
	for _, group := range order {
		logs.SortAscending(byGroup[group])
	}
	return order, byGroup
}

func writeJSON(w io.Writer, entries []logs.Entry) error {
	if entries == nil {
		entries = []logs.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// PrintEntry writes one log line: timestamp, short source tag, message.
func PrintEntry(w io.Writer, entry logs.Entry, opts Options) {
	timestamp := entry.Timestamp.Format(entryTimestampFormat)
	tag := "[" + ShortGroup(entry.Group) + "]"

	if opts.Color {
		timestamp = text.FgHiBlack.Sprint(timestamp)
		tag = text.FgBlue.Sprint(tag)
	}

	line := fmt.Sprintf("%s %s %s", timestamp, tag, entry.Message)
	if opts.MaxWidth > 0 {
		line = runewidth.Truncate(line, opts.MaxWidth, "…")
	}
	fmt.Fprintln(w, line) //nolint:errcheck
}

// ShortGroup trims a source group to its last path segment for cleaner
// display.
func ShortGroup(group string) string {
	if idx := strings.LastIndex(group, "/"); idx >= 0 && idx+1 < len(group) {
		return group[idx+1:]
	}
	return group
}

// ResolveColor decides whether to render ANSI colors, honoring explicit
// overrides before terminal detection.
func ResolveColor(forceColor, forceNoColor bool, out *os.File) bool {
	if forceNoColor {
		return false
	}
	if forceColor {
		return true
	}
	if out == nil {
		return false
	}
	return isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
}

// TerminalWidth returns the column width of out, or zero when it is not
// a terminal.
func TerminalWidth(out *os.File) int {
	if out == nil {
		return 0
	}
	if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
		return w
	}
	return 0
}
