package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"logscout/internal/debug"
	"logscout/internal/logs"
	"logscout/internal/search"
	"logscout/internal/target"
)

// Over-fetch defaults: most fetched lines are discarded by client-side
// filtering, so the batch command pulls well past the result cap. Both
// values are tunable on the Fetcher.
const (
	defaultOverFetch = 10
	defaultMinFetch  = 1000
)

// DiscoveryError reports that no running container matched the service
// on a host. It is distinct from a search that found zero entries.
type DiscoveryError struct {
	Service string
	Host    string
	Detail  string
}

func (e *DiscoveryError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("discover container for %q on %s: %s", e.Service, e.Host, e.Detail)
	}
	return fmt.Sprintf("no running container found for service %q on %s", e.Service, e.Host)
}

// Fetcher batch-fetches container logs from remote hosts. The target
// resource is the host name; the service selects the container.
type Fetcher struct {
	Dialer    *Dialer
	Service   string
	OverFetch int
	MinFetch  int
}

// NewFetcher creates a fetcher for service using dialer.
func NewFetcher(dialer *Dialer, service string) *Fetcher {
	return &Fetcher{
		Dialer:    dialer,
		Service:   service,
		OverFetch: defaultOverFetch,
		MinFetch:  defaultMinFetch,
	}
}

var _ search.Searcher = (*Fetcher)(nil)

// Search connects to the host, discovers the running container, fetches
// a bounded batch of its logs and returns the filtered entries newest
// first, truncated to the query limit. The session is released on every
// path.
func (f *Fetcher) Search(ctx context.Context, tgt target.Target, q logs.Query) ([]logs.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := f.Dialer.Dial(tgt.Resource)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	containerID, err := findContainer(c, f.Service, tgt.Resource)
	if err != nil {
		return nil, err
	}

	cmd := f.logsCommand(containerID, q)
	debug.Logger().Debug("fetching remote logs",
		zap.String("host", tgt.Resource),
		zap.String("command", cmd))

	raw, err := c.CombinedOutput(cmd)
	if err != nil {
		return nil, fmt.Errorf("docker logs on %s: %w", tgt.Resource, err)
	}

	var entries []logs.Entry
	for _, line := range strings.Split(string(raw), "\n") {
		if entry, ok := parseLine(line, tgt.Resource, f.Service); ok && q.Matches(entry.Message) {
			entries = append(entries, entry)
		}
	}

	logs.SortDescending(entries)
	return logs.Truncate(entries, q.Limit), nil
}

// logsCommand builds the batch fetch command. The tail count over-fetches
// past the cap to compensate for client-side filtering.
func (f *Fetcher) logsCommand(containerID string, q logs.Query) string {
	fetch := q.Limit * f.OverFetch
	if fetch < f.MinFetch {
		fetch = f.MinFetch
	}

	cmd := fmt.Sprintf("docker logs %s --timestamps --tail %d", containerID, fetch)
	if !q.Start.IsZero() {
		cmd += " --since " + q.Start.UTC().Format(time.RFC3339)
	}
	return cmd
}

// findContainer resolves the newest running container whose name matches
// the service pattern. An empty match is an explicit discovery failure.
func findContainer(c conn, service, host string) (string, error) {
	cmd := fmt.Sprintf("docker ps --filter 'name=%s' --format '{{.ID}}' | head -1", service)

	out, err := c.CombinedOutput(cmd)
	if err != nil {
		return "", &DiscoveryError{Service: service, Host: host, Detail: err.Error()}
	}

	containerID := strings.TrimSpace(string(out))
	if containerID == "" {
		return "", &DiscoveryError{Service: service, Host: host}
	}
	return containerID, nil
}
