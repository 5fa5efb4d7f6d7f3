package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"logscout/internal/debug"
	"logscout/internal/logs"
	"logscout/internal/search"
	"logscout/internal/target"
)

// defaultPollInterval is how long the engine waits between status polls.
// There is no overall query timeout: long queries are expected, and the
// loop ends only on a terminal state or context cancellation.
const defaultPollInterval = 500 * time.Millisecond

// QueryError reports a query that reached a non-Complete terminal state.
type QueryError struct {
	QueryID string
	Status  string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %s", e.QueryID, e.Status)
}

// Searcher runs Insights queries against one or more regions, drawing
// clients from a shared pool.
type Searcher struct {
	pool         *ClientPool
	pollInterval time.Duration
}

// NewSearcher creates a searcher over the given pool.
func NewSearcher(pool *ClientPool) *Searcher {
	return &Searcher{pool: pool, pollInterval: defaultPollInterval}
}

var _ search.Searcher = (*Searcher)(nil)

// Search submits a query for one log group and polls it to completion.
// Exclude patterns are applied client-side on the returned rows.
func (s *Searcher) Search(ctx context.Context, tgt target.Target, q logs.Query) ([]logs.Entry, error) {
	client, err := s.pool.Get(ctx, tgt.Region)
	if err != nil {
		return nil, fmt.Errorf("client for %s: %w", tgt, err)
	}

	queryString := buildQuery(q.Include, q.Limit)
	debug.Logger().Debug("starting insights query",
		zap.String("group", tgt.Resource),
		zap.String("region", tgt.Region),
		zap.String("query", queryString))

	started, err := client.StartQuery(ctx, &cloudwatchlogs.StartQueryInput{
		LogGroupName: aws.String(tgt.Resource),
		StartTime:    aws.Int64(q.Start.Unix()),
		EndTime:      aws.Int64(q.End.Unix()),
		QueryString:  aws.String(queryString),
	})
	if err != nil {
		return nil, fmt.Errorf("start query for %s: %w", tgt.Resource, err)
	}
	if started.QueryId == nil {
		return nil, fmt.Errorf("start query for %s: no query id returned", tgt.Resource)
	}

	entries, err := s.poll(ctx, client, *started.QueryId, tgt)
	if err != nil {
		return nil, err
	}

	return logs.Filter(entries, q), nil
}

// poll requests query status at a fixed interval until a terminal state.
// Complete yields parsed rows; Failed, Cancelled and Timeout surface as
// a QueryError carrying the query id and status.
func (s *Searcher) poll(ctx context.Context, client API, queryID string, tgt target.Target) ([]logs.Entry, error) {
	ticker := backoff.NewTicker(backoff.WithContext(backoff.NewConstantBackOff(s.pollInterval), ctx))
	defer ticker.Stop()

	for range ticker.C {
		out, err := client.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{
			QueryId: aws.String(queryID),
		})
		if err != nil {
			return nil, fmt.Errorf("get query results %s: %w", queryID, err)
		}

		switch out.Status {
		case types.QueryStatusComplete:
			entries := make([]logs.Entry, 0, len(out.Results))
			for _, row := range out.Results {
				if entry, ok := parseResultRow(row, tgt.Resource, tgt.Region); ok {
					entries = append(entries, entry)
				}
			}
			debug.Logger().Debug("query complete",
				zap.String("query_id", queryID),
				zap.Int("entries", len(entries)))
			return entries, nil
		case types.QueryStatusFailed, types.QueryStatusCancelled, types.QueryStatusTimeout:
			return nil, &QueryError{QueryID: queryID, Status: string(out.Status)}
		default:
			// Scheduled or Running: wait for the next tick.
		}
	}

	// Ticker channel closes only when the context is done.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("query poll stopped unexpectedly")
}

// SearchAll fans the query out across all targets concurrently and
// returns one result per target in input order.
func (s *Searcher) SearchAll(ctx context.Context, targets []target.Target, q logs.Query) []search.Result {
	return search.All(ctx, s, targets, q)
}

// ListGroups enumerates log group names in a region, following the
// pagination token until exhausted. An empty prefix lists everything.
func (s *Searcher) ListGroups(ctx context.Context, region, prefix string) ([]string, error) {
	client, err := s.pool.Get(ctx, region)
	if err != nil {
		return nil, err
	}

	var groups []string
	var nextToken *string

	for {
		input := &cloudwatchlogs.DescribeLogGroupsInput{NextToken: nextToken}
		if prefix != "" {
			input.LogGroupNamePrefix = aws.String(prefix)
		}

		out, err := client.DescribeLogGroups(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe log groups: %w", err)
		}

		for _, group := range out.LogGroups {
			if group.LogGroupName != nil {
				groups = append(groups, *group.LogGroupName)
			}
		}

		nextToken = out.NextToken
		if nextToken == nil {
			return groups, nil
		}
	}
}
