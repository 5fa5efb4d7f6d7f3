package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"logscout/internal/cloudwatch"
	"logscout/internal/config"
	"logscout/internal/deploy"
	"logscout/internal/format"
	"logscout/internal/logs"
	"logscout/internal/remote"
	"logscout/internal/search"
	"logscout/internal/target"
	"logscout/internal/timeutil"
)

const (
	sourceCloudwatch = "cloudwatch"
	sourceSSH        = "ssh"
)

// searchParams holds the fully resolved inputs of one search run after
// flags, preset and config defaults have been merged.
type searchParams struct {
	patterns   []string
	groups     []string
	exclude    []string
	last       string
	start      string
	end        string
	limit      int
	source     string
	deployFile string
	sshUser    string
	sshKey     string
}

// resolveParams layers a preset (when named) and config defaults under
// the explicit flags. Flag patterns and excludes extend the preset's;
// explicit groups replace it.
func resolveParams(cfg *config.Config, p searchParams, presetName string) (searchParams, error) {
	if presetName != "" {
		preset, ok := cfg.Preset(presetName)
		if !ok {
			return p, fmt.Errorf("preset %q not found (available: %s)",
				presetName, strings.Join(cfg.PresetNames(), ", "))
		}

		p.patterns = append(append([]string{}, preset.Patterns...), p.patterns...)
		p.exclude = append(append([]string{}, preset.Exclude...), p.exclude...)
		if len(p.groups) == 0 {
			p.groups = preset.Groups
		}
		if preset.TimeRange != "" && p.last == "" {
			p.last = preset.TimeRange
		}
		if preset.Limit > 0 {
			p.limit = preset.Limit
		}
		if p.deployFile == "" {
			p.deployFile = preset.DeployFile
		}
		if preset.Source != "" {
			p.source = preset.Source
		}
	}

	if len(p.groups) == 0 {
		p.groups = cfg.DefaultGroups
	}
	if p.last == "" {
		p.last = cfg.DefaultTimeRange
	}
	if p.last == "" {
		p.last = "1h"
	}
	if p.limit == 0 && cfg.DefaultLimit > 0 {
		p.limit = cfg.DefaultLimit
	}
	if p.limit == 0 {
		p.limit = 100
	}
	if p.source == "" {
		p.source = sourceCloudwatch
	}

	return p, nil
}

// timeRange resolves the query window: explicit start/end wins over the
// relative duration.
func (p searchParams) timeRange() (timeutil.Range, error) {
	if p.start != "" {
		return timeutil.ExplicitRange(p.start, p.end)
	}
	return timeutil.RelativeRange(p.last)
}

func newSearchCmd() *cobra.Command {
	var (
		p          searchParams
		presetName string
		outputFlag string
		follow     bool
		truncate   bool
	)

	cmd := &cobra.Command{
		Use:   "search [patterns...]",
		Short: "Search logs with filter patterns (multiple patterns = AND)",
		Example: `  logscout search ERROR -g my-app/production
  logscout search "user_id=123" -g api/logs,web/logs --last 2h
  logscout search ERROR -g us-east-1:app/prod,eu-west-1:app/prod
  logscout search ERROR -g app/logs -x health-check,ping
  logscout search ERROR -p production
  logscout search ERROR --source ssh --deploy config/deploy.yml --follow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && presetName == "" {
				return errors.New("at least one pattern or --preset is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			p.patterns = args
			resolved, err := resolveParams(cfg, p, presetName)
			if err != nil {
				return err
			}

			mode, err := format.ParseMode(outputFlag)
			if err != nil {
				return err
			}

			window, err := resolved.timeRange()
			if err != nil {
				return err
			}

			query := logs.Query{
				Include: resolved.patterns,
				Exclude: resolved.exclude,
				Start:   window.Start,
				End:     window.End,
				Limit:   resolved.limit,
			}

			opts := outputOptions(cmd, mode, truncate)

			switch resolved.source {
			case sourceCloudwatch:
				if follow {
					return errors.New("--follow requires --source ssh")
				}
				return runCloudwatchSearch(cmd, cfg, resolved, query, mode, opts)
			case sourceSSH:
				if follow {
					return runFollow(cmd, resolved, query, opts)
				}
				return runRemoteSearch(cmd, resolved, query, mode, opts)
			default:
				return fmt.Errorf("unsupported source: %s (expected cloudwatch or ssh)", resolved.source)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&p.groups, "groups", "g", nil, "log groups to search (region:group to override the region)")
	flags.StringVarP(&presetName, "preset", "p", "", "use a saved preset from config")
	flags.StringSliceVarP(&p.exclude, "exclude", "x", nil, "exclude patterns (any match drops the line)")
	flags.StringVar(&p.last, "last", "", "relative time range, e.g. 1h, 30m, 2d12h (default 1h)")
	flags.StringVar(&p.start, "start", "", "absolute start time (alternative to --last)")
	flags.StringVar(&p.end, "end", "", "absolute end time (used with --start, default now)")
	flags.StringVarP(&outputFlag, "output", "o", "interleaved", "output mode: interleaved, grouped, streaming, or json")
	flags.IntVar(&p.limit, "limit", 0, "maximum results per target (default 100)")
	flags.StringVar(&p.source, "source", "", "log source: cloudwatch or ssh (default cloudwatch)")
	flags.StringVar(&p.deployFile, "deploy", "", "deploy file for the ssh source (default config/deploy.yml)")
	flags.StringVar(&p.sshUser, "user", "", "ssh user (default from deploy file)")
	flags.StringVar(&p.sshKey, "key", "", "ssh private key path (default agent, then ~/.ssh)")
	flags.BoolVarP(&follow, "follow", "f", false, "follow the log stream (ssh source only)")
	flags.BoolVar(&truncate, "truncate", false, "truncate lines to the terminal width")

	return cmd
}

func newFollowCmd() *cobra.Command {
	var (
		p        searchParams
		exclude  []string
		truncate bool
	)

	cmd := &cobra.Command{
		Use:   "follow [patterns...]",
		Short: "Tail container logs from the primary server over SSH",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			p.patterns = args
			p.exclude = exclude
			p.source = sourceSSH
			resolved, err := resolveParams(cfg, p, "")
			if err != nil {
				return err
			}

			window, err := resolved.timeRange()
			if err != nil {
				return err
			}

			query := logs.Query{
				Include: resolved.patterns,
				Exclude: resolved.exclude,
				Start:   window.Start,
				End:     window.End,
				Limit:   resolved.limit,
			}

			return runFollow(cmd, resolved, query, outputOptions(cmd, format.ModeStreaming, truncate))
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&exclude, "exclude", "x", nil, "exclude patterns (any match drops the line)")
	flags.StringVar(&p.last, "last", "", "how far back to start the tail (default 1h)")
	flags.StringVar(&p.deployFile, "deploy", "", "deploy file (default config/deploy.yml)")
	flags.StringVar(&p.sshUser, "user", "", "ssh user (default from deploy file)")
	flags.StringVar(&p.sshKey, "key", "", "ssh private key path (default agent, then ~/.ssh)")
	flags.BoolVar(&truncate, "truncate", false, "truncate lines to the terminal width")

	return cmd
}

// outputOptions derives rendering options from the command's stdout.
func outputOptions(cmd *cobra.Command, mode format.Mode, truncate bool) format.Options {
	opts := format.Options{}
	if mode == format.ModeJSON {
		return opts
	}

	outFile, _ := cmd.OutOrStdout().(*os.File)
	opts.Color = format.ResolveColor(false, false, outFile)
	if truncate {
		opts.MaxWidth = format.TerminalWidth(outFile)
	}
	return opts
}

func runCloudwatchSearch(cmd *cobra.Command, cfg *config.Config, p searchParams, query logs.Query, mode format.Mode, opts format.Options) error {
	if len(p.groups) == 0 {
		return errors.New("no log groups specified; use --groups or configure defaults")
	}

	pool := cloudwatch.NewClientPool(resolveProfile(cfg), resolveRegion(cfg))
	searcher := cloudwatch.NewSearcher(pool)
	targets := target.ParseAll(p.groups)

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if mode != format.ModeJSON {
		printSearchBanner(out, query)
	}

	if mode == format.ModeStreaming {
		return runStreaming(ctx, out, errOut, searcher, targets, query, opts)
	}

	results := searcher.SearchAll(ctx, targets, query)
	return writeMerged(cmd, results, mode, opts)
}

// runStreaming emits each target's results as it completes, in
// request-list order.
func runStreaming(ctx context.Context, out, errOut io.Writer, s search.Searcher, targets []target.Target, query logs.Query, opts format.Options) error {
	var failed int
	search.AllStream(ctx, s, targets, query, func(r search.Result) {
		fmt.Fprintf(out, "Querying %s...\n", r.Target) //nolint:errcheck
		if r.Err != nil {
			failed++
			fmt.Fprintf(errOut, "error: %s: %v\n", r.Target, r.Err) //nolint:errcheck
			return
		}
		logs.SortAscending(r.Entries)
		for _, entry := range r.Entries {
			format.PrintEntry(out, entry, opts)
		}
	})
	if len(targets) > 0 && failed == len(targets) {
		return search.ErrAllFailed
	}
	return nil
}

func runRemoteSearch(cmd *cobra.Command, p searchParams, query logs.Query, mode format.Mode, opts format.Options) error {
	fetcher, servers, err := buildFetcher(p)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if mode != format.ModeJSON {
		printSearchBanner(out, query)
		fmt.Fprintf(out, "Service: %s | Servers: %s\n\n", fetcher.Service, strings.Join(servers, ", ")) //nolint:errcheck
	}

	targets := target.ParseAll(servers)

	if mode == format.ModeStreaming {
		return runStreaming(ctx, out, errOut, fetcher, targets, query, opts)
	}

	results := search.All(ctx, fetcher, targets, query)
	return writeMerged(cmd, results, mode, opts)
}

// writeMerged renders fan-out results: per-target errors go to stderr
// beside the merged entries, and only a full wipeout fails the command.
func writeMerged(cmd *cobra.Command, results []search.Result, mode format.Mode, opts format.Options) error {
	entries, errs, err := search.Merged(results)

	if mode != format.ModeJSON {
		for _, targetErr := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", targetErr) //nolint:errcheck
		}
	}
	if err != nil {
		return err
	}

	return format.WriteEntries(cmd.OutOrStdout(), entries, mode, opts)
}

func runFollow(cmd *cobra.Command, p searchParams, query logs.Query, opts format.Options) error {
	dcfg, err := loadDeploy(p)
	if err != nil {
		return err
	}

	host := dcfg.Servers[0]
	dialer := remote.NewDialer(sshUser(p, dcfg), p.sshKey)
	follower := remote.NewFollower(dialer, dcfg.Service)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Following %s on %s | Press Ctrl+C to stop\n\n", dcfg.Service, host) //nolint:errcheck

	ch, session, err := follower.Follow(host, query)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return nil
			}
			format.PrintEntry(out, entry, opts)
		case <-sigCh:
			session.Stop()
			<-session.Done()
			return nil
		}
	}
}

// buildFetcher loads the deploy manifest and wires the SSH fetcher.
func buildFetcher(p searchParams) (*remote.Fetcher, []string, error) {
	dcfg, err := loadDeploy(p)
	if err != nil {
		return nil, nil, err
	}

	dialer := remote.NewDialer(sshUser(p, dcfg), p.sshKey)
	return remote.NewFetcher(dialer, dcfg.Service), dcfg.Servers, nil
}

func loadDeploy(p searchParams) (*deploy.Config, error) {
	path := p.deployFile
	if path == "" {
		path = "config/deploy.yml"
	}
	return deploy.Load(path)
}

func sshUser(p searchParams, dcfg *deploy.Config) string {
	if p.sshUser != "" {
		return p.sshUser
	}
	return dcfg.SSHUser
}

// printSearchBanner summarizes the active filters and window.
func printSearchBanner(out io.Writer, query logs.Query) {
	patterns := "*"
	if len(query.Include) > 0 {
		quoted := make([]string, 0, len(query.Include))
		for _, pattern := range query.Include {
			quoted = append(quoted, fmt.Sprintf("%q", pattern))
		}
		patterns = strings.Join(quoted, " AND ")
	}

	exclude := ""
	if len(query.Exclude) > 0 {
		quoted := make([]string, 0, len(query.Exclude))
		for _, pattern := range query.Exclude {
			quoted = append(quoted, fmt.Sprintf("%q", pattern))
		}
		exclude = " NOT " + strings.Join(quoted, ", ")
	}

	fmt.Fprintf(out, "Searching %s%s  from %s to %s\n\n", //nolint:errcheck
		patterns, exclude,
		query.Start.Format("2006-01-02 15:04:05"),
		query.End.Format("2006-01-02 15:04:05"))
}
