// Package main provides the logscout CLI for searching and tailing
// application logs across regions and remote servers.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"logscout/internal/cloudwatch"
	"logscout/internal/config"
	"logscout/internal/format"
)

var version = "dev"

var (
	profileFlag string
	regionFlag  string
)

var rootCmd = &cobra.Command{
	Use:     "logscout",
	Short:   "Search and tail application logs across regions and servers",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "",
		"credential profile to use (env: AWS_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&regionFlag, "region", "",
		"region to use (env: AWS_REGION)")

	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newGroupsCmd())
	rootCmd.AddCommand(newFollowCmd())
	rootCmd.AddCommand(newConfigCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "logscout: %v\n", err)
		os.Exit(1)
	}
}

// resolveProfile returns the credential profile from flag, environment,
// or config default.
func resolveProfile(cfg *config.Config) string {
	if profileFlag != "" {
		return profileFlag
	}
	if env := os.Getenv("AWS_PROFILE"); env != "" {
		return env
	}
	return cfg.DefaultProfile
}

// resolveRegion returns the default region from flag, environment, or
// config default. Per-target region prefixes still override it.
func resolveRegion(cfg *config.Config) string {
	if regionFlag != "" {
		return regionFlag
	}
	if env := os.Getenv("AWS_REGION"); env != "" {
		return env
	}
	return cfg.DefaultRegion
}

func newGroupsCmd() *cobra.Command {
	var (
		prefix     string
		formatFlag string
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List available log groups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			pool := cloudwatch.NewClientPool(resolveProfile(cfg), resolveRegion(cfg))
			searcher := cloudwatch.NewSearcher(pool)

			groups, err := searcher.ListGroups(context.Background(), "", prefix)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, "No log groups found.") //nolint:errcheck
				return nil
			}

			switch strings.ToLower(formatFlag) {
			case "", "table":
				format.WriteGroupTable(out, groups)
			case "plain":
				for _, group := range groups {
					fmt.Fprintln(out, group) //nolint:errcheck
				}
			default:
				return fmt.Errorf("unsupported format: %s", formatFlag)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&prefix, "prefix", "p", "", "filter log groups by prefix")
	flags.StringVar(&formatFlag, "format", "table", "output format: table or plain")

	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.DefaultPath()
			contents, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "No config file found.")                  //nolint:errcheck
					fmt.Fprintln(cmd.OutOrStdout(), "Run 'logscout config init' to create one.") //nolint:errcheck
					return nil
				}
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(contents)) //nolint:errcheck
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultPath()) //nolint:errcheck
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Generate a sample configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.DefaultPath()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file already exists at %s", path)
			}
			if err := os.WriteFile(path, []byte(config.Sample()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", path) //nolint:errcheck
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "presets",
		Short: "List available presets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			names := cfg.PresetNames()
			if len(names) == 0 {
				fmt.Fprintln(out, "No presets configured.")                              //nolint:errcheck
				fmt.Fprintf(out, "Add presets to your config file (%s)\n", config.DefaultPath()) //nolint:errcheck
				return nil
			}

			fmt.Fprintln(out, "Available presets:") //nolint:errcheck
			fmt.Fprintln(out)                       //nolint:errcheck
			for _, name := range names {
				preset, _ := cfg.Preset(name)
				source := preset.Source
				if source == "" {
					source = "cloudwatch"
				}
				fmt.Fprintf(out, "  %s [%s] %s\n", name, source, preset.Description) //nolint:errcheck
				if preset.Source == "ssh" {
					if preset.DeployFile != "" {
						fmt.Fprintf(out, "    Deploy: %s\n", preset.DeployFile) //nolint:errcheck
					}
				} else if len(preset.Groups) > 0 {
					fmt.Fprintf(out, "    Groups: %s\n", strings.Join(preset.Groups, ", ")) //nolint:errcheck
				}
				if len(preset.Exclude) > 0 {
					fmt.Fprintf(out, "    Exclude: %s\n", strings.Join(preset.Exclude, ", ")) //nolint:errcheck
				}
				fmt.Fprintln(out) //nolint:errcheck
			}
			return nil
		},
	})

	return cmd
}
