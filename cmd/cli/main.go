package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"recolookup/app"
	"recolookup/internal/config"
	"recolookup/internal/container"
	"recolookup/internal/logging"
	"recolookup/internal/profiling"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	collab   string
	content  string
	jsonOut  bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "recolookup",
		Short:         "Look up items in the recommendation tables from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.collab, "collab", "", "Collaborative filtering table location (default $COLLAB_TABLE_PATH)")
	rootCmd.PersistentFlags().StringVar(&opts.content, "content", "", "Content filtering table location (default $CONTENT_TABLE_PATH)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	rootCmd.AddCommand(
		newLookupCmd(opts),
		newTablesCmd(opts),
	)

	return rootCmd
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [item-id]",
		Short: "Show both tables' recommendations for one item",
		Long: `Load both recommendation tables and print the feature values stored for an item.

Example: recolookup lookup 42 --collab data/collab.csv --content data/content.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result := c.Recommendations.Search(cmd.Context(), args[0])
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newTablesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show load status and column profiles of both tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			outcomes := c.Recommendations.Status()
			profiles := make([]profiling.TableProfile, 0, len(outcomes))
			for _, o := range outcomes {
				t, err := c.Recommendations.Table(o.Table)
				if err != nil {
					continue
				}
				profiles = append(profiles, profiling.ProfileTable(t))
			}

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"tables":   outcomes,
					"profiles": profiles,
				})
			}
			printTables(cmd.OutOrStdout(), outcomes, profiles)
			return nil
		},
	}
}

// loadContainer builds the container from env config plus flag overrides and loads both tables.
// Load failures are not fatal: they show up as unavailable in the output.
func loadContainer(ctx context.Context, opts *rootOptions, stderr io.Writer) (*container.Container, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.collab != "" {
		cfg.Tables.Collaborative.Location = opts.collab
	}
	if opts.content != "" {
		cfg.Tables.Content.Location = opts.content
	}

	logging.Init(logging.Config{Level: opts.logLevel, Format: "console", Output: stderr})

	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.LoadTables(ctx); err != nil {
		logging.Warn().Err(err).Msg("some tables failed to load")
	}
	return c, nil
}

func printResult(w io.Writer, result app.SearchResult) {
	fmt.Fprintf(w, "Item ID: %s\n\n", result.Key)
	printPanel(w, "Collaborative Filtering Results", result.Collaborative)
	printPanel(w, "Content Filtering Results", result.Content)

	for _, msg := range result.Messages {
		fmt.Fprintf(w, "! %s\n", msg)
	}
}

func printPanel(w io.Writer, title string, p app.Panel) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
	if !p.Found {
		fmt.Fprint(w, "No results found.\n\n")
		return
	}
	for i, v := range p.Values {
		fmt.Fprintf(w, "%d. %s\n", i+1, v)
	}
	fmt.Fprintln(w)
}

func printTables(w io.Writer, outcomes []app.LoadOutcome, profiles []profiling.TableProfile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tSTATUS\tROWS\tCOLUMNS\tSOURCE\tERROR")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", o.Table, o.Status, o.Rows, o.Columns, o.Source, o.Error)
	}
	tw.Flush()

	for _, p := range profiles {
		fmt.Fprintf(w, "\n%s columns\n", p.Name)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tNAME\tNON-EMPTY\tUNIQUE\tNUMERIC\tMIN\tMAX\tMEAN")
		for _, c := range p.Columns {
			if c.Summary != nil {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\tyes\t%g\t%g\t%.3f\n",
					c.Position, c.Name, c.NonEmpty, c.UniqueCount, c.Summary.Min, c.Summary.Max, c.Summary.Mean)
				continue
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\tno\t\t\t\n", c.Position, c.Name, c.NonEmpty, c.UniqueCount)
		}
		tw.Flush()
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
