package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"recolookup/app"
	"recolookup/domain/table"
	"recolookup/internal/config"
	"recolookup/internal/container"
	"recolookup/internal/logging"
	"recolookup/internal/testkit"
)

func main() {
	_ = godotenv.Load()
	logging.Init(logging.Config{Level: "info", Format: "console"})

	rootCmd := &cobra.Command{
		Use:   "recolookup-dev",
		Short: "Recommendation lookup development tools",
	}

	rootCmd.AddCommand(
		newSeedCmd(),
		newSmokeTestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	cfg := testkit.DefaultRecommendationConfig()
	var dir string
	var xlsx bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate sample recommendation tables",
		Long: `Write deterministic collaborative_filtering.csv and content_filtering.csv files
(and optionally recommendations.xlsx with one sheet per table) for local development.

Example: recolookup-dev seed --dir ./data --items 500 --seed 7 --xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateSeedData(cmd.OutOrStdout(), dir, cfg, xlsx)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./data", "Output directory")
	cmd.Flags().IntVar(&cfg.ItemCount, "items", cfg.ItemCount, "Number of items per table")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for deterministic output")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "Also write an xlsx workbook")

	return cmd
}

func newSmokeTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Load the configured tables and look up one key from each",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func generateSeedData(out io.Writer, dir string, cfg testkit.RecommendationGeneratorConfig, xlsx bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	collab, content := testkit.NewRecommendationGenerator(cfg).Generate()

	files := []struct {
		name  string
		table *table.Table
	}{
		{"collaborative_filtering.csv", collab},
		{"content_filtering.csv", content},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := testkit.WriteCSV(path, f.table); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(out, "wrote %s (%d rows)\n", path, f.table.Len())
	}

	if xlsx {
		path := filepath.Join(dir, "recommendations.xlsx")
		err := testkit.WriteXLSX(path,
			testkit.Sheet{Name: "Collaborative", Table: collab},
			testkit.Sheet{Name: "Content", Table: content},
		)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}

func runSmokeTests(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := container.New(cfg)
	if err != nil {
		return err
	}
	if err := c.LoadTables(ctx); err != nil {
		return fmt.Errorf("smoke test failed: %w", err)
	}

	failed := 0
	for _, name := range []string{app.CollaborativeTable, app.ContentTable} {
		t, err := c.Recommendations.Table(name)
		if err != nil {
			return err
		}
		if t.Len() == 0 {
			fmt.Fprintf(out, "SKIP %s: table is empty\n", name)
			continue
		}

		b, _ := c.Recommendations.Binding(name)
		key, _ := t.Records[0].Get(b.KeyField)
		res := c.Recommendations.Search(ctx, key)

		panel := res.Collaborative
		if name == app.ContentTable {
			panel = res.Content
		}
		if !panel.Found {
			fmt.Fprintf(out, "FAIL %s: first key %q not found\n", name, key)
			failed++
			continue
		}
		fmt.Fprintf(out, "PASS %s: %q -> %v\n", name, key, panel.Values)
	}

	if failed > 0 {
		return fmt.Errorf("%d smoke checks failed", failed)
	}
	return nil
}
