package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recolookup/adapters/tabular"
	"recolookup/domain/table"
	"recolookup/internal/logging"
	"recolookup/internal/migration"
)

func main() {
	logging.Init(logging.Config{Level: "info", Format: "console"})

	if err := newMigrateCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newMigrateCmd() *cobra.Command {
	var replace bool
	var keyField string

	cmd := &cobra.Command{
		Use:   "migrate [source-location] [database-location]",
		Short: "Copy a recommendation table into SQLite or PostgreSQL",
		Long: `Load a table from a CSV, XLSX or URL location and write it into a database table,
so the server can read it from a sqlite:// or postgres:// location.

Example: migrate data/content_filtering.csv "sqlite://data/recs.db?table=content" --key item_id --replace`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), args[0], args[1], keyField, replace)
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Drop the target table first if it exists")
	cmd.Flags().StringVar(&keyField, "key", "self", "Key column the source must contain")

	return cmd
}

func runMigrate(ctx context.Context, source, target, keyField string, replace bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.With("migrate")

	t, err := tabular.NewDataReader("import", source, tabular.Options{
		KeyField: keyField,
		// empty range: no minimum width beyond the key column
		Selector: table.PositionalSelector{},
	}).Load(ctx)
	if err != nil {
		return err
	}

	db, name, err := tabular.ConnectSQL(ctx, target)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := migration.NewTableImporter(db).Import(ctx, name, t, migration.Options{Replace: replace})
	if err != nil {
		return err
	}

	log.Info().Str("source", source).Str("table", name).Int("rows", n).Int("columns", len(t.Headers)).Msg("table imported")
	return nil
}
