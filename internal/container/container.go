package container

import (
	"context"
	"fmt"
	"net/http"

	"recolookup/adapters/tabular"
	"recolookup/app"
	"recolookup/domain/table"
	"recolookup/internal/config"
	"recolookup/internal/logging"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config

	// Infrastructure
	HTTPClient *http.Client

	// Table sources
	CollaborativeSource *tabular.DataReader
	ContentSource       *tabular.DataReader

	// Services
	Recommendations *app.RecommendationService
}

// New creates a new dependency injection container. Tables are not loaded until LoadTables.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: cfg.HTTP.Timeout},
	}

	tables := cfg.Tables
	collabSel := Selector(tables.Collaborative, tables)
	contentSel := Selector(tables.Content, tables)

	c.CollaborativeSource = tabular.NewDataReader(app.CollaborativeTable, tables.Collaborative.Location, tabular.Options{
		KeyField:   tables.Collaborative.KeyField,
		Selector:   collabSel,
		HTTPClient: c.HTTPClient,
	})
	c.ContentSource = tabular.NewDataReader(app.ContentTable, tables.Content.Location, tabular.Options{
		KeyField:   tables.Content.KeyField,
		Selector:   contentSel,
		HTTPClient: c.HTTPClient,
	})

	c.Recommendations = app.NewRecommendationService(
		app.CollaborativeBinding(c.CollaborativeSource, tables.Collaborative.KeyField, collabSel),
		app.ContentBinding(c.ContentSource, tables.Content.KeyField, contentSel),
	)

	return c, nil
}

// Selector returns named selection when the table lists feature columns,
// otherwise the configured positional range
func Selector(tc config.TableConfig, tables config.TablesConfig) table.FeatureSelector {
	if len(tc.FeatureColumns) > 0 {
		return table.NamedSelector{Columns: tc.FeatureColumns}
	}
	return table.PositionalSelector{Start: tables.FeatureStart, End: tables.FeatureEnd}
}

// LoadTables loads both tables within the configured load timeout.
// Failures are logged and returned; the service keeps serving whatever loaded.
func (c *Container) LoadTables(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.Config.Tables.LoadTimeout)
	defer cancel()

	err := c.Recommendations.LoadTables(ctx)

	log := logging.With("container")
	for _, o := range c.Recommendations.Status() {
		if o.Status == app.StatusLoaded {
			log.Info().
				Str("table", o.Table).
				Str("source", o.Source).
				Int("rows", o.Rows).
				Int("columns", o.Columns).
				Int64("duration_ms", o.DurationMs).
				Msg("table loaded")
		}
	}
	return err
}
