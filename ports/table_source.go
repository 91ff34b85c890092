package ports

import (
	"context"

	"recolookup/domain/table"
)

// TableSource fetches one recommendation table
type TableSource interface {
	Name() string
	Location() string
	// Load returns the parsed table or an error carrying LOAD_FAILED or SCHEMA_INVALID
	Load(ctx context.Context) (*table.Table, error)
}
