package profiling

import (
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"recolookup/domain/table"
)

// NumericSummary holds summary statistics for a numeric column
type NumericSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// ColumnProfile describes one column of a loaded table
type ColumnProfile struct {
	Name        string          `json:"name"`
	Position    int             `json:"position"`
	NonEmpty    int             `json:"non_empty"`
	UniqueCount int             `json:"unique_count"`
	Numeric     bool            `json:"numeric"`
	Summary     *NumericSummary `json:"summary,omitempty"`
}

// TableProfile describes a loaded table
type TableProfile struct {
	Name    string          `json:"name"`
	Rows    int             `json:"rows"`
	Columns []ColumnProfile `json:"columns"`
}

// ProfileTable profiles every column. A column is numeric when all of its
// non-empty cells parse as floats.
func ProfileTable(t *table.Table) TableProfile {
	profile := TableProfile{
		Name:    t.Name,
		Rows:    t.Len(),
		Columns: make([]ColumnProfile, 0, len(t.Headers)),
	}

	for pos, name := range t.Headers {
		profile.Columns = append(profile.Columns, profileColumn(t, pos, name))
	}
	return profile
}

func profileColumn(t *table.Table, pos int, name string) ColumnProfile {
	col := ColumnProfile{Name: name, Position: pos}

	unique := make(map[string]struct{})
	values := make(stats.Float64Data, 0, t.Len())
	numeric := true

	for _, r := range t.Records {
		cell := strings.TrimSpace(r.Values()[pos])
		if cell == "" {
			continue
		}
		col.NonEmpty++
		unique[cell] = struct{}{}

		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(cell, 64)
		// NaN and Inf parse but cannot be summarised or JSON encoded
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			numeric = false
			continue
		}
		values = append(values, f)
	}
	col.UniqueCount = len(unique)

	if !numeric || len(values) == 0 {
		return col
	}
	summary, err := summarize(values)
	if err != nil {
		return col
	}
	col.Numeric = true
	col.Summary = summary
	return col
}

func summarize(data stats.Float64Data) (*NumericSummary, error) {
	min, err := data.Min()
	if err != nil {
		return nil, err
	}
	max, err := data.Max()
	if err != nil {
		return nil, err
	}
	mean, err := data.Mean()
	if err != nil {
		return nil, err
	}
	median, err := data.Median()
	if err != nil {
		return nil, err
	}
	stdDev, err := data.StandardDeviation()
	if err != nil {
		return nil, err
	}
	return &NumericSummary{Min: min, Max: max, Mean: mean, Median: median, StdDev: stdDev}, nil
}
