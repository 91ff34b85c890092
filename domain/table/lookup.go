package table

import (
	"fmt"
	"strings"
)

// Result is the outcome of a join-key search against one table
type Result struct {
	Found  bool     `json:"found"`
	Values []string `json:"values,omitempty"`
}

// NotFound is the zero Result
var NotFound = Result{}

// FeatureSelector picks the values a matching record exposes
type FeatureSelector interface {
	Select(r Record) []string
	// Check reports why t cannot be used with this selector, or nil
	Check(t *Table) error
	String() string
}

// PositionalSelector exposes values [Start, End) in header order.
// The first two columns of the recommendation tables are identifiers, hence the default 2..7.
type PositionalSelector struct {
	Start int
	End   int
}

// DefaultSelector mirrors the published recommendation table layout
var DefaultSelector = PositionalSelector{Start: 2, End: 7}

// Select clamps to the record's width so it never panics
func (s PositionalSelector) Select(r Record) []string {
	start, end := s.Start, s.End
	if end > r.Len() {
		end = r.Len()
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return []string{}
	}
	return append([]string(nil), r.values[start:end]...)
}

func (s PositionalSelector) Check(t *Table) error {
	if len(t.Headers) < s.End {
		return fmt.Errorf("table %q has %d columns, positions [%d,%d) need at least %d",
			t.Name, len(t.Headers), s.Start, s.End, s.End)
	}
	return nil
}

func (s PositionalSelector) String() string {
	return fmt.Sprintf("positions[%d:%d]", s.Start, s.End)
}

// NamedSelector exposes the listed columns, in list order
type NamedSelector struct {
	Columns []string
}

func (s NamedSelector) Select(r Record) []string {
	values := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		v, _ := r.Get(col)
		values = append(values, v)
	}
	return values
}

func (s NamedSelector) Check(t *Table) error {
	var missing []string
	for _, col := range s.Columns {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %q is missing feature columns: %s", t.Name, strings.Join(missing, ", "))
	}
	return nil
}

func (s NamedSelector) String() string {
	return "columns[" + strings.Join(s.Columns, ",") + "]"
}

// Lookup scans t in order and returns the selected values of the first record
// whose keyField equals key exactly. Nil or empty tables yield NotFound.
func Lookup(key string, t *Table, keyField string, selector FeatureSelector) Result {
	if t == nil || !t.HasColumn(keyField) {
		return NotFound
	}
	if selector == nil {
		selector = DefaultSelector
	}
	for _, r := range t.Records {
		if v, _ := r.Get(keyField); v == key {
			return Result{Found: true, Values: selector.Select(r)}
		}
	}
	return NotFound
}

// Validate checks that t carries keyField and satisfies selector
func Validate(t *Table, keyField string, selector FeatureSelector) error {
	if t == nil {
		return fmt.Errorf("table is nil")
	}
	if !t.HasColumn(keyField) {
		return fmt.Errorf("table %q has no key column %q", t.Name, keyField)
	}
	if selector == nil {
		selector = DefaultSelector
	}
	return selector.Check(t)
}
