package table

// Table is an ordered, read-only sequence of records sharing one header
type Table struct {
	Name    string
	Headers []string
	Records []Record

	index map[string]int
}

// Record is one row of a Table. Values are kept in header order.
type Record struct {
	values []string
	index  map[string]int
}

// New builds a Table from a header row and raw data rows.
// Short rows are padded with "" and cells beyond the header are dropped.
// With duplicate header names the first occurrence owns the name.
func New(name string, headers []string, rows [][]string) *Table {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, exists := index[h]; !exists {
			index[h] = i
		}
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		values := make([]string, len(headers))
		copy(values, row)
		records = append(records, Record{values: values, index: index})
	}

	return &Table{
		Name:    name,
		Headers: append([]string(nil), headers...),
		Records: records,
		index:   index,
	}
}

// Len returns the number of records; nil tables are empty
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether the header contains name
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of name in the header, or -1
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Get returns the value stored under column name
func (r Record) Get(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok || i >= len(r.values) {
		return "", false
	}
	return r.values[i], true
}

// Values returns a copy of the record's cells in header order
func (r Record) Values() []string {
	return append([]string(nil), r.values...)
}

// Len returns the number of cells
func (r Record) Len() int {
	return len(r.values)
}

// Map returns the record as column name to value
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.index))
	for name, i := range r.index {
		m[name] = r.values[i]
	}
	return m
}
