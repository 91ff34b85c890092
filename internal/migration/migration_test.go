package migration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recolookup/adapters/tabular"
	"recolookup/domain/table"
	"recolookup/internal/errors"
)

func openSQLite(t *testing.T) (*sqlx.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recs.db")
	db, err := sqlx.Connect("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestImportRoundTrip(t *testing.T) {
	db, path := openSQLite(t)

	src := table.New("collaborative",
		[]string{"self", "a", "b", "c", "d", "e", "f", "g"},
		[][]string{
			{"42", "x", "y", "1", "2", "3", "4", "5"},
			{"7", "x", "y", "", "it's", "8", "9", "10"},
		})

	n, err := NewTableImporter(db).Import(context.Background(), "collab", src, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := tabular.NewDataReader("collaborative", "sqlite://"+path+"?table=collab", tabular.Options{KeyField: "self"}).
		Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, src.Headers, loaded.Headers)

	res := table.Lookup("7", loaded, "self", table.DefaultSelector)
	assert.Equal(t, []string{"y", "", "it's", "8", "9"}, res.Values)
}

func TestImportReplace(t *testing.T) {
	db, _ := openSQLite(t)
	imp := NewTableImporter(db)
	src := table.New("content", []string{"item_id", "title"}, [][]string{{"1", "Heat"}})

	_, err := imp.Import(context.Background(), "content", src, Options{})
	require.NoError(t, err)

	_, err = imp.Import(context.Background(), "content", src, Options{})
	assert.Error(t, err, "table already exists")

	_, err = imp.Import(context.Background(), "content", src, Options{Replace: true})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM content"))
	assert.Equal(t, 1, count)
}

func TestImportRejectsBadInput(t *testing.T) {
	db, _ := openSQLite(t)
	imp := NewTableImporter(db)

	_, err := imp.Import(context.Background(), "x; DROP TABLE y", table.New("t", []string{"a"}, nil), Options{})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = imp.Import(context.Background(), "t", nil, Options{})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestColumnNames(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    []string
	}{
		{
			name:    "blank and case-insensitive repeats",
			headers: []string{"self", " ", "score", "Score", "say \"hi\""},
			want:    []string{"self", "column_2", "score", "Score_2", "say \"hi\""},
		},
		{
			name:    "suffix already taken by a later header",
			headers: []string{"a", "a", "a_2"},
			want:    []string{"a", "a_3", "a_2"},
		},
		{
			name:    "suffix already taken by an earlier header",
			headers: []string{"a", "a_2", "a"},
			want:    []string{"a", "a_2", "a_3"},
		},
		{
			name:    "blank name matches a real header",
			headers: []string{"x", "y", "", "column_3"},
			want:    []string{"x", "y", "column_4", "column_3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, columnNames(tt.headers))
		})
	}
}

func TestImportCollidingHeaders(t *testing.T) {
	db, _ := openSQLite(t)
	src := table.New("content", []string{"item_id", "a", "a", "a_2", "", "column_5"},
		[][]string{{"1", "p", "q", "r", "s", "t"}})

	n, err := NewTableImporter(db).Import(context.Background(), "content", src, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM content"))
	assert.Equal(t, 1, count)
}
