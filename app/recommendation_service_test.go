package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"recolookup/domain/table"
	"recolookup/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockTableSource is a testify mock of ports.TableSource
type MockTableSource struct {
	mock.Mock
	location string
}

func (m *MockTableSource) Name() string     { return "mock" }
func (m *MockTableSource) Location() string { return m.location }

func (m *MockTableSource) Load(ctx context.Context) (*table.Table, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).(*table.Table)
	return t, args.Error(1)
}

func collabTable() *table.Table {
	return table.New(CollaborativeTable,
		[]string{"self", "a", "b", "c", "d", "e", "f", "g"},
		[][]string{
			{"42", "x", "y", "1", "2", "3", "4", "5"},
			{"7", "x", "y", "6", "7", "8", "9", "10"},
		})
}

func contentTable() *table.Table {
	return table.New(ContentTable,
		[]string{"item_id", "title", "r1", "r2", "r3", "r4", "r5"},
		[][]string{
			{"7", "Heat", "11", "12", "13", "14", "15"},
		})
}

func newLoadedService(t *testing.T, collabSel, contentSel table.FeatureSelector) *RecommendationService {
	t.Helper()
	collab := &MockTableSource{location: "collab.csv"}
	collab.On("Load", mock.Anything).Return(collabTable(), nil)
	content := &MockTableSource{location: "content.csv"}
	content.On("Load", mock.Anything).Return(contentTable(), nil)

	svc := NewRecommendationService(
		CollaborativeBinding(collab, "self", collabSel),
		ContentBinding(content, "item_id", contentSel),
	)
	require.NoError(t, svc.LoadTables(context.Background()))
	collab.AssertExpectations(t)
	content.AssertExpectations(t)
	return svc
}

func TestSearchFoundInBoth(t *testing.T) {
	svc := newLoadedService(t, table.DefaultSelector, table.DefaultSelector)

	res := svc.Search(context.Background(), "7")
	assert.False(t, res.ID.String() == "")
	assert.True(t, res.Collaborative.Found)
	assert.Equal(t, []string{"y", "6", "7", "8", "9"}, res.Collaborative.Values)
	assert.True(t, res.Content.Found)
	assert.Equal(t, []string{"11", "12", "13", "14", "15"}, res.Content.Values)
	assert.Empty(t, res.Messages)
}

func TestSearchOnlyInCollaborative(t *testing.T) {
	svc := newLoadedService(t, table.NamedSelector{Columns: []string{"c", "d", "e", "f", "g"}}, table.DefaultSelector)

	res := svc.Search(context.Background(), "42")
	assert.True(t, res.Collaborative.Found)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, res.Collaborative.Values)
	assert.False(t, res.Content.Found)
	assert.True(t, res.Content.Available)
	assert.Empty(t, res.Content.Values)
	assert.Equal(t, []string{"Item ID not found in content filtering."}, res.Messages)
}

func TestSearchMissingEverywhere(t *testing.T) {
	svc := newLoadedService(t, table.DefaultSelector, table.DefaultSelector)

	res := svc.Search(context.Background(), "999")
	assert.False(t, res.Collaborative.Found)
	assert.False(t, res.Content.Found)
	assert.Equal(t, []string{
		"Item ID not found in collaborative filtering.",
		"Item ID not found in content filtering.",
	}, res.Messages)
}

func TestSearchIsIdempotentAndFresh(t *testing.T) {
	svc := newLoadedService(t, table.DefaultSelector, table.DefaultSelector)

	first := svc.Search(context.Background(), "42")
	second := svc.Search(context.Background(), "42")
	assert.Equal(t, first.Collaborative, second.Collaborative)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.Messages, second.Messages)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestLoadFailureIsSurfacedSeparately(t *testing.T) {
	collab := &MockTableSource{location: "https://cdn.example.com/collab.csv"}
	collab.On("Load", mock.Anything).Return(nil, errors.LoadFailed("https://cdn.example.com/collab.csv", fmt.Errorf("status 503")))
	content := &MockTableSource{location: "content.csv"}
	content.On("Load", mock.Anything).Return(contentTable(), nil)

	svc := NewRecommendationService(
		CollaborativeBinding(collab, "self", table.DefaultSelector),
		ContentBinding(content, "item_id", table.DefaultSelector),
	)

	err := svc.LoadTables(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeLoadFailed, errors.GetCode(err))
	assert.False(t, svc.Ready())

	status := svc.Status()
	require.Len(t, status, 2)
	assert.Equal(t, StatusFailed, status[0].Status)
	assert.Equal(t, errors.CodeLoadFailed, status[0].ErrorCode)
	assert.Error(t, status[0].Err())
	assert.Equal(t, StatusLoaded, status[1].Status, "one failed load must not cancel the other")
	assert.Equal(t, 1, status[1].Rows)

	res := svc.Search(context.Background(), "7")
	assert.False(t, res.Collaborative.Found)
	assert.False(t, res.Collaborative.Available)
	assert.True(t, res.Content.Found)
	assert.Equal(t, []string{"Collaborative filtering data unavailable."}, res.Messages)

	_, err = svc.Table(CollaborativeTable)
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	narrow := table.New("collaborative", []string{"self", "a"}, [][]string{{"1", "2"}})
	collab := &MockTableSource{}
	collab.On("Load", mock.Anything).Return(narrow, nil)
	content := &MockTableSource{}
	content.On("Load", mock.Anything).Return(contentTable(), nil)

	svc := NewRecommendationService(
		CollaborativeBinding(collab, "self", table.DefaultSelector),
		ContentBinding(content, "item_id", table.DefaultSelector),
	)
	require.Error(t, svc.LoadTables(context.Background()))
	assert.Equal(t, errors.CodeSchemaInvalid, svc.Status()[0].ErrorCode)
}

func TestSearchBeforeLoad(t *testing.T) {
	svc := NewRecommendationService(
		CollaborativeBinding(&MockTableSource{}, "self", nil),
		ContentBinding(&MockTableSource{}, "item_id", nil),
	)

	res := svc.Search(context.Background(), "42")
	assert.False(t, res.Collaborative.Found)
	assert.False(t, res.Content.Found)
	assert.Len(t, res.Messages, 2)
	assert.Equal(t, StatusPending, svc.Status()[0].Status)
}

func TestLoadTablesOnlyOnce(t *testing.T) {
	svc := newLoadedService(t, table.DefaultSelector, table.DefaultSelector)
	assert.Error(t, svc.LoadTables(context.Background()))
	assert.True(t, svc.Ready())
}

func TestLoadTablesRunsConcurrently(t *testing.T) {
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	collab := &MockTableSource{}
	collab.On("Load", mock.Anything).Run(func(mock.Arguments) {
		started.Done()
		<-release
	}).Return(collabTable(), nil)
	content := &MockTableSource{}
	content.On("Load", mock.Anything).Run(func(mock.Arguments) {
		started.Done()
		<-release
	}).Return(contentTable(), nil)

	svc := NewRecommendationService(
		CollaborativeBinding(collab, "self", nil),
		ContentBinding(content, "item_id", nil),
	)

	done := make(chan error, 1)
	go func() { done <- svc.LoadTables(context.Background()) }()

	waited := make(chan struct{})
	go func() {
		started.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("loads did not run concurrently")
	}
	close(release)
	require.NoError(t, <-done)
}

func TestSearchConcurrentReaders(t *testing.T) {
	svc := newLoadedService(t, table.DefaultSelector, table.DefaultSelector)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := svc.Search(context.Background(), "7")
			assert.True(t, res.Collaborative.Found)
		}()
	}
	wg.Wait()
}

func TestTableLookupByName(t *testing.T) {
	svc := newLoadedService(t, table.DefaultSelector, table.DefaultSelector)

	tbl, err := svc.Table(ContentTable)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	_, err = svc.Table("ratings")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	b, ok := svc.Binding(CollaborativeTable)
	assert.True(t, ok)
	assert.Equal(t, "self", b.KeyField)
}
