package app

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"recolookup/domain/core"
	"recolookup/domain/table"
	"recolookup/internal/errors"
	"recolookup/internal/logging"
	"recolookup/internal/metrics"
	"recolookup/ports"
)

// Table names used across the API, metrics and logs
const (
	CollaborativeTable = "collaborative"
	ContentTable       = "content"
)

// LoadStatus is the lifecycle state of one table
type LoadStatus string

const (
	StatusPending LoadStatus = "pending"
	StatusLoaded  LoadStatus = "loaded"
	StatusFailed  LoadStatus = "failed"
)

// LoadOutcome records how a table load ended
type LoadOutcome struct {
	Table      string     `json:"table"`
	Source     string     `json:"source"`
	Status     LoadStatus `json:"status"`
	Rows       int        `json:"rows"`
	Columns    int        `json:"columns"`
	Error      string     `json:"error,omitempty"`
	ErrorCode  string     `json:"error_code,omitempty"`
	LoadedAt   time.Time  `json:"loaded_at,omitempty"`
	DurationMs int64      `json:"duration_ms"`

	err error
}

// Err returns the load error, if any
func (o LoadOutcome) Err() error { return o.err }

// TableBinding ties a source to its join key, feature selection and user-facing label
type TableBinding struct {
	Name     string
	Label    string
	Source   ports.TableSource
	KeyField string
	Selector table.FeatureSelector
}

// NotFoundMessage is shown when the key is absent from a loaded table
func (b TableBinding) NotFoundMessage() string {
	return "Item ID not found in " + b.Label + "."
}

// UnavailableMessage is shown when the table never loaded
func (b TableBinding) UnavailableMessage() string {
	if b.Label == "" {
		return "Data unavailable."
	}
	return strings.ToUpper(b.Label[:1]) + b.Label[1:] + " data unavailable."
}

// CollaborativeBinding binds the collaborative-filtering table
func CollaborativeBinding(src ports.TableSource, keyField string, selector table.FeatureSelector) TableBinding {
	return TableBinding{
		Name:     CollaborativeTable,
		Label:    "collaborative filtering",
		Source:   src,
		KeyField: keyField,
		Selector: selector,
	}
}

// ContentBinding binds the content-filtering table
func ContentBinding(src ports.TableSource, keyField string, selector table.FeatureSelector) TableBinding {
	return TableBinding{
		Name:     ContentTable,
		Label:    "content filtering",
		Source:   src,
		KeyField: keyField,
		Selector: selector,
	}
}

// Panel is one table's share of a search result
type Panel struct {
	Table     string   `json:"table"`
	Available bool     `json:"available"`
	Found     bool     `json:"found"`
	Values    []string `json:"values"`
}

// SearchResult is the complete, immutable answer to one search action
type SearchResult struct {
	ID            core.SearchID `json:"id"`
	Key           string        `json:"key"`
	Collaborative Panel         `json:"collaborative"`
	Content       Panel         `json:"content"`
	Messages      []string      `json:"messages"`
	SearchedAt    time.Time     `json:"searched_at"`
}

// RecommendationService owns both recommendation tables for the life of the process.
// Tables are loaded once by LoadTables and only read afterwards.
type RecommendationService struct {
	bindings [2]TableBinding

	mu       sync.RWMutex
	started  bool
	tables   map[string]*table.Table
	outcomes map[string]LoadOutcome

	now func() time.Time
}

// NewRecommendationService creates a service; tables stay pending until LoadTables
func NewRecommendationService(collab, content TableBinding) *RecommendationService {
	s := &RecommendationService{
		bindings: [2]TableBinding{collab, content},
		tables:   make(map[string]*table.Table, 2),
		outcomes: make(map[string]LoadOutcome, 2),
		now:      time.Now,
	}
	for _, b := range s.bindings {
		s.outcomes[b.Name] = LoadOutcome{Table: b.Name, Source: sourceLocation(b.Source), Status: StatusPending}
	}
	return s
}

func sourceLocation(src ports.TableSource) string {
	if src == nil {
		return ""
	}
	return src.Location()
}

// LoadTables loads both tables concurrently. A failure in one does not stop the other;
// every failure is recorded in Status and joined into the returned error.
func (s *RecommendationService) LoadTables(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.InternalError("tables already loaded")
	}
	s.started = true
	s.mu.Unlock()

	log := logging.With("recommendation")

	var (
		g        errgroup.Group
		loaded   [2]*table.Table
		outcomes [2]LoadOutcome
	)
	for i, b := range s.bindings {
		g.Go(func() error {
			loaded[i], outcomes[i] = s.loadOne(ctx, b)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	s.mu.Lock()
	for i, b := range s.bindings {
		s.outcomes[b.Name] = outcomes[i]
		if loaded[i] != nil {
			s.tables[b.Name] = loaded[i]
		}
		if outcomes[i].err != nil {
			errs = append(errs, outcomes[i].err)
		}
	}
	s.mu.Unlock()

	for _, o := range outcomes {
		if o.err != nil {
			log.Error().Err(o.err).Str("table", o.Table).Str("source", o.Source).Str("code", o.ErrorCode).Msg("table load failed")
		}
	}
	return stderrors.Join(errs...)
}

func (s *RecommendationService) loadOne(ctx context.Context, b TableBinding) (*table.Table, LoadOutcome) {
	outcome := LoadOutcome{Table: b.Name, Source: sourceLocation(b.Source)}
	start := s.now()

	var (
		t   *table.Table
		err error
	)
	if b.Source == nil {
		err = errors.ConfigInvalid("no source configured for " + b.Name)
	} else {
		t, err = b.Source.Load(ctx)
	}
	if err == nil {
		// the binding's key and selector must hold regardless of what the source checked
		if verr := table.Validate(t, b.KeyField, b.Selector); verr != nil {
			err = errors.SchemaInvalid(verr.Error())
			t = nil
		}
	}

	elapsed := s.now().Sub(start)
	outcome.DurationMs = elapsed.Milliseconds()
	metrics.RecordTableLoad(b.Name, t.Len(), elapsed, err)

	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		outcome.ErrorCode = errors.GetCode(err)
		outcome.err = errors.Wrapf(err, "%s table", b.Name)
		return nil, outcome
	}

	outcome.Status = StatusLoaded
	outcome.Rows = t.Len()
	outcome.Columns = len(t.Headers)
	outcome.LoadedAt = s.now()
	return t, outcome
}

// Search runs the key against both tables and gathers one message per miss
func (s *RecommendationService) Search(ctx context.Context, key string) SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := SearchResult{
		ID:         core.NewSearchID(),
		Key:        key,
		Messages:   []string{},
		SearchedAt: s.now(),
	}

	panels := [2]*Panel{&result.Collaborative, &result.Content}
	for i, b := range s.bindings {
		panel, msg := s.searchTable(b, key)
		*panels[i] = panel
		if msg != "" {
			result.Messages = append(result.Messages, msg)
		}
	}

	logging.Ctx(ctx).Debug().
		Str("search_id", result.ID.String()).
		Str("key", key).
		Bool("collaborative_found", result.Collaborative.Found).
		Bool("content_found", result.Content.Found).
		Msg("search completed")

	return result
}

// searchTable must be called with s.mu held for reading
func (s *RecommendationService) searchTable(b TableBinding, key string) (Panel, string) {
	panel := Panel{Table: b.Name, Values: []string{}}

	t, ok := s.tables[b.Name]
	if !ok {
		metrics.RecordSearch(b.Name, metrics.OutcomeUnavailable)
		return panel, b.UnavailableMessage()
	}
	panel.Available = true

	res := table.Lookup(key, t, b.KeyField, b.Selector)
	if !res.Found {
		metrics.RecordSearch(b.Name, metrics.OutcomeNotFound)
		return panel, b.NotFoundMessage()
	}

	metrics.RecordSearch(b.Name, metrics.OutcomeFound)
	panel.Found = true
	panel.Values = res.Values
	return panel, ""
}

// Status returns both load outcomes, collaborative first
func (s *RecommendationService) Status() []LoadOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LoadOutcome, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, s.outcomes[b.Name])
	}
	return out
}

// Ready reports whether both tables loaded
func (s *RecommendationService) Ready() bool {
	for _, o := range s.Status() {
		if o.Status != StatusLoaded {
			return false
		}
	}
	return true
}

// Table returns a loaded table by name
func (s *RecommendationService) Table(name string) (*table.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, known := s.outcomes[name]; !known {
		return nil, errors.NotFound("table " + name)
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, errors.Unavailable("table " + name)
	}
	return t, nil
}

// Binding returns the binding registered under name
func (s *RecommendationService) Binding(name string) (TableBinding, bool) {
	for _, b := range s.bindings {
		if b.Name == name {
			return b, true
		}
	}
	return TableBinding{}, false
}
