package testkit

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"recolookup/domain/table"
)

// RecommendationGeneratorConfig configures the sample table generator
type RecommendationGeneratorConfig struct {
	ItemCount       int   `json:"item_count"`
	GenreCount      int   `json:"genre_count"`
	Recommendations int   `json:"recommendations"`
	Seed            int64 `json:"seed"`
}

// DefaultRecommendationConfig returns defaults matching the published table layout
func DefaultRecommendationConfig() RecommendationGeneratorConfig {
	return RecommendationGeneratorConfig{
		ItemCount:       200,
		GenreCount:      8,
		Recommendations: 5,
		Seed:            42,
	}
}

var genres = []string{"drama", "comedy", "thriller", "sci-fi", "horror", "romance", "documentary", "animation"}

// RecommendationGenerator builds deterministic collaborative and content tables
type RecommendationGenerator struct {
	config RecommendationGeneratorConfig
	rng    *rand.Rand
}

// NewRecommendationGenerator creates a new generator
func NewRecommendationGenerator(config RecommendationGeneratorConfig) *RecommendationGenerator {
	if config.GenreCount <= 0 || config.GenreCount > len(genres) {
		config.GenreCount = len(genres)
	}
	if config.Recommendations <= 0 {
		config.Recommendations = 5
	}
	return &RecommendationGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

type sampleItem struct {
	id    string
	title string
	genre int
	score float64
}

// Generate returns the collaborative table (key "self") and the content table (key "item_id").
// Both put the title at position 1 and the recommendations from position 2 on.
func (g *RecommendationGenerator) Generate() (*table.Table, *table.Table) {
	items := make([]sampleItem, g.config.ItemCount)
	for i := range items {
		genre := g.rng.Intn(g.config.GenreCount)
		items[i] = sampleItem{
			id:    strconv.Itoa(i + 1),
			title: fmt.Sprintf("%s title %03d", genres[genre], i+1),
			genre: genre,
			score: g.rng.Float64(),
		}
	}

	recHeaders := make([]string, g.config.Recommendations)
	for i := range recHeaders {
		recHeaders[i] = fmt.Sprintf("rec_%d", i+1)
	}

	collabRows := make([][]string, 0, len(items))
	contentRows := make([][]string, 0, len(items))
	for _, it := range items {
		collabRows = append(collabRows, append([]string{it.id, it.title}, g.collaborative(it, items)...))
		contentRows = append(contentRows, append([]string{it.id, it.title}, g.content(it, items)...))
	}

	collab := table.New("collaborative", append([]string{"self", "title"}, recHeaders...), collabRows)
	content := table.New("content", append([]string{"item_id", "title"}, recHeaders...), contentRows)
	return collab, content
}

// collaborative picks random co-watched items
func (g *RecommendationGenerator) collaborative(it sampleItem, items []sampleItem) []string {
	out := make([]string, 0, g.config.Recommendations)
	for _, idx := range g.rng.Perm(len(items)) {
		if len(out) == g.config.Recommendations {
			break
		}
		if items[idx].id == it.id {
			continue
		}
		out = append(out, items[idx].id)
	}
	return pad(out, g.config.Recommendations)
}

// content picks same-genre items closest in score
func (g *RecommendationGenerator) content(it sampleItem, items []sampleItem) []string {
	var same []sampleItem
	for _, other := range items {
		if other.genre == it.genre && other.id != it.id {
			same = append(same, other)
		}
	}
	sort.SliceStable(same, func(a, b int) bool {
		return abs(same[a].score-it.score) < abs(same[b].score-it.score)
	})

	out := make([]string, 0, g.config.Recommendations)
	for _, other := range same {
		if len(out) == g.config.Recommendations {
			break
		}
		out = append(out, other.id)
	}
	return pad(out, g.config.Recommendations)
}

func pad(values []string, n int) []string {
	for len(values) < n {
		values = append(values, "")
	}
	return values
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// WriteCSV writes t with its header row
func WriteCSV(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Headers); err != nil {
		return err
	}
	for _, r := range t.Records {
		if err := w.Write(r.Values()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Sheet is one worksheet for WriteXLSX
type Sheet struct {
	Name  string
	Table *table.Table
}

// WriteXLSX writes each table into its own sheet of a new workbook, in order
func WriteXLSX(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheets[0].Name); err != nil {
		return err
	}
	for _, s := range sheets[1:] {
		if _, err := f.NewSheet(s.Name); err != nil {
			return err
		}
	}

	for _, s := range sheets {
		if err := writeSheet(f, s.Name, s.Table); err != nil {
			return fmt.Errorf("sheet %s: %w", s.Name, err)
		}
	}
	return f.SaveAs(path)
}

func writeSheet(f *excelize.File, sheet string, t *table.Table) error {
	writeRow := func(n int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := writeRow(1, t.Headers); err != nil {
		return err
	}
	for i, r := range t.Records {
		if err := writeRow(i+2, r.Values()); err != nil {
			return err
		}
	}
	return nil
}
