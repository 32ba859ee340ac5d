// Package reference looks up historical headlines similar to a new submission.
package reference

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/xrash/smetrics"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"Auditorium/internal/domain"
	"Auditorium/internal/ports"
)

const (
	colHeadline  = "materia"
	colPublished = "publicacao"
	colUserNeed  = "user need"
)

type record struct {
	headline  string
	folded    string
	userNeed  string
	published string
}

// Dataset is the optional CSV of past headlines, loaded on first use.
type Dataset struct {
	path     string
	minScore float64
	log      *slog.Logger

	once    sync.Once
	records []record
}

var _ ports.ReferenceSource = (*Dataset)(nil)

// NewDataset does not touch the file until the first lookup.
func NewDataset(path string, minScore float64, log *slog.Logger) *Dataset {
	return &Dataset{path: path, minScore: minScore, log: log}
}

// Len reports how many headlines were loaded.
func (d *Dataset) Len() int {
	d.once.Do(d.load)
	return len(d.records)
}

// Similar returns up to limit past headlines scoring at least minScore, best first.
func (d *Dataset) Similar(ctx context.Context, headline string, limit int) ([]domain.ReferenceMatch, error) {
	d.once.Do(d.load)
	if len(d.records) == 0 || limit <= 0 {
		return nil, nil
	}

	query := fold(headline)
	var matches []domain.ReferenceMatch
	for i, rec := range d.records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		score := smetrics.JaroWinkler(query, rec.folded, 0.7, 4)
		if score < d.minScore {
			continue
		}
		matches = append(matches, domain.ReferenceMatch{
			Headline:    rec.headline,
			UserNeed:    rec.userNeed,
			PublishedAt: rec.published,
			Score:       score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (d *Dataset) load() {
	if d.path == "" {
		return
	}
	f, err := os.Open(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d.info("reference dataset not found, comparisons disabled", "path", d.path)
		} else {
			d.warn("reference dataset unreadable", "path", d.path, "error", err)
		}
		return
	}
	defer f.Close()

	records, err := parse(f)
	if err != nil {
		d.warn("reference dataset malformed, comparisons disabled", "path", d.path, "error", err)
		return
	}
	d.records = records
	d.info("reference dataset loaded", "path", d.path, "rows", len(records))
}

func parse(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := map[string]int{}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		index[fold(name)] = i
	}
	cols := make([]int, 0, 3)
	for _, name := range []string{colHeadline, colPublished, colUserNeed} {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		cols = append(cols, i)
	}

	var out []record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		headline := strings.TrimSpace(field(row, cols[0]))
		if headline == "" {
			continue
		}
		out = append(out, record{
			headline:  headline,
			folded:    fold(headline),
			published: strings.TrimSpace(field(row, cols[1])),
			userNeed:  strings.TrimSpace(field(row, cols[2])),
		})
	}
	return out, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// fold lowercases, strips accents and collapses whitespace.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

func (d *Dataset) info(msg string, args ...interface{}) {
	if d.log != nil {
		d.log.Info(msg, args...)
	}
}

func (d *Dataset) warn(msg string, args ...interface{}) {
	if d.log != nil {
		d.log.Warn(msg, args...)
	}
}
