package dataset

import (
	"context"
	"log/slog"

	"github.com/agnivade/levenshtein"
	"github.com/findyourpaths/phonespecs/observability"
	"github.com/findyourpaths/phonespecs/output"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

// JoinStrategy picks how common-features matching finds the raw row of a
// basic-info row.
type JoinStrategy string

const (
	// JoinByID matches on the surrogate urun_id, falling back to JoinByTriple
	// for rows without one.
	JoinByID JoinStrategy = "id"
	// JoinByTriple matches the first raw row with equal name, price and
	// rating. Duplicate triples collapse onto one raw row.
	JoinByTriple JoinStrategy = "triple"
)

type Paths struct {
	Raw      string
	Basic    string
	Common   string
	ML       string
	Filtered string
}

// Processor runs the processing steps over the files named by Paths. Each
// step reads its input from disk and writes its output only after the whole
// projection succeeded.
type Processor struct {
	Paths              Paths
	CoverageThreshold  float64
	DominanceThreshold float64
	Join               JoinStrategy
	Features           []string
}

func NewProcessor(paths Paths) *Processor {
	return &Processor{
		Paths:              paths,
		CoverageThreshold:  DefaultCoverageThreshold,
		DominanceThreshold: DefaultDominanceThreshold,
		Join:               JoinByID,
		Features:           SelectedFeatures,
	}
}

// CreateBasicDataset writes name, price and rating of every complete raw row.
func (p *Processor) CreateBasicDataset(ctx context.Context) (*Table, error) {
	ctx, span := observability.Tracer().Start(ctx, "dataset.CreateBasicDataset")
	defer span.End()

	raw, err := p.readRaw()
	if err != nil {
		return nil, err
	}
	ret := BasicInfo(raw)
	if err := p.write(ctx, "basic", p.Paths.Basic, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// CreateCommonFeaturesDataset writes the matched raw rows restricted to the
// name column and every column with at least CoverageThreshold coverage.
func (p *Processor) CreateCommonFeaturesDataset(ctx context.Context) (*Table, error) {
	ctx, span := observability.Tracer().Start(ctx, "dataset.CreateCommonFeaturesDataset")
	defer span.End()

	raw, err := p.readRaw()
	if err != nil {
		return nil, err
	}
	ret := CommonFeatures(raw, p.CoverageThreshold, p.Join)
	if err := p.write(ctx, "common", p.Paths.Common, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// GenerateMLFeatures projects the common-features dataset onto Features.
func (p *Processor) GenerateMLFeatures(ctx context.Context) (*Table, error) {
	ctx, span := observability.Tracer().Start(ctx, "dataset.GenerateMLFeatures")
	defer span.End()

	return p.project(ctx, "ml", p.Paths.Common, p.Paths.ML)
}

// GenerateFilteredDataset projects the raw dataset straight onto Features.
func (p *Processor) GenerateFilteredDataset(ctx context.Context) (*Table, error) {
	ctx, span := observability.Tracer().Start(ctx, "dataset.GenerateFilteredDataset")
	defer span.End()

	return p.project(ctx, "filtered", p.Paths.Raw, p.Paths.Filtered)
}

// CheckConstantFeatures reports removal candidates in the ML dataset. It
// never modifies the file.
func (p *Processor) CheckConstantFeatures(ctx context.Context) ([]ConstantColumn, error) {
	_, span := observability.Tracer().Start(ctx, "dataset.CheckConstantFeatures")
	defer span.End()

	t, err := ReadCSV(p.Paths.ML)
	if err != nil {
		return nil, err
	}
	rets := ConstantColumns(t, p.DominanceThreshold)
	span.SetAttributes(attribute.Int("ret.count", len(rets)))
	return rets, nil
}

func (p *Processor) readRaw() (*Table, error) {
	raw, err := ReadCSV(p.Paths.Raw)
	if err != nil {
		return nil, err
	}
	slog.Info("read raw dataset", "path", p.Paths.Raw, "rows", len(raw.Rows), "columns", len(raw.Columns))
	return raw, nil
}

func (p *Processor) project(ctx context.Context, step, in, out string) (*Table, error) {
	t, err := ReadCSV(in)
	if err != nil {
		return nil, err
	}
	ret, missing := ProjectFeatures(t, p.Features)
	for _, m := range missing {
		observability.Add(ctx, observability.Instruments.ColumnsMissing, 1,
			attribute.String("step", step), attribute.String("arg.column", m))
		if hint := closestColumn(m, t.Columns); hint != "" {
			slog.Warn("selected column not found, skipping", "column", m, "closest", hint)
		} else {
			slog.Warn("selected column not found, skipping", "column", m)
		}
	}
	if err := p.write(ctx, step, out, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (p *Processor) write(ctx context.Context, step, path string, t *Table) error {
	if err := WriteCSV(path, t, WriteOpts{}); err != nil {
		return err
	}
	observability.Add(ctx, observability.Instruments.RowsWritten, int64(len(t.Rows)), attribute.String("step", step))
	slog.Info("wrote dataset", "step", step, "path", path, "rows", len(t.Rows), "columns", len(t.Columns))
	return nil
}

// firstPresent returns the first of candidates that t has, or "".
func firstPresent(t *Table, candidates []string) string {
	c, _ := lo.Find(candidates, t.Has)
	return c
}

// basicColumns names the raw price and rating columns in use.
type basicColumns struct {
	price, rating string
}

func (b basicColumns) triple(r output.Record) (string, string, string) {
	var price, rating string
	if b.price != "" {
		price = r.Get(b.price)
	}
	if b.rating != "" {
		rating = r.Get(b.rating)
	}
	return r.Get(ColName), price, rating
}

func (b basicColumns) complete(r output.Record) bool {
	name, price, rating := b.triple(r)
	return name != "" && price != "" && rating != ""
}

func basicColumnsOf(raw *Table) basicColumns {
	return basicColumns{
		price:  firstPresent(raw, PriceColumns),
		rating: firstPresent(raw, RatingColumns),
	}
}

// BasicInfo keeps raw rows with a name, price and rating, renamed to
// urun_ad, urun_fiyati and urun_puani.
func BasicInfo(raw *Table) *Table {
	cols := basicColumnsOf(raw)
	if cols.price == "" || cols.rating == "" {
		slog.Warn("raw dataset has no price or rating column", "price", cols.price, "rating", cols.rating)
	}
	ret := &Table{Columns: []string{ColName, ColBasicPrice, ColBasicRating}, Rows: []output.Record{}}
	for _, r := range raw.Rows {
		if !cols.complete(r) {
			continue
		}
		name, price, rating := cols.triple(r)
		ret.Rows = append(ret.Rows, output.NewRecord(ColName, name, ColBasicPrice, price, ColBasicRating, rating))
	}
	return ret
}

// CommonFeatures matches every complete raw row back to a raw row using
// join, then keeps the name column and the columns whose coverage over the
// matched rows reaches threshold, in raw column order.
func CommonFeatures(raw *Table, threshold float64, join JoinStrategy) *Table {
	if join == JoinByID && !raw.Has(ColID) {
		slog.Info("raw dataset has no surrogate id, matching on name, price and rating")
		join = JoinByTriple
	}

	cols := basicColumnsOf(raw)
	type triple struct{ name, price, rating string }
	byTriple := map[triple]output.Record{}
	byID := map[string]output.Record{}
	for _, r := range raw.Rows {
		name, price, rating := cols.triple(r)
		k := triple{name, price, rating}
		if _, ok := byTriple[k]; !ok {
			byTriple[k] = r
		}
		if id := r.Get(ColID); id != "" {
			if _, ok := byID[id]; !ok {
				byID[id] = r
			}
		}
	}

	matched := &Table{Columns: raw.Columns, Rows: []output.Record{}}
	for _, r := range raw.Rows {
		if !cols.complete(r) {
			continue
		}
		var m output.Record
		var ok bool
		if id := r.Get(ColID); join == JoinByID && id != "" {
			m, ok = byID[id]
		} else {
			name, price, rating := cols.triple(r)
			m, ok = byTriple[triple{name, price, rating}]
		}
		if !ok {
			continue
		}
		matched.Rows = append(matched.Rows, m)
	}
	slog.Info("matched products with raw features", "matched", len(matched.Rows), "join", string(join))

	keep := []string{ColName}
	for _, c := range raw.Columns {
		if c != ColName && Coverage(matched, c) >= threshold {
			keep = append(keep, c)
		}
	}
	return matched.Project(keep)
}

// ProjectFeatures keeps the features t has, in features order, and returns
// the ones it lacks.
func ProjectFeatures(t *Table, features []string) (*Table, []string) {
	existing, missing := lo.FilterReject(features, func(c string, _ int) bool { return t.Has(c) })
	return t.Project(existing), missing
}

// closestColumn suggests the existing column nearest to a missing one, for
// spotting keys that drifted after a site change.
func closestColumn(missing string, columns []string) string {
	if len(columns) == 0 {
		return ""
	}
	best := lo.MinBy(columns, func(a, b string) bool {
		return levenshtein.ComputeDistance(missing, a) < levenshtein.ComputeDistance(missing, b)
	})
	if levenshtein.ComputeDistance(missing, best) > len([]rune(missing))/2 {
		return ""
	}
	return best
}
