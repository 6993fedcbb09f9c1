package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/geoagg-cli/internal/cache"
	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"github.com/KaramelBytes/geoagg-cli/internal/geo"
	"github.com/KaramelBytes/geoagg-cli/internal/logging"
	"github.com/KaramelBytes/geoagg-cli/internal/table"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner executes pipeline stages for one Config. Ingested fragments and
// boundary collections are memoized, so repeated runs with different Params
// reread nothing unless a source file changed.
type Runner struct {
	cfg    Config
	log    *zap.Logger
	frags  *cache.Cache[*firms.Fragment]
	bounds *cache.Cache[*geo.Collection]
}

// New validates cfg and returns a Runner. A nil logger disables logging.
func New(cfg Config, log *zap.Logger) (*Runner, error) {
	if cfg.Granularity == "" {
		cfg.Granularity = Province
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g, _ := ParseGranularity(string(cfg.Granularity))
	cfg.Granularity = g
	return &Runner{
		cfg:    cfg,
		log:    logging.OrNop(log),
		frags:  cache.New[*firms.Fragment](),
		bounds: cache.New[*geo.Collection](),
	}, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() Config { return r.cfg }

// Run identifies one pipeline invocation and carries its non-fatal findings.
type Run struct {
	ID       string
	Started  time.Time
	Params   Params
	Warnings []string
	// YearErrors holds per-year ingestion failures that were skipped.
	YearErrors []error
}

func (r *Runner) newRun(p Params) *Run {
	return &Run{ID: uuid.NewString(), Started: time.Now(), Params: p}
}

// Load ingests every configured year and combines them. Per-year failures
// (unreadable source, missing columns) are returned in the second value and
// the year is skipped, unless StrictYears is set, in which case the first one
// is fatal. A column-set mismatch between years is always fatal.
func (r *Runner) Load(ctx context.Context) (*firms.Dataset, []error, error) {
	delim, _ := r.cfg.delimiter()
	opt := firms.IngestOptions{
		Region: r.cfg.Region,
		Extra:  r.cfg.Extra,
		Table:  table.Options{Delimiter: delim},
	}
	var (
		frags    []*firms.Fragment
		yearErrs []error
	)
	for _, src := range r.cfg.Sources {
		if err := ctx.Err(); err != nil {
			return nil, yearErrs, err
		}
		key := r.ingestKey(src)
		frag, hit, err := r.frags.GetOrCompute(key, func() (*firms.Fragment, error) {
			return firms.IngestFile(src.Path, src.Year, opt)
		})
		if err != nil {
			if !isYearError(err) {
				return nil, yearErrs, err
			}
			r.log.Warn("year skipped", zap.Int("year", src.Year), zap.String("source", src.Path), zap.Error(err))
			if r.cfg.StrictYears {
				return nil, yearErrs, err
			}
			yearErrs = append(yearErrs, err)
			continue
		}
		r.log.Info("year loaded",
			zap.Int("year", frag.Year),
			zap.String("source", frag.Source),
			zap.Bool("cached", hit),
			zap.Int("rows", frag.Rows),
			zap.Int("kept", len(frag.Records)),
			zap.Int("skipped", frag.Skipped),
		)
		for _, w := range frag.Warnings {
			r.log.Debug("row skipped", zap.Int("year", frag.Year), zap.String("detail", w))
		}
		frags = append(frags, frag)
	}
	ds, err := firms.Combine(frags...)
	if err != nil {
		return nil, yearErrs, err
	}
	if len(frags) == 0 {
		return ds, yearErrs, errors.New("no year could be loaded")
	}
	return ds, yearErrs, nil
}

func isYearError(err error) bool {
	var ie *firms.IngestionError
	var se *firms.SchemaError
	return errors.As(err, &ie) || errors.As(err, &se)
}

func (r *Runner) ingestKey(src Source) cache.Key {
	return cache.NewKey("ingest").
		Source(src.Path).
		Param("year", src.Year).
		Param("region", r.cfg.Region).
		Param("delimiter", r.cfg.Delimiter).
		Param("extra", strings.Join(r.cfg.Extra, ",")).
		Key()
}

// fragmentWarnings collects row-level warnings of the cached fragments.
func (r *Runner) fragmentWarnings() []string {
	var out []string
	for _, src := range r.cfg.Sources {
		if f, ok := r.frags.Get(r.ingestKey(src)); ok {
			for _, w := range f.Warnings {
				out = append(out, fmt.Sprintf("%d: %s", f.Year, w))
			}
		}
	}
	return out
}

// Boundaries loads (or returns the memoized) polygon collection.
func (r *Runner) Boundaries(ctx context.Context) (*geo.Collection, error) {
	b := r.cfg.Boundary
	if b.Path == "" {
		return nil, errors.New("no boundary source configured")
	}
	opt := geo.Options{
		NameAttr:       b.NameAttr,
		RegionAttr:     b.RegionAttr,
		Region:         r.cfg.Region,
		HTTPTimeoutSec: r.cfg.HTTPTimeoutSec,
	}
	if opt.NameAttr == "" {
		opt.NameAttr = r.cfg.Granularity.NameAttr()
	}
	if opt.RegionAttr == "" {
		opt.RegionAttr = "DEPARTAMEN"
	}
	key := cache.NewKey("boundaries").
		Source(b.Path).
		Param("name", opt.NameAttr).
		Param("region_attr", opt.RegionAttr).
		Param("region", opt.Region).
		Key()
	c, hit, err := r.bounds.GetOrCompute(key, func() (*geo.Collection, error) {
		return geo.Load(ctx, b.Path, opt)
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("boundaries loaded",
		zap.String("source", c.Source),
		zap.Bool("cached", hit),
		zap.Int("polygons", c.Len()),
		zap.Bool("region_filtered", c.RegionFiltered),
	)
	return c, nil
}
