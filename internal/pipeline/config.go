// Package pipeline runs the one configurable path from yearly firm tables to
// aggregates, matrices and choropleth joins. Granularity, region, metric and
// boundary source are parameters; there is no per-variant code path.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/geoagg-cli/internal/aggregate"
	"github.com/KaramelBytes/geoagg-cli/internal/firms"
	"gopkg.in/yaml.v3"
)

// Granularity selects the administrative level units are keyed by.
type Granularity string

const (
	Province Granularity = "province"
	District Granularity = "district"
)

// ParseGranularity accepts province/provincia and district/distrito.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "province", "provincia", "":
		return Province, nil
	case "district", "distrito":
		return District, nil
	}
	return "", fmt.Errorf("unknown granularity %q (use province|district)", s)
}

// Column is the record field holding the unit name.
func (g Granularity) Column() firms.Column {
	if g == District {
		return firms.ColDistrict
	}
	return firms.ColProvince
}

// NameAttr is the default boundary attribute holding the unit name.
func (g Granularity) NameAttr() string {
	if g == District {
		return "DISTRITO"
	}
	return "PROVINCIA"
}

// Source is one yearly input table.
type Source struct {
	Year int    `yaml:"year"`
	Path string `yaml:"path"`
}

// Boundary locates the polygon collection.
type Boundary struct {
	Path       string `yaml:"path"`
	NameAttr   string `yaml:"name_attr,omitempty"`
	RegionAttr string `yaml:"region_attr,omitempty"`
}

// Config fixes what is loaded.
type Config struct {
	Region            string      `yaml:"region"`
	Sources           []Source    `yaml:"sources"`
	Delimiter         string      `yaml:"delimiter,omitempty"`
	Extra             []string    `yaml:"extra_columns,omitempty"`
	Boundary          Boundary    `yaml:"boundary,omitempty"`
	Granularity       Granularity `yaml:"granularity"`
	Scale             float64     `yaml:"scale,omitempty"`
	StrictYears       bool        `yaml:"strict_years,omitempty"`
	StrictPolygonKeys bool        `yaml:"strict_polygon_keys,omitempty"`
	HTTPTimeoutSec    int         `yaml:"http_timeout_sec,omitempty"`
}

// Params selects what is computed from the loaded data. Empty Years or Units
// mean every year or unit present.
type Params struct {
	Years     []int          `yaml:"years,omitempty"`
	Units     []string       `yaml:"units,omitempty"`
	Metric    firms.Column   `yaml:"metric"`
	Mode      aggregate.Mode `yaml:"mode"`
	Threshold float64        `yaml:"threshold"`
}

// Validate checks Config.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}
	seen := map[int]bool{}
	for _, s := range c.Sources {
		if s.Path == "" {
			return fmt.Errorf("source for year %d has no path", s.Year)
		}
		if seen[s.Year] {
			return fmt.Errorf("duplicate source year %d", s.Year)
		}
		seen[s.Year] = true
	}
	if _, err := ParseGranularity(string(c.Granularity)); err != nil {
		return err
	}
	if c.Scale < 0 {
		return fmt.Errorf("scale must not be negative, got %g", c.Scale)
	}
	if _, err := c.delimiter(); err != nil {
		return err
	}
	return nil
}

// Validate checks Params.
func (p Params) Validate() error {
	if p.Metric != "" && !firms.IsMetric(p.Metric) {
		return fmt.Errorf("unknown metric %q (use average_sales|worker_count|experience_years)", p.Metric)
	}
	if p.Mode != "" {
		if _, err := aggregate.ParseMode(string(p.Mode)); err != nil {
			return err
		}
	}
	if p.Threshold < 0 {
		return fmt.Errorf("threshold must be >= 0, got %g", p.Threshold)
	}
	return nil
}

func (c Config) delimiter() (rune, error) {
	switch strings.ToLower(c.Delimiter) {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	case "pipe":
		return '|', nil
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r, nil
}

// scaleFor returns the divisor for metric. Only the monetary metric is scaled.
func (c Config) scaleFor(metric firms.Column) float64 {
	if metric != firms.ColSales || c.Scale == 0 {
		return 1
	}
	return c.Scale
}

// Job is a YAML file bundling Config and Params.
type Job struct {
	Config `yaml:",inline"`
	Params Params `yaml:"params"`
	// ThresholdSet reports whether params.threshold appears in the file, so an
	// explicit 0 can override a configured threshold.
	ThresholdSet bool `yaml:"-"`
}

// LoadJob reads a job file. Relative source and boundary paths are resolved
// against the job file's directory.
func LoadJob(path string) (*Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	var j Job
	if err := yaml.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("parse job %s: %w", filepath.Base(path), err)
	}
	base := filepath.Dir(path)
	for i, s := range j.Sources {
		j.Sources[i].Path = resolve(base, s.Path)
	}
	j.Boundary.Path = resolve(base, j.Boundary.Path)
	if j.Granularity == "" {
		j.Granularity = Province
	}
	if err := j.Config.Validate(); err != nil {
		return nil, fmt.Errorf("job %s: %w", filepath.Base(path), err)
	}
	if err := j.Params.Validate(); err != nil {
		return nil, fmt.Errorf("job %s: %w", filepath.Base(path), err)
	}
	j.Params.Mode = canonicalMode(j.Params.Mode)
	var keys struct {
		Params map[string]any `yaml:"params"`
	}
	if err := yaml.Unmarshal(b, &keys); err == nil {
		_, j.ThresholdSet = keys.Params["threshold"]
	}
	return &j, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || isURL(p) {
		return p
	}
	return filepath.Join(base, p)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ParseSource parses YEAR=PATH.
func ParseSource(s string) (Source, error) {
	year, path, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(path) == "" {
		return Source{}, fmt.Errorf("invalid source %q (want YEAR=PATH)", s)
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y <= 0 {
		return Source{}, fmt.Errorf("invalid source year in %q", s)
	}
	return Source{Year: y, Path: strings.TrimSpace(path)}, nil
}
