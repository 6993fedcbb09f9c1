package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Source is one yearly input file.
type Source struct {
	Year int    `mapstructure:"year" yaml:"year"`
	Path string `mapstructure:"path" yaml:"path"`
}

// Global configuration structure.
type Global struct {
	Region    string   `mapstructure:"region" yaml:"region"`
	Sources   []Source `mapstructure:"sources" yaml:"sources,omitempty"`
	Delimiter string   `mapstructure:"delimiter" yaml:"delimiter,omitempty"`
	// Extra lists pass-through columns kept on each record.
	Extra []string `mapstructure:"extra_columns" yaml:"extra_columns,omitempty"`

	// Boundaries
	BoundaryPath       string `mapstructure:"boundary_path" yaml:"boundary_path,omitempty"`
	BoundaryNameAttr   string `mapstructure:"boundary_name_attr" yaml:"boundary_name_attr"`
	BoundaryRegionAttr string `mapstructure:"boundary_region_attr" yaml:"boundary_region_attr"`
	StrictPolygonKeys  bool   `mapstructure:"strict_polygon_keys" yaml:"strict_polygon_keys"`

	// Aggregation and map defaults. An empty Mode leaves each operation its
	// own default (map: sum, everything else: mean).
	Granularity string  `mapstructure:"granularity" yaml:"granularity"`
	Metric      string  `mapstructure:"metric" yaml:"metric"`
	Mode        string  `mapstructure:"mode" yaml:"mode,omitempty"`
	Threshold   float64 `mapstructure:"threshold" yaml:"threshold"`
	Scale       float64 `mapstructure:"scale" yaml:"scale"`
	StrictYears bool    `mapstructure:"strict_years" yaml:"strict_years"`

	OutputDir      string `mapstructure:"output_dir" yaml:"output_dir"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
}

// Dir returns ~/.geoagg.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".geoagg"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.geoagg/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("GEOAGG")
	v.AutomaticEnv()

	v.SetDefault("region", "LIMA")
	v.SetDefault("boundary_region_attr", "DEPARTAMEN")
	v.SetDefault("strict_polygon_keys", false)
	v.SetDefault("granularity", "province")
	v.SetDefault("metric", "average_sales")
	v.SetDefault("mode", "")
	v.SetDefault("threshold", 0.1)
	v.SetDefault("scale", 1e6)
	v.SetDefault("strict_years", false)
	v.SetDefault("output_dir", ".")
	v.SetDefault("http_timeout_sec", 30)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate checks value ranges and enumerations.
func (c *Global) Validate() error {
	switch c.Granularity {
	case "province", "district":
	default:
		return fmt.Errorf("invalid granularity: %s (use province or district)", c.Granularity)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be >= 0, got %g", c.Threshold)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be > 0, got %g", c.Scale)
	}
	seen := map[int]bool{}
	for _, s := range c.Sources {
		if s.Year <= 0 || s.Path == "" {
			return fmt.Errorf("invalid source %d=%q", s.Year, s.Path)
		}
		if seen[s.Year] {
			return fmt.Errorf("duplicate source year %d", s.Year)
		}
		seen[s.Year] = true
	}
	return nil
}

// Keys lists the settable scalar keys in display order.
var Keys = []string{
	"region", "delimiter", "boundary_path", "boundary_name_attr", "boundary_region_attr",
	"strict_polygon_keys", "granularity", "metric", "mode", "threshold", "scale",
	"strict_years", "output_dir", "http_timeout_sec",
}

// Get returns the string form of a scalar key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "region":
		return c.Region, nil
	case "delimiter":
		return c.Delimiter, nil
	case "boundary_path":
		return c.BoundaryPath, nil
	case "boundary_name_attr":
		return c.BoundaryNameAttr, nil
	case "boundary_region_attr":
		return c.BoundaryRegionAttr, nil
	case "strict_polygon_keys":
		return strconv.FormatBool(c.StrictPolygonKeys), nil
	case "granularity":
		return c.Granularity, nil
	case "metric":
		return c.Metric, nil
	case "mode":
		return c.Mode, nil
	case "threshold":
		return strconv.FormatFloat(c.Threshold, 'g', -1, 64), nil
	case "scale":
		return strconv.FormatFloat(c.Scale, 'g', -1, 64), nil
	case "strict_years":
		return strconv.FormatBool(c.StrictYears), nil
	case "output_dir":
		return c.OutputDir, nil
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val into key. The change is applied only if the result validates.
func (c *Global) Set(key, val string) error {
	n := *c
	switch key {
	case "region":
		n.Region = val
	case "delimiter":
		n.Delimiter = val
	case "boundary_path":
		n.BoundaryPath = val
	case "boundary_name_attr":
		n.BoundaryNameAttr = val
	case "boundary_region_attr":
		n.BoundaryRegionAttr = val
	case "strict_polygon_keys", "strict_years":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		if key == "strict_years" {
			n.StrictYears = b
		} else {
			n.StrictPolygonKeys = b
		}
	case "granularity":
		n.Granularity = strings.ToLower(val)
	case "metric":
		n.Metric = val
	case "mode":
		n.Mode = strings.ToLower(val)
	case "threshold", "scale":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %w", key, err)
		}
		if key == "threshold" {
			n.Threshold = f
		} else {
			n.Scale = f
		}
	case "output_dir":
		n.OutputDir = val
	case "http_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
		}
		n.HTTPTimeoutSec = i
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err := n.Validate(); err != nil {
		return err
	}
	*c = n
	return nil
}
