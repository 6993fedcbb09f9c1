package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "LIMA", c.Region)
	assert.Empty(t, c.BoundaryNameAttr, "derived from granularity")
	assert.Equal(t, "DEPARTAMEN", c.BoundaryRegionAttr)
	assert.Equal(t, "province", c.Granularity)
	assert.Empty(t, c.Mode, "each operation picks its own default")
	assert.Equal(t, 0.1, c.Threshold)
	assert.Equal(t, 1e6, c.Scale)
	assert.Equal(t, 30, c.HTTPTimeoutSec)
	assert.NoError(t, c.Validate())
}

func TestSaveLoadRoundTripAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	c.Sources = []Source{{Year: 2022, Path: "a.csv"}, {Year: 2023, Path: "b.csv"}}
	require.NoError(t, c.Set("threshold", "0.5"))
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c.Sources, got.Sources)
	assert.Equal(t, 0.5, got.Threshold)

	t.Setenv("GEOAGG_REGION", "CUSCO")
	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "CUSCO", got.Region)
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("region: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("granularity", "DISTRICT"))
	require.NoError(t, Save(c, ""))
	_, err = os.Stat(filepath.Join(home, ".geoagg", "config.yaml"))
	require.NoError(t, err)

	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "district", got.Granularity)
}

func TestSetGetValidate(t *testing.T) {
	c := &Global{Granularity: "province", Scale: 1}
	for _, k := range Keys {
		_, err := c.Get(k)
		assert.NoError(t, err, k)
	}
	assert.Error(t, c.Set("threshold", "-1"))
	assert.Error(t, c.Set("granularity", "country"))
	c.Granularity = "province"
	assert.Error(t, c.Set("strict_years", "maybe"))
	assert.NoError(t, c.Set("strict_years", "true"))
	assert.True(t, c.StrictYears)
	assert.Error(t, c.Set("nope", "1"))
	_, err := c.Get("nope")
	assert.Error(t, err)

	c.Sources = []Source{{Year: 2022, Path: "a"}, {Year: 2022, Path: "b"}}
	assert.ErrorContains(t, c.Validate(), "duplicate")
}
