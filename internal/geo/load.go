package geo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// Load reads a boundary collection from a local path or an http(s) URL.
// Shapefiles must be local; GeoJSON may be either.
func Load(ctx context.Context, src string, opt Options) (*Collection, error) {
	if isURL(src) {
		data, err := fetch(ctx, src, opt.HTTPTimeoutSec)
		if err != nil {
			return nil, err
		}
		return LoadGeoJSON(bytes.NewReader(data), src, opt)
	}
	switch strings.ToLower(filepath.Ext(src)) {
	case ".shp":
		return LoadShapefile(src, opt)
	case ".geojson", ".json":
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("open boundaries: %w", err)
		}
		defer f.Close()
		return LoadGeoJSON(f, filepath.Base(src), opt)
	default:
		return nil, fmt.Errorf("unsupported boundary format: %s", filepath.Ext(src))
	}
}

func isURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func fetch(ctx context.Context, url string, timeoutSec int) ([]byte, error) {
	timeout := defaultHTTPTimeout
	if timeoutSec > 0 {
		timeout = time.Duration(timeoutSec) * time.Second
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch boundaries: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch boundaries: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
