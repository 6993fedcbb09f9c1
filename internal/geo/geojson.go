package geo

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// LoadGeoJSON decodes a FeatureCollection. Features without polygonal
// geometry are skipped; features without the name attribute are an error,
// since they could never be joined.
func LoadGeoJSON(r io.Reader, source string, opt Options) (*Collection, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode geojson %s: %w", source, err)
	}
	c := &Collection{Source: source}
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch f.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			continue
		}
		name, ok := propString(f.Properties, opt.NameAttr)
		if !ok {
			return nil, fmt.Errorf("%s: feature %d has no %q attribute", source, i, opt.NameAttr)
		}
		p := &Polygon{ID: f.ID, Name: name, Props: f.Properties, Geometry: f.Geometry}
		if p.ID == "" {
			p.ID = fmt.Sprintf("%d", i)
		}
		p.Region, p.HasRegion = propString(f.Properties, opt.RegionAttr)
		c.Polygons = append(c.Polygons, p)
	}
	applyRegion(c, opt)
	return c, nil
}
