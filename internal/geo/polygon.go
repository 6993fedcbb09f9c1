// Package geo loads administrative boundary collections (GeoJSON or ESRI
// shapefile) into Polygon values the join engine can key by name.
package geo

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/geoagg-cli/internal/textkey"
	"github.com/twpayne/go-geom"
)

// Polygon is one administrative boundary unit.
type Polygon struct {
	ID        string
	Name      string // raw value of the name attribute
	Region    string // raw value of the region attribute, if any
	HasRegion bool
	Props     map[string]any
	Geometry  geom.T // *geom.Polygon or *geom.MultiPolygon
}

// Options selects attributes and the optional region pre-filter.
type Options struct {
	// NameAttr is the property holding the unit name (e.g. PROVINCIA, DISTRITO).
	NameAttr string
	// RegionAttr is the property holding the parent region (e.g. DEPARTAMEN).
	RegionAttr string
	// Region keeps features whose RegionAttr normalizes to the same key. Ignored
	// when empty or when the collection has no RegionAttr at all.
	Region string
	// HTTPTimeoutSec bounds remote fetches; 0 uses a default.
	HTTPTimeoutSec int
}

// Collection is an ordered set of polygons.
type Collection struct {
	Source   string
	Polygons []*Polygon
	// RegionFiltered reports whether the region pre-filter was applied.
	RegionFiltered bool
}

// Len returns the number of polygons.
func (c *Collection) Len() int { return len(c.Polygons) }

// Bounds returns the extent of every geometry in the collection.
func (c *Collection) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, p := range c.Polygons {
		if p.Geometry != nil {
			b.Extend(p.Geometry)
		}
	}
	return b
}

// Rings returns the linear rings of a polygonal geometry as coordinate
// slices, outer rings and holes alike, for renderers.
func Rings(g geom.T) [][]geom.Coord {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonRings(t)
	case *geom.MultiPolygon:
		var out [][]geom.Coord
		for i := 0; i < t.NumPolygons(); i++ {
			out = append(out, polygonRings(t.Polygon(i))...)
		}
		return out
	}
	return nil
}

func polygonRings(p *geom.Polygon) [][]geom.Coord {
	out := make([][]geom.Coord, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		out = append(out, p.LinearRing(i).Coords())
	}
	return out
}

// applyRegion keeps polygons of opt.Region when the collection carries the
// region attribute. Collections without it are treated as already scoped.
func applyRegion(c *Collection, opt Options) {
	if opt.Region == "" || opt.RegionAttr == "" {
		return
	}
	anyRegion := false
	for _, p := range c.Polygons {
		if p.HasRegion {
			anyRegion = true
			break
		}
	}
	if !anyRegion {
		return
	}
	want := textkey.Normalize(opt.Region)
	kept := c.Polygons[:0]
	for _, p := range c.Polygons {
		if p.HasRegion && textkey.Normalize(p.Region) == want {
			kept = append(kept, p)
		}
	}
	c.Polygons = kept
	c.RegionFiltered = true
}

// propString reads a property case-insensitively and stringifies it.
func propString(props map[string]any, attr string) (string, bool) {
	if attr == "" {
		return "", false
	}
	v, ok := props[attr]
	if !ok {
		for k, pv := range props {
			if strings.EqualFold(k, attr) {
				v, ok = pv, true
				break
			}
		}
	}
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s)), true
		}
		return fmt.Sprintf("%g", s), true
	default:
		return fmt.Sprint(v), true
	}
}
