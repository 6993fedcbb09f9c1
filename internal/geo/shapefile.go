package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// LoadShapefile reads a .shp with its sibling .dbf. Parts are grouped into
// polygons by ring orientation: clockwise rings start a new outer boundary,
// counter-clockwise rings are holes of the preceding one. Attribute text is
// decoded with the code page named in the sibling .cpg; without one, values
// that are not valid UTF-8 are read as ISO-8859-1.
func LoadShapefile(path string, opt Options) (*Collection, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()
	dec := codePage(path)
	attr := func(row, field int) string {
		return dec.decode(strings.Trim(r.ReadAttribute(row, field), "\x00 "))
	}

	fields := r.Fields()
	nameIdx, regionIdx := -1, -1
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, opt.NameAttr) {
			nameIdx = i
		}
		if opt.RegionAttr != "" && strings.EqualFold(name, opt.RegionAttr) {
			regionIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, fmt.Errorf("%s: no %q attribute", filepath.Base(path), opt.NameAttr)
	}

	c := &Collection{Source: filepath.Base(path)}
	for r.Next() {
		n, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		g, err := shpToGeom(poly)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", filepath.Base(path), n, err)
		}
		props := make(map[string]any, len(fields))
		for i, f := range fields {
			props[strings.TrimRight(f.String(), "\x00")] = attr(n, i)
		}
		p := &Polygon{
			ID:       fmt.Sprintf("%d", n),
			Name:     attr(n, nameIdx),
			Props:    props,
			Geometry: g,
		}
		if regionIdx >= 0 {
			p.Region, p.HasRegion = attr(n, regionIdx), true
		}
		c.Polygons = append(c.Polygons, p)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}
	applyRegion(c, opt)
	return c, nil
}

// dbfText turns .dbf attribute bytes into UTF-8.
type dbfText struct {
	enc      encoding.Encoding // nil for UTF-8
	declared bool              // a .cpg named the encoding
}

// codePage reads the .cpg next to shpPath, if any.
func codePage(shpPath string) dbfText {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	var b []byte
	for _, ext := range []string{".cpg", ".CPG"} {
		if data, err := os.ReadFile(base + ext); err == nil {
			b = data
			break
		}
	}
	name := strings.ToUpper(strings.TrimSpace(string(b)))
	switch name {
	case "":
		return dbfText{}
	case "UTF-8", "UTF8", "65001":
		return dbfText{declared: true}
	case "ISO-8859-1", "ISO8859-1", "ISO88591", "88591", "LATIN1", "LATIN-1":
		return dbfText{enc: charmap.ISO8859_1, declared: true}
	case "1252", "CP1252", "WINDOWS-1252", "ANSI 1252":
		return dbfText{enc: charmap.Windows1252, declared: true}
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return dbfText{enc: enc, declared: true}
	}
	return dbfText{}
}

func (d dbfText) decode(s string) string {
	if d.enc != nil {
		if out, err := d.enc.NewDecoder().String(s); err == nil {
			return out
		}
	}
	if !d.declared && !utf8.ValidString(s) {
		if out, err := charmap.ISO8859_1.NewDecoder().String(s); err == nil {
			return out
		}
	}
	return s
}

func shpToGeom(p *shp.Polygon) (geom.T, error) {
	var polys [][][]geom.Coord
	for i := range p.Parts {
		start := int(p.Parts[i])
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		if start < 0 || end > len(p.Points) || start >= end {
			return nil, fmt.Errorf("bad part bounds %d..%d", start, end)
		}
		ring := make([]geom.Coord, 0, end-start)
		for _, pt := range p.Points[start:end] {
			ring = append(ring, geom.Coord{pt.X, pt.Y})
		}
		if signedArea(ring) <= 0 || len(polys) == 0 {
			polys = append(polys, [][]geom.Coord{ring})
			continue
		}
		last := len(polys) - 1
		polys[last] = append(polys[last], ring)
	}
	if len(polys) == 1 {
		return geom.NewPolygon(geom.XY).SetCoords(polys[0])
	}
	return geom.NewMultiPolygon(geom.XY).SetCoords(polys)
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var a float64
	for i := range ring {
		j := (i + 1) % len(ring)
		a += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return a / 2
}
