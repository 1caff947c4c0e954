// Package aoi loads areas of interest from a directory of GeoJSON files.
package aoi

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

// Ext is the file extension of AOI files.
const Ext = ".geojson"

// ErrNoPolygons is returned for an AOI file that holds no Polygon or MultiPolygon geometry.
var ErrNoPolygons = errors.New("no polygon geometry")

// Loaded is the result of reading one AOI directory. Failed holds one
// *domain.GeometryParseError per file that could not be used.
type Loaded struct {
	AOIs   []domain.AOI
	Failed []error
}

// Names returns the names of every AOI file found, loaded or failed, in directory order.
func (l Loaded) Names() []string {
	names := make([]string, 0, len(l.AOIs)+len(l.Failed))
	for _, a := range l.AOIs {
		names = append(names, a.Name)
	}
	for _, err := range l.Failed {
		var perr *domain.GeometryParseError
		if errors.As(err, &perr) {
			names = append(names, perr.Subject)
		}
	}
	return names
}

// LoadDir reads every *.geojson file in dir, sorted by file name. The AOI name
// is the file name without its extension. All polygons in one file are unioned
// into a single multipolygon. A file that fails to parse is reported in
// Failed and does not stop the others; only an unreadable directory is an error.
func LoadDir(dir string) (Loaded, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Loaded{}, fmt.Errorf("read AOI dir: %w", err)
	}

	var out Loaded
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		a, err := LoadFile(filepath.Join(dir, e.Name()), name)
		if err != nil {
			out.Failed = append(out.Failed, err)
			continue
		}
		out.AOIs = append(out.AOIs, a)
	}
	return out, nil
}

// LoadFile reads one GeoJSON file as the AOI called name.
func LoadFile(path, name string) (domain.AOI, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.AOI{}, &domain.GeometryParseError{Subject: name, Err: err}
	}
	mp, err := Parse(raw)
	if err != nil {
		return domain.AOI{}, &domain.GeometryParseError{Subject: name, Err: err}
	}
	a, err := domain.NewAOI(name, mp)
	if err != nil {
		return domain.AOI{}, &domain.GeometryParseError{Subject: name, Err: err}
	}
	return a, nil
}

// Parse decodes a FeatureCollection, a Feature, or a bare geometry and
// returns the union of its polygons.
func Parse(raw []byte) (orb.MultiPolygon, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	var geoms []orb.Geometry
	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		geoms = append(geoms, g.Geometry())
	}

	var mp orb.MultiPolygon
	for _, g := range geoms {
		mp = appendPolygons(mp, g)
	}
	if len(mp) == 0 {
		return nil, ErrNoPolygons
	}
	return mp, nil
}

func appendPolygons(mp orb.MultiPolygon, g orb.Geometry) orb.MultiPolygon {
	switch g := g.(type) {
	case orb.Polygon:
		return append(mp, g)
	case orb.MultiPolygon:
		return append(mp, g...)
	case orb.Collection:
		for _, child := range g {
			mp = appendPolygons(mp, child)
		}
	}
	return mp
}

// Dir is an AOI directory usable as a pipeline AOI source.
type Dir string

// LoadAOIs reads the directory afresh, so edits take effect on the next run.
func (d Dir) LoadAOIs() ([]domain.AOI, []error, error) {
	l, err := LoadDir(string(d))
	if err != nil {
		return nil, nil, err
	}
	return l.AOIs, l.Failed, nil
}
