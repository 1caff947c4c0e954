package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Located is an incident with its parsed WGS84 point (lon, lat).
type Located struct {
	Incident
	Point orb.Point
}

// ParseLocation parses a location_1 value. WKT points are the feed's format;
// GeoJSON point text is accepted for datasets exported as JSON.
func ParseLocation(text *string) (orb.Point, error) {
	s := strings.TrimSpace(Text(text))
	if s == "" {
		return orb.Point{}, ErrEmptyLocation
	}

	var p orb.Point
	if strings.HasPrefix(s, "{") {
		g, err := geojson.UnmarshalGeometry([]byte(s))
		if err != nil {
			return orb.Point{}, fmt.Errorf("decode geojson point: %w", err)
		}
		pt, ok := g.Geometry().(orb.Point)
		if !ok {
			return orb.Point{}, fmt.Errorf("expected Point, got %s", g.Geometry().GeoJSONType())
		}
		p = pt
	} else {
		pt, err := wkt.UnmarshalPoint(s)
		if err != nil {
			return orb.Point{}, fmt.Errorf("decode wkt point %q: %w", s, err)
		}
		p = pt
	}

	if math.IsNaN(p.Lon()) || math.IsNaN(p.Lat()) ||
		p.Lon() < -180 || p.Lon() > 180 || p.Lat() < -90 || p.Lat() > 90 {
		return orb.Point{}, fmt.Errorf("coordinates out of range: %v", p)
	}
	return p, nil
}

// Locate parses the location of every incident in order. Incidents whose
// location cannot be parsed are left out and reported as GeometryParseErrors.
func Locate(incidents []Incident) ([]Located, []error) {
	located := make([]Located, 0, len(incidents))
	var errs []error
	for _, inc := range incidents {
		p, err := ParseLocation(inc.Location)
		if err != nil {
			errs = append(errs, &GeometryParseError{Subject: "case " + Text(inc.CaseNumber), Err: err})
			continue
		}
		located = append(located, Located{Incident: inc, Point: p})
	}
	return located, errs
}

// AOI is a named area of interest.
type AOI struct {
	Name     string
	Geometry orb.MultiPolygon
	bound    orb.Bound
}

// NewAOI builds an AOI from a non-empty multipolygon.
func NewAOI(name string, mp orb.MultiPolygon) (AOI, error) {
	if len(mp) == 0 {
		return AOI{}, errors.New("aoi has no polygons")
	}
	for i, poly := range mp {
		if len(poly) == 0 || len(poly[0]) < 4 {
			return AOI{}, fmt.Errorf("polygon %d has no closed outer ring", i)
		}
	}
	return AOI{Name: name, Geometry: mp, bound: mp.Bound()}, nil
}

// Contains reports whether p lies inside or on the outer boundary of the AOI.
func (a AOI) Contains(p orb.Point) bool {
	if !a.bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(a.Geometry, p)
}

// Vertices returns the total number of ring points in the AOI.
func (a AOI) Vertices() int {
	n := 0
	for _, poly := range a.Geometry {
		for _, ring := range poly {
			n += len(ring)
		}
	}
	return n
}

// Bound returns the AOI bounding box.
func (a AOI) Bound() orb.Bound { return a.bound }

// Match is a located incident that falls within an AOI, plus its marker styling.
type Match struct {
	Located
	MarkerColor  string
	MarkerIcon   string
	MarkerSymbol string
}

// MatchAOI returns the located incidents contained in aoi, in input order.
// Markers are left unset; see StyleRules.Annotate.
func MatchAOI(located []Located, aoi AOI) []Match {
	var matches []Match
	for _, l := range located {
		if aoi.Contains(l.Point) {
			matches = append(matches, Match{Located: l})
		}
	}
	return matches
}
