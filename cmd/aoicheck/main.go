// Command aoicheck loads an AOI directory the same way the notifier does and
// reports what it found: polygon and vertex counts and bounds per AOI, and
// which AOIs contain a given point.
//
// Usage:
//
//	go run ./cmd/aoicheck -dir data -point -122.27,37.80
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/incident-aoi-notifier/internal/adapter/aoi"
	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

func main() {
	dir := flag.String("dir", "data", "directory of *.geojson AOI files")
	point := flag.String("point", "", "optional lon,lat to test against every AOI")
	flag.Parse()

	os.Exit(run(os.Stdout, *dir, *point))
}

func run(w io.Writer, dir, point string) int {
	var (
		pt    orb.Point
		hasPt bool
	)
	if point != "" {
		p, err := parsePoint(point)
		if err != nil {
			fmt.Fprintf(w, "FATAL: %v\n", err)
			return 1
		}
		pt, hasPt = p, true
	}

	loaded, err := aoi.LoadDir(dir)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 1
	}

	fmt.Fprintf(w, "=== AOIs in %s ===\n\n", dir)
	for _, a := range loaded.AOIs {
		b := a.Bound()
		fmt.Fprintf(w, "  %-32s polygons=%d vertices=%d bounds=[%.6f %.6f, %.6f %.6f]\n",
			a.Name, len(a.Geometry), a.Vertices(), b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat())
	}
	for _, ferr := range loaded.Failed {
		var perr *domain.GeometryParseError
		name := "?"
		if errors.As(ferr, &perr) {
			name = perr.Subject
		}
		fmt.Fprintf(w, "  %-32s FAIL %v\n", name, ferr)
	}

	if hasPt {
		fmt.Fprintf(w, "\nPoint %.6f,%.6f is inside:\n", pt.Lon(), pt.Lat())
		hits := 0
		for _, a := range loaded.AOIs {
			if a.Contains(pt) {
				fmt.Fprintf(w, "  %s\n", a.Name)
				hits++
			}
		}
		if hits == 0 {
			fmt.Fprintln(w, "  (none)")
		}
	}

	fmt.Fprintf(w, "\n%d loaded, %d failed\n", len(loaded.AOIs), len(loaded.Failed))
	if len(loaded.Failed) > 0 {
		return 1
	}
	return 0
}

// parsePoint parses "lon,lat".
func parsePoint(s string) (orb.Point, error) {
	lonText, latText, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("point %q: want lon,lat", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("point %q: lon: %w", s, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("point %q: lat: %w", s, err)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("point %q: out of range", s)
	}
	return orb.Point{lon, lat}, nil
}
