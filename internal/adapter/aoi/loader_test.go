package aoi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

const (
	squareCollection = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}}
]}`
	twoParts = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
  {"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[
    [[[5,5],[6,5],[6,6],[5,6],[5,5]]],
    [[[8,8],[9,8],[9,9],[8,9],[8,8]]]
  ]}},
  {"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[3,3]}}
]}`
	bareFeature  = `{"type":"Feature","properties":{"name":"x"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}}`
	bareGeometry = `{"type":"Polygon","coordinates":[[[0,0],[3,0],[3,3],[0,3],[0,0]]]}`
	pointsOnly   = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,1]}}]}`
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestParse(t *testing.T) {
	t.Run("feature collection", func(t *testing.T) {
		mp, err := Parse([]byte(squareCollection))
		require.NoError(t, err)
		assert.Len(t, mp, 1)
	})

	t.Run("polygons are unioned and points ignored", func(t *testing.T) {
		mp, err := Parse([]byte(twoParts))
		require.NoError(t, err)
		assert.Len(t, mp, 3)
	})

	t.Run("single feature", func(t *testing.T) {
		mp, err := Parse([]byte(bareFeature))
		require.NoError(t, err)
		assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 2}}, mp.Bound())
	})

	t.Run("bare geometry", func(t *testing.T) {
		mp, err := Parse([]byte(bareGeometry))
		require.NoError(t, err)
		assert.Len(t, mp, 1)
	})

	t.Run("no polygons", func(t *testing.T) {
		_, err := Parse([]byte(pointsOnly))
		assert.ErrorIs(t, err, ErrNoPolygons)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := Parse([]byte(`{"type":`))
		assert.Error(t, err)
	})
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zeta.geojson", squareCollection)
	writeFile(t, dir, "alpha.GeoJSON", bareGeometry)
	writeFile(t, dir, "broken.geojson", `not json`)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.geojson"), 0o700))

	loaded, err := LoadDir(dir)
	require.NoError(t, err)

	require.Len(t, loaded.AOIs, 2)
	assert.Equal(t, "alpha", loaded.AOIs[0].Name, "sorted by file name")
	assert.Equal(t, "zeta", loaded.AOIs[1].Name)
	assert.True(t, loaded.AOIs[1].Contains(orb.Point{5, 5}))

	require.Len(t, loaded.Failed, 1)
	var perr *domain.GeometryParseError
	require.True(t, errors.As(loaded.Failed[0], &perr))
	assert.Equal(t, "broken", perr.Subject)

	assert.ElementsMatch(t, []string{"alpha", "zeta", "broken"}, loaded.Names())
}

func TestLoadDir_Empty(t *testing.T) {
	loaded, err := LoadDir(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, loaded.AOIs)
	assert.Empty(t, loaded.Failed)
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDir_LoadAOIs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.geojson", bareGeometry)
	writeFile(t, dir, "b.geojson", pointsOnly)

	aois, failed, err := Dir(dir).LoadAOIs()
	require.NoError(t, err)
	assert.Len(t, aois, 1)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], ErrNoPolygons)

	_, _, err = Dir(filepath.Join(dir, "missing")).LoadAOIs()
	assert.Error(t, err)
}
