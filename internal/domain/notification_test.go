package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRenderer captures the payload it was asked to render.
type recordingRenderer struct {
	payload []byte
}

func (r *recordingRenderer) StaticMapURL(geojson []byte) string {
	r.payload = geojson
	return "https://maps.test/static?q=" + string(geojson)
}

func styledMatch(symbol, caseNumber, category string, p orb.Point) Match {
	return Match{
		Located: Located{
			Incident: Incident{
				CaseNumber:  strPtr(caseNumber),
				Category:    strPtr(category),
				OccurredAt:  strPtr("2024-04-26T10:00:00.000"),
				Description: strPtr("desc <" + caseNumber + ">"),
				Address:     strPtr("1 MAIN ST"),
			},
			Point: p,
		},
		MarkerSymbol: symbol,
	}
}

func freezeClock(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })
	return now
}

func TestCompose_NoMatches(t *testing.T) {
	now := freezeClock(t)
	r := &recordingRenderer{}

	n, err := Compose("Lake Merritt", nil, r)
	require.NoError(t, err)

	assert.Equal(t, "No incidents for Lake Merritt", n.Subject)
	assert.Equal(t, "Lake Merritt", n.Body)
	assert.Empty(t, n.TableHTML)
	assert.Empty(t, n.ImageURL)
	assert.False(t, n.HasIncidents())
	assert.Nil(t, r.payload, "renderer is not called")
	assert.Equal(t, now, n.GeneratedAt)
	assert.Equal(t, "<p>Lake Merritt</p>", n.HTML())
}

func TestCompose_WithMatches(t *testing.T) {
	freezeClock(t)
	r := &recordingRenderer{}

	a := styledMatch("1", "24-1", "ASSAULT", orb.Point{-122.26, 37.80})
	a.MarkerColor = "#a83232"
	b := styledMatch("2", "24-2", "NARCOTICS", orb.Point{-122.25, 37.81})

	n, err := Compose("Downtown", []Match{a, b}, r)
	require.NoError(t, err)

	assert.Equal(t, SubjectIncidents, n.Subject)
	assert.Equal(t, "Downtown", n.Body)
	assert.True(t, n.HasIncidents())
	assert.Equal(t, 2, strings.Count(n.TableHTML, "<tr>"), "one row per match")
	assert.Less(t, strings.Index(n.TableHTML, "24-1"), strings.Index(n.TableHTML, "24-2"))
	assert.Contains(t, n.TableHTML, "desc &lt;24-1&gt;", "cell text is escaped")
	assert.True(t, strings.HasPrefix(n.ImageURL, "https://maps.test/static?q="))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(r.payload, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, []float64{-122.26, 37.80}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, map[string]any{"marker-color": "#a83232", "marker-symbol": "1"}, fc.Features[0].Properties)
	assert.Equal(t, map[string]any{"marker-symbol": "2"}, fc.Features[1].Properties, "unset color is omitted")

	html := n.HTML()
	assert.True(t, strings.HasPrefix(html, "<p>Downtown</p><br><img src='https://maps.test/static?q="))
	assert.True(t, strings.HasSuffix(html, "</table>"))
}

func TestRenderTable_Columns(t *testing.T) {
	m := styledMatch("7", "24-7", "THEFT", orb.Point{0, 0})
	m.Address = nil

	table, err := RenderTable([]Match{m})
	require.NoError(t, err)

	last := -1
	for _, col := range TableColumns {
		idx := strings.Index(table, "<th>"+col+"</th>")
		require.GreaterOrEqual(t, idx, 0, col)
		assert.Greater(t, idx, last, "column order")
		last = idx
	}
	assert.Contains(t, table, "<td>7</td>")
	assert.Contains(t, table, "<td></td>", "absent address renders empty")
}

func TestMarkerCollection_Deterministic(t *testing.T) {
	matches := []Match{
		styledMatch("1", "a", "THEFT", orb.Point{1, 2}),
		styledMatch("2", "b", "THEFT", orb.Point{3, 4}),
	}
	first, err := MarkerCollection(matches)
	require.NoError(t, err)
	again, err := MarkerCollection(matches)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(again))
	assert.NotContains(t, string(first), "casenumber", "only styling properties are encoded")
}
