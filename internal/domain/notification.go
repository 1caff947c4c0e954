package domain

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// SubjectIncidents is the subject of notifications that list matches.
const SubjectIncidents = "Incidents"

// MapRenderer turns a GeoJSON marker collection into a static map image URL.
type MapRenderer interface {
	StaticMapURL(geojson []byte) string
}

// Notification is the message composed for one AOI.
type Notification struct {
	AOI         string    `json:"aoi"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	TableHTML   string    `json:"table_html,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Matches     []Match   `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

// HasIncidents reports whether the notification lists any matches.
func (n Notification) HasIncidents() bool { return len(n.Matches) > 0 }

// HTML renders the message body: a paragraph, the map image and the table.
func (n Notification) HTML() string {
	var b strings.Builder
	b.WriteString("<p>")
	b.WriteString(html.EscapeString(n.Body))
	b.WriteString("</p>")
	if n.ImageURL != "" {
		b.WriteString("<br><img src='")
		b.WriteString(html.EscapeString(n.ImageURL))
		b.WriteString("'>")
	}
	if n.TableHTML != "" {
		b.WriteString("<br>")
		b.WriteString(n.TableHTML)
	}
	return b.String()
}

// Compose builds the notification for aoi. With no matches it is a
// "no incidents" message without table or image.
func Compose(aoi string, matches []Match, renderer MapRenderer) (Notification, error) {
	n := Notification{
		AOI:         aoi,
		Body:        aoi,
		GeneratedAt: clock.Now().UTC(),
	}
	if len(matches) == 0 {
		n.Subject = "No incidents for " + aoi
		return n, nil
	}

	n.Subject = SubjectIncidents
	n.Matches = matches

	table, err := RenderTable(matches)
	if err != nil {
		return Notification{}, err
	}
	n.TableHTML = table

	payload, err := MarkerCollection(matches)
	if err != nil {
		return Notification{}, err
	}
	n.ImageURL = renderer.StaticMapURL(payload)
	return n, nil
}

// MarkerCollection encodes matches as a GeoJSON FeatureCollection of points
// carrying only marker-color and marker-symbol properties.
func MarkerCollection(matches []Match) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, m := range matches {
		f := geojson.NewFeature(m.Point)
		if m.MarkerColor != "" {
			f.Properties["marker-color"] = m.MarkerColor
		}
		f.Properties["marker-symbol"] = m.MarkerSymbol
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode marker collection: %w", err)
	}
	return data, nil
}

// TableColumns are the headers of the notification table, in order.
var TableColumns = []string{"marker-symbol", "casenumber", "crimetype", "datetime", "description", "address"}

var tableTemplate = template.Must(template.New("table").Parse(`<table border="1" class="dataframe">
  <thead>
    <tr style="text-align: right;">
{{- range .Columns}}
      <th>{{.}}</th>
{{- end}}
    </tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr>
{{- range .}}
      <td>{{.}}</td>
{{- end}}
    </tr>
{{- end}}
  </tbody>
</table>`))

// RenderTable renders matches as an HTML table in match order.
func RenderTable(matches []Match) (string, error) {
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{
			m.MarkerSymbol,
			Text(m.CaseNumber),
			Text(m.Category),
			Text(m.OccurredAt),
			Text(m.Description),
			Text(m.Address),
		})
	}

	var buf bytes.Buffer
	err := tableTemplate.Execute(&buf, struct {
		Columns []string
		Rows    [][]string
	}{Columns: TableColumns, Rows: rows})
	if err != nil {
		return "", fmt.Errorf("render table: %w", err)
	}
	return buf.String(), nil
}
