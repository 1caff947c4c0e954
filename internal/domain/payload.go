package domain

import "time"

// MatchRecord is the machine-readable form of a Match.
type MatchRecord struct {
	Symbol      string  `json:"marker_symbol"`
	Color       string  `json:"marker_color,omitempty"`
	Icon        string  `json:"marker_icon,omitempty"`
	CaseNumber  string  `json:"casenumber,omitempty"`
	Category    string  `json:"crimetype,omitempty"`
	OccurredAt  string  `json:"datetime,omitempty"`
	Description string  `json:"description,omitempty"`
	Address     string  `json:"address,omitempty"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
}

// Payload is the JSON document published by the webhook and Kafka sinks.
type Payload struct {
	AOI         string        `json:"aoi"`
	Subject     string        `json:"subject"`
	MatchCount  int           `json:"match_count"`
	ImageURL    string        `json:"image_url,omitempty"`
	HTML        string        `json:"html"`
	Matches     []MatchRecord `json:"matches"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Payload flattens the notification for structured sinks.
func (n Notification) Payload() Payload {
	records := make([]MatchRecord, 0, len(n.Matches))
	for _, m := range n.Matches {
		records = append(records, MatchRecord{
			Symbol:      m.MarkerSymbol,
			Color:       m.MarkerColor,
			Icon:        m.MarkerIcon,
			CaseNumber:  Text(m.CaseNumber),
			Category:    Text(m.Category),
			OccurredAt:  Text(m.OccurredAt),
			Description: Text(m.Description),
			Address:     Text(m.Address),
			Lon:         m.Point.Lon(),
			Lat:         m.Point.Lat(),
		})
	}
	return Payload{
		AOI:         n.AOI,
		Subject:     n.Subject,
		MatchCount:  len(n.Matches),
		ImageURL:    n.ImageURL,
		HTML:        n.HTML(),
		Matches:     records,
		GeneratedAt: n.GeneratedAt,
	}
}
