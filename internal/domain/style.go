package domain

import (
	"strconv"
	"strings"
)

// StyleRule maps a category substring to a marker color and icon.
type StyleRule struct {
	Match string `yaml:"match" json:"match"`
	Color string `yaml:"color" json:"color"`
	Icon  string `yaml:"icon" json:"icon,omitempty"`
}

// StyleRules is evaluated in order; the first rule whose Match occurs in the
// category (case-insensitive) wins.
type StyleRules []StyleRule

// DefaultStyleRules returns the built-in rules in priority order.
func DefaultStyleRules() StyleRules {
	return StyleRules{
		{Match: "assault", Color: "#a83232", Icon: "baseball"},
		{Match: "burglary", Color: "#000000", Icon: "baseball"},
		{Match: "vehicle", Color: "#8132a8", Icon: "car"},
		{Match: "weapons", Color: "#00ffd5", Icon: "car"},
		{Match: "robbery", Color: "#001999", Icon: "car"},
		{Match: "vandalism", Color: "#ff9d00", Icon: "car"},
		{Match: "theft", Color: "#20422f", Icon: "car"},
	}
}

// Lookup returns the first rule matching category.
func (r StyleRules) Lookup(category *string) (StyleRule, bool) {
	if category == nil {
		return StyleRule{}, false
	}
	c := strings.ToLower(*category)
	for _, rule := range r {
		if rule.Match != "" && strings.Contains(c, strings.ToLower(rule.Match)) {
			return rule, true
		}
	}
	return StyleRule{}, false
}

// Annotate returns a copy of matches with marker color, icon and a 1-based
// marker symbol assigned in match order.
func (r StyleRules) Annotate(matches []Match) []Match {
	out := make([]Match, len(matches))
	for i, m := range matches {
		m.MarkerColor, m.MarkerIcon = "", ""
		if rule, ok := r.Lookup(m.Category); ok {
			m.MarkerColor = rule.Color
			m.MarkerIcon = rule.Icon
		}
		m.MarkerSymbol = strconv.Itoa(i + 1)
		out[i] = m
	}
	return out
}
