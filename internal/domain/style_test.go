package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchWithCategory(category string) Match {
	m := Match{}
	if category != "" {
		m.Category = strPtr(category)
	}
	return m
}

func TestStyleRules_Lookup(t *testing.T) {
	rules := DefaultStyleRules()

	cases := []struct {
		category string
		color    string
		ok       bool
	}{
		{"ASSAULT/BATTERY", "#a83232", true},
		{"Burglary - Residential", "#000000", true},
		{"STOLEN VEHICLE", "#8132a8", true},
		{"WEAPONS", "#00ffd5", true},
		{"robbery", "#001999", true},
		{"VANDALISM", "#ff9d00", true},
		{"PETTY THEFT", "#20422f", true},
		{"NARCOTICS", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.category, func(t *testing.T) {
			rule, ok := rules.Lookup(strPtr(tc.category))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.color, rule.Color)
		})
	}

	_, ok := rules.Lookup(nil)
	assert.False(t, ok)
}

func TestStyleRules_FirstMatchWins(t *testing.T) {
	// "VEHICLE THEFT" matches both vehicle and theft; vehicle comes first.
	rule, ok := DefaultStyleRules().Lookup(strPtr("VEHICLE THEFT"))
	require.True(t, ok)
	assert.Equal(t, "vehicle", rule.Match)

	reordered := StyleRules{
		{Match: "theft", Color: "#111111"},
		{Match: "vehicle", Color: "#222222"},
	}
	rule, ok = reordered.Lookup(strPtr("VEHICLE THEFT"))
	require.True(t, ok)
	assert.Equal(t, "#111111", rule.Color)
}

func TestStyleRules_Annotate(t *testing.T) {
	matches := []Match{
		matchWithCategory("ASSAULT/BATTERY"),
		matchWithCategory("NARCOTICS"),
		matchWithCategory(""),
		matchWithCategory("GRAND THEFT"),
	}

	got := DefaultStyleRules().Annotate(matches)

	require.Len(t, got, 4)
	assert.Equal(t, "#a83232", got[0].MarkerColor)
	assert.Equal(t, "baseball", got[0].MarkerIcon)
	assert.Empty(t, got[1].MarkerColor)
	assert.Empty(t, got[2].MarkerColor)
	assert.Equal(t, "#20422f", got[3].MarkerColor)

	for i, m := range got {
		assert.Equal(t, []string{"1", "2", "3", "4"}[i], m.MarkerSymbol)
	}
	assert.Empty(t, matches[0].MarkerSymbol, "input is not mutated")
}

func TestStyleRules_AnnotateDeterministic(t *testing.T) {
	matches := []Match{
		matchWithCategory("VANDALISM"),
		matchWithCategory("ROBBERY"),
		matchWithCategory("VEHICLE THEFT"),
	}
	rules := DefaultStyleRules()

	first := rules.Annotate(matches)
	for range 10 {
		if diff := cmp.Diff(first, rules.Annotate(matches)); diff != "" {
			t.Fatalf("annotation changed between runs (-first +again):\n%s", diff)
		}
	}
}
