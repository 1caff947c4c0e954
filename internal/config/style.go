package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

// styleFile is the YAML layout of STYLE_RULES_FILE:
//
//	rules:
//	  - match: assault
//	    color: "#a83232"
//	    icon: baseball
type styleFile struct {
	Rules domain.StyleRules `yaml:"rules"`
}

// LoadStyleRules returns the marker style rules from path, in file order.
// An empty path yields the built-in defaults.
func LoadStyleRules(path string) (domain.StyleRules, error) {
	if path == "" {
		return domain.DefaultStyleRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read STYLE_RULES_FILE: %w", err)
	}

	var f styleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse STYLE_RULES_FILE %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, errors.New("STYLE_RULES_FILE has no rules")
	}
	for i, r := range f.Rules {
		if strings.TrimSpace(r.Match) == "" {
			return nil, fmt.Errorf("STYLE_RULES_FILE rule %d: match is required", i+1)
		}
	}
	return f.Rules, nil
}
