package planner

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EquipmentRule adds items to a plan when its conditions hold. A rule with
// no label condition matches every non-empty detection list.
type EquipmentRule struct {
	Name string `yaml:"name"`
	// LabelContains matches when any detection label contains any of these
	// substrings (case-insensitive).
	LabelContains []string `yaml:"label_contains,omitempty"`
	// CountAbove matches when the detection count is strictly greater.
	CountAbove int      `yaml:"count_above,omitempty"`
	Add        []string `yaml:"add"`
}

func (r EquipmentRule) matches(labels []string, count int) bool {
	if count <= r.CountAbove {
		return false
	}
	if len(r.LabelContains) == 0 {
		return true
	}
	for _, label := range labels {
		lower := strings.ToLower(label)
		for _, sub := range r.LabelContains {
			if strings.Contains(lower, strings.ToLower(sub)) {
				return true
			}
		}
	}
	return false
}

// Rules is the equipment configuration, evaluated in order.
type Rules struct {
	Equipment []EquipmentRule `yaml:"equipment"`
}

// DefaultRules returns the built-in equipment rules.
func DefaultRules() Rules {
	return Rules{Equipment: []EquipmentRule{
		{
			Name: "base",
			Add:  []string{"Heavy-duty trash bags", "Gloves", "Grabber tools"},
		},
		{
			Name:          "glass",
			LabelContains: []string{"glass"},
			Add:           []string{"Safety goggles", "Puncture-resistant bags"},
		},
		{
			Name:       "volume",
			CountAbove: 10,
			Add:        []string{"Wheeled collection bin"},
		},
	}}
}

// Validate checks that every rule adds at least one item.
func (r Rules) Validate() error {
	for i, rule := range r.Equipment {
		if len(rule.Add) == 0 {
			return fmt.Errorf("equipment rule %d (%s): add must not be empty", i, rule.Name)
		}
		if rule.CountAbove < 0 {
			return fmt.Errorf("equipment rule %d (%s): count_above must not be negative", i, rule.Name)
		}
	}
	return nil
}

// EquipmentFor evaluates the rules against the distinct labels and count.
// Items keep first-insertion order and never repeat.
func (r Rules) EquipmentFor(labels []string, count int) []string {
	items := make([]string, 0)
	if count == 0 {
		return items
	}
	seen := make(map[string]struct{})
	for _, rule := range r.Equipment {
		if !rule.matches(labels, count) {
			continue
		}
		for _, item := range rule.Add {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			items = append(items, item)
		}
	}
	return items
}

// ParseRules decodes YAML equipment rules. Unknown fields are rejected.
func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil {
		return Rules{}, fmt.Errorf("decode equipment rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// LoadRules reads equipment rules from a YAML file. An empty path yields
// DefaultRules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read equipment rules: %w", err)
	}
	return ParseRules(data)
}
