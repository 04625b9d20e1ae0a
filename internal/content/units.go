package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed units.yaml
var defaultUnitsYAML []byte

// Unit is one entry of the course navigation.
type Unit struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
}

// Units is the ordered, fixed set of units a lecture may belong to.
type Units []Unit

// Contains reports whether id names a known unit.
func (u Units) Contains(id string) bool {
	for _, unit := range u {
		if unit.ID == id {
			return true
		}
	}
	return false
}

// ParseUnits decodes a units document of the form `units: [{id, title}]`.
func ParseUnits(data []byte) (Units, error) {
	var doc struct {
		Units Units `yaml:"units"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode units: %w", err)
	}
	if len(doc.Units) == 0 {
		return nil, fmt.Errorf("units document defines no units")
	}
	seen := make(map[string]bool, len(doc.Units))
	for i, unit := range doc.Units {
		if unit.ID == "" {
			return nil, fmt.Errorf("unit %d has an empty id", i)
		}
		if seen[unit.ID] {
			return nil, fmt.Errorf("unit %q is defined twice", unit.ID)
		}
		seen[unit.ID] = true
	}
	return doc.Units, nil
}

// DefaultUnits returns the built-in course units.
func DefaultUnits() Units {
	units, err := ParseUnits(defaultUnitsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded units.yaml is invalid: %v", err))
	}
	return units
}
