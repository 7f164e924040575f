package ruleset

import (
	"errors"
	"fmt"
	"os"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"gopkg.in/yaml.v3"
)

// LoadTemplate reads the actor template at path.
//
// Precondition: path must name a readable YAML file.
// Postcondition: Returns a template whose combat attributes and actions have
// unique IDs and known ability references, or a non-nil error.
func LoadTemplate(path string) (*character.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var tmpl character.Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template file %s: %w", path, err)
	}
	if err := ValidateTemplate(&tmpl); err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return &tmpl, nil
}

// ValidateTemplate reports every structural problem in tmpl.
func ValidateTemplate(tmpl *character.Template) error {
	var errs []error
	for k := range tmpl.Abilities {
		if !k.Valid() {
			errs = append(errs, fmt.Errorf("unknown ability %q", k))
		}
	}
	seen := make(map[string]bool)
	for _, c := range tmpl.Combatant {
		if c.ID == "" {
			errs = append(errs, errors.New("combat attribute with empty id"))
			continue
		}
		if seen["combatant."+c.ID] {
			errs = append(errs, fmt.Errorf("duplicate combat attribute %q", c.ID))
		}
		seen["combatant."+c.ID] = true
		if c.Key != "" && !c.Key.Valid() {
			errs = append(errs, fmt.Errorf("combat attribute %q references unknown ability %q", c.ID, c.Key))
		}
	}
	for _, a := range tmpl.Actions {
		if a.ID == "" {
			errs = append(errs, errors.New("action with empty id"))
			continue
		}
		if seen["actions."+a.ID] {
			errs = append(errs, fmt.Errorf("duplicate action %q", a.ID))
		}
		seen["actions."+a.ID] = true
		if !a.Key.Valid() {
			errs = append(errs, fmt.Errorf("action %q references unknown ability %q", a.ID, a.Key))
		}
	}
	if tmpl.HP < 0 || tmpl.MP < 0 {
		errs = append(errs, errors.New("hp and mp must be non-negative"))
	}
	return errors.Join(errs...)
}
