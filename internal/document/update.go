package document

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var derivedLeaves = map[string]map[string]bool{
	"abilities": {"value": true, "bonus": true, "total": true, "label": true},
	"combatant": {"value": true, "formula": true, "label": true},
	"actions":   {"value": true, "formula": true, "label": true},
}

// CheckPath reports whether an update may write path on an actor of the given
// type. Only "name", "img" and "system.*" paths are writable.
func CheckPath(actorType, path string) error {
	parts := strings.Split(path, ".")
	switch {
	case path == "name" || path == "img":
		return nil
	case len(parts) < 2 || parts[0] != "system" || slices.Contains(parts, ""):
		return fmt.Errorf("%w: %q", ErrImmutableField, path)
	}
	if len(parts) == 4 && derivedLeaves[parts[1]][parts[3]] {
		return fmt.Errorf("%w: %q", ErrDerivedField, path)
	}
	if actorType == "character" && len(parts) == 4 && parts[1] == "attributes" &&
		(parts[2] == "HP" || parts[2] == "MP") && parts[3] == "max" {
		return fmt.Errorf("%w: %q", ErrDerivedField, path)
	}
	return nil
}

// ApplyUpdates writes each path/value pair of updates into the actor document
// doc. Paths are applied in sorted order so the result does not depend on map
// iteration.
//
// Postcondition: Returns the updated document, or an error
// joining every rejected path.
func ApplyUpdates(doc []byte, updates map[string]any) ([]byte, error) {
	if !gjson.ValidBytes(doc) {
		return nil, errors.New("actor document is not valid JSON")
	}
	actorType := gjson.GetBytes(doc, "type").String()
	paths := make([]string, 0, len(updates))
	for p := range updates {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var errs []error
	for _, p := range paths {
		if err := CheckPath(actorType, p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	out := doc
	for _, p := range paths {
		var err error
		out, err = sjson.SetBytes(out, p, updates[p])
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", p, err)
		}
	}
	return out, nil
}
