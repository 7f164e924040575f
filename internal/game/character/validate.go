package character

import (
	"errors"
	"fmt"
	"sort"
)

// ConfigurationError reports a stored block that names a key the actor does
// not define: a combat attribute or action referencing a missing ability, or
// an item contributing to an unknown ability, combat attribute, or action.
type ConfigurationError struct {
	// Owner is the actor or item name carrying the faulty entry.
	Owner string
	// Block is "abilities", "combatant", "actions", or "attributes".
	Block string
	// Key is the entry key within Block.
	Key string
	// Reference is the ability key the entry refers to, if any.
	Reference AbilityKey
	// Reason describes the violation.
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("configuration error: %s: %s.%s references ability %q: %s",
			e.Owner, e.Block, e.Key, e.Reference, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s.%s: %s", e.Owner, e.Block, e.Key, e.Reason)
}

// Validate checks that every reference in a and its items resolves.
//
// Postcondition: Returns nil, or an error joining one *ConfigurationError per
// violation in deterministic order.
func (a *Actor) Validate() error {
	var errs []error
	if !a.Type.Valid() {
		errs = append(errs, &ConfigurationError{
			Owner: a.Name, Block: "type", Key: string(a.Type), Reason: "unknown actor type",
		})
	}
	for _, key := range sortedKeys(a.Combatant) {
		ref := a.Combatant[key].Ref
		if ref == "" {
			continue
		}
		if _, ok := a.Abilities[ref]; !ok {
			errs = append(errs, &ConfigurationError{
				Owner: a.Name, Block: "combatant", Key: key, Reference: ref, Reason: "ability not defined",
			})
		}
	}
	for _, key := range sortedKeys(a.Actions) {
		ref := a.Actions[key].Ref
		if ref == "" {
			errs = append(errs, &ConfigurationError{
				Owner: a.Name, Block: "actions", Key: key, Reason: "reference ability is required",
			})
			continue
		}
		if _, ok := a.Abilities[ref]; !ok {
			errs = append(errs, &ConfigurationError{
				Owner: a.Name, Block: "actions", Key: key, Reference: ref, Reason: "ability not defined",
			})
		}
	}
	for _, it := range a.Items {
		errs = append(errs, a.validateItem(it)...)
	}
	return errors.Join(errs...)
}

// ValidateItem checks that every contribution of it names a key a defines,
// as it would have to if it were added to a.
func (a *Actor) ValidateItem(it *Item) error {
	return errors.Join(a.validateItem(it)...)
}

func (a *Actor) validateItem(it *Item) []error {
	var errs []error
	if !it.Type.Valid() {
		errs = append(errs, &ConfigurationError{
			Owner: it.Name, Block: "type", Key: string(it.Type), Reason: "unknown item type",
		})
	}
	for _, key := range sortedKeys(it.Abilities) {
		if _, ok := a.Abilities[AbilityKey(key)]; !ok {
			errs = append(errs, &ConfigurationError{
				Owner: it.Name, Block: "abilities", Key: key, Reason: "owner has no such ability",
			})
		}
	}
	for _, key := range sortedKeys(it.Combatant) {
		if _, ok := a.Combatant[key]; !ok {
			errs = append(errs, &ConfigurationError{
				Owner: it.Name, Block: "combatant", Key: key, Reason: "owner has no such combat attribute",
			})
		}
	}
	for _, key := range sortedKeys(it.Actions) {
		if _, ok := a.Actions[key]; !ok {
			errs = append(errs, &ConfigurationError{
				Owner: it.Name, Block: "actions", Key: key, Reason: "owner has no such action",
			})
		}
	}
	return errs
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
