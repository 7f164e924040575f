package resolver

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
)

// ErrUnknownActorType is returned when an actor's type has no derivation rules.
var ErrUnknownActorType = errors.New("unknown actor type")

// movementBase is the flat bonus every movement score starts from.
const movementBase = 5

// combatPolicy is the per-key adjustment applied to a combat attribute after
// its own mod and reference ability.
type combatPolicy struct {
	ability character.AbilityKey
	flat    int
}

var combatPolicies = map[string]combatPolicy{
	"actionPoints": {ability: character.Per},
	"movement":     {flat: movementBase},
}

// Resolver derives views from stored actors. A Resolver holds no per-actor
// state and is safe for concurrent use.
type Resolver struct {
	logger      *zap.Logger
	combatOrder []string
	actionOrder []string
}

// New creates a Resolver. When tmpl is non-nil its combat attribute and action
// order is used for view ordering; keys not in tmpl follow in lexical order.
//
// Precondition: logger must be non-nil.
func New(logger *zap.Logger, tmpl *character.Template) *Resolver {
	r := &Resolver{logger: logger}
	if tmpl != nil {
		r.combatOrder = tmpl.CombatOrder()
		r.actionOrder = tmpl.ActionOrder()
	}
	return r
}

// Resolve computes the derived view of a. The stored actor is not modified.
//
// HP.max and MP.max grow linearly with level only from level 1 up: a level
// below 1 is treated as 1 for class growth and reported in View.Warnings, so
// levels 0 and 1 yield the same maxima.
//
// Precondition: a must be non-nil.
// Postcondition: Returns a View, or a *character.ConfigurationError when a
// reference or contribution names a key a does not define, or
// ErrUnknownActorType. Identical inputs yield identical views.
func (r *Resolver) Resolve(a *character.Actor) (*View, error) {
	if a == nil {
		return nil, errors.New("resolver: actor must not be nil")
	}
	var (
		v   *View
		err error
	)
	switch a.Type {
	case character.TypeCharacter:
		v, err = r.resolveCharacter(a)
	case character.TypeNPC:
		v, err = r.resolveNPC(a)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActorType, a.Type)
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("actor resolved",
		zap.String("actor", a.Name),
		zap.String("type", string(a.Type)),
		zap.Int("items", len(a.Items)),
		zap.Int("warnings", len(v.Warnings)),
	)
	return v, nil
}

func (r *Resolver) resolveCharacter(a *character.Actor) (*View, error) {
	acc := newAccumulator(a)
	for _, it := range a.Items {
		if err := acc.add(it); err != nil {
			return nil, err
		}
	}
	abilities := acc.deriveAbilities()

	v := &View{
		ActorID:   a.ID,
		Name:      a.Name,
		Type:      a.Type,
		Level:     a.Level,
		Abilities: abilities,
	}

	level := a.Level
	if level < 1 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("level %d is below 1; HP/MP growth computed for level 1", a.Level))
		level = 1
	}
	str, ok := v.Ability(character.Str)
	if !ok {
		return nil, &character.ConfigurationError{
			Owner: a.Name, Block: "attributes", Key: "HP", Reference: character.Str, Reason: "ability not defined",
		}
	}
	mnd, ok := v.Ability(character.Mnd)
	if !ok {
		return nil, &character.ConfigurationError{
			Owner: a.Name, Block: "attributes", Key: "MP", Reference: character.Mnd, Reason: "ability not defined",
		}
	}
	var mainAttrs, subAttrs character.ItemAttributes
	if main := a.ItemOfType(character.ItemMainClass); main != nil {
		mainAttrs = main.Attributes
	}
	if sub := a.ItemOfType(character.ItemSubClass); sub != nil {
		subAttrs = sub.Attributes
	}
	v.HP = ResourceView{
		Value: a.HP.Value,
		Max:   str.Value + mainAttrs.BaseHP + subAttrs.BaseHP + mainAttrs.RiseHP*(level-1),
	}
	v.MP = ResourceView{
		Value: a.MP.Value,
		Max:   mnd.Value + mainAttrs.BaseMP + subAttrs.BaseMP + mainAttrs.RiseMP*(level-1),
	}

	var err error
	if v.Combatant, err = r.deriveCombatant(a.Name, acc, v); err != nil {
		return nil, err
	}
	if v.Actions, err = r.deriveActions(a.Name, acc, v); err != nil {
		return nil, err
	}
	return v, nil
}

// resolveNPC derives totals and formulas from the NPC's own stored blocks.
// NPCs carry no class progression, so their stored HP/MP maxima stand.
func (r *Resolver) resolveNPC(a *character.Actor) (*View, error) {
	acc := newAccumulator(a)
	v := &View{
		ActorID:   a.ID,
		Name:      a.Name,
		Type:      a.Type,
		Level:     a.Level,
		Abilities: acc.deriveAbilities(),
		HP:        ResourceView{Value: a.HP.Value, Max: a.HP.Max},
		MP:        ResourceView{Value: a.MP.Value, Max: a.MP.Max},
	}
	var err error
	if v.Combatant, err = r.deriveCombatant(a.Name, acc, v); err != nil {
		return nil, err
	}
	if v.Actions, err = r.deriveActions(a.Name, acc, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Resolver) deriveCombatant(owner string, acc *accumulator, v *View) ([]StatView, error) {
	out := make([]StatView, 0, len(acc.combatant))
	for _, key := range ordered(acc.combatant, r.combatOrder) {
		s := *acc.combatant[key]
		s.Value = s.Mod
		if s.Ref != "" {
			ref, ok := v.Ability(s.Ref)
			if !ok {
				return nil, &character.ConfigurationError{
					Owner: owner, Block: "combatant", Key: key, Reference: s.Ref, Reason: "ability not defined",
				}
			}
			s.Value += ref.Total
		}
		if p, ok := combatPolicies[key]; ok {
			if p.ability != "" {
				bonus, ok := v.Ability(p.ability)
				if !ok {
					return nil, &character.ConfigurationError{
						Owner: owner, Block: "combatant", Key: key, Reference: p.ability, Reason: "ability not defined",
					}
				}
				s.Value += bonus.Total
			}
			s.Value += p.flat
		}
		s.Formula = Formula(s.Dice, s.Value)
		out = append(out, s)
	}
	return out, nil
}

func (r *Resolver) deriveActions(owner string, acc *accumulator, v *View) ([]StatView, error) {
	out := make([]StatView, 0, len(acc.actions))
	for _, key := range ordered(acc.actions, r.actionOrder) {
		s := *acc.actions[key]
		if s.Ref == "" {
			return nil, &character.ConfigurationError{
				Owner: owner, Block: "actions", Key: key, Reason: "reference ability is required",
			}
		}
		ref, ok := v.Ability(s.Ref)
		if !ok {
			return nil, &character.ConfigurationError{
				Owner: owner, Block: "actions", Key: key, Reference: s.Ref, Reason: "ability not defined",
			}
		}
		s.Value = ref.Total + s.Mod
		s.Formula = Formula(s.Dice, s.Value)
		out = append(out, s)
	}
	return out, nil
}

// ordered returns the keys of m: those listed in order first, in that order,
// then the rest lexically.
func ordered(m map[string]*StatView, order []string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
