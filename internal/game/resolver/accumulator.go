package resolver

import (
	"sort"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
)

// accumulator holds per-pass sums seeded from the actor's stored values.
// It is rebuilt on every Resolve call, so nothing carries over between passes.
type accumulator struct {
	abilities map[character.AbilityKey]*AbilityView
	combatant map[string]*StatView
	actions   map[string]*StatView
}

func newAccumulator(a *character.Actor) *accumulator {
	acc := &accumulator{
		abilities: make(map[character.AbilityKey]*AbilityView, len(a.Abilities)),
		combatant: make(map[string]*StatView, len(a.Combatant)),
		actions:   make(map[string]*StatView, len(a.Actions)),
	}
	for k, ab := range a.Abilities {
		acc.abilities[k] = &AbilityView{Key: k, Base: ab.Base, Point: ab.Point, Mod: ab.Mod, Etc: ab.Etc}
	}
	for k, c := range a.Combatant {
		acc.combatant[k] = &StatView{Key: k, Ref: c.Ref, Dice: c.Dice, Mod: c.Mod}
	}
	for k, act := range a.Actions {
		acc.actions[k] = &StatView{Key: k, Ref: act.Ref, Dice: act.Dice, Mod: act.Mod}
	}
	return acc
}

// add sums the contributions of it into the accumulator. Sums are commutative, so
// item order does not affect the result.
func (acc *accumulator) add(it *character.Item) error {
	for k, b := range it.Abilities {
		ab, ok := acc.abilities[k]
		if !ok {
			return &character.ConfigurationError{
				Owner: it.Name, Block: "abilities", Key: string(k), Reason: "owner has no such ability",
			}
		}
		ab.Base += b.Base
		ab.Mod += b.Value
	}
	for k, b := range it.Combatant {
		c, ok := acc.combatant[k]
		if !ok {
			return &character.ConfigurationError{
				Owner: it.Name, Block: "combatant", Key: k, Reason: "owner has no such combat attribute",
			}
		}
		c.Dice += b.Dice
		c.Mod += b.Mod
	}
	for k, b := range it.Actions {
		act, ok := acc.actions[k]
		if !ok {
			return &character.ConfigurationError{
				Owner: it.Name, Block: "actions", Key: k, Reason: "owner has no such action",
			}
		}
		act.Dice += b.Dice
		act.Mod += b.Mod
	}
	return nil
}

// deriveAbilities computes value, bonus and total for every accumulated
// ability, in sheet order with unknown keys last.
func (acc *accumulator) deriveAbilities() []AbilityView {
	out := make([]AbilityView, 0, len(acc.abilities))
	seen := make(map[character.AbilityKey]bool, len(acc.abilities))
	for _, k := range character.AbilityKeys {
		if ab, ok := acc.abilities[k]; ok {
			out = append(out, derive(*ab))
			seen[k] = true
		}
	}
	var rest []string
	for k := range acc.abilities {
		if !seen[k] {
			rest = append(rest, string(k))
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		out = append(out, derive(*acc.abilities[character.AbilityKey(k)]))
	}
	return out
}

func derive(ab AbilityView) AbilityView {
	ab.Value = ab.Base + ab.Point
	ab.Bonus = floorDiv(ab.Value, 3)
	ab.Total = ab.Bonus + ab.Mod + ab.Etc
	return ab
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
