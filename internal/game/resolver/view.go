// Package resolver computes the derived view of an actor: ability totals,
// HP/MP maxima, and the dice formulas of combat attributes and actions.
package resolver

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
)

// AbilityView is the aggregated and derived state of one ability.
//
// Invariant: Value == Base + Point; Bonus == floor(Value / 3); Total == Bonus + Mod + Etc.
type AbilityView struct {
	Key   character.AbilityKey `json:"key"`
	Base  int                  `json:"base"`
	Point int                  `json:"point"`
	Mod   int                  `json:"mod"`
	Etc   int                  `json:"etc"`
	Value int                  `json:"value"`
	Bonus int                  `json:"bonus"`
	Total int                  `json:"total"`
}

// StatView is the aggregated and derived state of a combat attribute or action.
//
// Invariant: Formula == Formula(Dice, Value).
type StatView struct {
	Key     string               `json:"key"`
	Ref     character.AbilityKey `json:"ref,omitempty"`
	Dice    int                  `json:"dice"`
	Mod     int                  `json:"mod"`
	Value   int                  `json:"value"`
	Formula string               `json:"formula"`
}

// ResourceView is a derived HP or MP pair.
type ResourceView struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// View is the full derived, never-persisted state of an actor.
// Slices are ordered deterministically so identical inputs encode identically.
type View struct {
	ActorID   uuid.UUID           `json:"actor_id"`
	Name      string              `json:"name"`
	Type      character.ActorType `json:"type"`
	Level     int                 `json:"level"`
	Abilities []AbilityView       `json:"abilities"`
	HP        ResourceView        `json:"hp"`
	MP        ResourceView        `json:"mp"`
	Combatant []StatView          `json:"combatant"`
	Actions   []StatView          `json:"actions"`
	Warnings  []string            `json:"warnings,omitempty"`
}

// Ability returns the derived ability for k.
func (v *View) Ability(k character.AbilityKey) (AbilityView, bool) {
	for _, a := range v.Abilities {
		if a.Key == k {
			return a, true
		}
	}
	return AbilityView{}, false
}

// CombatAttribute returns the derived combat attribute for key.
func (v *View) CombatAttribute(key string) (StatView, bool) {
	return findStat(v.Combatant, key)
}

// Action returns the derived action for key.
func (v *View) Action(key string) (StatView, bool) {
	return findStat(v.Actions, key)
}

func findStat(stats []StatView, key string) (StatView, bool) {
	for _, s := range stats {
		if s.Key == key {
			return s, true
		}
	}
	return StatView{}, false
}

// Formula returns the 2D6-based roll formula for a stat with the given extra
// dice and flat value, e.g. Formula(1, 7) == "3D6+7".
//
// Postcondition: Returns "<dice+2>D6+<value>".
func Formula(dice, value int) string {
	return fmt.Sprintf("%dD6+%d", dice+2, value)
}

// RollData flattens v into the reference table used by "@path" tokens in
// roll formulas. Each ability is exposed at the top level ("str.total"),
// alongside "lvl", "hp.max", "combatant.<key>.value" and "actions.<key>.value".
//
// Postcondition: Returns a non-nil map.
func RollData(v *View) map[string]int {
	data := make(map[string]int, len(v.Abilities)*7+len(v.Combatant)*3+len(v.Actions)*3+6)
	for _, a := range v.Abilities {
		k := string(a.Key)
		data[k+".base"] = a.Base
		data[k+".point"] = a.Point
		data[k+".mod"] = a.Mod
		data[k+".etc"] = a.Etc
		data[k+".value"] = a.Value
		data[k+".bonus"] = a.Bonus
		data[k+".total"] = a.Total
	}
	data["lvl"] = v.Level
	data["hp.value"] = v.HP.Value
	data["hp.max"] = v.HP.Max
	data["mp.value"] = v.MP.Value
	data["mp.max"] = v.MP.Max
	for _, s := range v.Combatant {
		data["combatant."+s.Key+".dice"] = s.Dice
		data["combatant."+s.Key+".mod"] = s.Mod
		data["combatant."+s.Key+".value"] = s.Value
	}
	for _, s := range v.Actions {
		data["actions."+s.Key+".dice"] = s.Dice
		data["actions."+s.Key+".mod"] = s.Mod
		data["actions."+s.Key+".value"] = s.Value
	}
	return data
}
