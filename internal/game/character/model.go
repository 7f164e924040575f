// Package character defines the actor and item domain model for Arianrhod
// sheets: stored ability scores, combat attributes, actions, and owned items.
package character

import (
	"time"

	"github.com/google/uuid"
)

// AbilityKey identifies one of the seven Arianrhod ability scores.
type AbilityKey string

// Ability keys.
const (
	Str AbilityKey = "str"
	Dex AbilityKey = "dex"
	Agi AbilityKey = "agi"
	Int AbilityKey = "int"
	Per AbilityKey = "per"
	Mnd AbilityKey = "mnd"
	Luk AbilityKey = "luk"
)

// AbilityKeys lists every ability key in sheet order.
var AbilityKeys = []AbilityKey{Str, Dex, Agi, Int, Per, Mnd, Luk}

// Valid reports whether k names one of the seven abilities.
func (k AbilityKey) Valid() bool {
	for _, known := range AbilityKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Ability holds the stored fields of one ability score.
// Value, bonus and total are derived and never stored.
type Ability struct {
	Base  int `json:"base" yaml:"base"`
	Point int `json:"point" yaml:"point"`
	Mod   int `json:"mod" yaml:"mod"`
	Etc   int `json:"etc" yaml:"etc"`
}

// CombatAttribute holds the stored fields of a combat statistic such as hit,
// evasion, actionPoints or movement. Ref is optional.
type CombatAttribute struct {
	Dice int        `json:"dice" yaml:"dice"`
	Mod  int        `json:"mod" yaml:"mod"`
	Ref  AbilityKey `json:"key,omitempty" yaml:"key"`
}

// Action holds the stored fields of an ability-driven check such as trap
// detection. Ref is mandatory.
type Action struct {
	Dice int        `json:"dice" yaml:"dice"`
	Mod  int        `json:"mod" yaml:"mod"`
	Ref  AbilityKey `json:"key" yaml:"key"`
}

// Resource is a current/maximum pair (HP, MP). Max is derived for characters.
type Resource struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// ActorType selects how an actor's derived data is prepared.
type ActorType string

// Actor types.
const (
	TypeCharacter ActorType = "character"
	TypeNPC       ActorType = "npc"
)

// Valid reports whether t is a known actor type.
func (t ActorType) Valid() bool {
	return t == TypeCharacter || t == TypeNPC
}

// Actor is a stored character or NPC document.
//
// ID is set by the persistence layer or by Build; the zero UUID indicates an
// unsaved actor.
type Actor struct {
	ID   uuid.UUID
	Name string
	Type ActorType
	Img  string

	Level     int
	HP        Resource
	MP        Resource
	Abilities map[AbilityKey]Ability
	Combatant map[string]CombatAttribute
	Actions   map[string]Action
	Biography string

	Items []*Item

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemOfType returns the owned item of type t that sorts last, or nil.
// Duplicate mainClass/subClass/race items are tolerated: the highest Sort
// wins, and among equal Sort values the later item in a.Items wins. The sheet
// fills its class slots in the same order.
func (a *Actor) ItemOfType(t ItemType) *Item {
	var found *Item
	for _, it := range a.Items {
		if it.Type == t && (found == nil || it.Sort >= found.Sort) {
			found = it
		}
	}
	return found
}

// Item returns the owned item with the given ID.
func (a *Actor) Item(id uuid.UUID) (*Item, bool) {
	for _, it := range a.Items {
		if it.ID == id {
			return it, true
		}
	}
	return nil, false
}
