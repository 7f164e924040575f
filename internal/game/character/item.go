package character

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidItemType is returned when an item type is not one of ItemTypes.
var ErrInvalidItemType = errors.New("invalid item type")

// ItemType is the variant tag of an owned item.
type ItemType string

// Item types.
const (
	ItemMainClass ItemType = "mainClass"
	ItemSubClass  ItemType = "subClass"
	ItemRace      ItemType = "race"
	ItemEquipment ItemType = "equipment"
	ItemSkill     ItemType = "skill"
)

// ItemTypes lists every item variant.
var ItemTypes = []ItemType{ItemMainClass, ItemSubClass, ItemRace, ItemEquipment, ItemSkill}

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	for _, known := range ItemTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Singleton reports whether an actor may own at most one item of type t.
func (t ItemType) Singleton() bool {
	return t == ItemMainClass || t == ItemSubClass || t == ItemRace
}

// AbilityBonus is an item's contribution to one ability: Base is added to the
// owner's base score, Value to the owner's mod.
type AbilityBonus struct {
	Base  int `json:"base" yaml:"base"`
	Value int `json:"value" yaml:"value"`
}

// DiceBonus is an item's contribution to a combat attribute or action.
type DiceBonus struct {
	Dice int `json:"dice" yaml:"dice"`
	Mod  int `json:"mod" yaml:"mod"`
}

// ItemAttributes holds the typed attribute block of an item. HP/MP fields are
// meaningful on class items, Class on skills, Position on equipment.
type ItemAttributes struct {
	BaseHP    int    `yaml:"base_hp"`
	RiseHP    int    `yaml:"rise_hp"`
	BaseMP    int    `yaml:"base_mp"`
	RiseMP    int    `yaml:"rise_mp"`
	Class     string `yaml:"class"`
	Position  string `yaml:"position"`
	CurrentSL int    `yaml:"current_sl"`
}

// Item is an owned class, race, equipment, or skill document.
type Item struct {
	ID      uuid.UUID
	ActorID uuid.UUID
	Name    string
	Type    ItemType
	Img     string
	Sort    int

	Abilities  map[AbilityKey]AbilityBonus
	Combatant  map[string]DiceBonus
	Actions    map[string]DiceBonus
	Attributes ItemAttributes

	Tags        []string
	Effects     string
	Description string
	Formula     string
}

// NewItem returns an unsaved item of type t named "New <Type>". For skills
// category becomes the class tag; for equipment it becomes the body position.
//
// Precondition: t must be a valid ItemType.
// Postcondition: Returns a new item with a fresh ID, or ErrInvalidItemType.
func NewItem(t ItemType, category string) (*Item, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidItemType, t)
	}
	it := &Item{
		ID:   uuid.New(),
		Name: "New " + capitalize(string(t)),
		Type: t,
	}
	switch t {
	case ItemSkill:
		it.Attributes.Class = category
	case ItemEquipment:
		it.Attributes.Position = category
	}
	return it, nil
}

// Clone returns a deep copy of it.
func (it *Item) Clone() *Item {
	out := *it
	if it.Abilities != nil {
		out.Abilities = make(map[AbilityKey]AbilityBonus, len(it.Abilities))
		for k, v := range it.Abilities {
			out.Abilities[k] = v
		}
	}
	out.Combatant = cloneDice(it.Combatant)
	out.Actions = cloneDice(it.Actions)
	out.Tags = append([]string(nil), it.Tags...)
	return &out
}

func cloneDice(in map[string]DiceBonus) map[string]DiceBonus {
	if in == nil {
		return nil
	}
	out := make(map[string]DiceBonus, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
