package character

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CombatDef declares one combat attribute of the actor template.
type CombatDef struct {
	ID   string     `yaml:"id"`
	Key  AbilityKey `yaml:"key"`
	Dice int        `yaml:"dice"`
	Mod  int        `yaml:"mod"`
}

// ActionDef declares one action of the actor template.
type ActionDef struct {
	ID   string     `yaml:"id"`
	Key  AbilityKey `yaml:"key"`
	Dice int        `yaml:"dice"`
	Mod  int        `yaml:"mod"`
}

// Template holds the default stored data for newly created actors. Combat
// attributes and actions are lists so the template also fixes sheet order.
type Template struct {
	Abilities map[AbilityKey]Ability `yaml:"abilities"`
	Combatant []CombatDef            `yaml:"combatant"`
	Actions   []ActionDef            `yaml:"actions"`
	HP        int                    `yaml:"hp"`
	MP        int                    `yaml:"mp"`
}

// CombatOrder returns the combat attribute IDs in template order.
func (t *Template) CombatOrder() []string {
	out := make([]string, 0, len(t.Combatant))
	for _, c := range t.Combatant {
		out = append(out, c.ID)
	}
	return out
}

// ActionOrder returns the action IDs in template order.
func (t *Template) ActionOrder() []string {
	out := make([]string, 0, len(t.Actions))
	for _, a := range t.Actions {
		out = append(out, a.ID)
	}
	return out
}

// Build constructs a new level-1 actor from tmpl. Every ability key is
// present even when tmpl omits it.
//
// Precondition: name must be non-empty; typ must be valid; tmpl must be non-nil.
// Postcondition: Returns an actor with a fresh ID that passes Validate, or a non-nil error.
func Build(name string, typ ActorType, tmpl *Template) (*Actor, error) {
	if name == "" {
		return nil, errors.New("actor name must not be empty")
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown actor type %q", typ)
	}
	if tmpl == nil {
		return nil, errors.New("template must not be nil")
	}

	a := &Actor{
		ID:        uuid.New(),
		Name:      name,
		Type:      typ,
		Level:     1,
		HP:        Resource{Value: tmpl.HP, Max: tmpl.HP},
		MP:        Resource{Value: tmpl.MP, Max: tmpl.MP},
		Abilities: make(map[AbilityKey]Ability, len(AbilityKeys)),
		Combatant: make(map[string]CombatAttribute, len(tmpl.Combatant)),
		Actions:   make(map[string]Action, len(tmpl.Actions)),
	}
	for _, k := range AbilityKeys {
		a.Abilities[k] = tmpl.Abilities[k]
	}
	for _, c := range tmpl.Combatant {
		a.Combatant[c.ID] = CombatAttribute{Dice: c.Dice, Mod: c.Mod, Ref: c.Key}
	}
	for _, act := range tmpl.Actions {
		a.Actions[act.ID] = Action{Dice: act.Dice, Mod: act.Mod, Ref: act.Key}
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("building actor %q: %w", name, err)
	}
	return a, nil
}

// AbilityName returns the short display label for an ability key.
func AbilityName(k AbilityKey) string {
	names := map[AbilityKey]string{
		Str: "STR",
		Dex: "DEX",
		Agi: "AGI",
		Int: "INT",
		Per: "PER",
		Mnd: "MND",
		Luk: "LUK",
	}
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("<%s>", k)
}
