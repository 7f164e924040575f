package sheet

import (
	"maps"
	"slices"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
)

// ItemText is the expandable effect/description fragment shown under an item
// title on the sheet. Empty sections are omitted.
type ItemText struct {
	Effects          string `json:"effects,omitempty"`
	EffectsLabel     string `json:"effects_label"`
	Description      string `json:"description,omitempty"`
	DescriptionLabel string `json:"description_label"`
}

// Empty reports whether the fragment has nothing to show.
func (t *ItemText) Empty() bool {
	return t.Effects == "" && t.Description == ""
}

// BuildItemText returns the fragment for it.
func BuildItemText(it *character.Item, loc i18n.Localizer) *ItemText {
	return &ItemText{
		Effects:          it.Effects,
		EffectsLabel:     loc.Localize(i18n.KeyEffects),
		Description:      it.Description,
		DescriptionLabel: loc.Localize(i18n.KeyDescription),
	}
}

// LabeledValue is one localized key/value line of an item detail.
type LabeledValue struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Base  int    `json:"base,omitempty"`
	Dice  int    `json:"dice,omitempty"`
	Value int    `json:"value"`
}

// ItemDetail is an item with every contribution block labelled.
type ItemDetail struct {
	Entry      ItemEntry      `json:"item"`
	Abilities  []LabeledValue `json:"abilities,omitempty"`
	Combatant  []LabeledValue `json:"combatant,omitempty"`
	Actions    []LabeledValue `json:"actions,omitempty"`
	Attributes []LabeledValue `json:"attributes,omitempty"`
	Text       *ItemText      `json:"text"`
}

// BuildItemDetail labels every block of it. Attribute lines are limited to
// those meaningful for the item type.
func BuildItemDetail(it *character.Item, loc i18n.Localizer) *ItemDetail {
	d := &ItemDetail{Entry: entry(it), Text: BuildItemText(it, loc)}
	for _, k := range character.AbilityKeys {
		if b, ok := it.Abilities[k]; ok {
			d.Abilities = append(d.Abilities, LabeledValue{
				Key: string(k), Label: loc.Localize(i18n.AbilityLabel(string(k))), Base: b.Base, Value: b.Value,
			})
		}
	}
	d.Combatant = diceLines(it.Combatant, loc, i18n.CombatantLabel)
	d.Actions = diceLines(it.Actions, loc, i18n.ActionLabel)

	at := it.Attributes
	attr := func(key string, v int) {
		d.Attributes = append(d.Attributes, LabeledValue{Key: key, Label: loc.Localize(i18n.AttributeLabel(key)), Value: v})
	}
	switch it.Type {
	case character.ItemMainClass, character.ItemSubClass:
		attr("baseHP", at.BaseHP)
		attr("riseHP", at.RiseHP)
		attr("baseMP", at.BaseMP)
		attr("riseMP", at.RiseMP)
	case character.ItemSkill:
		attr("currentSL", at.CurrentSL)
	}
	return d
}

func diceLines(m map[string]character.DiceBonus, loc i18n.Localizer, label func(string) string) []LabeledValue {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]LabeledValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, LabeledValue{Key: k, Label: loc.Localize(label(k)), Dice: m[k].Dice, Value: m[k].Mod})
	}
	return out
}
