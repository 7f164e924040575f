package sheet_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
	"github.com/cory-johannsen/arianrhod/internal/sheet"
)

var loc = i18n.MapLocalizer{
	"ARIANRHOD.Uncategorized":          "Misc",
	"ARIANRHOD.Ability.Str":            "Strength",
	"ARIANRHOD.Combatant.ActionPoints": "Initiative",
	"ARIANRHOD.Actions.TrapDetect":     "Trap Detection",
	"ARIANRHOD.Effects":                "Effects",
	"ARIANRHOD.Description":            "Description",
	"ARIANRHOD.Attributes.BaseHP":      "Base HP",
}

func newActor() *character.Actor {
	abilities := make(map[character.AbilityKey]character.Ability)
	for _, k := range character.AbilityKeys {
		abilities[k] = character.Ability{Base: 6}
	}
	return &character.Actor{
		ID:        uuid.New(),
		Name:      "Aria",
		Type:      character.TypeCharacter,
		Level:     1,
		Abilities: abilities,
		Combatant: map[string]character.CombatAttribute{"actionPoints": {Ref: character.Agi}},
		Actions:   map[string]character.Action{"trapDetect": {Ref: character.Per}},
		Biography: "<b>bold</b>",
	}
}

func item(name string, t character.ItemType, sort int, mutate func(*character.Item)) *character.Item {
	it := &character.Item{ID: uuid.New(), Name: name, Type: t, Sort: sort}
	if mutate != nil {
		mutate(it)
	}
	return it
}

func build(t *testing.T, a *character.Actor) *sheet.Sheet {
	t.Helper()
	v, err := resolver.New(zap.NewNop(), nil).Resolve(a)
	require.NoError(t, err)
	return sheet.Build(a, v, loc)
}

func TestBuild_LabelsRows(t *testing.T) {
	s := build(t, newActor())
	require.Len(t, s.Abilities, len(character.AbilityKeys))
	assert.Equal(t, "Strength", s.Abilities[0].Label)
	assert.Equal(t, 6, s.Abilities[0].Value)
	assert.Equal(t, 2, s.Abilities[0].Total)
	assert.Equal(t, "ARIANRHOD.Ability.Dex", s.Abilities[1].Label, "missing translations show the key")

	require.Len(t, s.Combatant, 1)
	assert.Equal(t, "Initiative", s.Combatant[0].Label)
	assert.Equal(t, "2D6+4", s.Combatant[0].Formula)
	require.Len(t, s.Actions, 1)
	assert.Equal(t, "Trap Detection", s.Actions[0].Label)
	assert.Equal(t, "Effects", s.Labels.Effects)
	assert.Equal(t, "actor-character-sheet.html", s.Template())
}

func TestBuild_GroupsSkillsAndEquipment(t *testing.T) {
	a := newActor()
	a.Items = []*character.Item{
		item("Bash", character.ItemSkill, 3, func(it *character.Item) { it.Attributes.Class = "warrior" }),
		item("Guts", character.ItemSkill, 1, nil),
		item("Heal", character.ItemSkill, 2, func(it *character.Item) { it.Attributes.Class = "acolyte" }),
		item("Smash", character.ItemSkill, 4, func(it *character.Item) { it.Attributes.Class = "warrior" }),
		item("Sword", character.ItemEquipment, 1, func(it *character.Item) { it.Attributes.Position = "rightHand"; it.Img = "sword.webp" }),
		item("Ring", character.ItemEquipment, 2, nil),
	}
	s := build(t, a)

	require.Len(t, s.Skills, 3)
	assert.Equal(t, "Misc", s.Skills[0].Name)
	assert.Equal(t, "Guts", s.Skills[0].Items[0].Name)
	assert.Equal(t, "acolyte", s.Skills[1].Name, "groups follow first-seen order by sort")
	assert.Equal(t, "warrior", s.Skills[2].Name)
	require.Len(t, s.Skills[2].Items, 2)
	assert.Equal(t, "Bash", s.Skills[2].Items[0].Name)
	assert.Equal(t, "Smash", s.Skills[2].Items[1].Name)

	require.Len(t, s.Equipment, 2)
	assert.Equal(t, "Ring", s.Equipment[0].Items[0].Name)
	assert.Equal(t, sheet.DefaultIcon, s.Equipment[0].Items[0].Img)
	assert.Equal(t, "sword.webp", s.Equipment[1].Items[0].Img)
}

func TestBuild_UncategorizedAlwaysPresent(t *testing.T) {
	s := build(t, newActor())
	require.Len(t, s.Skills, 1)
	assert.Equal(t, "Misc", s.Skills[0].Name)
	assert.Empty(t, s.Skills[0].Items)
	require.Len(t, s.Equipment, 1)
	assert.Nil(t, s.MainClass)
}

func TestBuild_ClassSlotsLastWins(t *testing.T) {
	a := newActor()
	a.Items = []*character.Item{
		item("Warrior", character.ItemMainClass, 0, nil),
		item("Acolyte", character.ItemMainClass, 0, nil),
		item("Ranger", character.ItemSubClass, 0, nil),
		item("Huulin", character.ItemRace, 0, nil),
	}
	s := build(t, a)
	require.NotNil(t, s.MainClass)
	assert.Equal(t, "Acolyte", s.MainClass.Name)
	assert.Equal(t, "Ranger", s.SubClass.Name)
	assert.Equal(t, "Huulin", s.Race.Name)
}

// Property: the main class shown on the sheet is the one HP.max is computed
// from, whatever the storage order of duplicate class items.
func TestBuild_MainClassMatchesResolvedHPProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(rt, "n")
		a := newActor()
		for i := 0; i < n; i++ {
			baseHP := 10 * (i + 1)
			a.Items = append(a.Items, item("Class"+string(rune('A'+i)), character.ItemMainClass,
				rapid.IntRange(0, 3).Draw(rt, "sort"), func(it *character.Item) { it.Attributes.BaseHP = baseHP }))
		}
		a.Items = rapid.Permutation(a.Items).Draw(rt, "order")

		v, err := resolver.New(zap.NewNop(), nil).Resolve(a)
		require.NoError(rt, err)
		s := sheet.Build(a, v, loc)
		require.NotNil(rt, s.MainClass)

		var shown *character.Item
		for _, it := range a.Items {
			if it.ID == s.MainClass.ID {
				shown = it
			}
		}
		require.NotNil(rt, shown)
		str, _ := v.Ability(character.Str)
		assert.Equal(rt, str.Value+shown.Attributes.BaseHP, v.HP.Max)
	})
}

// TestBuild_EveryListedItemAppearsOnce verifies grouping neither drops nor
// duplicates skills or equipment.
func TestBuild_EveryListedItemAppearsOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := newActor()
		n := rapid.IntRange(0, 15).Draw(rt, "n")
		for i := 0; i < n; i++ {
			typ := rapid.SampledFrom([]character.ItemType{character.ItemSkill, character.ItemEquipment}).Draw(rt, "type")
			cat := rapid.SampledFrom([]string{"", "a", "b"}).Draw(rt, "category")
			a.Items = append(a.Items, item("x", typ, rapid.IntRange(0, 3).Draw(rt, "sort"), func(it *character.Item) {
				it.Attributes.Class = cat
				it.Attributes.Position = cat
			}))
		}
		v, err := resolver.New(zap.NewNop(), nil).Resolve(a)
		require.NoError(rt, err)
		s := sheet.Build(a, v, loc)

		seen := map[uuid.UUID]int{}
		for _, groups := range [][]sheet.Group{s.Skills, s.Equipment} {
			assert.Equal(rt, "Misc", groups[0].Name)
			for _, g := range groups {
				for _, e := range g.Items {
					seen[e.ID]++
				}
			}
		}
		assert.Len(rt, seen, n)
		for _, c := range seen {
			assert.Equal(rt, 1, c)
		}
	})
}

func TestBuildItemText(t *testing.T) {
	it := item("Bash", character.ItemSkill, 0, func(it *character.Item) { it.Effects = "Damage +5" })
	txt := sheet.BuildItemText(it, loc)
	assert.Equal(t, "Damage +5", txt.Effects)
	assert.Equal(t, "Effects", txt.EffectsLabel)
	assert.False(t, txt.Empty())
	assert.True(t, sheet.BuildItemText(item("X", character.ItemSkill, 0, nil), loc).Empty())
}

func TestBuildItemDetail(t *testing.T) {
	it := item("Warrior", character.ItemMainClass, 0, func(it *character.Item) {
		it.Abilities = map[character.AbilityKey]character.AbilityBonus{character.Str: {Base: 3}, character.Dex: {Value: 1}}
		it.Combatant = map[string]character.DiceBonus{"hit": {Mod: 1}, "attack": {Dice: 1}}
		it.Attributes.BaseHP = 13
	})
	d := sheet.BuildItemDetail(it, loc)
	require.Len(t, d.Abilities, 2)
	assert.Equal(t, "Strength", d.Abilities[0].Label)
	assert.Equal(t, 3, d.Abilities[0].Base)
	require.Len(t, d.Combatant, 2)
	assert.Equal(t, "attack", d.Combatant[0].Key)
	require.Len(t, d.Attributes, 4)
	assert.Equal(t, "Base HP", d.Attributes[0].Label)
	assert.Equal(t, 13, d.Attributes[0].Value)
	assert.Equal(t, sheet.DefaultIcon, d.Entry.Img)
}

func TestHTMLRenderer_RenderSheet(t *testing.T) {
	r, err := sheet.NewHTMLRenderer()
	require.NoError(t, err)

	a := newActor()
	a.Items = []*character.Item{
		item("Warrior", character.ItemMainClass, 0, nil),
		item("Bash", character.ItemSkill, 0, func(it *character.Item) {
			it.Attributes.Class = "warrior"
			it.Attributes.CurrentSL = 2
			it.Formula = "2D6+@sl"
		}),
	}
	var buf bytes.Buffer
	require.NoError(t, r.RenderSheet(&buf, build(t, a)))
	out := buf.String()
	assert.Contains(t, out, `class="arianrhod sheet actor character"`)
	assert.Contains(t, out, "Strength")
	assert.Contains(t, out, `data-roll="2D6&#43;4"`)
	assert.Contains(t, out, "Warrior")
	assert.Contains(t, out, `<span class="arianrhod-item-level">2</span>`)
	assert.Contains(t, out, "&lt;b&gt;bold&lt;/b&gt;", "stored text is escaped")
	assert.False(t, strings.Contains(out, "<b>bold</b>"))
}

func TestHTMLRenderer_NPCAndUnknownType(t *testing.T) {
	r, err := sheet.NewHTMLRenderer()
	require.NoError(t, err)

	a := newActor()
	a.Type = character.TypeNPC
	var buf bytes.Buffer
	require.NoError(t, r.RenderSheet(&buf, build(t, a)))
	assert.Contains(t, buf.String(), "actor npc")

	s := &sheet.Sheet{Type: "vehicle"}
	assert.Error(t, r.RenderSheet(&buf, s))
}

func TestHTMLRenderer_RenderItemText(t *testing.T) {
	r, err := sheet.NewHTMLRenderer()
	require.NoError(t, err)
	var buf bytes.Buffer
	txt := &sheet.ItemText{Effects: "Damage +5", EffectsLabel: "Effects", DescriptionLabel: "Description"}
	require.NoError(t, r.RenderItemText(&buf, txt))
	assert.Contains(t, buf.String(), `<div class="item-effect"><h4>Effects</h4>Damage &#43;5</div>`)
	assert.NotContains(t, buf.String(), "item-desc")
}
