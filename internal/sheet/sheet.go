// Package sheet turns an actor and its derived view into a display-ready
// sheet: localized stat rows, the class/race slots, and skills and equipment
// grouped by category.
package sheet

import (
	"sort"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
)

// DefaultIcon is shown for items stored without an image.
const DefaultIcon = "icons/svg/item-bag.svg"

// AbilityRow is one localized ability line.
type AbilityRow struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Base  int    `json:"base"`
	Point int    `json:"point"`
	Value int    `json:"value"`
	Bonus int    `json:"bonus"`
	Mod   int    `json:"mod"`
	Etc   int    `json:"etc"`
	Total int    `json:"total"`
}

// StatRow is one localized combat attribute or action line. Formula is what
// the sheet hands to the dice roller when the row is clicked.
type StatRow struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Dice    int    `json:"dice"`
	Mod     int    `json:"mod"`
	Value   int    `json:"value"`
	Formula string `json:"formula"`
}

// ItemEntry is an owned item as listed on the sheet.
type ItemEntry struct {
	ID      uuid.UUID          `json:"id"`
	Name    string             `json:"name"`
	Type    character.ItemType `json:"type"`
	Img     string             `json:"img"`
	SL      int                `json:"sl,omitempty"`
	Tags    []string           `json:"tags,omitempty"`
	Formula string             `json:"formula,omitempty"`
}

// Group is a named category of items.
type Group struct {
	Name  string      `json:"name"`
	Items []ItemEntry `json:"items"`
}

// Labels holds the localized sheet headings.
type Labels struct {
	Level       string `json:"level"`
	HP          string `json:"hp"`
	MP          string `json:"mp"`
	MainClass   string `json:"main_class"`
	SubClass    string `json:"sub_class"`
	Race        string `json:"race"`
	Skills      string `json:"skills"`
	Equipment   string `json:"equipment"`
	Biography   string `json:"biography"`
	Base        string `json:"base"`
	Point       string `json:"point"`
	Value       string `json:"value"`
	Bonus       string `json:"bonus"`
	Mod         string `json:"mod"`
	Etc         string `json:"etc"`
	Total       string `json:"total"`
	Dice        string `json:"dice"`
	Formula     string `json:"formula"`
	Effects     string `json:"effects"`
	Description string `json:"description"`
}

// Sheet is the view-model a Renderer draws.
type Sheet struct {
	ActorID   uuid.UUID             `json:"actor_id"`
	Name      string                `json:"name"`
	Img       string                `json:"img"`
	Type      character.ActorType   `json:"type"`
	Level     int                   `json:"level"`
	HP        resolver.ResourceView `json:"hp"`
	MP        resolver.ResourceView `json:"mp"`
	Abilities []AbilityRow          `json:"abilities"`
	Combatant []StatRow             `json:"combatant"`
	Actions   []StatRow             `json:"actions"`
	MainClass *ItemEntry            `json:"main_class,omitempty"`
	SubClass  *ItemEntry            `json:"sub_class,omitempty"`
	Race      *ItemEntry            `json:"race,omitempty"`
	Skills    []Group               `json:"skills"`
	Equipment []Group               `json:"equipment"`
	Biography string                `json:"biography"`
	Labels    Labels                `json:"labels"`
	Warnings  []string              `json:"warnings,omitempty"`
}

// Template returns the template name for the sheet's actor type.
func (s *Sheet) Template() string {
	return "actor-" + string(s.Type) + "-sheet.html"
}

// Build assembles the sheet for a and its derived view v.
//
// Precondition: a, v and loc must be non-nil; v must be resolved from a.
// Postcondition: Skills and Equipment each start with the Uncategorized group,
// which is present even when empty.
func Build(a *character.Actor, v *resolver.View, loc i18n.Localizer) *Sheet {
	s := &Sheet{
		ActorID:   a.ID,
		Name:      a.Name,
		Img:       a.Img,
		Type:      a.Type,
		Level:     v.Level,
		HP:        v.HP,
		MP:        v.MP,
		Biography: a.Biography,
		Labels:    buildLabels(loc),
		Warnings:  v.Warnings,
	}
	for _, ab := range v.Abilities {
		s.Abilities = append(s.Abilities, AbilityRow{
			Key:   string(ab.Key),
			Label: loc.Localize(i18n.AbilityLabel(string(ab.Key))),
			Base:  ab.Base,
			Point: ab.Point,
			Value: ab.Value,
			Bonus: ab.Bonus,
			Mod:   ab.Mod,
			Etc:   ab.Etc,
			Total: ab.Total,
		})
	}
	s.Combatant = statRows(v.Combatant, loc, i18n.CombatantLabel)
	s.Actions = statRows(v.Actions, loc, i18n.ActionLabel)
	s.prepareItems(a.Items, loc.Localize(i18n.KeyUncategorized))
	return s
}

func statRows(stats []resolver.StatView, loc i18n.Localizer, label func(string) string) []StatRow {
	out := make([]StatRow, 0, len(stats))
	for _, st := range stats {
		out = append(out, StatRow{
			Key:     st.Key,
			Label:   loc.Localize(label(st.Key)),
			Dice:    st.Dice,
			Mod:     st.Mod,
			Value:   st.Value,
			Formula: st.Formula,
		})
	}
	return out
}

func (s *Sheet) prepareItems(items []*character.Item, uncategorized string) {
	sorted := make([]*character.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sort < sorted[j].Sort })

	skills := newGrouper(uncategorized)
	equipment := newGrouper(uncategorized)
	for _, it := range sorted {
		e := entry(it)
		switch it.Type {
		case character.ItemMainClass:
			s.MainClass = &e
		case character.ItemSubClass:
			s.SubClass = &e
		case character.ItemRace:
			s.Race = &e
		case character.ItemSkill:
			skills.add(it.Attributes.Class, e)
		case character.ItemEquipment:
			equipment.add(it.Attributes.Position, e)
		}
	}
	s.Skills = skills.groups
	s.Equipment = equipment.groups
}

func entry(it *character.Item) ItemEntry {
	img := it.Img
	if img == "" {
		img = DefaultIcon
	}
	return ItemEntry{
		ID:      it.ID,
		Name:    it.Name,
		Type:    it.Type,
		Img:     img,
		SL:      it.Attributes.CurrentSL,
		Tags:    it.Tags,
		Formula: it.Formula,
	}
}

// grouper collects entries by category in first-seen order behind a fixed
// leading fallback group.
type grouper struct {
	fallback string
	groups   []Group
	index    map[string]int
}

func newGrouper(fallback string) *grouper {
	return &grouper{
		fallback: fallback,
		groups:   []Group{{Name: fallback, Items: []ItemEntry{}}},
		index:    map[string]int{fallback: 0},
	}
}

func (g *grouper) add(category string, e ItemEntry) {
	if category == "" {
		category = g.fallback
	}
	i, ok := g.index[category]
	if !ok {
		i = len(g.groups)
		g.index[category] = i
		g.groups = append(g.groups, Group{Name: category})
	}
	g.groups[i].Items = append(g.groups[i].Items, e)
}

func buildLabels(loc i18n.Localizer) Labels {
	l := func(k string) string { return loc.Localize("ARIANRHOD." + k) }
	return Labels{
		Level:       l("Level"),
		HP:          l("HP"),
		MP:          l("MP"),
		MainClass:   l("MainClass"),
		SubClass:    l("SubClass"),
		Race:        l("Race"),
		Skills:      l("Skills"),
		Equipment:   l("Equipment"),
		Biography:   l("Biography"),
		Base:        l("Base"),
		Point:       l("Point"),
		Value:       l("Value"),
		Bonus:       l("Bonus"),
		Mod:         l("Mod"),
		Etc:         l("Etc"),
		Total:       l("Total"),
		Dice:        l("Dice"),
		Formula:     l("Formula"),
		Effects:     loc.Localize(i18n.KeyEffects),
		Description: loc.Localize(i18n.KeyDescription),
	}
}
