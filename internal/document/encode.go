package document

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

// setter applies a sequence of sjson writes, keeping the first error.
type setter struct {
	doc []byte
	err error
}

func (s *setter) set(path string, v any) {
	if s.err != nil {
		return
	}
	s.doc, s.err = sjson.SetBytes(s.doc, path, v)
}

func (s *setter) raw(path string, v []byte) {
	if s.err != nil {
		return
	}
	s.doc, s.err = sjson.SetRawBytes(s.doc, path, v)
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// EncodeActor writes the stored fields of a and its items as an actor
// document. Derived fields are never written.
func EncodeActor(a *character.Actor) ([]byte, error) {
	system, err := EncodeActorSystem(a)
	if err != nil {
		return nil, err
	}
	s := &setter{doc: []byte(`{}`)}
	s.set("_id", idString(a.ID))
	s.set("name", a.Name)
	s.set("type", string(a.Type))
	s.set("img", a.Img)
	s.raw("system", system)
	s.raw("items", []byte(`[]`))
	for _, it := range a.Items {
		doc, err := EncodeItem(it)
		if err != nil {
			return nil, fmt.Errorf("encoding item %q: %w", it.Name, err)
		}
		s.raw("items.-1", doc)
	}
	if s.err != nil {
		return nil, fmt.Errorf("encoding actor %q: %w", a.Name, s.err)
	}
	return s.doc, nil
}

// EncodeActorSystem writes the "system" object of a.
func EncodeActorSystem(a *character.Actor) ([]byte, error) {
	s := &setter{doc: []byte(`{}`)}
	s.set("attributes.level.value", a.Level)
	s.set("attributes.HP", a.HP)
	s.set("attributes.MP", a.MP)
	s.set("biography", a.Biography)
	s.raw("abilities", []byte(`{}`))
	for _, k := range sortedKeys(a.Abilities) {
		s.set("abilities."+escape(k), a.Abilities[character.AbilityKey(k)])
	}
	s.raw("combatant", []byte(`{}`))
	for _, k := range sortedKeys(a.Combatant) {
		s.set("combatant."+escape(k), a.Combatant[k])
	}
	s.raw("actions", []byte(`{}`))
	for _, k := range sortedKeys(a.Actions) {
		s.set("actions."+escape(k), a.Actions[k])
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

// EncodeItem writes it as a standalone item document.
func EncodeItem(it *character.Item) ([]byte, error) {
	system, err := EncodeItemSystem(it)
	if err != nil {
		return nil, err
	}
	s := &setter{doc: []byte(`{}`)}
	s.set("_id", idString(it.ID))
	s.set("name", it.Name)
	s.set("type", string(it.Type))
	s.set("img", it.Img)
	s.set("sort", it.Sort)
	s.raw("system", system)
	return s.doc, s.err
}

// EncodeItemSystem writes the "system" object of it. Attribute fields use the
// host's {"value": x} wrapping.
func EncodeItemSystem(it *character.Item) ([]byte, error) {
	s := &setter{doc: []byte(`{}`)}
	for _, k := range sortedKeys(it.Abilities) {
		s.set("abilities."+escape(k), it.Abilities[character.AbilityKey(k)])
	}
	for _, k := range sortedKeys(it.Combatant) {
		s.set("combatant."+escape(k), it.Combatant[k])
	}
	for _, k := range sortedKeys(it.Actions) {
		s.set("actions."+escape(k), it.Actions[k])
	}
	at := it.Attributes
	s.set("attributes.baseHP.value", at.BaseHP)
	s.set("attributes.riseHP.value", at.RiseHP)
	s.set("attributes.baseMP.value", at.BaseMP)
	s.set("attributes.riseMP.value", at.RiseMP)
	s.set("attributes.class.value", at.Class)
	s.set("attributes.position.value", at.Position)
	s.set("attributes.currentSL.value", at.CurrentSL)
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	s.set("tags", tags)
	s.set("effects.value", it.Effects)
	s.set("description.value", it.Description)
	s.set("formula", it.Formula)
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
