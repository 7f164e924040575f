package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// reader reads fields of a sub-document; prefix locates it in the whole
// document for warnings.
type reader struct {
	d      *Decoder
	root   gjson.Result
	prefix string
}

func (r reader) sub(path string) reader {
	return reader{d: r.d, root: r.root.Get(path), prefix: join(r.prefix, path)}
}

func (r reader) str(path string) string {
	return r.root.Get(path).String()
}

// int reads path as an integer, coercing as the package doc describes.
func (r reader) int(path string) int {
	v := r.root.Get(path)
	switch v.Type {
	case gjson.Null:
		return 0
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}
	r.d.warn(&CoercionWarning{Path: join(r.prefix, path), Raw: v.Raw})
	return 0
}

// valueInt reads a field stored either as {"value": n} or as a bare n.
func (r reader) valueInt(path string) int {
	if r.root.Get(path).IsObject() {
		return r.int(path + ".value")
	}
	return r.int(path)
}

// valueStr reads a field stored either as {"value": s} or as a bare s.
func (r reader) valueStr(path string) string {
	if r.root.Get(path).IsObject() {
		return r.str(path + ".value")
	}
	return r.str(path)
}

// keys returns the keys of the object at path in document order.
func (r reader) keys(path string) []string {
	var out []string
	r.root.Get(path).ForEach(func(k, _ gjson.Result) bool {
		out = append(out, k.String())
		return true
	})
	return out
}

func parseID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid document id %q: %w", raw, err)
	}
	return id, nil
}

// DecodeActor parses a complete actor document, embedded items included.
//
// Postcondition: Returns an actor or an error for malformed JSON or IDs;
// non-numeric stored fields never fail decoding.
func (d *Decoder) DecodeActor(doc []byte) (*character.Actor, error) {
	if !gjson.ValidBytes(doc) {
		return nil, errors.New("actor document is not valid JSON")
	}
	r := reader{d: d, root: gjson.ParseBytes(doc)}
	id, err := parseID(r.str("_id"))
	if err != nil {
		return nil, err
	}
	a := &character.Actor{
		ID:   id,
		Name: r.str("name"),
		Type: character.ActorType(r.str("type")),
		Img:  r.str("img"),
	}
	d.readActorSystem(a, r.sub("system"))

	for i := range r.root.Get("items").Array() {
		it, err := d.readItem(r.sub("items." + strconv.Itoa(i)))
		if err != nil {
			return nil, fmt.Errorf("items.%d: %w", i, err)
		}
		it.ActorID = a.ID
		a.Items = append(a.Items, it)
	}
	return a, nil
}

// DecodeActorSystem fills the stored fields of a from a "system" object.
func (d *Decoder) DecodeActorSystem(a *character.Actor, system []byte) error {
	if !gjson.ValidBytes(system) {
		return errors.New("actor system data is not valid JSON")
	}
	d.readActorSystem(a, reader{d: d, root: gjson.ParseBytes(system), prefix: "system"})
	return nil
}

func (d *Decoder) readActorSystem(a *character.Actor, r reader) {
	a.Level = r.valueInt("attributes.level")
	a.HP = character.Resource{Value: r.int("attributes.HP.value"), Max: r.int("attributes.HP.max")}
	a.MP = character.Resource{Value: r.int("attributes.MP.value"), Max: r.int("attributes.MP.max")}
	a.Biography = r.valueStr("biography")

	a.Abilities = make(map[character.AbilityKey]character.Ability)
	for _, k := range r.keys("abilities") {
		ab := r.sub("abilities." + escape(k))
		a.Abilities[character.AbilityKey(k)] = character.Ability{
			Base:  ab.int("base"),
			Point: ab.int("point"),
			Mod:   ab.int("mod"),
			Etc:   ab.int("etc"),
		}
	}
	a.Combatant = make(map[string]character.CombatAttribute)
	for _, k := range r.keys("combatant") {
		c := r.sub("combatant." + escape(k))
		a.Combatant[k] = character.CombatAttribute{
			Dice: c.int("dice"),
			Mod:  c.int("mod"),
			Ref:  character.AbilityKey(c.str("key")),
		}
	}
	a.Actions = make(map[string]character.Action)
	for _, k := range r.keys("actions") {
		c := r.sub("actions." + escape(k))
		a.Actions[k] = character.Action{
			Dice: c.int("dice"),
			Mod:  c.int("mod"),
			Ref:  character.AbilityKey(c.str("key")),
		}
	}
}

// DecodeItem parses a standalone item document.
func (d *Decoder) DecodeItem(doc []byte) (*character.Item, error) {
	if !gjson.ValidBytes(doc) {
		return nil, errors.New("item document is not valid JSON")
	}
	return d.readItem(reader{d: d, root: gjson.ParseBytes(doc)})
}

// DecodeItemSystem fills the stored fields of it from a "system" object.
func (d *Decoder) DecodeItemSystem(it *character.Item, system []byte) error {
	if !gjson.ValidBytes(system) {
		return errors.New("item system data is not valid JSON")
	}
	d.readItemSystem(it, reader{d: d, root: gjson.ParseBytes(system), prefix: "system"})
	return nil
}

func (d *Decoder) readItem(r reader) (*character.Item, error) {
	id, err := parseID(r.str("_id"))
	if err != nil {
		return nil, err
	}
	it := &character.Item{
		ID:   id,
		Name: r.str("name"),
		Type: character.ItemType(r.str("type")),
		Img:  r.str("img"),
		Sort: r.int("sort"),
	}
	d.readItemSystem(it, r.sub("system"))
	return it, nil
}

func (d *Decoder) readItemSystem(it *character.Item, r reader) {
	if r.root.Get("abilities").IsObject() {
		it.Abilities = make(map[character.AbilityKey]character.AbilityBonus)
		for _, k := range r.keys("abilities") {
			ab := r.sub("abilities." + escape(k))
			it.Abilities[character.AbilityKey(k)] = character.AbilityBonus{Base: ab.int("base"), Value: ab.int("value")}
		}
	}
	it.Combatant = readDice(r, "combatant")
	it.Actions = readDice(r, "actions")

	at := r.sub("attributes")
	it.Attributes = character.ItemAttributes{
		BaseHP:    at.valueInt("baseHP"),
		RiseHP:    at.valueInt("riseHP"),
		BaseMP:    at.valueInt("baseMP"),
		RiseMP:    at.valueInt("riseMP"),
		Class:     at.valueStr("class"),
		Position:  at.valueStr("position"),
		CurrentSL: at.valueInt("currentSL"),
	}

	for _, t := range r.root.Get("tags").Array() {
		if s := strings.TrimSpace(t.String()); s != "" {
			it.Tags = append(it.Tags, s)
		}
	}
	it.Effects = r.valueStr("effects")
	it.Description = r.valueStr("description")
	it.Formula = r.str("formula")
}

func readDice(r reader, block string) map[string]character.DiceBonus {
	if !r.root.Get(block).IsObject() {
		return nil
	}
	out := make(map[string]character.DiceBonus)
	for _, k := range r.keys(block) {
		c := r.sub(block + "." + escape(k))
		out[k] = character.DiceBonus{Dice: c.int("dice"), Mod: c.int("mod")}
	}
	return out
}
