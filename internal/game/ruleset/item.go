package ruleset

import (
	"fmt"
	"os"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ItemTemplate is a compendium entry from which owned items are instantiated.
//
// Precondition: ID and Name must be non-empty and Type valid after loading.
type ItemTemplate struct {
	ID          string                                          `yaml:"id"`
	Name        string                                          `yaml:"name"`
	Type        character.ItemType                              `yaml:"type"`
	Img         string                                          `yaml:"img"`
	Abilities   map[character.AbilityKey]character.AbilityBonus `yaml:"abilities"`
	Combatant   map[string]character.DiceBonus                  `yaml:"combatant"`
	Actions     map[string]character.DiceBonus                  `yaml:"actions"`
	Attributes  character.ItemAttributes                        `yaml:"attributes"`
	Tags        []string                                        `yaml:"tags"`
	Effects     string                                          `yaml:"effects"`
	Description string                                          `yaml:"description"`
	Formula     string                                          `yaml:"formula"`
}

// Instantiate returns a fresh item for actorID built from the template.
//
// Postcondition: the returned item shares no mutable state with t.
func (t *ItemTemplate) Instantiate(actorID uuid.UUID) *character.Item {
	it := &character.Item{
		ID:          uuid.New(),
		ActorID:     actorID,
		Name:        t.Name,
		Type:        t.Type,
		Img:         t.Img,
		Abilities:   t.Abilities,
		Combatant:   t.Combatant,
		Actions:     t.Actions,
		Attributes:  t.Attributes,
		Tags:        t.Tags,
		Effects:     t.Effects,
		Description: t.Description,
		Formula:     t.Formula,
	}
	return it.Clone()
}

// LoadItems reads all .yaml files in dir and parses each as an ItemTemplate.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed templates (may be empty slice) or a non-nil error.
func LoadItems(dir string) ([]*ItemTemplate, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	items := make([]*ItemTemplate, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var it ItemTemplate
		if err := yaml.Unmarshal(data, &it); err != nil {
			return nil, fmt.Errorf("parsing item file %s: %w", path, err)
		}
		if it.ID == "" || it.Name == "" {
			return nil, fmt.Errorf("item file %s: id and name are required", path)
		}
		if !it.Type.Valid() {
			return nil, fmt.Errorf("item file %s: %w: %q", path, character.ErrInvalidItemType, it.Type)
		}
		items = append(items, &it)
	}
	return items, nil
}
