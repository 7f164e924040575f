package ruleset

import "github.com/cory-johannsen/arianrhod/internal/game/character"

// Compendium provides lookup of item templates by ID and by type.
type Compendium struct {
	items map[string]*ItemTemplate
	order []string
}

// NewCompendium returns an empty Compendium.
//
// Postcondition: Returns a non-nil *Compendium ready to accept registrations.
func NewCompendium() *Compendium {
	return &Compendium{items: make(map[string]*ItemTemplate)}
}

// Register adds an item template to the compendium.
//
// Precondition: it must be non-nil with a non-empty ID.
// Postcondition: it is retrievable via Item using it.ID;
// if called multiple times with the same ID, the last call wins.
func (c *Compendium) Register(it *ItemTemplate) {
	if it == nil {
		panic("Compendium.Register: precondition violated: item must be non-nil")
	}
	if it.ID == "" {
		panic("Compendium.Register: precondition violated: item ID must be non-empty")
	}
	if _, ok := c.items[it.ID]; !ok {
		c.order = append(c.order, it.ID)
	}
	c.items[it.ID] = it
}

// Item returns the template registered under id.
func (c *Compendium) Item(id string) (*ItemTemplate, bool) {
	it, ok := c.items[id]
	return it, ok
}

// ByType returns the templates of type t in registration order.
func (c *Compendium) ByType(t character.ItemType) []*ItemTemplate {
	var out []*ItemTemplate
	for _, id := range c.order {
		if it := c.items[id]; it.Type == t {
			out = append(out, it)
		}
	}
	return out
}

// Len returns the number of registered templates.
func (c *Compendium) Len() int {
	return len(c.order)
}
