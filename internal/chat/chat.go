// Package chat builds item chat cards and posts item and sheet rolls to a
// chat sink.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/cory-johannsen/arianrhod/internal/game/dice"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
)

// RollMode controls who may see a posted message.
type RollMode string

// Roll modes.
const (
	RollPublic RollMode = "publicroll"
	RollGM     RollMode = "gmroll"
	RollBlind  RollMode = "blindroll"
	RollSelf   RollMode = "selfroll"
)

// Valid reports whether m is a known roll mode.
func (m RollMode) Valid() bool {
	switch m {
	case RollPublic, RollGM, RollBlind, RollSelf:
		return true
	}
	return false
}

// Card is the chat view-model of an item: title, skill level, tags, and the
// effect and description texts.
type Card struct {
	ItemID           uuid.UUID `json:"item_id"`
	Title            string    `json:"title"`
	Level            int       `json:"level,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	Effects          string    `json:"effects"`
	EffectsLabel     string    `json:"effects_label"`
	Description      string    `json:"description"`
	DescriptionLabel string    `json:"description_label"`
}

// BuildCard returns the chat card of it.
func BuildCard(it *character.Item, loc i18n.Localizer) *Card {
	return &Card{
		ItemID:           it.ID,
		Title:            it.Name,
		Level:            it.Attributes.CurrentSL,
		Tags:             it.Tags,
		Effects:          it.Effects,
		EffectsLabel:     loc.Localize(i18n.KeyEffects),
		Description:      it.Description,
		DescriptionLabel: loc.Localize(i18n.KeyDescription),
	}
}

// Message is one posted chat entry. Roll is nil for plain card messages.
type Message struct {
	ID        uuid.UUID        `json:"id"`
	ActorID   uuid.UUID        `json:"actor_id"`
	Speaker   string           `json:"speaker"`
	RollMode  RollMode         `json:"roll_mode"`
	Flavor    string           `json:"flavor,omitempty"`
	Content   string           `json:"content"`
	Roll      *dice.RollResult `json:"roll,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// String returns a one-line summary for logs.
func (m *Message) String() string {
	if m.Roll != nil {
		return fmt.Sprintf("%s: %s %s", m.Speaker, m.Flavor, m.Roll.String())
	}
	return fmt.Sprintf("%s: card", m.Speaker)
}

// Sink receives posted chat messages.
type Sink interface {
	Post(ctx context.Context, m *Message) error
}

// Roller evaluates a formula after substituting "@path" references.
type Roller interface {
	RollFormula(formula string, data map[string]int) (dice.RollResult, error)
}
