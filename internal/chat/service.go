package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
)

// ErrEmptyFormula is returned when a sheet roll carries no formula.
var ErrEmptyFormula = errors.New("empty roll formula")

// ErrInvalidFormula wraps formula parse and roll data errors.
var ErrInvalidFormula = errors.New("invalid roll formula")

// Service posts item cards and rolls on behalf of actors.
type Service struct {
	sink     Sink
	roller   Roller
	renderer CardRenderer
	mode     RollMode
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a chat service.
//
// Precondition: sink, roller, renderer and logger must be non-nil; mode must be valid.
func NewService(sink Sink, roller Roller, renderer CardRenderer, mode RollMode, logger *zap.Logger) *Service {
	if sink == nil || roller == nil || renderer == nil || logger == nil {
		panic("chat.NewService: sink, roller, renderer and logger must be non-nil")
	}
	if !mode.Valid() {
		panic(fmt.Sprintf("chat.NewService: invalid roll mode %q", mode))
	}
	return &Service{sink: sink, roller: roller, renderer: renderer, mode: mode, logger: logger, now: time.Now}
}

// ItemRollData returns the reference table for an item formula: the owner's
// roll data, the same entries under "actor.", and the item's "sl".
func ItemRollData(v *resolver.View, it *character.Item) map[string]int {
	base := resolver.RollData(v)
	data := make(map[string]int, len(base)*2+1)
	for k, n := range base {
		data[k] = n
		data["actor."+k] = n
	}
	data["sl"] = it.Attributes.CurrentSL
	return data
}

// RollItem is the item roll trigger. An item without a formula posts its
// card; otherwise the formula is rolled against the item roll data and the
// result posted with the item name as flavor.
//
// Precondition: it is owned by a; v is resolved from a.
// Postcondition: exactly one message is posted on success and returned.
func (s *Service) RollItem(ctx context.Context, a *character.Actor, v *resolver.View, it *character.Item, loc i18n.Localizer) (*Message, error) {
	if it.Formula == "" {
		var buf bytes.Buffer
		if err := s.renderer.RenderCard(&buf, BuildCard(it, loc)); err != nil {
			return nil, fmt.Errorf("rendering card for %q: %w", it.Name, err)
		}
		return s.post(ctx, &Message{ActorID: a.ID, Speaker: a.Name, Content: buf.String()})
	}
	return s.roll(ctx, a, it.Formula, it.Name, ItemRollData(v, it), loc)
}

// RollFormula rolls a sheet formula, such as a combat attribute or action
// formula, against the actor's roll data.
func (s *Service) RollFormula(ctx context.Context, a *character.Actor, v *resolver.View, formula, label string, loc i18n.Localizer) (*Message, error) {
	if formula == "" {
		return nil, ErrEmptyFormula
	}
	return s.roll(ctx, a, formula, label, resolver.RollData(v), loc)
}

func (s *Service) roll(ctx context.Context, a *character.Actor, formula, flavor string, data map[string]int, loc i18n.Localizer) (*Message, error) {
	res, err := s.roller.RollFormula(formula, data)
	if err != nil {
		return nil, fmt.Errorf("%w %q for %s: %w", ErrInvalidFormula, formula, a.Name, err)
	}
	var buf bytes.Buffer
	if err := s.renderer.RenderRoll(&buf, newRollView(flavor, res, loc)); err != nil {
		return nil, fmt.Errorf("rendering roll: %w", err)
	}
	return s.post(ctx, &Message{ActorID: a.ID, Speaker: a.Name, Flavor: flavor, Content: buf.String(), Roll: &res})
}

func (s *Service) post(ctx context.Context, m *Message) (*Message, error) {
	m.ID = uuid.New()
	m.RollMode = s.mode
	m.CreatedAt = s.now().UTC()
	if err := s.sink.Post(ctx, m); err != nil {
		return nil, fmt.Errorf("posting chat message: %w", err)
	}
	s.logger.Debug("chat message posted",
		zap.Stringer("actor_id", m.ActorID),
		zap.String("roll_mode", string(m.RollMode)),
		zap.Bool("roll", m.Roll != nil),
	)
	return m, nil
}

// LogSink writes messages to a logger. Used when no database is configured.
type LogSink struct {
	Logger *zap.Logger
}

// Post logs m at info level.
func (l LogSink) Post(_ context.Context, m *Message) error {
	l.Logger.Info("chat", zap.Stringer("message", m))
	return nil
}
