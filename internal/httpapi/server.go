// Package httpapi exposes the sheet host over HTTP: derived actor views,
// rendered sheets, field-path updates, item management, and roll triggers.
package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arianrhod/internal/chat"
	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
	"github.com/cory-johannsen/arianrhod/internal/game/ruleset"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
	"github.com/cory-johannsen/arianrhod/internal/observability"
	"github.com/cory-johannsen/arianrhod/internal/sheet"
)

// ActorStore persists actors.
type ActorStore interface {
	Create(ctx context.Context, a *character.Actor) (*character.Actor, error)
	Get(ctx context.Context, id uuid.UUID) (*character.Actor, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*character.Actor, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ItemStore adds and removes actor items.
type ItemStore interface {
	Create(ctx context.Context, actorID uuid.UUID, it *character.Item) (*character.Item, []uuid.UUID, error)
	Delete(ctx context.Context, actorID, itemID uuid.UUID) error
}

// ChatLog lists posted messages of an actor.
type ChatLog interface {
	ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]*chat.Message, error)
}

// Roller posts item and formula rolls. *chat.Service implements it.
type Roller interface {
	RollItem(ctx context.Context, a *character.Actor, v *resolver.View, it *character.Item, loc i18n.Localizer) (*chat.Message, error)
	RollFormula(ctx context.Context, a *character.Actor, v *resolver.View, formula, label string, loc i18n.Localizer) (*chat.Message, error)
}

// MacroRunner turns a named macro and roll data into a formula.
// *scripting.Manager implements it.
type MacroRunner interface {
	Names() []string
	Run(ctx context.Context, name string, data map[string]int) (string, error)
}

// Deps collects the collaborators of a Server. Chat and Macros may be nil,
// which disables their routes.
type Deps struct {
	Actors     ActorStore
	Items      ItemStore
	Chat       ChatLog
	Roller     Roller
	Macros     MacroRunner
	Resolver   *resolver.Resolver
	Template   *character.Template
	Compendium *ruleset.Compendium
	Bundle     *i18n.Bundle
	Sheets     sheet.Renderer
	// DefaultLocale is used when a request names no language.
	DefaultLocale string
}

// Server serves the sheet API.
type Server struct {
	deps   Deps
	logger *zap.Logger
}

// NewServer creates a Server.
//
// Precondition: Actors, Items, Roller, Resolver, Template, Compendium, Bundle,
// Sheets and logger must be non-nil.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if deps.Actors == nil || deps.Items == nil || deps.Roller == nil || deps.Resolver == nil ||
		deps.Template == nil || deps.Compendium == nil || deps.Bundle == nil || deps.Sheets == nil || logger == nil {
		panic("httpapi.NewServer: missing required dependency")
	}
	return &Server{deps: deps, logger: logger}
}

// Handler returns the routed handler wrapped in request logging and panic
// recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /compendium", s.handleCompendium)

	mux.HandleFunc("POST /actors", s.handleCreateActor)
	mux.HandleFunc("GET /actors/{id}", s.handleGetActor)
	mux.HandleFunc("DELETE /actors/{id}", s.handleDeleteActor)
	mux.HandleFunc("PATCH /actors/{id}", s.handleUpdateActor)
	mux.HandleFunc("GET /actors/{id}/sheet", s.handleSheet)
	mux.HandleFunc("POST /actors/{id}/roll", s.handleRollFormula)

	mux.HandleFunc("POST /actors/{id}/items", s.handleCreateItem)
	mux.HandleFunc("GET /actors/{id}/items/{itemID}", s.handleGetItem)
	mux.HandleFunc("DELETE /actors/{id}/items/{itemID}", s.handleDeleteItem)
	mux.HandleFunc("GET /actors/{id}/items/{itemID}/text", s.handleItemText)
	mux.HandleFunc("POST /actors/{id}/items/{itemID}/roll", s.handleRollItem)

	if s.deps.Chat != nil {
		mux.HandleFunc("GET /actors/{id}/chat", s.handleChatLog)
	}
	if s.deps.Macros != nil {
		mux.HandleFunc("GET /macros", s.handleListMacros)
		mux.HandleFunc("POST /actors/{id}/macros/{name}", s.handleRunMacro)
	}
	return observability.RequestLogger(s.logger)(s.recoverPanic(mux))
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("panic recovered",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", p),
					zap.Stack("stack"),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// localizer picks the request locale: ?lang= first, then Accept-Language,
// then the configured default.
func (s *Server) localizer(r *http.Request) i18n.Localizer {
	want := r.URL.Query().Get("lang")
	if want == "" {
		want = r.Header.Get("Accept-Language")
	}
	if want == "" {
		want = s.deps.DefaultLocale
	}
	return s.deps.Bundle.Localizer(s.deps.Bundle.Match(want))
}
