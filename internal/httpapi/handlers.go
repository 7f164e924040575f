package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cory-johannsen/arianrhod/internal/chat"
	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
	"github.com/cory-johannsen/arianrhod/internal/sheet"
	"github.com/cory-johannsen/arianrhod/internal/storage/postgres"
)

const (
	defaultChatLimit = 50
	maxChatLimit     = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type compendiumEntry struct {
	ID   string             `json:"id"`
	Name string             `json:"name"`
	Type character.ItemType `json:"type"`
}

func (s *Server) handleCompendium(w http.ResponseWriter, r *http.Request) {
	types := character.ItemTypes
	if t := r.URL.Query().Get("type"); t != "" {
		it := character.ItemType(t)
		if !it.Valid() {
			s.writeError(w, r, fmt.Errorf("%w: %q", character.ErrInvalidItemType, t))
			return
		}
		types = []character.ItemType{it}
	}
	out := make([]compendiumEntry, 0)
	for _, t := range types {
		for _, tmpl := range s.deps.Compendium.ByType(t) {
			out = append(out, compendiumEntry{ID: tmpl.ID, Name: tmpl.Name, Type: tmpl.Type})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// loadResolved fetches the actor named by the {id} path value and resolves it.
func (s *Server) loadResolved(r *http.Request) (*character.Actor, *resolver.View, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, nil, err
	}
	a, err := s.deps.Actors.Get(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	v, err := s.deps.Resolver.Resolve(a)
	if err != nil {
		return nil, nil, err
	}
	return a, v, nil
}

type createActorRequest struct {
	Name string              `json:"name"`
	Type character.ActorType `json:"type"`
}

func (s *Server) handleCreateActor(w http.ResponseWriter, r *http.Request) {
	var req createActorRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Type == "" {
		req.Type = character.TypeCharacter
	}
	a, err := character.Build(strings.TrimSpace(req.Name), req.Type, s.deps.Template)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	created, err := s.deps.Actors.Create(r.Context(), a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.deps.Resolver.Resolve(created)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/actors/"+created.ID.String())
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleDeleteActor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Actors.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetActor(w http.ResponseWriter, r *http.Request) {
	_, v, err := s.loadResolved(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateActor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var updates map[string]any
	if err := decodeBody(r, &updates); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(updates) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: no updates", errBadRequest))
		return
	}
	a, err := s.deps.Actors.Update(r.Context(), id, updates)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.deps.Resolver.Resolve(a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSheet(w http.ResponseWriter, r *http.Request) {
	a, v, err := s.loadResolved(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sh := sheet.Build(a, v, s.localizer(r))
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, sh)
		return
	}
	var buf bytes.Buffer
	if err := s.deps.Sheets.RenderSheet(&buf, sh); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

type rollRequest struct {
	Formula string `json:"formula"`
	Label   string `json:"label"`
	// Stat names a derived formula instead: "combatant.<key>" or "actions.<key>".
	Stat string `json:"stat"`
}

func (s *Server) handleRollFormula(w http.ResponseWriter, r *http.Request) {
	a, v, err := s.loadResolved(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req rollRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc := s.localizer(r)
	if req.Stat != "" {
		stat, label, err := statFormula(v, req.Stat)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		req.Formula = stat.Formula
		if req.Label == "" {
			req.Label = loc.Localize(label)
		}
	}
	msg, err := s.deps.Roller.RollFormula(r.Context(), a, v, req.Formula, req.Label, loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func statFormula(v *resolver.View, stat string) (resolver.StatView, string, error) {
	block, key, ok := strings.Cut(stat, ".")
	if ok {
		switch block {
		case "combatant":
			if sv, found := v.CombatAttribute(key); found {
				return sv, i18n.CombatantLabel(key), nil
			}
		case "actions":
			if sv, found := v.Action(key); found {
				return sv, i18n.ActionLabel(key), nil
			}
		}
	}
	return resolver.StatView{}, "", fmt.Errorf("%w: unknown stat %q", errBadRequest, stat)
}

type createItemRequest struct {
	// Compendium selects a compendium template by id; Type and Category are
	// then ignored.
	Compendium string             `json:"compendium"`
	Type       character.ItemType `json:"type"`
	Category   string             `json:"category"`
}

type createItemResponse struct {
	Item     *sheet.ItemDetail `json:"item"`
	Replaced []uuid.UUID       `json:"replaced"`
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	actorID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createItemRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var it *character.Item
	if req.Compendium != "" {
		tmpl, ok := s.deps.Compendium.Item(req.Compendium)
		if !ok {
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("compendium item %q not found", req.Compendium))
			return
		}
		it = tmpl.Instantiate(actorID)
	} else {
		it, err = character.NewItem(req.Type, req.Category)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	created, replaced, err := s.deps.Items.Create(r.Context(), actorID, it)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if replaced == nil {
		replaced = []uuid.UUID{}
	}
	writeJSON(w, http.StatusCreated, createItemResponse{
		Item:     sheet.BuildItemDetail(created, s.localizer(r)),
		Replaced: replaced,
	})
}

// loadItem resolves the {id} actor and returns its {itemID} item.
func (s *Server) loadItem(r *http.Request) (*character.Actor, *resolver.View, *character.Item, error) {
	a, v, err := s.loadResolved(r)
	if err != nil {
		return nil, nil, nil, err
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		return nil, nil, nil, err
	}
	it, ok := a.Item(itemID)
	if !ok {
		return nil, nil, nil, fmt.Errorf("item %s of actor %s: %w", itemID, a.ID, postgres.ErrItemNotFound)
	}
	return a, v, it, nil
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	_, _, it, err := s.loadItem(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet.BuildItemDetail(it, s.localizer(r)))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	actorID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Items.Delete(r.Context(), actorID, itemID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleItemText(w http.ResponseWriter, r *http.Request) {
	_, _, it, err := s.loadItem(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	text := sheet.BuildItemText(it, s.localizer(r))
	if text.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var buf bytes.Buffer
	if err := s.deps.Sheets.RenderItemText(&buf, text); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleRollItem(w http.ResponseWriter, r *http.Request) {
	a, v, it, err := s.loadItem(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := s.deps.Roller.RollItem(r.Context(), a, v, it, s.localizer(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleChatLog(w http.ResponseWriter, r *http.Request) {
	actorID, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := defaultChatLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxChatLimit {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("limit must be 1-%d", maxChatLimit))
			return
		}
		limit = n
	}
	msgs, err := s.deps.Chat.ListByActor(r.Context(), actorID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleListMacros(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Macros.Names())
}

func (s *Server) handleRunMacro(w http.ResponseWriter, r *http.Request) {
	a, v, err := s.loadResolved(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := r.PathValue("name")
	formula, err := s.deps.Macros.Run(r.Context(), name, resolver.RollData(v))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := s.deps.Roller.RollFormula(r.Context(), a, v, formula, name, s.localizer(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

var _ Roller = (*chat.Service)(nil)

func wantsJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "json" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
