package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arianrhod/internal/chat"
	"github.com/cory-johannsen/arianrhod/internal/document"
	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/cory-johannsen/arianrhod/internal/game/dice"
	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
	"github.com/cory-johannsen/arianrhod/internal/game/ruleset"
	"github.com/cory-johannsen/arianrhod/internal/httpapi"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
	"github.com/cory-johannsen/arianrhod/internal/scripting"
	"github.com/cory-johannsen/arianrhod/internal/sheet"
	"github.com/cory-johannsen/arianrhod/internal/storage/postgres"
)

// fakeStore keeps actors in memory and applies updates through the same
// document path as the database repository.
type fakeStore struct {
	mu      sync.Mutex
	actors  map[uuid.UUID]*character.Actor
	decoder *document.Decoder
	posted  []*chat.Message
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*character.Actor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actors[id]
	if !ok {
		return nil, postgres.ErrActorNotFound
	}
	return a, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, updates map[string]any) (*character.Actor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actors[id]
	if !ok {
		return nil, postgres.ErrActorNotFound
	}
	doc, err := document.EncodeActor(a)
	if err != nil {
		return nil, err
	}
	doc, err = document.ApplyUpdates(doc, updates)
	if err != nil {
		return nil, err
	}
	updated, err := f.decoder.DecodeActor(doc)
	if err != nil {
		return nil, err
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	f.actors[id] = updated
	return updated, nil
}

func (f *fakeStore) Create(_ context.Context, actorID uuid.UUID, it *character.Item) (*character.Item, []uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actors[actorID]
	if !ok {
		return nil, nil, postgres.ErrActorNotFound
	}
	if err := a.ValidateItem(it); err != nil {
		return nil, nil, err
	}
	var replaced []uuid.UUID
	kept := a.Items[:0]
	for _, existing := range a.Items {
		if it.Type.Singleton() && existing.Type == it.Type {
			replaced = append(replaced, existing.ID)
			continue
		}
		kept = append(kept, existing)
	}
	c := it.Clone()
	c.ActorID = actorID
	a.Items = append(kept, c)
	return c, replaced, nil
}

func (f *fakeStore) Delete(_ context.Context, actorID, itemID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actors[actorID]
	if !ok {
		return postgres.ErrActorNotFound
	}
	for i, it := range a.Items {
		if it.ID == itemID {
			a.Items = append(a.Items[:i], a.Items[i+1:]...)
			return nil
		}
	}
	return postgres.ErrItemNotFound
}

func (f *fakeStore) Post(_ context.Context, m *chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, m)
	return nil
}

func (f *fakeStore) ListByActor(_ context.Context, actorID uuid.UUID, limit int) ([]*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*chat.Message, 0)
	for i := len(f.posted) - 1; i >= 0 && len(out) < limit; i-- {
		if f.posted[i].ActorID == actorID {
			out = append(out, f.posted[i])
		}
	}
	return out, nil
}

// fakeActors exposes the actor half of fakeStore, whose Create and Delete
// methods serve items.
type fakeActors struct{ *fakeStore }

func (f fakeActors) Create(_ context.Context, a *character.Actor) (*character.Actor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.actors[a.ID]; ok {
		return nil, postgres.ErrActorExists
	}
	f.actors[a.ID] = a
	return a, nil
}

func (f fakeActors) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.actors[id]; !ok {
		return postgres.ErrActorNotFound
	}
	delete(f.actors, id)
	return nil
}

// threes rolls 3 on every die.
type threes struct{}

func (threes) Intn(int) int { return 2 }

type fixture struct {
	srv     *httptest.Server
	store   *fakeStore
	actor   *character.Actor
	compend *ruleset.Compendium
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	tmpl, err := ruleset.LoadTemplate("../../content/template.yaml")
	require.NoError(t, err)
	items, err := ruleset.LoadItems("../../content/items")
	require.NoError(t, err)
	comp := ruleset.NewCompendium()
	for _, it := range items {
		comp.Register(it)
	}
	bundle, err := i18n.LoadEmbedded()
	require.NoError(t, err)
	sheets, err := sheet.NewHTMLRenderer()
	require.NoError(t, err)
	cards, err := chat.NewHTMLRenderer()
	require.NoError(t, err)

	a, err := character.Build("Aria", character.TypeCharacter, tmpl)
	require.NoError(t, err)
	warrior, ok := comp.Item("warrior")
	require.True(t, ok)
	sword, ok := comp.Item("long_sword")
	require.True(t, ok)
	guts, ok := comp.Item("guts")
	require.True(t, ok)
	a.Items = []*character.Item{warrior.Instantiate(a.ID), sword.Instantiate(a.ID), guts.Instantiate(a.ID)}

	store := &fakeStore{
		actors:  map[uuid.UUID]*character.Actor{a.ID: a},
		decoder: document.NewDecoder(zap.NewNop()),
	}
	roller := dice.NewLoggedRoller(threes{}, logger)

	macroDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(macroDir, "aimed.lua"), []byte(`return function(d)
		return arianrhod.formula(d.combatant.hit.dice + 1, d.combatant.hit.value)
	end`), 0644))
	macros := scripting.NewManager(roller, logger, 0)
	require.NoError(t, macros.Load(macroDir))
	t.Cleanup(macros.Close)

	srv := httpapi.NewServer(httpapi.Deps{
		Actors:        fakeActors{store},
		Items:         store,
		Chat:          store,
		Roller:        chat.NewService(store, roller, cards, chat.RollPublic, logger),
		Macros:        macros,
		Resolver:      resolver.New(logger, tmpl),
		Template:      tmpl,
		Compendium:    comp,
		Bundle:        bundle,
		Sheets:        sheets,
		DefaultLocale: "en-US",
	}, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{srv: ts, store: store, actor: a, compend: comp}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (f *fixture) actorPath(rest string) string {
	return "/actors/" + f.actor.ID.String() + rest
}

func (f *fixture) itemID(t *testing.T, name string) string {
	t.Helper()
	for _, it := range f.actor.Items {
		if it.Name == name {
			return it.ID.String()
		}
	}
	t.Fatalf("item %q not found", name)
	return ""
}

func TestGetActor_ReturnsDerivedView(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, f.actorPath(""), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := decode[resolver.View](t, resp)
	assert.Equal(t, "Aria", v.Name)
	str, ok := v.Ability(character.Str)
	require.True(t, ok)
	assert.Equal(t, 9, str.Value, "template base 6 plus warrior base 3")
	assert.Equal(t, 3, str.Bonus)
	attack, ok := v.CombatAttribute("attack")
	require.True(t, ok)
	assert.Equal(t, "2D6+7", attack.Formula)
}

func TestGetActor_Errors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/actors/"+uuid.NewString(), "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/actors/not-a-uuid", "").StatusCode)
}

func TestCreateActor_FromTemplate(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/actors", `{"name": "Lyra"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	v := decode[resolver.View](t, resp)
	assert.Equal(t, "Lyra", v.Name)
	assert.Equal(t, character.TypeCharacter, v.Type)
	assert.Equal(t, "/actors/"+v.ActorID.String(), resp.Header.Get("Location"))
	str, ok := v.Ability(character.Str)
	require.True(t, ok)
	assert.Equal(t, 6, str.Value)
	require.Len(t, v.Combatant, 7, "every template combat attribute is present")
	assert.Equal(t, "hit", v.Combatant[0].Key)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/actors/"+v.ActorID.String(), "").StatusCode)
}

func TestCreateActor_Errors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/actors", `{"name": "  "}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/actors", `{"name": "X", "type": "vehicle"}`).StatusCode)
}

func TestDeleteActor(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, f.actorPath(""), "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, f.actorPath(""), "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, f.actorPath(""), "").StatusCode)
}

func TestUpdateActor_RecomputesView(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPatch, f.actorPath(""), `{"system.abilities.str.point": 3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := decode[resolver.View](t, resp)
	str, _ := v.Ability(character.Str)
	assert.Equal(t, 12, str.Value)
	assert.Equal(t, 4, str.Bonus)
}

func TestUpdateActor_RejectsDerivedPath(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPatch, f.actorPath(""), `{"system.abilities.str.total": 30}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decode[map[string]string](t, resp)["error"], "derived")
}

func TestUpdateActor_RejectsDanglingReference(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPatch, f.actorPath(""), `{"system.actions.trapDetect.key": "bogus"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, decode[map[string]string](t, resp)["error"], "bogus")

	// The stored actor still resolves.
	resp = f.do(t, http.MethodGet, f.actorPath(""), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decode[resolver.View](t, resp)
	trap, ok := v.Action("trapDetect")
	require.True(t, ok)
	assert.Equal(t, character.Per, trap.Ref)
}

func TestUpdateActor_EmptyBody(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, f.actorPath(""), `{}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, f.actorPath(""), `not json`).StatusCode)
}

func TestSheet_HTMLAndJSON(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, f.actorPath("/sheet"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	html := readBody(t, resp)
	assert.Contains(t, html, "Aria")
	assert.Contains(t, html, "Long Sword")

	resp = f.do(t, http.MethodGet, f.actorPath("/sheet?format=json"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sh := decode[sheet.Sheet](t, resp)
	require.NotNil(t, sh.MainClass)
	assert.Equal(t, "Warrior", sh.MainClass.Name)
}

func TestSheet_LocaleFromQueryAndHeader(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, f.actorPath("/sheet?lang=ko-KR"), "")
	assert.Contains(t, readBody(t, resp), "근력")

	resp = f.do(t, http.MethodGet, f.actorPath("/sheet"), "", "Accept-Language", "ko-KR,ko;q=0.9")
	assert.Contains(t, readBody(t, resp), "근력")

	resp = f.do(t, http.MethodGet, f.actorPath("/sheet"), "", "Accept-Language", "fr-FR")
	assert.NotContains(t, readBody(t, resp), "근력")
}

func TestCreateItem_FromCompendiumReplacesSingleton(t *testing.T) {
	f := newFixture(t)
	oldWarrior := f.itemID(t, "Warrior")

	resp := f.do(t, http.MethodPost, f.actorPath("/items"), `{"compendium": "acolyte"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[struct {
		Item     sheet.ItemDetail `json:"item"`
		Replaced []string         `json:"replaced"`
	}](t, resp)
	assert.Equal(t, "Acolyte", out.Item.Entry.Name)
	assert.Equal(t, []string{oldWarrior}, out.Replaced)
	assert.Equal(t, "Acolyte", f.store.actors[f.actor.ID].ItemOfType(character.ItemMainClass).Name)
}

func TestCreateItem_ByTypeAndCategory(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, f.actorPath("/items"), `{"type": "skill", "category": "warrior"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[map[string]json.RawMessage](t, resp)
	assert.JSONEq(t, `[]`, string(out["replaced"]))
	assert.Contains(t, string(out["item"]), "New Skill")
}

func TestCreateItem_Errors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodPost, f.actorPath("/items"), `{"type": "spell"}`).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, f.actorPath("/items"), `{"compendium": "excalibur"}`).StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/actors/"+uuid.NewString()+"/items", `{"type": "skill"}`).StatusCode)
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)
	path := f.actorPath("/items/" + f.itemID(t, "Guts"))
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, path, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, "").StatusCode)
}

func TestGetItem_LabelsBlocks(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, f.actorPath("/items/"+f.itemID(t, "Long Sword")), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decode[sheet.ItemDetail](t, resp)
	assert.Equal(t, "Long Sword", d.Entry.Name)
	assert.NotEmpty(t, d.Combatant)
}

func TestItemText(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, f.actorPath("/items/"+f.itemID(t, "Guts")+"/text"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "HP max")

	f.actor.Items = append(f.actor.Items, &character.Item{ID: uuid.New(), Name: "Blank", Type: character.ItemSkill})
	blank := f.actor.Items[len(f.actor.Items)-1].ID.String()
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodGet, f.actorPath("/items/"+blank+"/text"), "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, f.actorPath("/items/"+uuid.NewString()+"/text"), "").StatusCode)
}

func TestRollItem_PostsRoll(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, f.actorPath("/items/"+f.itemID(t, "Long Sword")+"/roll"), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	msg := decode[chat.Message](t, resp)
	require.NotNil(t, msg.Roll)
	assert.Equal(t, "2D6+7", msg.Roll.Expression)
	assert.Equal(t, 13, msg.Roll.Total())
	assert.Equal(t, "Long Sword", msg.Flavor)
	require.Len(t, f.store.posted, 1)
}

func TestRollItem_WithoutFormulaPostsCard(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, f.actorPath("/items/"+f.itemID(t, "Guts")+"/roll"), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	msg := decode[chat.Message](t, resp)
	assert.Nil(t, msg.Roll)
	assert.Contains(t, msg.Content, "arianrhod-item-title")
}

func TestRollFormula(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, f.actorPath("/roll"), `{"formula": "2D6+@str.bonus", "label": "Brawn"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	msg := decode[chat.Message](t, resp)
	assert.Equal(t, "2D6+3", msg.Roll.Expression)
	assert.Equal(t, "Brawn", msg.Flavor)

	resp = f.do(t, http.MethodPost, f.actorPath("/roll?lang=ko-KR"), `{"stat": "combatant.hit"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "명중", decode[chat.Message](t, resp).Flavor)
}

func TestRollFormula_Errors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, f.actorPath("/roll"), `{"formula": ""}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, f.actorPath("/roll"), `{"formula": "2D6+@nope"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, f.actorPath("/roll"), `{"stat": "combatant.flight"}`).StatusCode)
}

func TestRunMacro(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"aimed"}, decode[[]string](t, f.do(t, http.MethodGet, "/macros", "")))

	resp := f.do(t, http.MethodPost, f.actorPath("/macros/aimed"), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	msg := decode[chat.Message](t, resp)
	assert.True(t, strings.HasPrefix(msg.Roll.Expression, "3D6+"))
	assert.Equal(t, "aimed", msg.Flavor)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, f.actorPath("/macros/missing"), "").StatusCode)
}

func TestChatLog(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, f.actorPath("/items/"+f.itemID(t, "Long Sword")+"/roll"), "")
	f.do(t, http.MethodPost, f.actorPath("/items/"+f.itemID(t, "Guts")+"/roll"), "")

	resp := f.do(t, http.MethodGet, f.actorPath("/chat?limit=1"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decode[[]chat.Message](t, resp)
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].Roll, "newest message is the Guts card")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, f.actorPath("/chat?limit=0"), "").StatusCode)
}

func TestCompendium_FilterByType(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/compendium?type=skill", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]map[string]string](t, resp)
	require.Len(t, entries, len(f.compend.ByType(character.ItemSkill)))
	for _, e := range entries {
		assert.Equal(t, "skill", e["type"])
	}
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodGet, "/compendium?type=spell", "").StatusCode)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").StatusCode)
}
