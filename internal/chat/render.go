package chat

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/cory-johannsen/arianrhod/internal/game/dice"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

// RollView is the render model of a rolled formula.
type RollView struct {
	Flavor  string
	Formula string
	Dice    []int
	Total   int
	Outcome string // localized critical/fumble label, empty otherwise
	Class   string // "critical", "fumble" or ""
}

func newRollView(flavor string, r dice.RollResult, loc i18n.Localizer) *RollView {
	v := &RollView{Flavor: flavor, Formula: r.Expression, Dice: r.Dice, Total: r.Total()}
	switch {
	case r.Critical:
		v.Class, v.Outcome = "critical", loc.Localize(i18n.KeyCritical)
	case r.Fumble:
		v.Class, v.Outcome = "fumble", loc.Localize(i18n.KeyFumble)
	}
	return v
}

// CardRenderer draws chat message content.
type CardRenderer interface {
	RenderCard(w io.Writer, c *Card) error
	RenderRoll(w io.Writer, r *RollView) error
}

// HTMLRenderer renders chat content with the embedded templates.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded chat templates.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	t, err := template.New("chat").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing chat templates: %w", err)
	}
	return &HTMLRenderer{tmpl: t}, nil
}

// RenderCard writes the item card fragment.
func (r *HTMLRenderer) RenderCard(w io.Writer, c *Card) error {
	return r.tmpl.ExecuteTemplate(w, "item-card.html", c)
}

// RenderRoll writes the roll fragment.
func (r *HTMLRenderer) RenderRoll(w io.Writer, v *RollView) error {
	return r.tmpl.ExecuteTemplate(w, "roll.html", v)
}
