package sheet

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer draws sheets and item fragments.
type Renderer interface {
	RenderSheet(w io.Writer, s *Sheet) error
	RenderItemText(w io.Writer, t *ItemText) error
}

// HTMLRenderer renders with the embedded html/template set. Stored text such
// as biographies and item effects is escaped, never injected as markup.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded templates.
//
// Postcondition: Returns a renderer ready for concurrent use, or a parse error.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	t, err := template.New("sheet").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing sheet templates: %w", err)
	}
	return &HTMLRenderer{tmpl: t}, nil
}

// RenderSheet executes the template selected by the sheet's actor type.
func (r *HTMLRenderer) RenderSheet(w io.Writer, s *Sheet) error {
	if r.tmpl.Lookup(s.Template()) == nil {
		return fmt.Errorf("no sheet template for actor type %q", s.Type)
	}
	return r.tmpl.ExecuteTemplate(w, s.Template(), s)
}

// RenderItemText executes the item fragment template.
func (r *HTMLRenderer) RenderItemText(w io.Writer, t *ItemText) error {
	return r.tmpl.ExecuteTemplate(w, "item-text.html", t)
}
