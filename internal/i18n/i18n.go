// Package i18n loads the ARIANRHOD.* message catalogs and exposes the
// key -> localized string lookup used by the sheet and chat adapters.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other catalog falls back to.
const BaseLocale = "en-US"

// Message keys shared by the presentation adapters.
const (
	KeyUncategorized = "ARIANRHOD.Uncategorized"
	KeyEffects       = "ARIANRHOD.Effects"
	KeyDescription   = "ARIANRHOD.Description"
	KeyCritical      = "ARIANRHOD.Critical"
	KeyFumble        = "ARIANRHOD.Fumble"
)

// Localizer resolves a message key to display text. Unknown keys are
// returned unchanged.
type Localizer interface {
	Localize(key string) string
}

// NopLocalizer returns every key unchanged.
type NopLocalizer struct{}

// Localize returns key.
func (NopLocalizer) Localize(key string) string { return key }

// MapLocalizer looks keys up in a fixed map. Useful in tests and tools.
type MapLocalizer map[string]string

// Localize returns m[key], or key when absent.
func (m MapLocalizer) Localize(key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

//go:embed locales/*.yaml
var embeddedFS embed.FS

// Bundle holds every loaded locale and the x/text catalog built from them.
type Bundle struct {
	locales map[string]map[string]string
	tags    []language.Tag
	matcher language.Matcher
	catalog *catalog.Builder
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	sub, err := fs.Sub(embeddedFS, "locales")
	if err != nil {
		return nil, err
	}
	return LoadFromFS(sub)
}

// LoadDir loads catalogs from a directory of <locale>.yaml files.
func LoadDir(dir string) (*Bundle, error) {
	return LoadFromFS(os.DirFS(dir))
}

// LoadFromFS loads every *.yaml catalog at the root of fsys.
//
// Postcondition: Returns a bundle containing BaseLocale, or a non-nil error.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	locales := make(map[string]map[string]string, len(paths))
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		locale := strings.TrimSpace(file.Locale)
		if locale == "" {
			return nil, fmt.Errorf("catalog %s: locale is required", path)
		}
		if want := strings.TrimSuffix(path, ".yaml"); locale != want {
			return nil, fmt.Errorf("catalog %s: locale %q must match file name %q", path, locale, want)
		}
		if _, exists := locales[locale]; exists {
			return nil, fmt.Errorf("catalog %s: locale %q defined twice", path, locale)
		}
		msgs := make(map[string]string, len(file.Messages))
		for k, v := range file.Messages {
			k = strings.TrimSpace(k)
			if k == "" {
				return nil, fmt.Errorf("catalog %s: message key cannot be blank", path)
			}
			msgs[k] = v
		}
		locales[locale] = msgs
	}
	if _, ok := locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return newBundle(locales)
}

func newBundle(locales map[string]map[string]string) (*Bundle, error) {
	base := language.MustParse(BaseLocale)
	b := &Bundle{
		locales: locales,
		catalog: catalog.NewBuilder(catalog.Fallback(base)),
	}
	// The base locale leads so the matcher falls back to it.
	names := make([]string, 0, len(locales))
	for name := range locales {
		if name != BaseLocale {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	names = append([]string{BaseLocale}, names...)

	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", name, err)
		}
		b.tags = append(b.tags, tag)
		// Missing keys fall back to the base locale.
		merged := make(map[string]string, len(locales[BaseLocale]))
		for k, v := range locales[BaseLocale] {
			merged[k] = v
		}
		for k, v := range locales[name] {
			merged[k] = v
		}
		for k, v := range merged {
			if err := b.catalog.SetString(tag, k, v); err != nil {
				return nil, fmt.Errorf("register %s %s: %w", name, k, err)
			}
		}
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

// Locales returns the loaded locale identifiers, BaseLocale first.
func (b *Bundle) Locales() []string {
	out := make([]string, len(b.tags))
	for i, t := range b.tags {
		out[i] = t.String()
	}
	return out
}

// Match returns the supported tag best matching an Accept-Language header
// or a single language tag. Unparseable input yields the base locale.
func (b *Bundle) Match(accept string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return b.tags[0]
	}
	_, idx, _ := b.matcher.Match(tags...)
	return b.tags[idx]
}

// Localizer returns a Localizer for tag backed by an x/text printer.
func (b *Bundle) Localizer(tag language.Tag) Localizer {
	_, idx, _ := b.matcher.Match(tag)
	supported := b.tags[idx]
	return &printerLocalizer{
		printer: message.NewPrinter(supported, message.Catalog(b.catalog)),
		known:   b.locales[BaseLocale],
	}
}

type printerLocalizer struct {
	printer *message.Printer
	known   map[string]string // base locale keys; anything else is returned as is
}

func (l *printerLocalizer) Localize(key string) string {
	if _, ok := l.known[key]; !ok {
		return key
	}
	return l.printer.Sprintf(key)
}

// Capitalize upper-cases the first letter of key and leaves the rest as is,
// turning "actionPoints" into "ActionPoints".
func Capitalize(key string) string {
	return cases.Title(language.Und, cases.NoLower).String(key)
}

// AbilityLabel returns the message key for an ability, e.g. ARIANRHOD.Ability.Str.
func AbilityLabel(key string) string { return "ARIANRHOD.Ability." + Capitalize(key) }

// CombatantLabel returns the message key for a combat attribute.
func CombatantLabel(key string) string { return "ARIANRHOD.Combatant." + Capitalize(key) }

// ActionLabel returns the message key for an action.
func ActionLabel(key string) string { return "ARIANRHOD.Actions." + Capitalize(key) }

// AttributeLabel returns the message key for an item attribute.
func AttributeLabel(key string) string { return "ARIANRHOD.Attributes." + Capitalize(key) }
