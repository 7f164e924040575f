// Package main resolves an actor document offline. It reads an actor JSON
// document with embedded items and prints the derived view, the sheet
// view-model, or the rendered sheet HTML, or rolls one of the actor's stats.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arianrhod/internal/chat"
	"github.com/cory-johannsen/arianrhod/internal/config"
	"github.com/cory-johannsen/arianrhod/internal/document"
	"github.com/cory-johannsen/arianrhod/internal/game/dice"
	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
	"github.com/cory-johannsen/arianrhod/internal/game/ruleset"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
	"github.com/cory-johannsen/arianrhod/internal/observability"
	"github.com/cory-johannsen/arianrhod/internal/sheet"
)

func main() {
	templatePath := flag.String("template", "content/template.yaml", "path to the actor template")
	format := flag.String("format", "view", "output: view (derived JSON), sheet (sheet JSON), or html")
	lang := flag.String("lang", i18n.BaseLocale, "locale for sheet labels")
	roll := flag.String("roll", "", "roll a combatant or action stat (e.g. combatant.hit) instead of printing the view")
	seed := flag.Uint64("seed", 0, "seed for reproducible rolls; 0 uses crypto/rand")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger, err := observability.NewLogger(config.LoggingConfig{Level: *level, Format: "console"})
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	opts := options{
		path:     flag.Arg(0),
		template: *templatePath,
		format:   *format,
		lang:     *lang,
		roll:     *roll,
		source:   dice.NewCryptoSource(),
	}
	if *seed != 0 {
		opts.source = dice.NewSeededSource(*seed)
	}
	if err := run(logger, opts, os.Stdout); err != nil {
		logger.Fatal("resolve failed", zap.Error(err))
	}
}

type options struct {
	path     string // "" or "-" reads stdin
	template string
	format   string
	lang     string
	roll     string
	source   dice.Source
}

// run resolves the actor named by opts and writes the chosen output to w.
func run(logger *zap.Logger, opts options, w io.Writer) error {
	var (
		doc []byte
		err error
	)
	if opts.path == "" || opts.path == "-" {
		doc, err = io.ReadAll(os.Stdin)
	} else {
		doc, err = os.ReadFile(opts.path)
	}
	if err != nil {
		return fmt.Errorf("reading actor document: %w", err)
	}

	tmpl, err := ruleset.LoadTemplate(opts.template)
	if err != nil {
		return err
	}
	a, err := document.NewDecoder(logger).DecodeActor(doc)
	if err != nil {
		return err
	}
	v, err := resolver.New(logger, tmpl).Resolve(a)
	if err != nil {
		return err
	}

	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		return err
	}
	loc := bundle.Localizer(bundle.Match(opts.lang))

	if opts.roll != "" {
		formula, label, ok := statFormula(v, opts.roll)
		if !ok {
			return fmt.Errorf("unknown stat %q", opts.roll)
		}
		cards, err := chat.NewHTMLRenderer()
		if err != nil {
			return err
		}
		roller := dice.NewLoggedRoller(opts.source, logger.Named("dice"))
		svc := chat.NewService(chat.LogSink{Logger: logger}, roller, cards, chat.RollPublic, logger)
		msg, err := svc.RollFormula(context.Background(), a, v, formula, loc.Localize(label), loc)
		if err != nil {
			return err
		}
		return writeJSON(w, msg)
	}

	switch opts.format {
	case "view":
		return writeJSON(w, v)
	case "sheet", "html":
		sh := sheet.Build(a, v, loc)
		if opts.format == "sheet" {
			return writeJSON(w, sh)
		}
		r, err := sheet.NewHTMLRenderer()
		if err != nil {
			return err
		}
		return r.RenderSheet(w, sh)
	}
	return errors.New("format must be one of view, sheet, html")
}

// statFormula looks up "combatant.<key>" or "actions.<key>" in v and returns
// its formula and label key.
func statFormula(v *resolver.View, stat string) (formula, label string, ok bool) {
	block, key, ok := strings.Cut(stat, ".")
	if !ok {
		return "", "", false
	}
	var s resolver.StatView
	switch block {
	case "combatant":
		s, ok = v.CombatAttribute(key)
		label = i18n.CombatantLabel(key)
	case "actions":
		s, ok = v.Action(key)
		label = i18n.ActionLabel(key)
	default:
		return "", "", false
	}
	return s.Formula, label, ok
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
