// Package main provides the sheet host server. It wires configuration,
// content, localization, PostgreSQL storage, Lua macros, and the HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arianrhod/internal/chat"
	"github.com/cory-johannsen/arianrhod/internal/config"
	"github.com/cory-johannsen/arianrhod/internal/document"
	"github.com/cory-johannsen/arianrhod/internal/game/dice"
	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
	"github.com/cory-johannsen/arianrhod/internal/game/ruleset"
	"github.com/cory-johannsen/arianrhod/internal/httpapi"
	"github.com/cory-johannsen/arianrhod/internal/i18n"
	"github.com/cory-johannsen/arianrhod/internal/observability"
	"github.com/cory-johannsen/arianrhod/internal/scripting"
	"github.com/cory-johannsen/arianrhod/internal/server"
	"github.com/cory-johannsen/arianrhod/internal/sheet"
	"github.com/cory-johannsen/arianrhod/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting Arianrhod sheet host", zap.String("config", *configPath))

	// Load content
	tmpl, err := ruleset.LoadTemplate(cfg.Content.Template)
	if err != nil {
		logger.Fatal("loading actor template", zap.Error(err))
	}
	items, err := ruleset.LoadItems(cfg.Content.ItemsDir)
	if err != nil {
		logger.Fatal("loading item compendium", zap.Error(err))
	}
	compendium := ruleset.NewCompendium()
	for _, it := range items {
		compendium.Register(it)
	}
	logger.Info("content loaded",
		zap.Int("combatant", len(tmpl.Combatant)),
		zap.Int("actions", len(tmpl.Actions)),
		zap.Int("items", compendium.Len()),
	)

	var bundle *i18n.Bundle
	if cfg.Locale.Dir != "" {
		bundle, err = i18n.LoadDir(cfg.Locale.Dir)
	} else {
		bundle, err = i18n.LoadEmbedded()
	}
	if err != nil {
		logger.Fatal("loading locales", zap.Error(err))
	}
	logger.Info("locales loaded", zap.Strings("locales", bundle.Locales()))

	// Connect to PostgreSQL
	ctx := context.Background()
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	// Build services
	decoder := document.NewDecoder(logger.Named("document"))
	actors := postgres.NewActorRepository(pool.DB(), decoder)
	itemRepo := postgres.NewItemRepository(pool.DB(), decoder)
	chatLog := postgres.NewChatRepository(pool.DB())

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger.Named("dice"))
	cards, err := chat.NewHTMLRenderer()
	if err != nil {
		logger.Fatal("parsing chat templates", zap.Error(err))
	}
	sheets, err := sheet.NewHTMLRenderer()
	if err != nil {
		logger.Fatal("parsing sheet templates", zap.Error(err))
	}
	chatSvc := chat.NewService(chatLog, roller, cards, chat.RollMode(cfg.Chat.RollMode), logger.Named("chat"))

	deps := httpapi.Deps{
		Actors:        actors,
		Items:         itemRepo,
		Chat:          chatLog,
		Roller:        chatSvc,
		Resolver:      resolver.New(logger.Named("resolver"), tmpl),
		Template:      tmpl,
		Compendium:    compendium,
		Bundle:        bundle,
		Sheets:        sheets,
		DefaultLocale: cfg.Locale.Default,
	}
	if cfg.Content.MacrosDir != "" {
		macros := scripting.NewManager(roller, logger.Named("scripting"), cfg.Scripting.InstructionLimit)
		if err := macros.Load(cfg.Content.MacrosDir); err != nil {
			logger.Fatal("loading macros", zap.Error(err))
		}
		defer macros.Close()
		deps.Macros = macros
	}
	api := httpapi.NewServer(deps, logger.Named("http"))

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      api.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	healthStop := make(chan struct{})
	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-healthStop:
					return nil
				case <-ticker.C:
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			}
		},
		StopFn: func() {
			close(healthStop)
			pool.Close()
		},
	})
	lifecycle.Add("http", server.NewHTTPService(httpSrv, cfg.HTTP.ShutdownTimeout, logger))

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("http_addr", cfg.HTTP.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
