// Package main provides the KNW actor server: a Telnet frontend over the
// organization and warfare sheets, backed by PostgreSQL.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/config"
	"github.com/cory-johannsen/knw/internal/frontend/handlers"
	"github.com/cory-johannsen/knw/internal/frontend/telnet"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/command"
	"github.com/cory-johannsen/knw/internal/game/condition"
	"github.com/cory-johannsen/knw/internal/game/dice"
	"github.com/cory-johannsen/knw/internal/game/organization"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
	"github.com/cory-johannsen/knw/internal/game/session"
	"github.com/cory-johannsen/knw/internal/game/warfare"
	"github.com/cory-johannsen/knw/internal/i18n"
	"github.com/cory-johannsen/knw/internal/observability"
	"github.com/cory-johannsen/knw/internal/scripting"
	"github.com/cory-johannsen/knw/internal/server"
	"github.com/cory-johannsen/knw/internal/sheet"
	"github.com/cory-johannsen/knw/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "knwserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting KNW actor server",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
	)

	ctx := context.Background()
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	accounts := postgres.NewAccountRepository(pool.DB())
	documents := postgres.NewDocumentRepository(pool.DB(), logger)
	messages := postgres.NewMessageRepository(pool.DB())

	rules := ruleset.Default()
	if cfg.Content.Ruleset != "" {
		rules, err = ruleset.Load(cfg.Content.Ruleset)
		if err != nil {
			logger.Fatal("loading ruleset", zap.String("path", cfg.Content.Ruleset), zap.Error(err))
		}
	}
	statuses, err := condition.LoadDirectory(cfg.Content.StatusesDir)
	if err != nil {
		logger.Fatal("loading statuses", zap.String("dir", cfg.Content.StatusesDir), zap.Error(err))
	}
	catalog, err := i18n.Load(cfg.Content.Locale)
	if err != nil {
		logger.Fatal("loading locale", zap.String("locale", cfg.Content.Locale), zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("statuses", len(statuses.All())),
		zap.String("locale", cfg.Content.Locale),
	)

	sessions := session.NewManager(logger)
	hub := chat.NewHub(messages, sessions, logger)
	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	members := actor.NewStoreDirectory(documents)

	orgDeps := organization.Deps{
		Rules: rules, Store: documents, Members: members, Roller: roller,
		Chat: hub, Notifier: hub, Locale: catalog, Logger: logger,
	}
	warDeps := warfare.Deps{
		Rules: rules, Store: documents, Members: members, Statuses: statuses, Roller: roller,
		Chat: hub, Notifier: hub, Locale: catalog, Logger: logger,
	}

	var scripts *scripting.Manager
	if cfg.Content.ScriptsDir != "" {
		scripts = scripting.NewManager(roller, logger)
		scripts.Post = func(ctx context.Context, speaker, text string) error {
			_, err := hub.Post(ctx, chat.Message{SpeakerName: speaker, Content: text})
			return err
		}
		scripts.Localize = catalog.Localize
		if err := scripts.Load(cfg.Content.ScriptsDir, cfg.Content.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		defer scripts.Close()
		orgDeps.Observer = scripts
		warDeps.Observer = scripts
	}

	orgs := organization.NewService(orgDeps)
	units := warfare.NewService(warDeps)
	orgSheet := sheet.NewOrganizationSheet(orgs)
	warSheet := sheet.NewWarfareSheet(units)
	sheets, err := sheet.NewRegistry(orgSheet, warSheet)
	if err != nil {
		logger.Fatal("registering sheets", zap.Error(err))
	}

	handler := handlers.NewAuthHandler(accounts, handlers.Services{
		Sessions:      sessions,
		Store:         documents,
		Sheets:        &sheet.Dispatcher{Sheets: sheets, Store: documents, Notifier: hub, Locale: catalog, Logger: logger},
		OrgSheet:      orgSheet,
		WarSheet:      warSheet,
		Organizations: orgs,
		Warfare:       units,
		Chat:          hub,
		History:       messages,
		Locale:        catalog,
		Commands:      command.DefaultRegistry(),
	}, logger)
	acceptor := telnet.NewAcceptor(cfg.Telnet, handler, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.StopTimeout = cfg.Server.ShutdownTimeout
	lifecycle.Add("database", &server.Monitor{
		Interval: 30 * time.Second,
		Check: func(ctx context.Context) error {
			return pool.Health(ctx, 5*time.Second)
		},
		Logger: logger.With(zap.String("check", "database")),
	})
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("KNW actor server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
	logger.Info("KNW actor server stopped", zap.Int("connected_users", sessions.UserCount()))
}
