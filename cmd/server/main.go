package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platformbuilds/sentra-core/internal/access"
	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/api"
	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/config"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/sod"
	"github.com/platformbuilds/sentra-core/internal/store"
	ldapstore "github.com/platformbuilds/sentra-core/internal/store/ldap"
	"github.com/platformbuilds/sentra-core/internal/store/memory"
	"github.com/platformbuilds/sentra-core/pkg/cache"
	"github.com/platformbuilds/sentra-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	coreLogger := logger.New(cfg.LogLevel)
	appLogger := logging.FromCoreLogger(coreLogger)
	appLogger.Info("Starting SENTRA-CORE", "environment", cfg.Environment)

	// Directory backend
	var dir store.Directory
	switch cfg.Storage.Backend {
	case "ldap":
		dir = ldapstore.New(ldapstore.Config{
			URL:          cfg.Storage.LDAP.URL,
			BindDN:       cfg.Storage.LDAP.BindDN,
			BindPassword: cfg.Storage.LDAP.BindPassword,
			BaseDN:       cfg.Storage.LDAP.BaseDN,
		}, coreLogger)
		appLogger.Info("LDAP directory backend initialized", "url", cfg.Storage.LDAP.URL)
	default:
		dir = memory.New()
		appLogger.Warn("In-memory directory backend selected; policy data will not survive restarts")
	}

	// Valkey cache, with in-process fallback when unreachable
	var valkeyCache cache.ValkeyCache
	if cfg.Cache.Enabled {
		valkeyCache, err = cache.NewValkey(cfg.Cache.Node, cfg.Cache.DB, cfg.Cache.Password,
			time.Duration(cfg.Cache.TTL)*time.Second)
		if err != nil {
			appLogger.Error("Failed to connect to Valkey", "node", cfg.Cache.Node, "error", err)
			valkeyCache = cache.NewNoopValkeyCache(coreLogger)
		} else {
			appLogger.Info("Valkey cache initialized", "node", cfg.Cache.Node)
		}
	} else {
		valkeyCache = cache.NewNoopValkeyCache(coreLogger)
	}

	// Read-through entity cache in front of the directory
	if cfg.Cache.Enabled {
		dir = repo.NewCachedDirectory(dir, valkeyCache, time.Duration(cfg.Cache.TTL)*time.Second)
	}

	// Policy engine wiring
	registry := repo.NewRegistry(dir, appLogger)
	evaluator := sod.NewEvaluator(dir, registry, appLogger)
	auditSink := audit.NewLogSink(appLogger)

	adminSvc := admin.NewService(dir, registry, evaluator, auditSink, appLogger)
	accessSvc := access.NewService(dir, registry, evaluator, valkeyCache, auditSink, appLogger)

	apiServer := api.NewServer(cfg, appLogger, dir, valkeyCache, adminSvc, accessSvc)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		appLogger.Info("Shutdown signal received")
		cancel()
	}()

	if err := apiServer.Start(ctx); err != nil {
		appLogger.Fatal("Server failed to start", "error", err)
	}

	appLogger.Info("SENTRA-CORE shutdown complete")
}
