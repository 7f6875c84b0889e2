package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/audit"
	"github.com/platformbuilds/sentra-core/internal/config"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/repo"
	"github.com/platformbuilds/sentra-core/internal/seed"
	"github.com/platformbuilds/sentra-core/internal/sod"
	"github.com/platformbuilds/sentra-core/internal/store"
	ldapstore "github.com/platformbuilds/sentra-core/internal/store/ldap"
	"github.com/platformbuilds/sentra-core/internal/store/memory"
	"github.com/platformbuilds/sentra-core/pkg/logger"
)

// main seeds the policy directory from a declarative YAML fixture. Safe to
// re-run; existing entities are left untouched.
func main() {
	seedFile := flag.String("file", "configs/seed.yaml", "path to the policy seed file")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall bootstrap timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	coreLogger := logger.New(cfg.LogLevel)
	appLogger := logging.FromCoreLogger(coreLogger)
	appLogger.Info("SENTRA-CORE bootstrap starting", "seedFile", *seedFile)

	var dir store.Directory
	switch cfg.Storage.Backend {
	case "ldap":
		dir = ldapstore.New(ldapstore.Config{
			URL:          cfg.Storage.LDAP.URL,
			BindDN:       cfg.Storage.LDAP.BindDN,
			BindPassword: cfg.Storage.LDAP.BindPassword,
			BaseDN:       cfg.Storage.LDAP.BaseDN,
		}, coreLogger)
	default:
		dir = memory.New()
		appLogger.Warn("Bootstrapping the in-memory backend; seeded data is lost on exit")
	}

	registry := repo.NewRegistry(dir, appLogger)
	evaluator := sod.NewEvaluator(dir, registry, appLogger)
	adminSvc := admin.NewService(dir, registry, evaluator, audit.NewLogSink(appLogger), appLogger)

	policy, err := seed.LoadFile(*seedFile)
	if err != nil {
		log.Fatalf("Failed to load seed file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := seed.Apply(ctx, adminSvc, policy, appLogger); err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}

	appLogger.Info("Bootstrap completed successfully", "tenant", policy.Tenant)
}
