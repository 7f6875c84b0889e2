package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/sentra-core/internal/access"
	"github.com/platformbuilds/sentra-core/internal/admin"
	"github.com/platformbuilds/sentra-core/internal/api/handlers"
	"github.com/platformbuilds/sentra-core/internal/api/middleware"
	"github.com/platformbuilds/sentra-core/internal/config"
	"github.com/platformbuilds/sentra-core/internal/logging"
	"github.com/platformbuilds/sentra-core/internal/monitoring"
	"github.com/platformbuilds/sentra-core/internal/store"
	"github.com/platformbuilds/sentra-core/pkg/cache"
)

// Server is the HTTP surface of the policy engine. Administration and access
// decisions share one router; authentication is enforced for everything but
// health probes and session creation.
type Server struct {
	config     *config.Config
	logger     logging.Logger
	store      store.Directory
	cache      cache.ValkeyCache
	adminSvc   *admin.Service
	accessSvc  *access.Service
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	log logging.Logger,
	dir store.Directory,
	valkeyCache cache.ValkeyCache,
	adminSvc *admin.Service,
	accessSvc *access.Service,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:    cfg,
		logger:    log,
		store:     dir,
		cache:     valkeyCache,
		adminSvc:  adminSvc,
		accessSvc: accessSvc,
		router:    gin.New(),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(monitoring.HTTPMetricsMiddleware())

	if s.config.Auth.JWT.Secret != "" {
		s.router.Use(middleware.AuthMiddleware(s.config.Auth.JWT, s.cache))
	} else {
		s.router.Use(middleware.NoAuthMiddleware(s.config.Policy.DefaultTenant))
		s.logger.Warn("Authentication is DISABLED (no JWT secret configured); requests will use anonymous/default context")
	}

	if s.config.Monitoring.Enabled {
		monitoring.SetupPrometheusMetrics(s.router)
	}
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.store, s.cache, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	v1 := s.router.Group("/api/v1")

	// Session activation and permission checks
	sessionHandler := handlers.NewSessionHandler(s.accessSvc, s.config.Auth.JWT, s.logger)
	v1.POST("/sessions", sessionHandler.CreateSession)
	v1.GET("/sessions/:id", sessionHandler.GetSession)
	v1.DELETE("/sessions/:id", sessionHandler.DeleteSession)
	v1.POST("/check", sessionHandler.CheckPermission)

	// Role administration
	roleHandler := handlers.NewRoleHandler(s.adminSvc, s.logger)
	v1.POST("/roles", roleHandler.CreateRole)
	v1.GET("/roles", roleHandler.ListRoles)
	v1.GET("/roles/:name", roleHandler.GetRole)
	v1.PUT("/roles/:name", roleHandler.UpdateRole)
	v1.DELETE("/roles/:name", roleHandler.DeleteRole)
	v1.POST("/roles/:name/users/:userId", roleHandler.AssignUser)
	v1.DELETE("/roles/:name/users/:userId", roleHandler.DeassignUser)
	v1.PUT("/roles/:name/parents/:parent", roleHandler.AddInheritance)
	v1.DELETE("/roles/:name/parents/:parent", roleHandler.DeleteInheritance)
	v1.POST("/roles/:name/descendants", roleHandler.AddDescendant)
	v1.POST("/roles/:name/ascendants", roleHandler.AddAscendant)

	// Admin role administration (ARBAC)
	v1.POST("/admin-roles", roleHandler.CreateAdminRole)
	v1.GET("/admin-roles", roleHandler.ListAdminRoles)
	v1.GET("/admin-roles/:name", roleHandler.GetAdminRole)
	v1.PUT("/admin-roles/:name", roleHandler.UpdateAdminRole)
	v1.DELETE("/admin-roles/:name", roleHandler.DeleteAdminRole)
	v1.POST("/admin-roles/:name/users/:userId", roleHandler.AssignAdminRole)
	v1.DELETE("/admin-roles/:name/users/:userId", roleHandler.DeassignAdminRole)
	v1.PUT("/admin-roles/:name/parents/:parent", roleHandler.AddAdminInheritance)
	v1.DELETE("/admin-roles/:name/parents/:parent", roleHandler.DeleteAdminInheritance)

	// Separation of duty sets
	sdsetHandler := handlers.NewSDSetHandler(s.adminSvc, s.logger)
	v1.POST("/sd-sets", sdsetHandler.CreateSDSet)
	v1.GET("/sd-sets", sdsetHandler.ListSDSets)
	v1.GET("/sd-sets/:name", sdsetHandler.GetSDSet)
	v1.PUT("/sd-sets/:name", sdsetHandler.UpdateSDSet)
	v1.DELETE("/sd-sets/:name", sdsetHandler.DeleteSDSet)
	v1.PUT("/sd-sets/:name/members/:role", sdsetHandler.AddMember)
	v1.DELETE("/sd-sets/:name/members/:role", sdsetHandler.RemoveMember)

	// Permission objects and permissions
	permHandler := handlers.NewPermissionHandler(s.adminSvc, s.logger)
	v1.POST("/perm-objs", permHandler.CreatePermObj)
	v1.GET("/perm-objs/:name", permHandler.GetPermObj)
	v1.PUT("/perm-objs/:name", permHandler.UpdatePermObj)
	v1.DELETE("/perm-objs/:name", permHandler.DeletePermObj)
	v1.POST("/permissions", permHandler.CreatePermission)
	v1.GET("/permissions/:obj/:op", permHandler.GetPermission)
	v1.DELETE("/permissions/:obj/:op", permHandler.DeletePermission)
	v1.PUT("/permissions/:obj/:op/roles/:role", permHandler.GrantToRole)
	v1.DELETE("/permissions/:obj/:op/roles/:role", permHandler.RevokeFromRole)
	v1.PUT("/permissions/:obj/:op/users/:userId", permHandler.GrantToUser)
	v1.DELETE("/permissions/:obj/:op/users/:userId", permHandler.RevokeFromUser)

	// Org units (USER and PERM trees)
	ouHandler := handlers.NewOrgUnitHandler(s.adminSvc, s.logger)
	v1.POST("/org-units", ouHandler.CreateOrgUnit)
	v1.GET("/org-units/:type", ouHandler.ListOrgUnits)
	v1.GET("/org-units/:type/:name", ouHandler.GetOrgUnit)
	v1.PUT("/org-units/:type/:name", ouHandler.UpdateOrgUnit)
	v1.DELETE("/org-units/:type/:name", ouHandler.DeleteOrgUnit)
	v1.PUT("/org-units/:type/:name/parents/:parent", ouHandler.AddInheritance)
	v1.DELETE("/org-units/:type/:name/parents/:parent", ouHandler.DeleteInheritance)

	// Users
	userHandler := handlers.NewUserHandler(s.adminSvc, s.logger)
	v1.POST("/users", userHandler.CreateUser)
	v1.GET("/users", userHandler.ListUsers)
	v1.GET("/users/:userId", userHandler.GetUser)
	v1.PUT("/users/:userId", userHandler.UpdateUser)
	v1.DELETE("/users/:userId", userHandler.DeleteUser)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("SENTRA-CORE policy API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down SENTRA-CORE gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests (or embedders) can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
