package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"atlas-grc/api/handlers"
	"atlas-grc/config"
	"atlas-grc/core/assist"
	"atlas-grc/core/auth"
	"atlas-grc/core/rbac"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

type Server struct {
	cfg             *config.AppConfig
	router          *chi.Mux
	httpServer      *http.Server
	db              *sql.DB
	logger          *utils.Logger
	sessionManager  *auth.SessionManager
	users           store.UsersStore
	sessions        store.SessionStore
	audits          store.AuditStore
	controls        store.ControlsStore
	systems         store.SystemsStore
	assignments     store.SystemControlsStore
	policy          *rbac.Policy
	assistProvider  assist.Provider
	loginLimiter    *requestLimiter
	activityTracker *sessionActivity
}

func NewServer(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) *Server {
	sessions := store.NewSessionsStore(db)
	var provider assist.Provider
	if cfg.Assist.Enabled {
		provider = assist.NewOpenAIProvider(cfg.Assist)
	}
	s := &Server{
		cfg:             cfg,
		router:          chi.NewRouter(),
		db:              db,
		logger:          logger,
		sessionManager:  auth.NewSessionManager(sessions, cfg, logger),
		users:           store.NewUsersStore(db),
		sessions:        sessions,
		audits:          store.NewAuditStore(db),
		controls:        store.NewControlsStore(db),
		systems:         store.NewSystemsStore(db),
		assignments:     store.NewSystemControlsStore(db),
		policy:          rbac.MustNewPolicy(),
		assistProvider:  provider,
		loginLimiter:    newLimiter(10, time.Minute),
		activityTracker: newSessionActivity(),
	}
	s.registerRoutes()
	return s
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if s.cfg.TLSEnabled {
		return s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
	s.registerObservabilityRoutes()

	authHandler := handlers.NewAuthHandler(s.cfg, s.users, s.sessionManager, s.audits, s.logger)
	controlsHandler := handlers.NewControlsHandler(s.cfg, s.controls, s.audits, s.logger)
	systemsHandler := handlers.NewSystemsHandler(s.systems, s.audits, s.logger)
	assignmentsHandler := handlers.NewSystemControlsHandler(s.systems, s.assignments, s.audits, s.logger)
	assistHandler := handlers.NewAssistHandler(s.assistProvider, s.systems, s.assignments, s.audits, s.logger)
	logsHandler := handlers.NewLogsHandler(s.audits, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.rateLimitMiddleware(authHandler.Login))
		r.Post("/auth/logout", s.withSession(authHandler.Logout))
		r.Get("/auth/me", s.withSession(authHandler.Me))

		r.Route("/controls", func(r chi.Router) {
			r.Get("/", s.withSession(s.requirePermission("controls.view")(controlsHandler.List)))
			r.Get("/families", s.withSession(s.requirePermission("controls.view")(controlsHandler.Families)))
			r.Get("/stats", s.withSession(s.requirePermission("controls.view")(controlsHandler.Stats)))
			r.Post("/import", s.withSession(s.requirePermission("controls.import")(controlsHandler.Import)))
			r.Get("/{controlId}", s.withSession(s.requirePermission("controls.view")(controlsHandler.Get)))
		})

		r.Route("/systems", func(r chi.Router) {
			r.Get("/", s.withSession(s.requirePermission("systems.view")(systemsHandler.List)))
			r.Post("/", s.withSession(s.requirePermission("systems.manage")(systemsHandler.Create)))
			r.Route("/{systemId}", func(r chi.Router) {
				r.Get("/", s.withSession(s.requirePermission("systems.view")(systemsHandler.Get)))
				r.Put("/", s.withSession(s.requirePermission("systems.manage")(systemsHandler.Update)))
				r.Delete("/", s.withSession(s.requirePermission("systems.manage")(systemsHandler.Delete)))
				r.Post("/assist", s.withSession(s.requirePermission("assist.use")(assistHandler.Ask)))

				r.Route("/controls", func(r chi.Router) {
					r.Get("/", s.withSession(s.requirePermission("systems.controls.view")(assignmentsHandler.List)))
					r.Get("/stats", s.withSession(s.requirePermission("systems.controls.view")(assignmentsHandler.Stats)))
					r.Post("/bulk", s.withSession(s.requirePermission("systems.controls.manage")(assignmentsHandler.BulkAssign)))
					r.Get("/{controlId}", s.withSession(s.requirePermission("systems.controls.view")(assignmentsHandler.Get)))
					r.Put("/{controlId}", s.withSession(s.requirePermission("systems.controls.manage")(assignmentsHandler.Update)))
					r.Patch("/{controlId}", s.withSession(s.requirePermission("systems.controls.manage")(assignmentsHandler.Update)))
					r.Delete("/{controlId}", s.withSession(s.requirePermission("systems.controls.manage")(assignmentsHandler.Delete)))
				})
			})
		})

		r.Get("/logs", s.withSession(s.requirePermission("logs.view")(logsHandler.List)))
	})
}
