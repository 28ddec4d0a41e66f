// Package server exposes the platform HTTP API: emission-factor registry
// management, activity capture, calculation runs, credit projects, audit,
// and report export. Routes are role-gated; ADMIN satisfies every check.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/opencarbon/carbonfocus/internal/auth"
	"github.com/opencarbon/carbonfocus/internal/store"
)

const requestTimeout = 30 * time.Second

// Server routes platform API requests against a store.
type Server struct {
	store  *store.Store
	logger zerolog.Logger
	router *chi.Mux
}

// New builds the router with middleware and all API routes mounted.
func New(st *store.Store, logger zerolog.Logger) *Server {
	s := &Server{store: st, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.Authenticate)

		r.With(RequireRoles()).Get("/api/dashboard", s.handleDashboard)
		r.With(RequireRoles()).Get("/api/efs", s.handleListEFs)
		r.With(RequireRoles()).Get("/api/efs/{key}", s.handleGetEF)

		expert := RequireRoles(auth.RoleExpert)
		r.With(expert).Post("/api/efs", s.handleUpsertEF)
		r.With(expert).Post("/api/efs/import", s.handleImportEFs)

		calculator := RequireRoles(auth.RoleCalculator, auth.RoleExpert)
		r.With(calculator).Get("/api/activities", s.handleListActivities)
		r.With(calculator).Post("/api/activities", s.handleCreateActivity)
		r.With(calculator).Delete("/api/activities/{id}", s.handleDeleteActivity)
		r.With(calculator).Post("/api/activities/import", s.handleImportActivities)
		r.With(calculator).Post("/api/calc/run", s.handleCalcRun)

		reader := RequireRoles(auth.RoleCalculator, auth.RoleExpert, auth.RoleAuditor, auth.RoleVerifier)
		r.With(reader).Get("/api/calc/runs", s.handleListRuns)
		r.With(reader).Get("/api/reports/run/{id}.csv", s.handleReportCSV)
		r.With(reader).Get("/api/reports/run/{id}.json", s.handleReportJSON)

		developer := RequireRoles(auth.RoleProjectDeveloper, auth.RoleExpert)
		r.With(developer).Get("/api/credit/projects", s.handleListCreditProjects)
		r.With(developer).Post("/api/credit/projects", s.handleUpsertCreditProject)
		r.With(developer).Post("/api/credit/calc", s.handleCreditCalc)

		auditor := RequireRoles(auth.RoleAuditor, auth.RoleVerifier)
		r.With(auditor).Post("/api/audit/run/{id}", s.handleAuditRun)
	})

	s.router = r
	return s
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BootstrapAdmin creates the initial admin account when no admin exists. It
// is a no-op when the username is already taken.
func BootstrapAdmin(ctx context.Context, st *store.Store, password string) error {
	_, found, err := st.UserByUsername(ctx, "admin")
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return st.CreateUser(ctx, &store.User{
		Username:     "admin",
		PasswordHash: hash,
		Roles:        []string{auth.RoleAdmin},
		IsActive:     true,
	})
}
