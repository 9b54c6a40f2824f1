// Package health provides the user health and automation enforcement module.
package health

import (
	"imobportal_backend/internal/events"
	"imobportal_backend/internal/health/handler"
	"imobportal_backend/internal/health/repository"
	"imobportal_backend/internal/health/service"
	apphttp "imobportal_backend/internal/http"
	"imobportal_backend/internal/records"
	"imobportal_backend/platform/config"
	"imobportal_backend/platform/logger"
	"imobportal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the health engine domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new health module with all dependencies wired.
// Keyword sources are layered: env override, then the heuristics file,
// then the built-in defaults.
func NewModule(pool *pgxpool.Pool, bus events.Bus, cfg config.HealthEngineConfig, val *validator.Validator, log *logger.Logger) (*Module, error) {
	keywords := cfg.GetAutomationKeywords()
	if len(keywords) == 0 {
		heuristics, err := config.LoadHeuristics(cfg.GetHeuristicsFile())
		if err != nil {
			return nil, err
		}
		keywords = heuristics.AutomationKeywords
	}

	repo := repository.New(pool)
	recordRepo := records.New(pool)
	svc := service.New(recordRepo, repo, repo, bus, keywords, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}, nil
}

// Service exposes the engine service for worker-side wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "health-engine"
}

// RegisterRoutes registers the module's routes under /api/v1/health-engine
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/health-engine")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
