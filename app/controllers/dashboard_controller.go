package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

type DashboardService interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

type DashboardController struct {
	dashboard DashboardService
}

func NewDashboardController(d DashboardService) *DashboardController {
	return &DashboardController{dashboard: d}
}

func (h *DashboardController) Stats(c *ctx.Context) {
	st, err := h.dashboard.Stats(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(st)
}

// ─── Health ───────────────────────────────────────────────────────────────────

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthController reports 200 when every check passes and 503 otherwise.
type HealthController struct {
	checks map[string]Check
}

func NewHealthController(checks map[string]Check) *HealthController {
	return &HealthController{checks: checks}
}

func (h *HealthController) Show(c *ctx.Context) {
	cctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	report := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(cctx); err != nil {
			report[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = "ok"
	}
	c.JSON(status, response.Envelope{Status: status, Data: report})
}
