// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/danielhkuo/dv-appraisal/logging"
	"github.com/danielhkuo/dv-appraisal/middleware"
	"github.com/danielhkuo/dv-appraisal/models"
)

type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health. A failed database ping answers 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logging.FromContext(r.Context()).Warn("health check database ping failed", "error", err)
		middleware.JSONResponse(w, http.StatusServiceUnavailable, models.HealthResponse{Status: "degraded", Database: "unreachable"})
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.HealthResponse{Status: "ok", Database: "ok"})
}

// Root handles GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("dv-appraisal API v1"))
}
