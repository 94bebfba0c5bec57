package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc checks one dependency.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	env          string
	started      time.Time
	checks       map[string]PingFunc
	shuttingDown func() bool
	now          func() time.Time
}

// create a new instance of the health handler
func NewHealthHandler(env string, checks map[string]PingFunc) *HealthHandler {
	now := func() time.Time { return time.Now().UTC() }

	return &HealthHandler{
		env:     env,
		started: now(),
		checks:  checks,
		now:     now,
	}
}

func (h *HealthHandler) Health(ctx *gin.Context) {
	now := h.now()

	ctx.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   now,
		"uptime":      now.Sub(h.started).Seconds(),
		"environment": h.env,
	})
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// WithShutdown makes Readyz fail once isShuttingDown reports true, so load
// balancers drain the instance before the server stops.
func (h *HealthHandler) WithShutdown(isShuttingDown func() bool) *HealthHandler {
	h.shuttingDown = isShuttingDown
	return h
}

// Readyz reports not ready while any configured dependency fails its ping.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.shuttingDown != nil && h.shuttingDown() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, ping := range h.checks {
		if ping == nil {
			continue
		}
		if err := ping(cctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": failed,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
