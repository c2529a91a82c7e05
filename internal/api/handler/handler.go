// Package handler provides HTTP handlers for all API endpoints.
// The scan/sweep endpoints are manual re-triggers of the same jobs the
// cron trigger runs; the test endpoint exercises the push transport
// directly, bypassing the dedup ledger.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/76ahmad/DRVN/internal/api/respond"
	"github.com/76ahmad/DRVN/internal/config"
	"github.com/76ahmad/DRVN/internal/reminder"
)

// HealthChecker verifies the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
// Engine and Sender are nil when push delivery is not configured; the
// affected endpoints report that instead of failing obscurely.
type Handler struct {
	db      HealthChecker
	engine  *reminder.Engine
	sweeper *reminder.Sweeper
	source  reminder.Source
	sender  reminder.Sender
	cfg     *config.Config
	logger  *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(db HealthChecker, engine *reminder.Engine, sweeper *reminder.Sweeper,
	source reminder.Source, sender reminder.Sender, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		db:      db,
		engine:  engine,
		sweeper: sweeper,
		source:  source,
		sender:  sender,
		cfg:     cfg,
		logger:  logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "DRVN Reminder API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// TriggerScan runs one reminder scan pass immediately.
// @Summary Run a reminder scan now
// @Tags reminders
// @Produce json
// @Security AdminToken
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/reminders/scan [post]
func (h *Handler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "PUSH_DISABLED", "Push transport is not configured")
		return
	}

	res, err := h.engine.RunScan(r.Context(), time.Now())
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "SCAN_FAILED", "Reminder scan aborted", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"appointmentsScanned": res.Scanned,
		"remindersSent":       res.Sent,
		"skippedPast":         res.SkippedPast,
		"skippedNoUser":       res.SkippedNoUser,
		"errors":              res.Errors,
		"duration":            res.Duration.Round(time.Millisecond).String(),
	})
}

// TriggerSweep runs one retention sweep immediately.
// @Summary Run a retention sweep now
// @Tags reminders
// @Produce json
// @Security AdminToken
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/reminders/sweep [post]
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.sweeper.RunSweep(r.Context(), time.Now())
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "SWEEP_FAILED", "Retention sweep aborted", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"deletedCount": res.Deleted,
		"duration":     res.Duration.Round(time.Millisecond).String(),
	})
}

type testNotificationRequest struct {
	UserID string `json:"user_id"`
}

// TestNotification sends a fixed test push to one user's device,
// bypassing the dedup ledger entirely.
// @Summary Send a test push notification
// @Tags notifications
// @Accept json
// @Produce json
// @Security AdminToken
// @Param request body testNotificationRequest true "Target user"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /api/v1/notifications/test [post]
func (h *Handler) TestNotification(w http.ResponseWriter, r *http.Request) {
	if h.sender == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "PUSH_DISABLED", "Push transport is not configured")
		return
	}

	var req testNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id is required")
		return
	}

	user, err := h.source.GetUser(r.Context(), req.UserID)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "LOOKUP_FAILED", "User lookup failed", err.Error())
		return
	}
	if user == nil || user.FCMToken == "" {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "User has no registered device")
		return
	}

	testID := uuid.NewString()
	data := map[string]string{
		"type": "test",
		"testId": testID,
	}
	err = h.sender.SendMulti(r.Context(), []string{user.FCMToken},
		"DRVN Test Notification", "Push notifications are working.", data)
	if err != nil {
		h.logger.Warn("Test notification failed", "user_id", req.UserID, "error", err)
		respond.WriteErrorDetail(w, http.StatusBadGateway, "SEND_FAILED", "Push delivery failed", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":  "sent",
		"user_id": req.UserID,
		"test_id": testID,
	})
}
