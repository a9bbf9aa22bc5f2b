package api

import (
	"errors"
	"net/http"
	"time"

	"repair-intake/internal/models"
	"repair-intake/internal/query"
	"repair-intake/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler holds service dependencies
type Handler struct {
	store     *services.RecordStore
	reminders *services.ReminderService
	diagnosis *services.DiagnosisService
	notify    *services.NotifyService
	log       *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(store *services.RecordStore, reminders *services.ReminderService, diagnosis *services.DiagnosisService, notify *services.NotifyService, log *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		reminders: reminders,
		diagnosis: diagnosis,
		notify:    notify,
		log:       log,
	}
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, handler *Handler) {
	api := r.Group("/api/v1")
	{
		// Repair records
		api.GET("/records", handler.ListRecords)
		api.POST("/records", handler.CreateRecord)
		api.GET("/records/:id", handler.GetRecord)
		api.PUT("/records/:id", handler.UpdateRecord)
		api.DELETE("/records/:id", handler.DeleteRecord)
		api.PUT("/records/:id/status", handler.SetStatus)
		api.POST("/records/:id/calls", handler.AppendCallLog)
		api.GET("/records/:id/history", handler.CustomerHistory)

		// Reminders
		api.GET("/reminders", handler.ActiveReminders)
		api.POST("/reminders/:id/dismiss", handler.DismissReminder)

		// Settings
		api.GET("/settings", handler.GetSettings)
		api.PUT("/settings", handler.UpdateSettings)
		api.GET("/settings/system", handler.GetSystemSettings)
		api.PUT("/settings/system", handler.UpdateSystemSettings)

		// AI diagnosis
		api.POST("/diagnose", handler.Diagnose)

		// Notification history
		api.GET("/notifications", handler.ListNotifications)
	}
}

// ListRecords returns the record list, optionally narrowed by a search term
// and a creation-date window.
func (h *Handler) ListRecords(c *gin.Context) {
	records, err := h.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filtered := query.Filter(records,
		c.Query("search"),
		c.Query("start"),
		c.Query("end"))

	c.JSON(http.StatusOK, filtered)
}

// CreateRecord opens a new repair case.
func (h *Handler) CreateRecord(c *gin.Context) {
	var input services.RecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.store.Create(input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// GetRecord retrieves a single record
func (h *Handler) GetRecord(c *gin.Context) {
	record, err := h.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

// UpdateRecord replaces the editable fields of a record. Identity fields
// (id, createdAt), status and call logs are preserved.
func (h *Handler) UpdateRecord(c *gin.Context) {
	var input services.RecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.store.Update(c.Param("id"), input)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteRecord removes a record and its call logs. Deletion is irreversible,
// so the caller must pass confirm=true; anything else aborts untouched.
func (h *Handler) DeleteRecord(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deletion requires confirmation"})
		return
	}

	if err := h.store.Remove(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "record deleted"})
}

// SetStatus replaces only the workflow status of a record.
func (h *Handler) SetStatus(c *gin.Context) {
	var req struct {
		Status models.RepairStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	if err := h.store.SetStatus(c.Param("id"), req.Status); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

// AppendCallLog adds a follow-up contact entry to a record's log.
func (h *Handler) AppendCallLog(c *gin.Context) {
	var req struct {
		CallerName string `json:"callerName"`
		Notes      string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.store.LoadSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.store.AppendCallLog(c.Param("id"), req.CallerName, req.Notes, settings.Language)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCallLogField):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// CustomerHistory aggregates every visit by the same customer identity
// (trimmed case-insensitive name plus trimmed phone), newest first, with the
// spend total and visit count.
func (h *Handler) CustomerHistory(c *gin.Context) {
	record, err := h.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	records, err := h.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	history := query.CustomerHistory(records, record.Name, record.Phone)
	c.JSON(http.StatusOK, gin.H{
		"history":     history,
		"total_spent": query.TotalSpent(history),
		"visit_count": query.VisitCount(history),
	})
}

// ActiveReminders returns the reminders due today that have not been
// dismissed this session.
func (h *Handler) ActiveReminders(c *gin.Context) {
	due, err := h.reminders.Active(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, due)
}

// DismissReminder acknowledges a reminder for the rest of this session.
func (h *Handler) DismissReminder(c *gin.Context) {
	h.reminders.Dismiss(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "reminder dismissed"})
}

// GetSettings retrieves the application settings.
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.store.LoadSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings replaces and persists the whole settings object.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var settings models.AppSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SaveSettings(settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// GetSystemSettings retrieves the raw key-value settings rows, including the
// operational overrides (sweep interval, notification channels) applied over
// the config file at startup.
func (h *Handler) GetSystemSettings(c *gin.Context) {
	settings, err := h.store.SystemSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSystemSettings upserts key-value settings rows. Overrides take effect
// on the next restart, when they are merged over the config file.
func (h *Handler) UpdateSystemSettings(c *gin.Context) {
	var settings map[string]string
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SaveSystemSettings(settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "settings updated"})
}

// Diagnose asks the AI collaborator for a structured diagnosis. A failed or
// malformed answer is not an error to the caller: the result is simply
// unavailable.
func (h *Handler) Diagnose(c *gin.Context) {
	var req struct {
		Model string `json:"model" binding:"required"`
		Issue string `json:"issue" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.store.LoadSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result, err := h.diagnosis.Diagnose(c.Request.Context(), req.Model, req.Issue, settings.Language)
	if err != nil {
		h.log.Warn("diagnosis unavailable", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"available": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": true, "diagnosis": result})
}

// ListNotifications retrieves the reminder delivery history.
func (h *Handler) ListNotifications(c *gin.Context) {
	logs, err := h.notify.History(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}
