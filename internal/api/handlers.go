package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/groupfee"
	"github.com/ticovision/reminders/internal/importer"
	"github.com/ticovision/reminders/internal/reminder"
	"github.com/ticovision/reminders/internal/repository"
)

const maxImportBytes = 32 << 20

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	reminderSvc *reminder.Service
	groupSvc    *groupfee.Service
	importSvc   *importer.Service
	log         logrus.FieldLogger
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, reminder.ErrInvalidRule):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Reminders ---

func (h *Handlers) ListPendingReminders(w http.ResponseWriter, r *http.Request) {
	result, err := h.reminderSvc.GetRemindersNeedingAction(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) RunAutomaticReminders(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reminderSvc.ProcessAutomaticReminders(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) SendManualReminder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Template string `json:"template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	if body.Template == "" {
		writeError(w, http.StatusBadRequest, "template is required")
		return
	}

	result, err := h.reminderSvc.SendManualReminder(r.Context(), chi.URLParam(r, "id"), body.Template)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) ListFeeReminders(w http.ResponseWriter, r *http.Request) {
	history, err := h.reminderSvc.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if history == nil {
		history = []domain.PaymentReminder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": history})
}

// --- Reminder rules ---

func (h *Handlers) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.reminderSvc.ListRules(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if rules == nil {
		rules = []domain.ReminderRule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (h *Handlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.ReminderRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}

	created, warnings, err := h.reminderSvc.CreateRule(r.Context(), rule)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":     created,
		"warnings": warnings,
	})
}

func (h *Handlers) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	if body.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	if err := h.reminderSvc.SetRuleActive(r.Context(), chi.URLParam(r, "id"), *body.IsActive); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Group fees ---

func (h *Handlers) GetGroupFees(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	agg, err := h.groupSvc.GetAggregatedGroupData(r.Context(), chi.URLParam(r, "id"), year)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// --- Imports ---

func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != importer.KindClients && kind != importer.KindFees {
		writeError(w, http.StatusNotFound, "unknown import kind "+kind)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	result, err := h.importSvc.Import(r.Context(), kind, data)
	if errors.Is(err, importer.ErrInvalidCSV) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
