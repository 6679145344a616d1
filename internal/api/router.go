package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ticovision/reminders/internal/groupfee"
	"github.com/ticovision/reminders/internal/importer"
	"github.com/ticovision/reminders/internal/reminder"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	reminderSvc *reminder.Service,
	groupSvc *groupfee.Service,
	importSvc *importer.Service,
	log logrus.FieldLogger,
) http.Handler {
	h := &Handlers{
		reminderSvc: reminderSvc,
		groupSvc:    groupSvc,
		importSvc:   importSvc,
		log:         log,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireTenant)

		// Reminders.
		r.Get("/reminders/pending", h.ListPendingReminders)
		r.Post("/reminders/run", h.RunAutomaticReminders)
		r.Post("/fees/{id}/reminders", h.SendManualReminder)
		r.Get("/fees/{id}/reminders", h.ListFeeReminders)

		// Reminder rules.
		r.Get("/reminder-rules", h.ListRules)
		r.Post("/reminder-rules", h.CreateRule)
		r.Patch("/reminder-rules/{id}", h.UpdateRule)

		// Group fees.
		r.Get("/groups/{id}/fees", h.GetGroupFees)

		// Imports.
		r.Post("/imports/{kind}", h.Import)
	})

	return r
}
