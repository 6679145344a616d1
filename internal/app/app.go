// Package app wires configuration, storage and services together for the
// server and the CLI.
package app

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ticovision/reminders/internal/api"
	"github.com/ticovision/reminders/internal/config"
	"github.com/ticovision/reminders/internal/groupfee"
	"github.com/ticovision/reminders/internal/importer"
	"github.com/ticovision/reminders/internal/notify"
	"github.com/ticovision/reminders/internal/reminder"
	"github.com/ticovision/reminders/internal/repository"
	"github.com/ticovision/reminders/internal/scheduler"
)

type App struct {
	Config config.Config
	Log    *logrus.Logger
	DB     *repository.DB

	Rules *repository.RuleRepo

	Reminders *reminder.Service
	Groups    *groupfee.Service
	Importer  *importer.Service
}

// New opens the store and builds every service.
func New(cfg config.Config, log *logrus.Logger) (*App, error) {
	db, err := repository.InitDB(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	notifier, err := buildNotifier(cfg.SMTP, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Create repositories.
	ruleRepo := repository.NewRuleRepo(db)
	feeRepo := repository.NewFeeRepo(db)
	clientRepo := repository.NewClientRepo(db)
	reminderRepo := repository.NewReminderRepo(db)

	// Create services.
	return &App{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Rules:     ruleRepo,
		Reminders: reminder.NewService(ruleRepo, feeRepo, reminderRepo, clientRepo, notifier, log, cfg.Scheduler.Cooldown),
		Groups:    groupfee.NewService(clientRepo, feeRepo, log),
		Importer:  importer.NewService(clientRepo, feeRepo, log),
	}, nil
}

// Router returns the HTTP API.
func (a *App) Router() http.Handler {
	return api.NewRouter(a.Reminders, a.Groups, a.Importer, a.Log)
}

// Scheduler returns the automatic reminder scheduler.
func (a *App) Scheduler() *scheduler.Scheduler {
	return scheduler.New(a.Rules, a.Reminders, a.Config.Scheduler.Interval, a.Log)
}

func (a *App) Close() error {
	return a.DB.Close()
}

func buildNotifier(cfg config.SMTPConfig, log *logrus.Logger) (notify.Notifier, error) {
	if cfg.Host == "" {
		log.Warn("SMTP_HOST not set; reminder emails will only be logged")
		return notify.NewLogNotifier(log), nil
	}
	n, err := notify.NewSMTPNotifier(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("smtp notifier: %w", err)
	}
	return n, nil
}
