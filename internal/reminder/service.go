package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ticovision/reminders/internal/domain"
	"github.com/ticovision/reminders/internal/notify"
	"github.com/ticovision/reminders/internal/repository"
	"github.com/ticovision/reminders/internal/tenant"
)

type RuleStore interface {
	ListActive(ctx context.Context, tenantID string) ([]domain.ReminderRule, error)
	List(ctx context.Context, tenantID string) ([]domain.ReminderRule, error)
	Create(ctx context.Context, rule *domain.ReminderRule) error
	SetActive(ctx context.Context, tenantID, id string, active bool) error
}

type FeeStore interface {
	Query(ctx context.Context, f repository.FeeFilter) ([]domain.FeeRecord, error)
	GetByID(ctx context.Context, tenantID, id string) (*domain.FeeRecord, error)
}

type ReminderStore interface {
	Record(ctx context.Context, rem *domain.PaymentReminder) error
	ListByFee(ctx context.Context, tenantID, feeID string) ([]domain.PaymentReminder, error)
}

type ClientStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Client, error)
}

// ScanResult is the outcome of one evaluation pass.
type ScanResult struct {
	RulesEvaluated int                     `json:"rules_evaluated"`
	Reminders      []domain.ReminderAction `json:"reminders"`
	// SkippedRules lists rules whose fee query failed.
	SkippedRules []string `json:"skipped_rules,omitempty"`
}

// DispatchResult describes one persisted reminder and its delivery.
type DispatchResult struct {
	Reminder      domain.PaymentReminder `json:"reminder"`
	Delivered     bool                   `json:"delivered"`
	DeliveryError string                 `json:"delivery_error,omitempty"`
}

// DispatchSummary summarises an automatic run.
type DispatchSummary struct {
	Matched      int      `json:"matched"`
	Recorded     int      `json:"recorded"`
	Delivered    int      `json:"delivered"`
	CooledDown   int      `json:"cooled_down"`
	Duplicates   int      `json:"duplicates"`
	Failed       int      `json:"failed"`
	SkippedRules []string `json:"skipped_rules,omitempty"`
}

// Service evaluates reminder rules and dispatches reminders.
type Service struct {
	rules     RuleStore
	fees      FeeStore
	reminders ReminderStore
	clients   ClientStore
	notifier  notify.Notifier
	log       logrus.FieldLogger

	cooldown time.Duration
	now      func() time.Time
	newID    func() string
}

// NewService creates a new reminder service. A cooldown of zero disables
// the automatic-run cooldown.
func NewService(
	rules RuleStore,
	fees FeeStore,
	reminders ReminderStore,
	clients ClientStore,
	notifier notify.Notifier,
	log logrus.FieldLogger,
	cooldown time.Duration,
) *Service {
	return &Service{
		rules:     rules,
		fees:      fees,
		reminders: reminders,
		clients:   clients,
		notifier:  notifier,
		log:       log.WithField("component", "reminder"),
		cooldown:  cooldown,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// GetRemindersNeedingAction evaluates every active rule of the tenant and
// returns one action per (fee, rule) match, in rule priority order. A rule
// that could not be loaded, or whose fee query fails, is skipped and reported
// in SkippedRules.
func (s *Service) GetRemindersNeedingAction(ctx context.Context) (*ScanResult, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	now := s.now()
	result := &ScanResult{Reminders: []domain.ReminderAction{}}

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if rule.LoadError != "" {
			s.log.WithFields(logrus.Fields{
				"tenant_id": tenantID,
				"rule_id":   rule.ID,
			}).Warnf("skipping reminder rule: %s", rule.LoadError)
			result.SkippedRules = append(result.SkippedRules, rule.ID)
			continue
		}
		result.RulesEvaluated++

		fees, err := s.fees.Query(ctx, FeeFilterFor(tenantID, rule.TriggerConditions))
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"tenant_id": tenantID,
				"rule_id":   rule.ID,
			}).Warn("skipping reminder rule: fee query failed")
			result.SkippedRules = append(result.SkippedRules, rule.ID)
			continue
		}

		result.Reminders = append(result.Reminders, Evaluate(rule, fees, now)...)
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"rules":     result.RulesEvaluated,
		"matches":   len(result.Reminders),
		"skipped":   len(result.SkippedRules),
	}).Debug("reminder scan finished")

	return result, nil
}

// SendManualReminder records a manual reminder for a fee and hands it to the
// notifier. Failure to record is returned; failure to deliver is reported on
// the result.
func (s *Service) SendManualReminder(ctx context.Context, feeID, templateID string) (*DispatchResult, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if templateID == "" {
		return nil, errors.New("template is required")
	}

	fee, err := s.fees.GetByID(ctx, tenantID, feeID)
	if err != nil {
		return nil, fmt.Errorf("get fee %s: %w", feeID, err)
	}

	return s.dispatch(ctx, tenantID, domain.ReminderAction{
		FeeID:    fee.ID,
		ClientID: fee.ClientID,
		Template: templateID,
	}, domain.ReminderTypeManual)
}

// ProcessAutomaticReminders scans the tenant's rules and dispatches an
// automatic reminder for every match. A fee matched by several rules is
// reminded once, by the highest-priority rule. Fees reminded within the
// cooldown are left alone.
func (s *Service) ProcessAutomaticReminders(ctx context.Context) (*DispatchSummary, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	scan, err := s.GetRemindersNeedingAction(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DispatchSummary{
		Matched:      len(scan.Reminders),
		SkippedRules: scan.SkippedRules,
	}
	now := s.now()
	seen := make(map[string]bool, len(scan.Reminders))

	for _, action := range scan.Reminders {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if seen[action.FeeID] {
			summary.Duplicates++
			continue
		}
		seen[action.FeeID] = true

		if s.cooldown > 0 && action.LastReminderSentAt != nil && now.Sub(*action.LastReminderSentAt) < s.cooldown {
			summary.CooledDown++
			continue
		}

		res, err := s.dispatch(ctx, tenantID, action, domain.ReminderTypeAutomatic)
		if err != nil {
			summary.Failed++
			s.log.WithError(err).WithFields(logrus.Fields{
				"tenant_id": tenantID,
				"fee_id":    action.FeeID,
				"rule_id":   action.RuleID,
			}).Error("automatic reminder failed")
			continue
		}
		summary.Recorded++
		if res.Delivered {
			summary.Delivered++
		}
	}

	s.log.WithFields(logrus.Fields{
		"tenant_id":   tenantID,
		"matched":     summary.Matched,
		"recorded":    summary.Recorded,
		"delivered":   summary.Delivered,
		"cooled_down": summary.CooledDown,
		"duplicates":  summary.Duplicates,
		"failed":      summary.Failed,
	}).Info("automatic reminders processed")

	return summary, nil
}

// History returns the reminders sent for a fee, newest first.
func (s *Service) History(ctx context.Context, feeID string) ([]domain.PaymentReminder, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.reminders.ListByFee(ctx, tenantID, feeID)
}

// CreateRule validates and stores a new rule for the tenant. Warnings about
// suspicious but legal configurations are returned alongside the rule.
func (s *Service) CreateRule(ctx context.Context, rule domain.ReminderRule) (*domain.ReminderRule, []string, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	warnings, err := ValidateRule(rule)
	if err != nil {
		return nil, nil, err
	}

	rule.ID = s.newID()
	rule.TenantID = tenantID
	rule.LoadError = ""
	rule.CreatedAt = s.now()
	if rule.Actions.Channel == "" {
		rule.Actions.Channel = domain.ChannelEmail
	}

	if err := s.rules.Create(ctx, &rule); err != nil {
		return nil, nil, fmt.Errorf("create rule: %w", err)
	}
	for _, w := range warnings {
		s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "rule_id": rule.ID}).Warn(w)
	}
	return &rule, warnings, nil
}

func (s *Service) ListRules(ctx context.Context) ([]domain.ReminderRule, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.rules.List(ctx, tenantID)
}

func (s *Service) SetRuleActive(ctx context.Context, ruleID string, active bool) error {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}
	return s.rules.SetActive(ctx, tenantID, ruleID, active)
}

// dispatch persists the reminder (history row and counter in one write) and
// then asks the notifier to deliver it.
func (s *Service) dispatch(ctx context.Context, tenantID string, action domain.ReminderAction, kind domain.ReminderType) (*DispatchResult, error) {
	rem := domain.PaymentReminder{
		ID:           s.newID(),
		TenantID:     tenantID,
		ClientID:     action.ClientID,
		FeeID:        action.FeeID,
		RuleID:       action.RuleID,
		ReminderType: kind,
		Channel:      domain.ChannelEmail,
		TemplateUsed: action.Template,
		SentAt:       s.now(),
	}
	if err := s.reminders.Record(ctx, &rem); err != nil {
		return nil, fmt.Errorf("record reminder for fee %s: %w", action.FeeID, err)
	}

	res := &DispatchResult{Reminder: rem}
	if err := s.deliver(ctx, rem); err != nil {
		res.DeliveryError = err.Error()
		s.log.WithError(err).WithFields(logrus.Fields{
			"tenant_id":   tenantID,
			"reminder_id": rem.ID,
			"fee_id":      rem.FeeID,
		}).Warn("reminder recorded but not delivered")
		return res, nil
	}
	res.Delivered = true
	return res, nil
}

func (s *Service) deliver(ctx context.Context, rem domain.PaymentReminder) error {
	client, err := s.clients.GetByID(ctx, rem.TenantID, rem.ClientID)
	if err != nil {
		return fmt.Errorf("get client %s: %w", rem.ClientID, err)
	}
	if client.ContactEmail == "" {
		return fmt.Errorf("client %s has no contact email", client.ID)
	}
	return s.notifier.Notify(ctx, notify.Message{
		TenantID:     rem.TenantID,
		ReminderID:   rem.ID,
		FeeID:        rem.FeeID,
		ClientName:   client.CompanyName,
		To:           client.ContactEmail,
		Template:     rem.TemplateUsed,
		ReminderType: rem.ReminderType,
	})
}
