package requirements

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
)

// Trigger names what caused an evaluation; it selects the cooldown.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerDashboard Trigger = "dashboard"
)

const (
	DefaultScheduledCooldown = 7 * 24 * time.Hour
	DefaultDashboardCooldown = 24 * time.Hour
	DefaultExpiringWithin    = 7 * 24 * time.Hour
)

// AccountSource loads account state. Unknown parties return apperr.ErrNotFound.
type AccountSource interface {
	LoadAccount(ctx context.Context, partyID string) (*Account, error)
}

// Notifier is the part of the dispatcher the evaluator uses.
type Notifier interface {
	Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error)
	LatestOfType(ctx context.Context, recipientID string, typ notifications.Type, related *notifications.EntityRef, since time.Time) (*notifications.Notification, error)
}

// Config tunes the evaluator.
type Config struct {
	ScheduledCooldown time.Duration
	DashboardCooldown time.Duration
	ExpiringWithin    time.Duration
	Now               func() time.Time
}

// Result is returned to the dashboard and to the profile sweep.
type Result struct {
	State
	RequiresAction bool                 `json:"requires_action"`
	Notified       []notifications.Type `json:"notified"`
}

// Evaluator emits at most one reminder per unmet requirement per cooldown.
type Evaluator struct {
	accounts AccountSource
	notifier Notifier
	logger   *zap.Logger
	config   Config
}

// NewEvaluator creates an evaluator. Zero config values take the defaults.
func NewEvaluator(accounts AccountSource, notifier Notifier, logger *zap.Logger, cfg Config) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ScheduledCooldown <= 0 {
		cfg.ScheduledCooldown = DefaultScheduledCooldown
	}
	if cfg.DashboardCooldown <= 0 {
		cfg.DashboardCooldown = DefaultDashboardCooldown
	}
	if cfg.ExpiringWithin <= 0 {
		cfg.ExpiringWithin = DefaultExpiringWithin
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Evaluator{accounts: accounts, notifier: notifier, logger: logger, config: cfg}
}

type reminder struct {
	typ      notifications.Type
	category notifications.Category
	priority notifications.Priority
	title    string
	message  string
	link     string
}

// CheckAndNotify assesses the party and sends a reminder for every unmet
// requirement that has not been reminded within the trigger's cooldown.
// Reminder failures are logged; only a failed account load is returned.
func (e *Evaluator) CheckAndNotify(ctx context.Context, partyID string, trigger Trigger) (*Result, error) {
	account, err := e.accounts.LoadAccount(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", partyID, err)
	}

	now := e.config.Now()
	state := Assess(account, now, e.config.ExpiringWithin)
	result := &Result{State: state, RequiresAction: state.RequiresAction(), Notified: []notifications.Type{}}

	for _, r := range reminders(account, state) {
		sent, err := e.remind(ctx, partyID, r, e.cooldown(trigger), now)
		if err != nil {
			e.logger.Warn("failed to send requirement reminder",
				zap.String("party_id", partyID),
				zap.String("type", string(r.typ)),
				zap.Error(err))
			continue
		}
		if sent {
			result.Notified = append(result.Notified, r.typ)
		}
	}
	return result, nil
}

func (e *Evaluator) cooldown(trigger Trigger) time.Duration {
	if trigger == TriggerDashboard {
		return e.config.DashboardCooldown
	}
	return e.config.ScheduledCooldown
}

// remind checks the cooldown and creates the reminder. The dedupe key makes
// concurrent evaluations of the same party collapse onto one record.
func (e *Evaluator) remind(ctx context.Context, partyID string, r reminder, cooldown time.Duration, now time.Time) (bool, error) {
	latest, err := e.notifier.LatestOfType(ctx, partyID, r.typ, nil, now.Add(-cooldown))
	if err != nil {
		return false, err
	}
	if latest != nil {
		return false, nil
	}

	n, err := e.notifier.Create(ctx, notifications.CreateRequest{
		RecipientID: partyID,
		Type:        r.typ,
		Category:    r.category,
		Priority:    r.priority,
		Title:       r.title,
		Message:     r.message,
		ActionLink:  r.link,
		DedupeKey:   DedupeKey(r.typ, now, cooldown),
	})
	if err != nil {
		return false, err
	}
	return n != nil && !n.Collapsed, nil
}

// DedupeKey buckets now into cooldown-sized windows since the Unix epoch.
// Windows shorter than a second are widened to one second.
func DedupeKey(typ notifications.Type, now time.Time, cooldown time.Duration) string {
	window := int64(cooldown / time.Second)
	if window < 1 {
		window = 1
	}
	return fmt.Sprintf("%s:%d", typ, now.Unix()/window)
}

func reminders(a *Account, st State) []reminder {
	var out []reminder
	if !st.ProfileComplete {
		out = append(out, reminder{
			typ:      notifications.TypeProfileIncomplete,
			category: notifications.CategoryReminder,
			priority: notifications.PriorityMedium,
			title:    "Complete your profile",
			message:  "Your profile is missing: " + humanFields(st.MissingFields) + ".",
			link:     "/settings/profile",
		})
	}
	if !st.PayoutComplete {
		out = append(out, reminder{
			typ:      notifications.TypePayoutDetailsMissing,
			category: notifications.CategoryActionRequired,
			priority: notifications.PriorityMedium,
			title:    "Add your payout details",
			message:  "Add " + humanFields(st.MissingPayoutFields) + " to receive payouts.",
			link:     "/settings/payout",
		})
	}
	if !st.SubscriptionActive {
		out = append(out, reminder{
			typ:      notifications.TypeSubscriptionInactive,
			category: notifications.CategoryActionRequired,
			priority: notifications.PriorityHigh,
			title:    "Your subscription is inactive",
			message:  fmt.Sprintf("Activate a plan so your %s listing stays visible.", a.Role),
			link:     "/settings/billing",
		})
	} else if st.SubscriptionExpiring {
		out = append(out, reminder{
			typ:      notifications.TypeSubscriptionExpiring,
			category: notifications.CategoryReminder,
			priority: notifications.PriorityMedium,
			title:    "Your subscription expires soon",
			message:  "Your plan expires on " + a.Subscription.ExpiresAt.Format("January 2, 2006") + ".",
			link:     "/settings/billing",
		})
	}
	return out
}

func humanFields(fields []string) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ReplaceAll(f, "_", " ")
	}
	return strings.Join(names, ", ")
}
