package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/config"
	"gatherhub/collab-portal/collab-portal-backend/internal/events"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
	"gatherhub/collab-portal/collab-portal-backend/internal/requirements"
)

// Job names.
const (
	EventReminder       = "event_reminder"
	RatingRequest       = "rating_request"
	ProfileIncomplete   = "profile_incomplete"
	DraftEvent          = "draft_event"
	KYCPending          = "kyc_pending"
	CollaborationExpiry = "collaboration_expiry"
	NotificationPurge   = "notification_purge"
)

// Dispatcher is the part of the notification service the sweeps use.
type Dispatcher interface {
	Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error)
	LatestOfType(ctx context.Context, recipientID string, typ notifications.Type, related *notifications.EntityRef, since time.Time) (*notifications.Notification, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Accounts lists sweep candidates from the account tables.
type Accounts interface {
	ListAccounts(ctx context.Context) ([]*requirements.Account, error)
	HostsWithPendingKYC(ctx context.Context) ([]string, error)
}

// RequirementChecker is implemented by requirements.Evaluator.
type RequirementChecker interface {
	CheckAndNotify(ctx context.Context, partyID string, trigger requirements.Trigger) (*requirements.Result, error)
}

// Expirer is implemented by collaboration.Service.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// SweepConfig tunes the sweep windows.
type SweepConfig struct {
	// ReminderCooldown spaces draft and KYC reminders.
	ReminderCooldown time.Duration
	DraftAge         time.Duration
	ExpiringWithin   time.Duration
}

// Sweeps holds the dependencies of every periodic job.
type Sweeps struct {
	events     events.Source
	accounts   Accounts
	dispatcher Dispatcher
	checker    RequirementChecker
	expirer    Expirer
	logger     *zap.Logger
	config     SweepConfig
}

func NewSweeps(
	eventSource events.Source,
	accounts Accounts,
	dispatcher Dispatcher,
	checker RequirementChecker,
	expirer Expirer,
	logger *zap.Logger,
	cfg SweepConfig,
) *Sweeps {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReminderCooldown <= 0 {
		cfg.ReminderCooldown = 7 * 24 * time.Hour
	}
	if cfg.DraftAge <= 0 {
		cfg.DraftAge = 7 * 24 * time.Hour
	}
	if cfg.ExpiringWithin <= 0 {
		cfg.ExpiringWithin = requirements.DefaultExpiringWithin
	}
	return &Sweeps{
		events:     eventSource,
		accounts:   accounts,
		dispatcher: dispatcher,
		checker:    checker,
		expirer:    expirer,
		logger:     logger,
		config:     cfg,
	}
}

// Jobs returns every sweep on its configured schedule.
func (s *Sweeps) Jobs(sched config.SchedulerConfig) []Job {
	return []Job{
		{Name: EventReminder, Schedule: sched.EventReminder, Handler: s.EventReminders},
		{Name: RatingRequest, Schedule: sched.RatingRequest, Handler: s.RatingRequests},
		{Name: ProfileIncomplete, Schedule: sched.ProfileIncomplete, Handler: s.ProfileReminders},
		{Name: DraftEvent, Schedule: sched.DraftEvent, Handler: s.DraftReminders},
		{Name: KYCPending, Schedule: sched.KYCPending, Handler: s.KYCReminders},
		{Name: CollaborationExpiry, Schedule: sched.CollaborationExpiry, Handler: s.ExpireCollaborations},
		{Name: NotificationPurge, Schedule: sched.NotificationPurge, Handler: s.PurgeNotifications},
	}
}

// RegisterAll registers every sweep with the runner.
func (s *Sweeps) RegisterAll(r *Runner, sched config.SchedulerConfig) error {
	for _, job := range s.Jobs(sched) {
		if err := r.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// candidate is one reminder a sweep may send.
type candidate struct {
	recipientID string
	typ         notifications.Type
	category    notifications.Category
	priority    notifications.Priority
	title       string
	message     string
	link        string
	related     *notifications.EntityRef
	// since bounds the existing-reminder check; zero searches all history.
	since     time.Time
	dedupeKey string
}

// notifyOnce sends c unless a matching reminder exists since c.since.
func (s *Sweeps) notifyOnce(ctx context.Context, job string, report *Report, c candidate) {
	existing, err := s.dispatcher.LatestOfType(ctx, c.recipientID, c.typ, c.related, c.since)
	if err != nil {
		s.itemFailed(job, report, c.recipientID, err)
		return
	}
	if existing != nil {
		report.skip()
		return
	}

	n, err := s.dispatcher.Create(ctx, notifications.CreateRequest{
		RecipientID:   c.recipientID,
		Type:          c.typ,
		Category:      c.category,
		Priority:      c.priority,
		Title:         c.title,
		Message:       c.message,
		RelatedEntity: c.related,
		ActionLink:    c.link,
		DedupeKey:     c.dedupeKey,
	})
	switch {
	case err != nil:
		s.itemFailed(job, report, c.recipientID, err)
	case n == nil || n.Collapsed:
		report.skip()
	default:
		report.succeed()
	}
}

func (s *Sweeps) itemFailed(job string, report *Report, id string, err error) {
	report.fail()
	s.logger.Warn("Sweep item failed",
		zap.String("job", job),
		zap.String("party_id", id),
		zap.Error(err))
}

// EventReminders reminds hosts and attendees of events starting in
// [now+24h, now+25h), at most once per recipient and event per day.
func (s *Sweeps) EventReminders(ctx context.Context, now time.Time) (Report, error) {
	var report Report
	upcoming, err := s.events.StartingBetween(ctx, now.Add(24*time.Hour), now.Add(25*time.Hour))
	if err != nil {
		return report, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	attendees, err := s.events.Attendees(ctx, eventIDs(upcoming))
	if err != nil {
		return report, fmt.Errorf("failed to list attendees: %w", err)
	}

	today := startOfDay(now)
	for _, e := range upcoming {
		ref := &notifications.EntityRef{Kind: "event", ID: e.ID}
		for _, id := range uniqueIDs(append([]string{e.HostID}, attendees[e.ID]...)) {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			s.notifyOnce(ctx, EventReminder, &report, candidate{
				recipientID: id,
				typ:         notifications.TypeEventReminder,
				category:    notifications.CategoryReminder,
				priority:    notifications.PriorityMedium,
				title:       "Your event is tomorrow",
				message:     fmt.Sprintf("%s starts %s.", e.Title, e.StartsAt.In(now.Location()).Format("Mon Jan 2 at 15:04")),
				link:        "/events/" + e.ID,
				related:     ref,
				since:       today,
				dedupeKey:   fmt.Sprintf("%s:%s:%s", notifications.TypeEventReminder, e.ID, today.Format("2006-01-02")),
			})
		}
	}
	return report, nil
}

// RatingRequests asks attendees of events that ended 24 to 48 hours ago for a
// rating, once per attendee and event.
func (s *Sweeps) RatingRequests(ctx context.Context, now time.Time) (Report, error) {
	var report Report
	ended, err := s.events.EndedBetween(ctx, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	if err != nil {
		return report, fmt.Errorf("failed to list ended events: %w", err)
	}
	attendees, err := s.events.Attendees(ctx, eventIDs(ended))
	if err != nil {
		return report, fmt.Errorf("failed to list attendees: %w", err)
	}

	for _, e := range ended {
		ref := &notifications.EntityRef{Kind: "event", ID: e.ID}
		for _, id := range uniqueIDs(attendees[e.ID]) {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			s.notifyOnce(ctx, RatingRequest, &report, candidate{
				recipientID: id,
				typ:         notifications.TypeRatingRequest,
				category:    notifications.CategoryActionRequired,
				priority:    notifications.PriorityLow,
				title:       "How was " + e.Title + "?",
				message:     "Rate the event to help the host and other guests.",
				link:        "/events/" + e.ID + "/rate",
				related:     ref,
				dedupeKey:   fmt.Sprintf("%s:%s", notifications.TypeRatingRequest, e.ID),
			})
		}
	}
	return report, nil
}

// ProfileReminders runs the scheduled requirement check for every account
// with an unmet or expiring requirement.
func (s *Sweeps) ProfileReminders(ctx context.Context, now time.Time) (Report, error) {
	var report Report
	list, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list accounts: %w", err)
	}

	for _, a := range list {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		st := requirements.Assess(a, now, s.config.ExpiringWithin)
		if !st.RequiresAction() && !st.SubscriptionExpiring {
			continue
		}
		result, err := s.checker.CheckAndNotify(ctx, a.PartyID, requirements.TriggerScheduled)
		switch {
		case err != nil:
			s.itemFailed(ProfileIncomplete, &report, a.PartyID, err)
		case len(result.Notified) == 0:
			report.skip()
		default:
			report.succeed()
		}
	}
	return report, nil
}

// DraftReminders nudges hosts about drafts older than the draft age.
func (s *Sweeps) DraftReminders(ctx context.Context, now time.Time) (Report, error) {
	var report Report
	drafts, err := s.events.DraftsCreatedBefore(ctx, now.Add(-s.config.DraftAge))
	if err != nil {
		return report, fmt.Errorf("failed to list drafts: %w", err)
	}

	cooldown := s.config.ReminderCooldown
	for _, e := range drafts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.notifyOnce(ctx, DraftEvent, &report, candidate{
			recipientID: e.HostID,
			typ:         notifications.TypeDraftEventReminder,
			category:    notifications.CategoryReminder,
			priority:    notifications.PriorityLow,
			title:       "Finish your draft event",
			message:     fmt.Sprintf("%s is still a draft. Publish it so guests can find it.", e.Title),
			link:        "/events/" + e.ID + "/edit",
			related:     &notifications.EntityRef{Kind: "event", ID: e.ID},
			since:       now.Add(-cooldown),
			dedupeKey:   requirements.DedupeKey(notifications.TypeDraftEventReminder, now, cooldown) + ":" + e.ID,
		})
	}
	return report, nil
}

// KYCReminders nudges hosts whose identity verification is not complete.
func (s *Sweeps) KYCReminders(ctx context.Context, now time.Time) (Report, error) {
	var report Report
	hosts, err := s.accounts.HostsWithPendingKYC(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list hosts with pending kyc: %w", err)
	}

	cooldown := s.config.ReminderCooldown
	for _, id := range hosts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.notifyOnce(ctx, KYCPending, &report, candidate{
			recipientID: id,
			typ:         notifications.TypeKYCPending,
			category:    notifications.CategoryActionRequired,
			priority:    notifications.PriorityHigh,
			title:       "Verify your identity",
			message:     "Complete identity verification to receive payouts for your events.",
			link:        "/settings/verification",
			since:       now.Add(-cooldown),
			dedupeKey:   requirements.DedupeKey(notifications.TypeKYCPending, now, cooldown),
		})
	}
	return report, nil
}

// ExpireCollaborations moves overdue collaboration requests to expired.
func (s *Sweeps) ExpireCollaborations(ctx context.Context, _ time.Time) (Report, error) {
	n, err := s.expirer.ExpireOverdue(ctx)
	return Report{Candidates: n, Succeeded: n}, err
}

// PurgeNotifications archives and deletes expired notifications.
func (s *Sweeps) PurgeNotifications(ctx context.Context, now time.Time) (Report, error) {
	n, err := s.dispatcher.PurgeExpired(ctx, now)
	return Report{Candidates: n, Succeeded: n}, err
}

func eventIDs(list []events.Event) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.ID
	}
	return out
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
