package collaboration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/internal/audit"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
)

// DefaultExpiryWindow is how long a request stays open without a final answer.
const DefaultExpiryWindow = 14 * 24 * time.Hour

// Notifier is the dispatcher capability the workflow needs.
type Notifier interface {
	Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error)
}

// Auditor receives one event per status change.
type Auditor interface {
	Record(ctx context.Context, event audit.Event) error
}

// Config tunes the workflow.
type Config struct {
	ExpiryWindow time.Duration
	Now          func() time.Time
}

// Service implements the admin-gated negotiation workflow.
type Service struct {
	repo      Repository
	directory Directory
	notifier  Notifier
	auditor   Auditor
	logger    *zap.Logger
	window    time.Duration
	now       func() time.Time
}

// NewService creates a new collaboration workflow service
func NewService(repo Repository, directory Directory, notifier Notifier, auditor Auditor, logger *zap.Logger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = DefaultExpiryWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:      repo,
		directory: directory,
		notifier:  notifier,
		auditor:   auditor,
		logger:    logger,
		window:    cfg.ExpiryWindow,
		now:       cfg.Now,
	}
}

// Submit opens a request in submitted and notifies every admin. The recipient
// is not told until an admin approves.
func (s *Service) Submit(ctx context.Context, in SubmitRequest) (*CollaborationRequest, error) {
	if !in.Kind.Valid() {
		return nil, apperr.Validation("unknown collaboration kind %q", in.Kind)
	}
	if in.InitiatorID == "" || in.RecipientID == "" {
		return nil, apperr.Validation("initiator and recipient are required")
	}
	if in.InitiatorID == in.RecipientID {
		return nil, apperr.Validation("initiator and recipient must differ")
	}
	initiator, err := s.snapshot(ctx, in.InitiatorID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.snapshot(ctx, in.RecipientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req := &CollaborationRequest{
		ID:        uuid.NewString(),
		Kind:      in.Kind,
		Initiator: initiator,
		Recipient: recipient,
		Status:    StatusSubmitted,
		Details:   in.Details.clone(),
		Messages:  []Message{},
		Priority:  ComputePriority(in.Details.EventDate, now),
		ExpiresAt: now.Add(s.window),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := s.repo.Save(ctx, req); err != nil {
		return nil, err
	}

	s.record(ctx, req, "", StatusSubmitted, initiator.PartyID, "submit")

	admins, err := s.directory.ListAdmins(ctx)
	if err != nil {
		s.logger.Warn("failed to list admins for new request",
			zap.String("request_id", req.ID), zap.Error(err))
	}
	for _, adminID := range admins {
		s.notify(ctx, adminID, req, notifications.TypeCollaborationSubmitted, notifications.CategoryActionRequired,
			"New collaboration request",
			fmt.Sprintf("%s sent a %s request to %s and it is waiting for review.",
				partyName(req.Initiator), humanKind(req.Kind), partyName(req.Recipient)))
	}

	s.logger.Info("collaboration request submitted",
		zap.String("request_id", req.ID),
		zap.String("kind", string(req.Kind)),
		zap.String("priority", string(req.Priority)))
	return req, nil
}

func (s *Service) snapshot(ctx context.Context, partyID string) (Party, error) {
	account, err := s.directory.LoadAccount(ctx, partyID)
	if err != nil {
		return Party{}, err
	}
	r, err := s.directory.LookupRecipient(ctx, partyID)
	if err != nil {
		return Party{}, err
	}
	return Party{PartyID: partyID, PartyRole: string(account.Role), DisplayName: r.DisplayName}, nil
}

// AdminDecide passes or closes the first admin gate.
func (s *Service) AdminDecide(ctx context.Context, id, adminID string, decision ReviewDecision, notes string) (*CollaborationRequest, error) {
	if decision != ReviewApproved && decision != ReviewRejected {
		return nil, apperr.Validation("unknown review decision %q", decision)
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	to := StatusAdminApproved
	if decision == ReviewRejected {
		to = StatusAdminRejected
	}
	if req.Status != StatusSubmitted {
		return nil, invalidTransition(req.Status, to)
	}

	now := s.now()
	updated, err := s.transition(ctx, req, to, adminID, "admin_decision", Patch{
		AdminReview: &AdminReview{ReviewerID: adminID, Decision: decision, Notes: notes, Timestamp: now},
	})
	if err != nil {
		return nil, err
	}

	if decision == ReviewApproved {
		s.notify(ctx, updated.Recipient.PartyID, updated, notifications.TypeCollaborationApproved, notifications.CategoryActionRequired,
			"New collaboration request",
			fmt.Sprintf("%s would like to collaborate with you on a %s.", partyName(updated.Initiator), humanKind(updated.Kind)))
	} else {
		s.notify(ctx, updated.Initiator.PartyID, updated, notifications.TypeCollaborationRejected, notifications.CategoryStatusUpdate,
			"Collaboration request not approved",
			withNotes(fmt.Sprintf("Your request to %s was not approved.", partyName(updated.Recipient)), notes))
	}
	return updated, nil
}

// Respond records the recipient's accept or reject answer.
func (s *Service) Respond(ctx context.Context, id, recipientID string, decision ResponseDecision, message string) (*CollaborationRequest, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, apperr.Validation("unknown response decision %q", decision)
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Recipient.PartyID != recipientID {
		return nil, fmt.Errorf("respond to %s: %w", id, apperr.ErrUnauthorized)
	}

	to := StatusVendorAccepted
	if decision == DecisionReject {
		to = StatusVendorRejected
	}
	if req.Status != StatusAdminApproved {
		return nil, invalidTransition(req.Status, to)
	}

	updated, err := s.transition(ctx, req, to, recipientID, "respond", Patch{
		Response: &Response{Decision: decision, Message: message, Timestamp: s.now()},
	})
	if err != nil {
		return nil, err
	}

	if decision == DecisionAccept {
		s.notify(ctx, updated.Initiator.PartyID, updated, notifications.TypeCollaborationAccepted, notifications.CategoryActionRequired,
			"Collaboration accepted",
			withNotes(fmt.Sprintf("%s accepted your request. Confirm to finalize it.", partyName(updated.Recipient)), message))
	} else {
		s.notify(ctx, updated.Initiator.PartyID, updated, notifications.TypeCollaborationDeclined, notifications.CategoryStatusUpdate,
			"Collaboration declined",
			withNotes(fmt.Sprintf("%s declined your request.", partyName(updated.Recipient)), message))
	}
	return updated, nil
}

// Counter stores the recipient's counter-offer for admin review. The initiator
// only sees it after AdminForwardCounter.
func (s *Service) Counter(ctx context.Context, id, recipientID string, proposal CounterProposal) (*CollaborationRequest, error) {
	if strings.TrimSpace(proposal.Terms) == "" {
		return nil, apperr.Validation("counter terms are required")
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Recipient.PartyID != recipientID {
		return nil, fmt.Errorf("counter on %s: %w", id, apperr.ErrUnauthorized)
	}
	if req.Status != StatusAdminApproved && req.Status != StatusVendorAccepted {
		return nil, invalidTransition(req.Status, StatusVendorAccepted)
	}
	if req.ActiveCounter() != nil {
		return nil, fmt.Errorf("%w: a counter-offer is already pending", apperr.ErrInvalidTransition)
	}

	now := s.now()
	patch := Patch{
		Response: &Response{
			Decision: DecisionCounter,
			Message:  proposal.Message,
			CounterOffer: &CounterOffer{
				Terms:          proposal.Terms,
				ProposedDate:   cloneTime(proposal.ProposedDate),
				ProposedBudget: cloneFloat(proposal.ProposedBudget),
				State:          CounterPendingReview,
				CreatedAt:      now,
			},
			Timestamp: now,
		},
	}

	var updated *CollaborationRequest
	if req.Status == StatusAdminApproved {
		updated, err = s.transition(ctx, req, StatusVendorAccepted, recipientID, "counter", patch)
	} else {
		updated, err = s.update(ctx, req, patch)
	}
	if err != nil {
		return nil, err
	}

	s.notifyAdmins(ctx, updated, notifications.TypeCounterPendingReview, notifications.CategoryActionRequired,
		"Counter-offer awaiting review",
		fmt.Sprintf("%s proposed new terms to %s.", partyName(updated.Recipient), partyName(updated.Initiator)))
	return updated, nil
}

// AdminForwardCounter passes the second admin gate and shows the counter to
// the initiator.
func (s *Service) AdminForwardCounter(ctx context.Context, id, adminID, notes string) (*CollaborationRequest, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	counter := req.ActiveCounter()
	if req.Status != StatusVendorAccepted || counter == nil || counter.State != CounterPendingReview {
		return nil, invalidTransition(req.Status, StatusCounterDelivered)
	}

	now := s.now()
	response := req.Response.clone()
	response.CounterOffer.State = CounterForwarded

	updated, err := s.transition(ctx, req, StatusCounterDelivered, adminID, "forward_counter", Patch{
		Response:      response,
		CounterReview: &AdminReview{ReviewerID: adminID, Decision: ReviewApproved, Notes: notes, Timestamp: now},
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated.Initiator.PartyID, updated, notifications.TypeCounterReceived, notifications.CategoryActionRequired,
		"Counter-offer received",
		fmt.Sprintf("%s sent a counter-offer: %s", partyName(updated.Recipient), counter.Terms))
	return updated, nil
}

// InitiatorDecideOnCounter closes the negotiation on a delivered counter.
func (s *Service) InitiatorDecideOnCounter(ctx context.Context, id, initiatorID string, decision ResponseDecision, message string) (*CollaborationRequest, error) {
	if decision != DecisionAccept && decision != DecisionReject {
		return nil, apperr.Validation("unknown counter decision %q", decision)
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Initiator.PartyID != initiatorID {
		return nil, fmt.Errorf("decide on counter for %s: %w", id, apperr.ErrUnauthorized)
	}

	to := StatusCompleted
	if decision == DecisionReject {
		to = StatusVendorRejected
	}
	if req.Status != StatusCounterDelivered || req.ActiveCounter() == nil {
		return nil, invalidTransition(req.Status, to)
	}

	now := s.now()
	response := req.Response.clone()
	patch := Patch{Response: response}

	text := strings.TrimSpace(message)
	if decision == DecisionAccept {
		response.CounterOffer.State = CounterAccepted
		details := req.Details.clone()
		details.ProposedTerms = response.CounterOffer.Terms
		if response.CounterOffer.ProposedBudget != nil {
			details.Budget = cloneFloat(response.CounterOffer.ProposedBudget)
		}
		if response.CounterOffer.ProposedDate != nil {
			details.EventDate = cloneTime(response.CounterOffer.ProposedDate)
			priority := ComputePriority(details.EventDate, now)
			patch.Priority = &priority
		}
		patch.Details = &details
		if text == "" {
			text = "Counter-offer accepted."
		}
	} else {
		response.CounterOffer.State = CounterRejected
		if text == "" {
			text = "Counter-offer declined."
		}
	}
	patch.Messages = appendMessage(req.Messages, initiatorID, text, now)

	updated, err := s.transition(ctx, req, to, initiatorID, "counter_decision", patch)
	if err != nil {
		return nil, err
	}

	if decision == DecisionAccept {
		s.notify(ctx, updated.Recipient.PartyID, updated, notifications.TypeCounterAccepted, notifications.CategoryMilestone,
			"Counter-offer accepted",
			fmt.Sprintf("%s accepted your counter-offer. The collaboration is confirmed.", partyName(updated.Initiator)))
	} else {
		s.notify(ctx, updated.Recipient.PartyID, updated, notifications.TypeCounterRejected, notifications.CategoryStatusUpdate,
			"Counter-offer declined",
			fmt.Sprintf("%s declined your counter-offer.", partyName(updated.Initiator)))
	}
	return updated, nil
}

// ConfirmAcceptance completes a request the recipient accepted without a counter.
func (s *Service) ConfirmAcceptance(ctx context.Context, id, initiatorID, message string) (*CollaborationRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Initiator.PartyID != initiatorID {
		return nil, fmt.Errorf("confirm %s: %w", id, apperr.ErrUnauthorized)
	}
	if req.Status != StatusVendorAccepted || req.ActiveCounter() != nil {
		return nil, invalidTransition(req.Status, StatusCompleted)
	}

	patch := Patch{}
	if text := strings.TrimSpace(message); text != "" {
		patch.Messages = appendMessage(req.Messages, initiatorID, text, s.now())
	}
	updated, err := s.transition(ctx, req, StatusCompleted, initiatorID, "confirm", patch)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated.Recipient.PartyID, updated, notifications.TypeCollaborationCompleted, notifications.CategoryMilestone,
		"Collaboration confirmed",
		fmt.Sprintf("%s confirmed the collaboration.", partyName(updated.Initiator)))
	return updated, nil
}

// Cancel withdraws an open request. Only the initiator may cancel.
func (s *Service) Cancel(ctx context.Context, id, initiatorID, reason string) (*CollaborationRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Initiator.PartyID != initiatorID {
		return nil, fmt.Errorf("cancel %s: %w", id, apperr.ErrUnauthorized)
	}
	if !CanTransition(req.Status, StatusCancelled) {
		return nil, invalidTransition(req.Status, StatusCancelled)
	}

	patch := Patch{}
	if text := strings.TrimSpace(reason); text != "" {
		patch.Messages = appendMessage(req.Messages, initiatorID, text, s.now())
	}
	wasVisible := VisibleToRecipient(req.Status)
	updated, err := s.transition(ctx, req, StatusCancelled, initiatorID, "cancel", patch)
	if err != nil {
		return nil, err
	}

	title := "Collaboration request cancelled"
	body := withNotes(fmt.Sprintf("%s cancelled the request to %s.", partyName(updated.Initiator), partyName(updated.Recipient)), reason)
	s.notifyAdmins(ctx, updated, notifications.TypeCollaborationCancelled, notifications.CategoryStatusUpdate, title, body)
	if wasVisible {
		s.notify(ctx, updated.Recipient.PartyID, updated, notifications.TypeCollaborationCancelled, notifications.CategoryStatusUpdate, title, body)
	}
	return updated, nil
}

// PostMessage appends to the negotiation thread once both parties can see the request.
func (s *Service) PostMessage(ctx context.Context, id, senderID, text string) (*CollaborationRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("message text is required")
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(senderID) {
		return nil, fmt.Errorf("post message on %s: %w", id, apperr.ErrUnauthorized)
	}
	if !VisibleToRecipient(req.Status) {
		return nil, fmt.Errorf("%w: thread is closed while %s", apperr.ErrInvalidTransition, req.Status)
	}

	updated, err := s.update(ctx, req, Patch{Messages: appendMessage(req.Messages, senderID, text, s.now())})
	if err != nil {
		return nil, err
	}

	sender := updated.Initiator
	if senderID == updated.Recipient.PartyID {
		sender = updated.Recipient
	}
	s.notify(ctx, updated.Counterpart(senderID).PartyID, updated, notifications.TypeCollaborationMessage, notifications.CategoryStatusUpdate,
		"New message",
		fmt.Sprintf("%s: %s", partyName(sender), text))
	return updated, nil
}

// MarkThreadRead flags the messages of the other party as read.
func (s *Service) MarkThreadRead(ctx context.Context, id, readerID string) (*CollaborationRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.IsParty(readerID) {
		return nil, fmt.Errorf("read thread of %s: %w", id, apperr.ErrUnauthorized)
	}

	messages := append([]Message(nil), req.Messages...)
	changed := false
	for i := range messages {
		if messages[i].SenderID != readerID && !messages[i].Read {
			messages[i].Read = true
			changed = true
		}
	}
	if !changed {
		return req, nil
	}
	return s.update(ctx, req, Patch{Messages: messages})
}

// Get returns a request the caller is allowed to see. Recipients do not see
// requests that have not passed the admin gate.
func (s *Service) Get(ctx context.Context, id, callerID string) (*CollaborationRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case req.Initiator.PartyID == callerID:
		return req, nil
	case req.Recipient.PartyID == callerID:
		if !VisibleToRecipient(req.Status) {
			return nil, fmt.Errorf("collaboration request %s: %w", id, apperr.ErrNotFound)
		}
		return req, nil
	}
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return req, nil
}

// List returns the caller's requests, newest first. Admins see every request.
func (s *Service) List(ctx context.Context, callerID string, opts ListOptions) ([]*CollaborationRequest, error) {
	q := Query{Statuses: opts.Statuses, Kind: opts.Kind, Limit: opts.Limit, Offset: opts.Offset}
	isAdmin, err := s.directory.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, apperr.Upstream("check admin", err)
	}
	if !isAdmin {
		q.VisibleTo = callerID
	}
	return s.repo.FindByQuery(ctx, q)
}

// Count returns how many requests match q.
func (s *Service) Count(ctx context.Context, q Query) (int64, error) {
	return s.repo.CountBy(ctx, q)
}

// ExpireOverdue moves every overdue submitted or admin_approved request to
// expired and returns how many it moved. Records that changed underneath are
// skipped, so concurrent or repeated runs never double count.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.repo.FindByQuery(ctx, Query{Statuses: ExpirableStatuses, ExpiresBefore: &now})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, req := range overdue {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		wasVisible := VisibleToRecipient(req.Status)
		updated, err := s.transition(ctx, req, StatusExpired, "", "expire", Patch{})
		if err != nil {
			if errors.Is(err, apperr.ErrConcurrentModification) {
				s.logger.Debug("request changed before expiry, skipping", zap.String("request_id", req.ID))
				continue
			}
			s.logger.Warn("failed to expire request", zap.String("request_id", req.ID), zap.Error(err))
			continue
		}
		expired++

		body := fmt.Sprintf("Your request to %s expired without a final answer.", partyName(updated.Recipient))
		s.notify(ctx, updated.Initiator.PartyID, updated, notifications.TypeCollaborationExpired, notifications.CategoryStatusUpdate,
			"Collaboration request expired", body)
		if wasVisible {
			s.notify(ctx, updated.Recipient.PartyID, updated, notifications.TypeCollaborationExpired, notifications.CategoryStatusUpdate,
				"Collaboration request expired",
				fmt.Sprintf("The request from %s expired.", partyName(updated.Initiator)))
		}
	}

	if expired > 0 {
		s.logger.Info("expired overdue collaboration requests", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *Service) transition(ctx context.Context, req *CollaborationRequest, to Status, actorID, action string, patch Patch) (*CollaborationRequest, error) {
	if !CanTransition(req.Status, to) {
		return nil, invalidTransition(req.Status, to)
	}
	patch.Status = &to
	updated, err := s.update(ctx, req, patch)
	if err != nil {
		return nil, err
	}
	s.record(ctx, updated, req.Status, to, actorID, action)
	return updated, nil
}

func (s *Service) update(ctx context.Context, req *CollaborationRequest, patch Patch) (*CollaborationRequest, error) {
	patch.UpdatedAt = s.now()
	return s.repo.ConditionalUpdate(ctx, req.ID, Expectation{Status: req.Status, Version: req.Version}, patch)
}

func (s *Service) requireAdmin(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.ErrUnauthorized
	}
	ok, err := s.directory.IsAdmin(ctx, userID)
	if err != nil {
		return apperr.Upstream("check admin", err)
	}
	if !ok {
		return fmt.Errorf("%s is not an admin: %w", userID, apperr.ErrUnauthorized)
	}
	return nil
}

func (s *Service) record(ctx context.Context, req *CollaborationRequest, from, to Status, actorID, action string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		EntityType: "collaboration_request",
		EntityID:   req.ID,
		Action:     action,
		ActorID:    actorID,
		From:       string(from),
		To:         string(to),
		Version:    req.Version,
		At:         s.now(),
	}
	if err := s.auditor.Record(ctx, event); err != nil {
		s.logger.Warn("failed to record audit event", zap.String("request_id", req.ID), zap.Error(err))
	}
}

func (s *Service) notifyAdmins(ctx context.Context, req *CollaborationRequest, typ notifications.Type, category notifications.Category, title, message string) {
	admins, err := s.directory.ListAdmins(ctx)
	if err != nil {
		s.logger.Warn("failed to list admins", zap.String("request_id", req.ID), zap.Error(err))
		return
	}
	for _, adminID := range admins {
		s.notify(ctx, adminID, req, typ, category, title, message)
	}
}

// notify never fails the calling transition.
func (s *Service) notify(ctx context.Context, recipientID string, req *CollaborationRequest, typ notifications.Type, category notifications.Category, title, message string) {
	if s.notifier == nil || recipientID == "" {
		return
	}
	_, err := s.notifier.Create(ctx, notifications.CreateRequest{
		RecipientID:   recipientID,
		Type:          typ,
		Category:      category,
		Priority:      notificationPriority(req.Priority),
		Title:         title,
		Message:       message,
		RelatedEntity: &notifications.EntityRef{Kind: "collaboration_request", ID: req.ID},
		ActionLink:    "/collaborations/" + req.ID,
	})
	if err != nil {
		s.logger.Warn("failed to notify",
			zap.String("request_id", req.ID),
			zap.String("recipient_id", recipientID),
			zap.String("type", string(typ)),
			zap.Error(err))
	}
}

func notificationPriority(p Priority) notifications.Priority {
	switch p {
	case PriorityHigh:
		return notifications.PriorityHigh
	case PriorityLow:
		return notifications.PriorityLow
	default:
		return notifications.PriorityMedium
	}
}

func appendMessage(thread []Message, senderID, text string, at time.Time) []Message {
	out := make([]Message, 0, len(thread)+1)
	out = append(out, thread...)
	return append(out, Message{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Text:      text,
		Timestamp: at,
	})
}

func partyName(p Party) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.PartyID
}

func humanKind(k Kind) string {
	switch k {
	case KindVenueRequest:
		return "venue booking"
	case KindBrandSponsorship:
		return "brand sponsorship"
	case KindCommunityPartnership:
		return "community partnership"
	}
	return string(k)
}

func withNotes(message, notes string) string {
	if notes = strings.TrimSpace(notes); notes != "" {
		return message + " Note: " + notes
	}
	return message
}
