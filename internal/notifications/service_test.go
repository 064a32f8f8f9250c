package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
)

// MockEmailSender is a mock implementation of EmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// MockPushSender is a mock implementation of PushSender
type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) SendPush(ctx context.Context, to string, payload PushPayload) error {
	args := m.Called(ctx, to, payload)
	return args.Error(0)
}

// MockSMSSender is a mock implementation of SMSSender
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendSMS(ctx context.Context, to, text string) error {
	args := m.Called(ctx, to, text)
	return args.Error(0)
}

type fakeArchiver struct {
	batches [][]*Notification
	err     error
}

func (f *fakeArchiver) Archive(_ context.Context, batch []*Notification) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, batch)
	return nil
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repo    *MemoryRepository
	prefs   *MemoryPreferenceStore
	email   *MockEmailSender
	push    *MockPushSender
	sms     *MockSMSSender
	archive *fakeArchiver
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:    NewMemoryRepository(),
		prefs:   NewMemoryPreferenceStore(),
		email:   new(MockEmailSender),
		push:    new(MockPushSender),
		sms:     new(MockSMSSender),
		archive: &fakeArchiver{},
	}
	recipients := StaticRecipientDirectory{
		"venue-1": {ID: "venue-1", DisplayName: "Harbor Hall", Email: "events@harborhall.test", Phone: "+15550001"},
		"brand-1": {ID: "brand-1", DisplayName: "Fizz Co", Email: "partners@fizz.test"},
		"silent":  {ID: "silent", DisplayName: "No Contact"},
	}
	f.svc = NewService(f.repo, recipients, f.prefs, Senders{Email: f.email, Push: f.push, SMS: f.sms}, f.archive, nil, ServiceConfig{
		Retention:     90 * 24 * time.Hour,
		ActionBaseURL: "https://portal.test",
		Now:           func() time.Time { return testNow },
	})
	t.Cleanup(func() {
		f.email.AssertExpectations(t)
		f.push.AssertExpectations(t)
		f.sms.AssertExpectations(t)
	})
	return f
}

func statusRequest(recipient string) CreateRequest {
	return CreateRequest{
		RecipientID:   recipient,
		Type:          TypeCollaborationApproved,
		Category:      CategoryStatusUpdate,
		Priority:      PriorityHigh,
		Title:         "Request approved",
		Message:       "Your venue request was approved",
		RelatedEntity: &EntityRef{Kind: "collaboration_request", ID: "req-1"},
		ActionLink:    "/collaborations/req-1",
	}
}

func TestCreateDeliversEnabledChannels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.email.On("SendEmail", mock.Anything, "events@harborhall.test", "Request approved",
		"Your venue request was approved\n\nhttps://portal.test/collaborations/req-1").Return(nil)
	f.push.On("SendPush", mock.Anything, "venue-1", mock.MatchedBy(func(p PushPayload) bool {
		return p.ActionLink == "https://portal.test/collaborations/req-1" && p.Title == "Request approved"
	})).Return(nil)

	n, err := f.svc.Create(ctx, statusRequest("venue-1"))
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, ChannelSet{InApp: true, Email: true, Push: true}, n.Channels)
	assert.Equal(t, StatusDelivered, n.DeliveryStatus[ChannelInApp].Status)
	assert.Equal(t, StatusSent, n.DeliveryStatus[ChannelEmail].Status)
	assert.Equal(t, StatusDelivered, n.DeliveryStatus[ChannelPush].Status)
	_, hasSMS := n.DeliveryStatus[ChannelSMS]
	assert.False(t, hasSMS)
	require.NotNil(t, n.ExpiresAt)
	assert.Equal(t, testNow.Add(90*24*time.Hour), *n.ExpiresAt)

	stored, err := f.repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, stored.DeliveryStatus[ChannelEmail].Status)
	assert.Len(t, f.repo.DeliveryLogs(), 2)
}

func TestCreateSkipsDisabledChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefs.SetUserPreference(ctx, UserPreference{
		UserID: "venue-1", Channel: ChannelEmail, Category: string(CategoryStatusUpdate), Enabled: false,
	}))
	f.push.On("SendPush", mock.Anything, "venue-1", mock.Anything).Return(nil)

	n, err := f.svc.Create(ctx, statusRequest("venue-1"))
	require.NoError(t, err)

	assert.False(t, n.Channels.Email)
	_, hasEmail := n.DeliveryStatus[ChannelEmail]
	assert.False(t, hasEmail)
	f.email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRecordsTransportFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.email.On("SendEmail", mock.Anything, "events@harborhall.test", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: smtp 554", apperr.ErrTransportFailure))
	f.push.On("SendPush", mock.Anything, "venue-1", mock.Anything).Return(nil)

	n, err := f.svc.Create(ctx, statusRequest("venue-1"))
	require.NoError(t, err)
	require.NotNil(t, n)

	stored, err := f.repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.DeliveryStatus[ChannelEmail].Status)
	require.NotNil(t, stored.DeliveryStatus[ChannelEmail].ErrorMessage)
	assert.Contains(t, *stored.DeliveryStatus[ChannelEmail].ErrorMessage, "smtp 554")
	assert.Equal(t, StatusDelivered, stored.DeliveryStatus[ChannelPush].Status)
}

func TestCreateWithoutTransportMarksFailed(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, StaticRecipientDirectory{"brand-1": {ID: "brand-1", Email: "b@test"}}, nil, Senders{}, nil, nil, ServiceConfig{})

	n, err := svc.Create(context.Background(), statusRequest("brand-1"))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, n.DeliveryStatus[ChannelEmail].Status)
	assert.Equal(t, StatusFailed, n.DeliveryStatus[ChannelPush].Status)
	assert.Nil(t, n.ExpiresAt)
}

func TestCreateUnknownRecipient(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.Create(context.Background(), statusRequest("ghost"))
	assert.NoError(t, err)
	assert.Nil(t, n)

	count, err := f.repo.CountBy(context.Background(), Query{IncludeArchived: true})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := statusRequest("venue-1")
	req.Type = "party_invite"
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req = statusRequest("venue-1")
	req.Title = "  "
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreateCollapsesDuplicateDedupeKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := CreateRequest{
		RecipientID: "silent",
		Type:        TypeProfileIncomplete,
		Category:    CategoryReminder,
		Title:       "Complete your profile",
		DedupeKey:   "profile_incomplete:2937",
	}
	first, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, first.Collapsed)
	assert.True(t, second.Collapsed)
	count, err := f.repo.CountBy(ctx, Query{RecipientID: "silent"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func seed(t *testing.T, repo *MemoryRepository, id, recipient string, created time.Time) *Notification {
	t.Helper()
	n := &Notification{
		ID:             id,
		RecipientID:    recipient,
		Type:           TypeCollaborationMessage,
		Category:       CategoryStatusUpdate,
		Priority:       PriorityMedium,
		Title:          "New message",
		Channels:       ChannelSet{InApp: true},
		DeliveryStatus: map[Channel]ChannelDeliveryStatus{ChannelInApp: {Channel: ChannelInApp, Status: StatusDelivered}},
		CreatedAt:      created,
	}
	require.NoError(t, repo.Save(context.Background(), n))
	return n
}

func TestMarkReadChecksOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f.repo, "n-1", "venue-1", testNow)

	_, err := f.svc.MarkRead(ctx, "brand-1", "n-1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.svc.MarkRead(ctx, "venue-1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	n, err := f.svc.MarkRead(ctx, "venue-1", "n-1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)
	assert.Equal(t, testNow, *n.ReadAt)
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f.repo, "n-1", "venue-1", testNow.Add(-2*time.Hour))
	seed(t, f.repo, "n-2", "venue-1", testNow.Add(-time.Hour))
	seed(t, f.repo, "n-3", "brand-1", testNow)

	_, err := f.svc.MarkAllRead(ctx, "venue-1", []string{"n-1", "n-3"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	unread, err := f.svc.UnreadCount(ctx, "venue-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread, "a rejected batch writes nothing")

	marked, err := f.svc.MarkAllRead(ctx, "venue-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	unread, err = f.svc.UnreadCount(ctx, "venue-1")
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = f.svc.UnreadCount(ctx, "brand-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestArchiveHidesFromListAndCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f.repo, "n-1", "venue-1", testNow.Add(-time.Hour))
	seed(t, f.repo, "n-2", "venue-1", testNow)

	_, err := f.svc.Archive(ctx, "venue-1", "n-1")
	require.NoError(t, err)

	list, err := f.svc.List(ctx, "venue-1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n-2", list[0].ID)

	unread, err := f.svc.UnreadCount(ctx, "venue-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	all, err := f.svc.List(ctx, "venue-1", ListOptions{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "n-2", all[0].ID, "newest first")
}

func TestLatestOfType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f.repo, "n-old", "venue-1", testNow.Add(-10*24*time.Hour))
	seed(t, f.repo, "n-new", "venue-1", testNow.Add(-time.Hour))

	latest, err := f.svc.LatestOfType(ctx, "venue-1", TypeCollaborationMessage, nil, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "n-new", latest.ID)

	latest, err = f.svc.LatestOfType(ctx, "venue-1", TypeCollaborationMessage, nil, testNow)
	require.NoError(t, err)
	assert.Nil(t, latest)

	latest, err = f.svc.LatestOfType(ctx, "venue-1", TypeEventReminder, nil, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRecordDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.email.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.push.On("SendPush", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	n, err := f.svc.Create(ctx, statusRequest("venue-1"))
	require.NoError(t, err)

	updated, err := f.svc.RecordDelivery(ctx, n.ID, ChannelEmail, StatusBounced, "mailbox full")
	require.NoError(t, err)
	assert.Equal(t, StatusBounced, updated.DeliveryStatus[ChannelEmail].Status)
	assert.Equal(t, "mailbox full", *updated.DeliveryStatus[ChannelEmail].ErrorMessage)
	assert.Equal(t, StatusDelivered, updated.DeliveryStatus[ChannelPush].Status)

	_, err = f.svc.RecordDelivery(ctx, n.ID, ChannelSMS, StatusDelivered, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.RecordDelivery(ctx, n.ID, ChannelEmail, "opened", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := testNow.Add(-time.Hour)
	require.NoError(t, f.repo.Save(ctx, &Notification{
		ID:          "n-1",
		RecipientID: "venue-1",
		Type:        TypeEventReminder,
		Category:    CategoryReminder,
		Title:       "Event tomorrow",
		Channels:    ChannelSet{InApp: true},
		CreatedAt:   testNow.Add(-100 * 24 * time.Hour),
		ExpiresAt:   &past,
	}))
	seed(t, f.repo, "n-2", "venue-1", testNow)

	t.Run("archive failure keeps records", func(t *testing.T) {
		f.archive.err = errors.New("bucket unavailable")
		defer func() { f.archive.err = nil }()

		purged, err := f.svc.PurgeExpired(ctx, testNow)
		assert.Error(t, err)
		assert.Zero(t, purged)
		_, err = f.repo.FindByID(ctx, "n-1")
		assert.NoError(t, err)
	})

	t.Run("archives then deletes", func(t *testing.T) {
		purged, err := f.svc.PurgeExpired(ctx, testNow)
		require.NoError(t, err)
		assert.Equal(t, 1, purged)
		require.Len(t, f.archive.batches, 1)
		assert.Equal(t, "n-1", f.archive.batches[0][0].ID)

		_, err = f.repo.FindByID(ctx, "n-1")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = f.repo.FindByID(ctx, "n-2")
		assert.NoError(t, err)
	})
}

func TestSMSTextTruncates(t *testing.T) {
	n := &Notification{Title: "Reminder", Message: string(make([]byte, 300))}
	assert.Len(t, smsText(n), 160)

	n = &Notification{Title: "Neue Anfrage", Message: strings.Repeat("ü", 200)}
	text := smsText(n)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, 160, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, "ü..."))

	short := &Notification{Title: "Grüße", Message: "bis später"}
	assert.Equal(t, "Grüße: bis später", smsText(short))
}
