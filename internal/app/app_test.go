package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherhub/collab-portal/collab-portal-backend/internal/accounts"
	"gatherhub/collab-portal/collab-portal-backend/internal/config"
	"gatherhub/collab-portal/collab-portal-backend/internal/jobs"
	"gatherhub/collab-portal/collab-portal-backend/internal/requirements"
	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
)

const testSecret = "test-secret"

func newMemoryApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = "memory"
	cfg.Security.JWTSecret = testSecret
	cfg.Workflow.AdminIDs = []string{"admin-1"}
	cfg.Logging.Development = true

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func request(t *testing.T, router *gin.Engine, userID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		token, err := middleware.GenerateToken(testSecret, userID, "", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "mongo"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "memory"
	cfg.Notifications.EmailProvider = "carrier-pigeon"
	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRouterWiring(t *testing.T) {
	a := newMemoryApp(t)

	w := request(t, a.Router, "", http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(t, a.Router, "", http.MethodGet, "/api/v1/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(t, a.Router, "admin-1", http.MethodGet, "/api/v1/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"admin-1","is_admin":true}`, w.Body.String())

	w = request(t, a.Router, "admin-1", http.MethodGet, "/api/v1/admin/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Jobs []jobs.JobStatus `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Jobs, 7)

	w = request(t, a.Router, "organizer-1", http.MethodGet, "/api/v1/admin/jobs", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSubmissionReachesAdminInbox(t *testing.T) {
	a := newMemoryApp(t)
	store, ok := a.directory.(*accounts.MemoryStore)
	require.True(t, ok)
	store.Put(accounts.Seed{Account: requirements.Account{PartyID: "organizer-1", Role: requirements.RoleCommunityOrganizer}, DisplayName: "Riverside Runners"})
	store.Put(accounts.Seed{Account: requirements.Account{PartyID: "venue-1", Role: requirements.RoleVenue}, DisplayName: "Harbor Hall"})

	w := request(t, a.Router, "organizer-1", http.MethodPost, "/api/v1/collaborations",
		`{"kind":"venue_request","recipient":{"party_id":"venue-1","party_role":"venue"},"request_details":{"event_name":"Spring 5k"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = request(t, a.Router, "admin-1", http.MethodGet, "/api/v1/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, w.Code)
	var count struct {
		UnreadCount int64 `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &count))
	assert.Positive(t, count.UnreadCount)
}

func TestRunnerRunsSweepsOnDemand(t *testing.T) {
	a := newMemoryApp(t)

	report, err := a.Runner.Run(context.Background(), jobs.CollaborationExpiry)
	require.NoError(t, err)
	assert.Equal(t, jobs.CollaborationExpiry, report.Job)
	assert.Zero(t, report.Failed)

	report, err = a.Runner.Run(context.Background(), jobs.NotificationPurge)
	require.NoError(t, err)
	assert.Zero(t, report.Failed)
}
