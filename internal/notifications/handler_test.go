package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
)

func newTestRouter(t *testing.T, callerID string) (*gin.Engine, *MemoryRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryRepository()
	svc := NewService(repo, StaticRecipientDirectory{}, nil, Senders{}, nil, nil, ServiceConfig{})
	h := NewHandler(svc, nil, nil)

	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		middleware.SetUserID(c, callerID)
		c.Next()
	})
	h.RegisterRoutes(api)
	return r, repo
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerListAndUnreadCount(t *testing.T) {
	r, repo := newTestRouter(t, "venue-1")
	seed(t, repo, "n-1", "venue-1", testNow)
	seed(t, repo, "n-2", "brand-1", testNow)

	rec := do(r, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Notifications []Notification `json:"notifications"`
		Count         int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "n-1", list.Notifications[0].ID)

	rec = do(r, http.MethodGet, "/api/v1/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread_count":1}`, rec.Body.String())
}

func TestHandlerMarkRead(t *testing.T) {
	r, repo := newTestRouter(t, "venue-1")
	seed(t, repo, "n-1", "venue-1", testNow)
	seed(t, repo, "n-2", "brand-1", testNow)

	rec := do(r, http.MethodPut, "/api/v1/notifications/n-2/read", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(r, http.MethodPut, "/api/v1/notifications/unknown/read", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(r, http.MethodPut, "/api/v1/notifications/n-1/read", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodPut, "/api/v1/notifications/read-all", `{"ids":["n-2"]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(r, http.MethodPut, "/api/v1/notifications/read-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"marked":0}`, rec.Body.String())
}

func TestHandlerRecordDelivery(t *testing.T) {
	r, repo := newTestRouter(t, "venue-1")
	seed(t, repo, "n-1", "venue-1", testNow)

	rec := do(r, http.MethodPost, "/api/v1/notifications/n-1/delivery", `{"channel":"email","status":"bounced"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "email was not enabled")

	rec = do(r, http.MethodPost, "/api/v1/notifications/n-1/delivery", `{"channel":"in_app"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
