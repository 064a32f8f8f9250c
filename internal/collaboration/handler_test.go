package collaboration

import (
	"context"
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

// newRouter authenticates every request as the X-Test-User header.
func newRouter(h *harness) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		middleware.SetUserID(c, c.GetHeader("X-Test-User"))
		c.Next()
	})
	NewHandler(h.svc, nil).RegisterRoutes(api)
	return r
}

func call(r http.Handler, user, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) CollaborationRequest {
	t.Helper()
	var out CollaborationRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandlerNegotiationFlow(t *testing.T) {
	h := newHarness(t)
	r := newRouter(h)

	rec := call(r, organizerID, http.MethodPost, "/api/v1/collaborations",
		`{"kind":"venue_request","recipient":{"party_id":"venue-1","party_role":"venue"},"request_details":{"event_name":"Spring 5k"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, organizerID, created.Initiator.PartyID)
	assert.Equal(t, StatusSubmitted, created.Status)
	base := "/api/v1/collaborations/" + created.ID

	rec = call(r, venueID, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(r, venueID, http.MethodPost, base+"/admin-decision", `{"decision":"approved"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(r, adminID, http.MethodPost, base+"/admin-decision", `{"decision":"approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusAdminApproved, decode(t, rec).Status)

	rec = call(r, adminID, http.MethodPost, base+"/admin-decision", `{"decision":"rejected"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TRANSITION")

	rec = call(r, venueID, http.MethodPost, base+"/counter", `{"terms":"Saturday only"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(r, adminID, http.MethodPost, base+"/counter/forward", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusCounterDelivered, decode(t, rec).Status)

	rec = call(r, organizerID, http.MethodPost, base+"/counter/decision", `{"decision":"accept"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusCompleted, decode(t, rec).Status)
}

func TestHandlerValidation(t *testing.T) {
	h := newHarness(t)
	r := newRouter(h)

	rec := call(r, organizerID, http.MethodPost, "/api/v1/collaborations", `{"kind":"catering","recipient":{"party_id":"venue-1"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(r, organizerID, http.MethodPost, "/api/v1/collaborations", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(r, organizerID, http.MethodGet, "/api/v1/collaborations?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(r, organizerID, http.MethodGet, "/api/v1/collaborations/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerListUsesLegacyStatusNames(t *testing.T) {
	h := newHarness(t)
	r := newRouter(h)
	h.submit(t, 0)

	rec := call(r, organizerID, http.MethodGet, "/api/v1/collaborations?status=pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestHandlerSubmitSnapshotsPartiesFromDirectory(t *testing.T) {
	h := newHarness(t)
	r := newRouter(h)

	rec := call(r, organizerID, http.MethodPost, "/api/v1/collaborations",
		`{"kind":"venue_request","initiator":{"display_name":"Totally Legit Admin"},"recipient":{"party_id":"venue-1","party_role":"brand","display_name":"Fake Hall"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, Party{PartyID: organizerID, PartyRole: "community_organizer", DisplayName: "Riverside Runners"}, created.Initiator)
	assert.Equal(t, Party{PartyID: venueID, PartyRole: "venue", DisplayName: "Harbor Hall"}, created.Recipient)

	rec = call(r, organizerID, http.MethodPost, "/api/v1/collaborations",
		`{"kind":"venue_request","recipient":{"party_id":"venue-404"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	n, err := h.repo.CountBy(context.Background(), Query{InitiatorID: organizerID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
