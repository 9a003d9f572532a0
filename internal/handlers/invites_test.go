package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"presence-gateway/internal/mocks"
	"presence-gateway/internal/models"
	"presence-gateway/internal/services"
)

func setupInviteRouter(h *InviteHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if userID != "" {
		r.Use(func(c *gin.Context) {
			c.Set("userID", userID)
			c.Next()
		})
	}
	r.GET("/api/friends/invites", h.List)
	r.POST("/api/friends/invites", h.Send)
	r.PATCH("/api/friends/invites/:inviteId", h.Respond)
	return r
}

func TestSendInviteRejectsSelfInvite(t *testing.T) {
	handler := NewInviteHandler(presenceClientFor(t, "http://presence"), nil, nil)
	router := setupInviteRouter(handler, "u1")

	req := httptest.NewRequest(http.MethodPost, "/api/friends/invites",
		bytes.NewBufferString(`{"toUserId":"u1","toDisplayName":"Alice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "cannot invite yourself", resp["message"])
}

func TestSendInviteRequiresTargetFields(t *testing.T) {
	handler := NewInviteHandler(presenceClientFor(t, "http://presence"), nil, nil)
	router := setupInviteRouter(handler, "u1")

	req := httptest.NewRequest(http.MethodPost, "/api/friends/invites",
		bytes.NewBufferString(`{"toUserId":"u2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendInviteCreated(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/friends/invite", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "u1", body["fromUserId"])
		require.Equal(t, "u2", body["toUserId"])
		w.Write([]byte(`{"id":"inv1","fromUserId":"u1","fromDisplayName":"Alice",
			"toUserId":"u2","toDisplayName":"Bob","status":"pending",
			"createdAt":"2026-08-30T10:00:00Z"}`))
	}))
	defer upstream.Close()

	publisher := new(mocks.MockPublisher)
	publisher.On("Publish", mock.Anything, "friend.invite.sent", mock.Anything).Return(nil).Once()

	handler := NewInviteHandler(presenceClientFor(t, upstream.URL), publisher, nil)
	router := setupInviteRouter(handler, "u1")

	req := httptest.NewRequest(http.MethodPost, "/api/friends/invites",
		bytes.NewBufferString(`{"fromDisplayName":"Alice","toUserId":"u2","toDisplayName":"Bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var invite models.FriendInvite
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&invite))
	require.Equal(t, "inv1", invite.ID)
	require.Equal(t, models.InviteStatusPending, invite.Status)

	publisher.AssertExpectations(t)
}

func TestListInvitesRejectsUnknownDirection(t *testing.T) {
	handler := NewInviteHandler(presenceClientFor(t, "http://presence"), nil, nil)
	router := setupInviteRouter(handler, "u1")

	req := httptest.NewRequest(http.MethodGet, "/api/friends/invites?direction=sideways", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInvitesRelaysUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "u2", r.URL.Query().Get("userId"))
		require.Equal(t, "incoming", r.URL.Query().Get("direction"))
		require.Equal(t, "pending", r.URL.Query().Get("status"))
		w.Write([]byte(`{"invites":[{"id":"inv1","fromUserId":"u1","fromDisplayName":"Alice",
			"toUserId":"u2","toDisplayName":"Bob","status":"pending",
			"createdAt":"2026-08-30T10:00:00Z"}]}`))
	}))
	defer upstream.Close()

	handler := NewInviteHandler(presenceClientFor(t, upstream.URL), nil, nil)
	router := setupInviteRouter(handler, "u2")

	req := httptest.NewRequest(http.MethodGet, "/api/friends/invites?direction=incoming&status=pending", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Invites []models.FriendInvite `json:"invites"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Invites, 1)
	require.Equal(t, models.InviteStatusPending, resp.Invites[0].Status)
}

func TestRespondRejectsUnknownAction(t *testing.T) {
	handler := NewInviteHandler(presenceClientFor(t, "http://presence"), nil, nil)
	router := setupInviteRouter(handler, "u2")

	req := httptest.NewRequest(http.MethodPatch, "/api/friends/invites/inv1",
		bytes.NewBufferString(`{"action":"maybe"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRespondUnknownInviteReturnsNotFound(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such invite", http.StatusNotFound)
	}))
	defer upstream.Close()

	handler := NewInviteHandler(presenceClientFor(t, upstream.URL), nil, nil)
	router := setupInviteRouter(handler, "u2")

	req := httptest.NewRequest(http.MethodPatch, "/api/friends/invites/inv-missing",
		bytes.NewBufferString(`{"action":"accept"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondAcceptReturnsInviteAndRefreshedPending(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/friends/invite/inv1/status":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "accepted", body["status"])
			require.Equal(t, "u2", body["actorUserId"])
			w.Write([]byte(`{"id":"inv1","fromUserId":"u1","fromDisplayName":"Alice",
				"toUserId":"u2","toDisplayName":"Bob","status":"accepted",
				"createdAt":"2026-08-30T10:00:00Z"}`))
		case "/friends/invites":
			require.Equal(t, "u2", r.URL.Query().Get("userId"))
			require.Equal(t, "incoming", r.URL.Query().Get("direction"))
			require.Equal(t, "pending", r.URL.Query().Get("status"))
			w.Write([]byte(`{"invites":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	publisher := new(mocks.MockPublisher)
	publisher.On("Publish", mock.Anything, "friend.invite.accepted", mock.Anything).Return(nil).Once()

	handler := NewInviteHandler(presenceClientFor(t, upstream.URL), publisher, nil)
	router := setupInviteRouter(handler, "u2")

	req := httptest.NewRequest(http.MethodPatch, "/api/friends/invites/inv1",
		bytes.NewBufferString(`{"action":"accept"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Invite  models.FriendInvite   `json:"invite"`
		Pending []models.FriendInvite `json:"pending"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, models.InviteStatusAccepted, resp.Invite.Status)
	require.Empty(t, resp.Pending)

	publisher.AssertExpectations(t)
}

func TestInviteEndpointsRequireIdentity(t *testing.T) {
	handler := NewInviteHandler(presenceClientFor(t, "http://presence"), nil, nil)
	router := setupInviteRouter(handler, "")

	req := httptest.NewRequest(http.MethodGet, "/api/friends/invites", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendInviteForwardsPresenceSecret(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "s3cret", r.Header.Get("x-presence-secret"))
		w.Write([]byte(`{"id":"inv1","status":"pending","fromUserId":"u1","toUserId":"u2",
			"fromDisplayName":"Alice","toDisplayName":"Bob","createdAt":"2026-08-30T10:00:00Z"}`))
	}))
	defer upstream.Close()

	client, err := services.NewPresenceClient(upstream.URL, "s3cret")
	require.NoError(t, err)

	handler := NewInviteHandler(client, nil, nil)
	router := setupInviteRouter(handler, "u1")

	req := httptest.NewRequest(http.MethodPost, "/api/friends/invites",
		bytes.NewBufferString(`{"toUserId":"u2","toDisplayName":"Bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}
