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

func setupFriendRouter(h *FriendHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/friends/sync", h.Sync)
	friends := r.Group("")
	if userID != "" {
		friends.Use(func(c *gin.Context) {
			c.Set("userID", userID)
			c.Next()
		})
	}
	friends.GET("/api/friends", h.ListFriends)
	return r
}

func TestSyncRejectsWrongSecret(t *testing.T) {
	friends := new(mocks.MockFriendRepository)
	handler := NewFriendHandler(nil, friends, nil, "s3cret")
	router := setupFriendRouter(handler, "")

	req := httptest.NewRequest(http.MethodPost, "/api/friends/sync",
		bytes.NewBufferString(`{"fromUserId":"u1","toUserId":"u2"}`))
	req.Header.Set("x-presence-secret", "wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	friends.AssertNotCalled(t, "AddFriendship", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncRequiresBothUserIDs(t *testing.T) {
	handler := NewFriendHandler(nil, new(mocks.MockFriendRepository), nil, "")
	router := setupFriendRouter(handler, "")

	req := httptest.NewRequest(http.MethodPost, "/api/friends/sync",
		bytes.NewBufferString(`{"fromUserId":"u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncRejectsIdenticalUserIDs(t *testing.T) {
	handler := NewFriendHandler(nil, new(mocks.MockFriendRepository), nil, "")
	router := setupFriendRouter(handler, "")

	req := httptest.NewRequest(http.MethodPost, "/api/friends/sync",
		bytes.NewBufferString(`{"fromUserId":"u1","toUserId":"u1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncAddsMutualFriendship(t *testing.T) {
	friends := new(mocks.MockFriendRepository)
	friends.On("AddFriendship", mock.Anything, "u1", "u2").Return(nil).Once()

	handler := NewFriendHandler(nil, friends, nil, "s3cret")
	router := setupFriendRouter(handler, "")

	req := httptest.NewRequest(http.MethodPost, "/api/friends/sync",
		bytes.NewBufferString(`{"fromUserId":"u1","toUserId":"u2"}`))
	req.Header.Set("x-presence-secret", "s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]bool
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp["synced"])

	friends.AssertExpectations(t)
}

func TestSyncAllowsMissingSecretWhenUnconfigured(t *testing.T) {
	friends := new(mocks.MockFriendRepository)
	friends.On("AddFriendship", mock.Anything, "u1", "u2").Return(nil).Once()

	handler := NewFriendHandler(nil, friends, nil, "")
	router := setupFriendRouter(handler, "")

	req := httptest.NewRequest(http.MethodPost, "/api/friends/sync",
		bytes.NewBufferString(`{"fromUserId":"u1","toUserId":"u2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	friends.AssertExpectations(t)
}

func TestListFriendsReturnsMaterializedList(t *testing.T) {
	friends := new(mocks.MockFriendRepository)
	profiles := new(mocks.MockUserRepository)
	friends.On("ListFriends", mock.Anything, "me").Return([]string{"f1"}, nil).Once()
	profiles.On("GetProfile", mock.Anything, "f1").Return(&models.Profile{
		UserID: "f1", Username: "bob", DisplayName: "Bob", Goal33: "sub-20",
	}, nil).Once()

	list := services.NewFriendListService(friends, profiles, nil)
	handler := NewFriendHandler(list, friends, nil, "")
	router := setupFriendRouter(handler, "me")

	req := httptest.NewRequest(http.MethodGet, "/api/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Friends []models.FriendEntry `json:"friends"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Friends, 1)
	require.Equal(t, "f1", resp.Friends[0].UserID)
	require.Equal(t, models.StatusOffline, resp.Friends[0].Status)

	friends.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestListFriendsRequiresIdentity(t *testing.T) {
	handler := NewFriendHandler(nil, new(mocks.MockFriendRepository), nil, "")
	router := setupFriendRouter(handler, "")

	req := httptest.NewRequest(http.MethodGet, "/api/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
