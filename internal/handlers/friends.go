package handlers

import (
	"errors"
	"log"
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"presence-gateway/internal/models"
	"presence-gateway/internal/repositories"
	"presence-gateway/internal/services"
	"presence-gateway/internal/telemetry"
)

// FriendHandler serves the materialized friend list and the
// post-acceptance sync that persists the mutual friendship.
type FriendHandler struct {
	list    *services.FriendListService
	friends repositories.FriendRepository
	audit   *telemetry.AuditEmitter

	// syncSecret guards /api/friends/sync when configured; the
	// presence service calls it after an invite is accepted.
	syncSecret string
}

func NewFriendHandler(list *services.FriendListService, friends repositories.FriendRepository, audit *telemetry.AuditEmitter, syncSecret string) *FriendHandler {
	return &FriendHandler{list: list, friends: friends, audit: audit, syncSecret: syncSecret}
}

func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == "" {
		c.JSON(nethttp.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	entries, err := h.list.List(c.Request.Context(), userID)
	if err != nil {
		log.Printf("friend list failed for %s: %v", userID, err)
		c.JSON(nethttp.StatusInternalServerError, gin.H{"message": "failed to load friends"})
		return
	}
	if entries == nil {
		entries = []models.FriendEntry{}
	}

	c.JSON(nethttp.StatusOK, gin.H{"friends": entries})
}

type syncBody struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}

func (h *FriendHandler) Sync(c *gin.Context) {
	requestID := requestIDFromHeader(c)

	if h.syncSecret != "" && c.GetHeader("x-presence-secret") != h.syncSecret {
		c.JSON(nethttp.StatusUnauthorized, gin.H{"message": "invalid secret"})
		return
	}

	var body syncBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if body.FromUserID == "" || body.ToUserID == "" {
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "fromUserId and toUserId are required"})
		return
	}
	if body.FromUserID == body.ToUserID {
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "fromUserId and toUserId must differ"})
		return
	}

	ctx := c.Request.Context()
	if err := h.friends.AddFriendship(ctx, body.FromUserID, body.ToUserID); err != nil {
		if errors.Is(err, repositories.ErrSelfFriendship) {
			c.JSON(nethttp.StatusBadRequest, gin.H{"message": "fromUserId and toUserId must differ"})
			return
		}
		log.Printf("friendship sync failed for %s/%s: %v", body.FromUserID, body.ToUserID, err)
		if h.audit != nil {
			h.audit.EmitAudit(ctx, "ERROR", "friendship sync failed", requestID, body.FromUserID)
		}
		c.JSON(nethttp.StatusInternalServerError, gin.H{"message": "failed to sync friendship"})
		return
	}

	if h.audit != nil {
		h.audit.EmitAudit(ctx, "INFO", "Friendship synced with '"+body.ToUserID+"'", requestID, body.FromUserID)
	}
	c.JSON(nethttp.StatusOK, gin.H{"synced": true})
}
