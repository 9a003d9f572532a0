package handlers

import (
	"context"
	"errors"
	"log"
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"presence-gateway/internal/metrics"
	"presence-gateway/internal/models"
	"presence-gateway/internal/rabbitmq"
	"presence-gateway/internal/services"
	"presence-gateway/internal/telemetry"
)

// InviteHandler runs the invite workflow against the presence
// service's invite API. Invite records live upstream; this handler
// validates, relays, and reports.
type InviteHandler struct {
	client    *services.PresenceClient
	publisher rabbitmq.Publisher
	audit     *telemetry.AuditEmitter
}

func NewInviteHandler(client *services.PresenceClient, publisher rabbitmq.Publisher, audit *telemetry.AuditEmitter) *InviteHandler {
	return &InviteHandler{client: client, publisher: publisher, audit: audit}
}

func (h *InviteHandler) List(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == "" {
		c.JSON(nethttp.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	direction := c.DefaultQuery("direction", models.DirectionOutgoing)
	status := c.DefaultQuery("status", models.InviteStatusPending)
	if !models.ValidDirection(direction) {
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "direction must be incoming, outgoing or all"})
		return
	}
	if !models.ValidInviteStatus(status) {
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "status must be pending, accepted or declined"})
		return
	}

	invites, err := h.client.ListInvites(c.Request.Context(), userID, direction, status)
	if err != nil {
		log.Printf("list invites failed for %s: %v", userID, err)
		c.JSON(nethttp.StatusInternalServerError, gin.H{"message": "failed to load invites"})
		return
	}
	if invites == nil {
		invites = []models.FriendInvite{}
	}

	c.JSON(nethttp.StatusOK, gin.H{"invites": invites})
}

type sendInviteBody struct {
	FromDisplayName string  `json:"fromDisplayName"`
	FromAvatar      *string `json:"fromAvatar"`
	FromGoal33      *string `json:"fromGoal33"`
	ToUserID        string  `json:"toUserId"`
	ToDisplayName   string  `json:"toDisplayName"`
	ToAvatar        *string `json:"toAvatar"`
	ToGoal33        *string `json:"toGoal33"`
}

func (h *InviteHandler) Send(c *gin.Context) {
	requestID := requestIDFromHeader(c)
	userID := userIDFromContext(c)
	if userID == "" {
		metrics.IncInviteSent(metrics.StatusFailed)
		c.JSON(nethttp.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	var body sendInviteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.emitAudit(c.Request.Context(), "ERROR", "invalid invite payload", requestID, userID)
		metrics.IncInviteSent(metrics.StatusFailed)
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	if body.ToUserID == "" || body.ToDisplayName == "" {
		metrics.IncInviteSent(metrics.StatusFailed)
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "toUserId and toDisplayName are required"})
		return
	}
	if body.ToUserID == userID {
		metrics.IncInviteSent(metrics.StatusFailed)
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "cannot invite yourself"})
		return
	}

	ctx := c.Request.Context()
	invite, err := h.client.SendInvite(ctx, services.InviteInput{
		FromUserID:      userID,
		FromDisplayName: body.FromDisplayName,
		FromAvatar:      body.FromAvatar,
		FromGoal33:      body.FromGoal33,
		ToUserID:        body.ToUserID,
		ToDisplayName:   body.ToDisplayName,
		ToAvatar:        body.ToAvatar,
		ToGoal33:        body.ToGoal33,
	})
	if err != nil {
		log.Printf("send invite failed from %s to %s: %v", userID, body.ToUserID, err)
		h.emitAudit(ctx, "ERROR", "failed to send invite", requestID, userID)
		metrics.IncInviteSent(metrics.StatusFailed)
		c.JSON(nethttp.StatusInternalServerError, gin.H{"message": "failed to send invite"})
		return
	}

	h.logPublish(ctx, "friend.invite.sent", gin.H{
		"invite_id":    invite.ID,
		"from_user_id": invite.FromUserID,
		"to_user_id":   invite.ToUserID,
	})
	h.emitAudit(ctx, "INFO", "Friend invite sent to '"+body.ToUserID+"'", requestID, userID)
	metrics.IncInviteSent(metrics.StatusSuccess)
	c.JSON(nethttp.StatusCreated, invite)
}

type respondBody struct {
	Action string `json:"action"`
}

func (h *InviteHandler) Respond(c *gin.Context) {
	requestID := requestIDFromHeader(c)
	userID := userIDFromContext(c)
	if userID == "" {
		c.JSON(nethttp.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}

	inviteID := c.Param("inviteId")
	var body respondBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	var status string
	var inc func(string)
	switch body.Action {
	case "accept":
		status = models.InviteStatusAccepted
		inc = metrics.IncInviteAccept
	case "decline":
		status = models.InviteStatusDeclined
		inc = metrics.IncInviteDecline
	default:
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "action must be accept or decline"})
		return
	}

	ctx := c.Request.Context()
	invite, err := h.client.UpdateInviteStatus(ctx, inviteID, status, userID)
	if err != nil {
		if errors.Is(err, services.ErrInviteNotFound) {
			h.emitAudit(ctx, "ERROR", "invite not found", requestID, userID)
			inc(metrics.StatusFailed)
			c.JSON(nethttp.StatusNotFound, gin.H{"message": "invite not found"})
			return
		}
		log.Printf("update invite %s failed: %v", inviteID, err)
		h.emitAudit(ctx, "ERROR", "failed to update invite", requestID, userID)
		inc(metrics.StatusFailed)
		c.JSON(nethttp.StatusInternalServerError, gin.H{"message": "failed to update invite"})
		return
	}

	// Refresh the caller's pending incoming invites so the UI can
	// update without a second round trip.
	pending, err := h.client.ListInvites(ctx, userID, models.DirectionIncoming, models.InviteStatusPending)
	if err != nil {
		log.Printf("refresh pending invites failed for %s: %v", userID, err)
		pending = nil
	}
	if pending == nil {
		pending = []models.FriendInvite{}
	}

	h.logPublish(ctx, "friend.invite."+status, gin.H{
		"invite_id":    invite.ID,
		"from_user_id": invite.FromUserID,
		"to_user_id":   invite.ToUserID,
	})
	h.emitAudit(ctx, "INFO", "Friend invite "+status, requestID, userID)
	inc(metrics.StatusSuccess)
	c.JSON(nethttp.StatusOK, gin.H{"invite": invite, "pending": pending})
}

func (h *InviteHandler) emitAudit(ctx context.Context, level, text, requestID, userID string) {
	if h.audit == nil {
		return
	}
	h.audit.EmitAudit(ctx, level, text, requestID, userID)
}

func (h *InviteHandler) logPublish(ctx context.Context, eventType string, payload any) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, eventType, payload); err != nil {
		log.Printf("warning: failed to publish %s: %v", eventType, err)
	}
}
