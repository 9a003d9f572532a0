package handlers

import (
	"errors"
	"log"
	nethttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"presence-gateway/internal/metrics"
	"presence-gateway/internal/models"
	"presence-gateway/internal/observability"
	"presence-gateway/internal/services"
	"presence-gateway/internal/ws"
)

// PresenceHandler forwards presence traffic to the presence service.
// When a transport is wired it mirrors heartbeat/offline signals over
// the WebSocket so the live push path sees the same activity.
type PresenceHandler struct {
	client    *services.PresenceClient
	transport *ws.Client
}

func NewPresenceHandler(client *services.PresenceClient, transport *ws.Client) *PresenceHandler {
	return &PresenceHandler{client: client, transport: transport}
}

type heartbeatBody struct {
	UserID   string         `json:"userId"`
	Status   string         `json:"status"`
	TTLMs    int64          `json:"ttlMs"`
	Metadata map[string]any `json:"metadata"`
}

func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	var body heartbeatBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		metrics.IncHeartbeat(metrics.StatusFailed)
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if body.UserID == "" {
		metrics.IncHeartbeat(metrics.StatusFailed)
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "userId is required"})
		return
	}

	raw, err := h.client.Heartbeat(c.Request.Context(), services.HeartbeatInput{
		UserID:   body.UserID,
		Status:   body.Status,
		TTLMs:    body.TTLMs,
		Metadata: body.Metadata,
	})
	if err != nil {
		log.Printf("heartbeat forward failed for %s: %v", body.UserID, err)
		observability.IncUpstreamError("heartbeat")
		metrics.IncHeartbeat(metrics.StatusFailed)
		c.JSON(nethttp.StatusBadGateway, gin.H{"message": "presence service unavailable"})
		return
	}

	if h.transport != nil {
		h.transport.SendHeartbeat(ws.Heartbeat{
			UserID:   body.UserID,
			Status:   body.Status,
			TTLMs:    body.TTLMs,
			Metadata: body.Metadata,
		})
	}

	metrics.IncHeartbeat(metrics.StatusSuccess)
	c.Data(nethttp.StatusOK, "application/json", raw)
}

type offlineBody struct {
	UserID string `json:"userId"`
}

func (h *PresenceHandler) Offline(c *gin.Context) {
	var body offlineBody
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if body.UserID == "" {
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "userId is required"})
		return
	}

	if err := h.client.MarkOffline(c.Request.Context(), body.UserID); err != nil {
		log.Printf("offline forward failed for %s: %v", body.UserID, err)
		observability.IncUpstreamError("offline")
		c.JSON(nethttp.StatusBadGateway, gin.H{"message": "presence service unavailable"})
		return
	}

	if h.transport != nil {
		h.transport.SendOffline(body.UserID)
	}

	c.Status(nethttp.StatusNoContent)
}

func (h *PresenceHandler) Status(c *gin.Context) {
	var userIDs []string
	for _, id := range strings.Split(c.Query("userIds"), ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			userIDs = append(userIDs, trimmed)
		}
	}
	if len(userIDs) == 0 {
		c.JSON(nethttp.StatusBadRequest, gin.H{"message": "userIds is required"})
		return
	}

	users, err := h.client.BulkStatus(c.Request.Context(), userIDs)
	if err != nil {
		if errors.Is(err, services.ErrEmptyUserIDs) {
			c.JSON(nethttp.StatusBadRequest, gin.H{"message": "userIds is required"})
			return
		}
		log.Printf("bulk status forward failed: %v", err)
		observability.IncUpstreamError("bulk_status")
		c.JSON(nethttp.StatusBadGateway, gin.H{"message": "presence service unavailable"})
		return
	}
	if users == nil {
		users = []models.PresenceRecord{}
	}

	c.JSON(nethttp.StatusOK, gin.H{"users": users})
}
