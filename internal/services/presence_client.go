package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"presence-gateway/internal/models"
)

var (
	// ErrNotConfigured means the presence service base URL is missing.
	// This is a deployment problem, not a per-request one.
	ErrNotConfigured = errors.New("presence service base URL is not configured")

	// ErrInviteNotFound maps the upstream 404 on invite status updates.
	ErrInviteNotFound = errors.New("invite not found")

	ErrEmptyUserIDs = errors.New("userIds must not be empty")
)

// UpstreamError carries a non-2xx response from the presence service.
// Handlers log it and reply with a generic 502; the body never reaches
// the client.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("presence service returned status %d: %s", e.StatusCode, e.Body)
}

// PresenceClient forwards calls to the external presence service.
type PresenceClient struct {
	client  *http.Client
	baseURL string
	secret  string
}

func NewPresenceClient(baseURL, secret string) (*PresenceClient, error) {
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	return &PresenceClient{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
	}, nil
}

func (c *PresenceClient) forward(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		req.Header.Set("x-presence-secret", c.secret)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// HeartbeatInput mirrors the heartbeat wire shape. TTLMs and Metadata
// are optional; the presence service applies its own defaults.
type HeartbeatInput struct {
	UserID   string         `json:"userId"`
	Status   string         `json:"status,omitempty"`
	TTLMs    int64          `json:"ttlMs,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Heartbeat refreshes a user's presence TTL. The upstream response is
// returned verbatim so handlers can pass it through.
func (c *PresenceClient) Heartbeat(ctx context.Context, in HeartbeatInput) (json.RawMessage, error) {
	return c.forward(ctx, http.MethodPost, "/presence/heartbeat", in)
}

func (c *PresenceClient) MarkOffline(ctx context.Context, userID string) error {
	_, err := c.forward(ctx, http.MethodPost, "/presence/offline", map[string]string{"userId": userID})
	return err
}

// BulkStatus fetches presence records for the given users. Users with
// no record upstream simply do not appear in the result.
func (c *PresenceClient) BulkStatus(ctx context.Context, userIDs []string) ([]models.PresenceRecord, error) {
	if len(userIDs) == 0 {
		return nil, ErrEmptyUserIDs
	}

	query := url.Values{}
	query.Set("userIds", strings.Join(userIDs, ","))
	data, err := c.forward(ctx, http.MethodGet, "/presence?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Users []models.PresenceRecord `json:"users"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// InviteInput carries both sides' public profile fields so the invite
// record is self-contained for rendering.
type InviteInput struct {
	FromUserID      string  `json:"fromUserId"`
	FromDisplayName string  `json:"fromDisplayName"`
	FromAvatar      *string `json:"fromAvatar,omitempty"`
	FromGoal33      *string `json:"fromGoal33,omitempty"`
	ToUserID        string  `json:"toUserId"`
	ToDisplayName   string  `json:"toDisplayName"`
	ToAvatar        *string `json:"toAvatar,omitempty"`
	ToGoal33        *string `json:"toGoal33,omitempty"`
}

func (c *PresenceClient) SendInvite(ctx context.Context, in InviteInput) (*models.FriendInvite, error) {
	data, err := c.forward(ctx, http.MethodPost, "/friends/invite", in)
	if err != nil {
		return nil, err
	}

	var invite models.FriendInvite
	if err := json.Unmarshal(data, &invite); err != nil {
		return nil, err
	}
	return &invite, nil
}

func (c *PresenceClient) ListInvites(ctx context.Context, userID, direction, status string) ([]models.FriendInvite, error) {
	if direction == "" {
		direction = models.DirectionOutgoing
	}
	if status == "" {
		status = models.InviteStatusPending
	}

	query := url.Values{}
	query.Set("userId", userID)
	query.Set("direction", direction)
	query.Set("status", status)
	data, err := c.forward(ctx, http.MethodGet, "/friends/invites?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Invites []models.FriendInvite `json:"invites"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Invites, nil
}

// UpdateInviteStatus resolves a pending invite. The upstream service
// owns the state machine; a 404 covers both unknown IDs and invites
// already resolved.
func (c *PresenceClient) UpdateInviteStatus(ctx context.Context, inviteID, status, actorUserID string) (*models.FriendInvite, error) {
	body := map[string]string{"status": status, "actorUserId": actorUserID}
	data, err := c.forward(ctx, http.MethodPost, "/friends/invite/"+url.PathEscape(inviteID)+"/status", body)
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}

	var invite models.FriendInvite
	if err := json.Unmarshal(data, &invite); err != nil {
		return nil, err
	}
	return &invite, nil
}
