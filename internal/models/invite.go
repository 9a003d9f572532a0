package models

import "time"

// Invite statuses. Pending is the only non-terminal state; the upstream
// service rejects any transition out of accepted or declined.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// Invite list directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
	DirectionAll      = "all"
)

type FriendInvite struct {
	ID              string    `json:"id"`
	FromUserID      string    `json:"fromUserId"`
	FromDisplayName string    `json:"fromDisplayName"`
	FromAvatar      *string   `json:"fromAvatar"`
	FromGoal33      *string   `json:"fromGoal33"`
	ToUserID        string    `json:"toUserId"`
	ToDisplayName   string    `json:"toDisplayName"`
	ToAvatar        *string   `json:"toAvatar"`
	ToGoal33        *string   `json:"toGoal33"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

func ValidInviteStatus(status string) bool {
	switch status {
	case InviteStatusPending, InviteStatusAccepted, InviteStatusDeclined:
		return true
	}
	return false
}

func ValidDirection(direction string) bool {
	switch direction {
	case DirectionIncoming, DirectionOutgoing, DirectionAll:
		return true
	}
	return false
}
