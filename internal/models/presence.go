package models

import "time"

// Presence statuses as stored by the presence service. Offline is
// synthesized when no record exists; it is never stored upstream.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

type PresenceRecord struct {
	UserID   string         `json:"userId"`
	Status   string         `json:"status"`
	LastSeen time.Time      `json:"lastSeen"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StatusRank orders statuses for friend-list sorting: online first,
// offline last. Unknown statuses sort after offline.
func StatusRank(status string) int {
	switch status {
	case StatusOnline:
		return 0
	case StatusAway:
		return 1
	case StatusBusy:
		return 2
	case StatusOffline:
		return 3
	}
	return 4
}

func ValidStatus(status string) bool {
	switch status {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}
