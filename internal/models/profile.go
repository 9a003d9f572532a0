package models

import "time"

// Profile is the public slice of a user document the friend list needs.
type Profile struct {
	UserID      string `db:"user_id" json:"userId"`
	Username    string `db:"username" json:"username"`
	DisplayName string `db:"display_name" json:"displayName"`
	AvatarURL   string `db:"avatar_url" json:"avatarUrl"`
	Goal33      string `db:"goal33" json:"goal33"`
}

// FriendEntry is one row of the materialized friend list: the friend's
// public profile plus their live status.
type FriendEntry struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl"`
	Goal33      string    `json:"goal33"`
	Status      string    `json:"status"`
	LastSeen    time.Time `json:"lastSeen"`
}
