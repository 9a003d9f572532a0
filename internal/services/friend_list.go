package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sort"

	"presence-gateway/internal/models"
	"presence-gateway/internal/repositories"
)

// PresenceLookup resolves live status for a set of users. The default
// resolves nothing, leaving every entry offline; tests and callers that
// want live data inject one backed by PresenceClient.BulkStatus.
type PresenceLookup func(ctx context.Context, userIDs []string) (map[string]models.PresenceRecord, error)

// FriendListService materializes a user's friend list: stored friend
// IDs joined with public profiles and live status, sorted by status
// rank then most recent last-seen.
type FriendListService struct {
	friends  repositories.FriendRepository
	profiles repositories.UserRepository
	presence PresenceLookup
}

func NewFriendListService(friends repositories.FriendRepository, profiles repositories.UserRepository, presence PresenceLookup) *FriendListService {
	return &FriendListService{friends: friends, profiles: profiles, presence: presence}
}

// GatewayPresenceLookup adapts PresenceClient.BulkStatus to the lookup
// signature.
func GatewayPresenceLookup(client *PresenceClient) PresenceLookup {
	return func(ctx context.Context, userIDs []string) (map[string]models.PresenceRecord, error) {
		records, err := client.BulkStatus(ctx, userIDs)
		if err != nil {
			return nil, err
		}
		byUser := make(map[string]models.PresenceRecord, len(records))
		for _, rec := range records {
			byUser[rec.UserID] = rec
		}
		return byUser, nil
	}
}

func (s *FriendListService) List(ctx context.Context, userID string) ([]models.FriendEntry, error) {
	ids, err := s.friends.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	statuses := map[string]models.PresenceRecord{}
	if s.presence != nil && len(unique) > 0 {
		resolved, err := s.presence(ctx, unique)
		if err != nil {
			// Presence is decoration; the list still renders offline.
			log.Printf("warning: presence lookup failed: %v", err)
		} else {
			statuses = resolved
		}
	}

	entries := make([]models.FriendEntry, 0, len(unique))
	for _, id := range unique {
		profile, err := s.profiles.GetProfile(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}

		entry := models.FriendEntry{
			UserID:      profile.UserID,
			Username:    profile.Username,
			DisplayName: profile.DisplayName,
			AvatarURL:   profile.AvatarURL,
			Goal33:      profile.Goal33,
			Status:      models.StatusOffline,
		}
		if rec, ok := statuses[id]; ok && models.ValidStatus(rec.Status) {
			entry.Status = rec.Status
			entry.LastSeen = rec.LastSeen
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		ri, rj := models.StatusRank(entries[i].Status), models.StatusRank(entries[j].Status)
		if ri != rj {
			return ri < rj
		}
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})

	return entries, nil
}
