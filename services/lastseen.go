package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cadence/collab-server/models"
	"cadence/collab-server/utils"
)

const (
	lastSeenKeyPrefix  = "lastseen:"
	onlineSetKeyPrefix = "online:"

	// Offline records are kept around long enough for "last seen" queries
	// to stay useful.
	offlineRecordTTL = 30 * 24 * time.Hour
)

// LastSeenStore keeps per-user presence status and last-seen timestamps in
// Redis. It is written on online/offline transitions (it implements
// realtime.StatusRecorder) and read by the presence REST endpoints. The live
// connection registry stays authoritative for "is online right now"; this
// store is the durable shadow of it.
type LastSeenStore struct {
	redis  *redis.Client
	logger *utils.Logger
	ttl    time.Duration
}

func NewLastSeenStore(redisClient *redis.Client, logger *utils.Logger, ttl time.Duration) *LastSeenStore {
	return &LastSeenStore{
		redis:  redisClient,
		logger: logger,
		ttl:    ttl,
	}
}

// RecordOnline stores an online record and adds the user to the workspace
// online set. The record carries a TTL so a crashed server cannot leave
// users marked online forever; the realtime layer refreshes it on the next
// transition.
func (s *LastSeenStore) RecordOnline(ctx context.Context, userID, userName, workspaceID string) error {
	status := models.UserStatus{
		UserID:      userID,
		UserName:    userName,
		WorkspaceID: workspaceID,
		Status:      "online",
		LastSeen:    time.Now(),
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, lastSeenKeyPrefix+userID, data, s.ttl)
	pipe.SAdd(ctx, onlineSetKeyPrefix+workspaceID, userID)
	pipe.Expire(ctx, onlineSetKeyPrefix+workspaceID, s.ttl*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record online status: %w", err)
	}
	return nil
}

// RecordOffline overwrites the record with an offline status and removes the
// user from the workspace online set.
func (s *LastSeenStore) RecordOffline(ctx context.Context, userID, workspaceID string) error {
	status := models.UserStatus{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Status:      "offline",
		LastSeen:    time.Now(),
	}

	// Preserve the display name from the previous record if we have one.
	if prev, err := s.GetStatus(ctx, userID); err == nil && prev != nil {
		status.UserName = prev.UserName
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, lastSeenKeyPrefix+userID, data, offlineRecordTTL)
	pipe.SRem(ctx, onlineSetKeyPrefix+workspaceID, userID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record offline status: %w", err)
	}
	return nil
}

// GetStatus returns the stored presence record for a user. A missing or
// expired record reads as offline.
func (s *LastSeenStore) GetStatus(ctx context.Context, userID string) (*models.UserStatus, error) {
	data, err := s.redis.Get(ctx, lastSeenKeyPrefix+userID).Result()
	if err != nil {
		if err == redis.Nil {
			return &models.UserStatus{
				UserID: userID,
				Status: "offline",
			}, nil
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	var status models.UserStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &status, nil
}

// GetOnlineUsers returns the presence records of users currently marked
// online in the workspace, pruning members whose records have expired.
func (s *LastSeenStore) GetOnlineUsers(ctx context.Context, workspaceID string) ([]models.UserStatus, error) {
	setKey := onlineSetKeyPrefix + workspaceID
	userIDs, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get online users: %w", err)
	}

	if len(userIDs) == 0 {
		return []models.UserStatus{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(userIDs))
	for i, userID := range userIDs {
		cmds[i] = pipe.Get(ctx, lastSeenKeyPrefix+userID)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get status records: %w", err)
	}

	online := make([]models.UserStatus, 0, len(userIDs))
	var expired []interface{}

	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			if err == redis.Nil {
				expired = append(expired, userIDs[i])
				continue
			}
			s.logger.Warn("Failed to read status record", "user_id", userIDs[i], "error", err)
			continue
		}

		var status models.UserStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			s.logger.Warn("Failed to unmarshal status record", "user_id", userIDs[i], "error", err)
			continue
		}
		if status.Status == "online" {
			online = append(online, status)
		} else {
			expired = append(expired, userIDs[i])
		}
	}

	// Clean up the online set: drop members with expired or offline records
	if len(expired) > 0 {
		s.redis.SRem(ctx, setKey, expired...)
	}

	return online, nil
}
