package models

import "time"

// UserStatus is the last-seen record kept per user in Redis
type UserStatus struct {
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	WorkspaceID string    `json:"workspace_id"`
	Status      string    `json:"status"` // online, offline
	LastSeen    time.Time `json:"last_seen"`
}

type StatusResponse struct {
	UserID   string    `json:"user_id"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
	IsOnline bool      `json:"is_online"`
}

type OnlineUsersResponse struct {
	WorkspaceID string       `json:"workspace_id"`
	Count       int          `json:"count"`
	Users       []UserStatus `json:"users"`
}
