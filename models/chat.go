package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents a chat channel inside a workspace
type Channel struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	WorkspaceID string    `json:"workspace_id" gorm:"not null;index" binding:"required"`
	Name        string    `json:"name" gorm:"not null" binding:"required"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Channel) TableName() string {
	return "chat.channels"
}

// Message represents a chat message in a channel
type Message struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	ChannelID uuid.UUID `json:"channel_id" gorm:"type:uuid;not null;index"`
	UserID    string    `json:"user_id" gorm:"not null"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Channel   Channel           `json:"channel,omitempty" gorm:"foreignKey:ChannelID"`
	Reactions []MessageReaction `json:"reactions,omitempty" gorm:"foreignKey:MessageID"`
}

func (Message) TableName() string {
	return "chat.messages"
}

// MessageReaction represents an emoji reaction on a message
type MessageReaction struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	MessageID uuid.UUID `json:"message_id" gorm:"type:uuid;not null;uniqueIndex:idx_reaction_once"`
	UserID    string    `json:"user_id" gorm:"not null;uniqueIndex:idx_reaction_once"`
	Emoji     string    `json:"emoji" gorm:"not null;uniqueIndex:idx_reaction_once"`
	CreatedAt time.Time `json:"created_at"`
}

func (MessageReaction) TableName() string {
	return "chat.message_reactions"
}

// ReadReceipt marks a message as read by a user
type ReadReceipt struct {
	MessageID uuid.UUID `json:"message_id" gorm:"type:uuid;primary_key"`
	UserID    string    `json:"user_id" gorm:"primary_key"`
	ReadAt    time.Time `json:"read_at"`
}

func (ReadReceipt) TableName() string {
	return "chat.read_receipts"
}

// Request/Response DTOs
type CreateChannelRequest struct {
	WorkspaceID string `json:"workspace_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
}

type CreateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

type ListResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}
