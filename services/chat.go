package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cadence/collab-server/models"
	"cadence/collab-server/realtime"
	"cadence/collab-server/utils"
)

// ErrNotFound is returned when a referenced channel or message does not exist.
var ErrNotFound = errors.New("not found")

// ChatService owns chat persistence. After each successful commit it calls
// exactly one notifier method so live connections see the change; it never
// touches transport connections itself.
type ChatService struct {
	db       *gorm.DB
	notifier realtime.EventNotifier
	logger   *utils.Logger
}

func NewChatService(database *gorm.DB, notifier realtime.EventNotifier, logger *utils.Logger) *ChatService {
	return &ChatService{
		db:       database,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateChannel creates a channel in a workspace.
func (s *ChatService) CreateChannel(ctx context.Context, workspaceID, name, createdBy string) (*models.Channel, error) {
	channel := models.Channel{
		WorkspaceID: workspaceID,
		Name:        name,
		CreatedBy:   createdBy,
	}
	if err := s.db.WithContext(ctx).Create(&channel).Error; err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	s.logger.Info("Channel created", "id", channel.ID, "workspace_id", workspaceID, "name", name)
	return &channel, nil
}

// ListChannels returns the channels of a workspace.
func (s *ChatService) ListChannels(ctx context.Context, workspaceID string) ([]models.Channel, error) {
	var channels []models.Channel
	err := s.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// IsChannelInWorkspace reports whether the channel belongs to the workspace.
// Consumed by the realtime session to authorize channel joins.
func (s *ChatService) IsChannelInWorkspace(ctx context.Context, channelID, workspaceID string) bool {
	id, err := uuid.Parse(channelID)
	if err != nil {
		return false
	}
	var count int64
	err = s.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		Count(&count).Error
	if err != nil {
		s.logger.Error("Channel workspace check failed", "channel_id", channelID, "error", err)
		return false
	}
	return count > 0
}

// CreateMessage persists a message and notifies the channel group.
func (s *ChatService) CreateMessage(ctx context.Context, channelID uuid.UUID, userID, userName, content string) (*models.Message, error) {
	var channel models.Channel
	if err := s.db.WithContext(ctx).First(&channel, "id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}

	message := models.Message{
		ChannelID: channelID,
		UserID:    userID,
		UserName:  userName,
		Content:   content,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.notifier.NotifyMessage(channelID.String(), realtime.MessagePayload{
		MessageID: message.ID.String(),
		ChannelID: channelID.String(),
		UserID:    userID,
		UserName:  userName,
		Content:   content,
		CreatedAt: message.CreatedAt,
	})
	return &message, nil
}

// ListMessages returns a page of messages for a channel, newest first.
func (s *ChatService) ListMessages(ctx context.Context, channelID uuid.UUID, page, pageSize int) ([]models.Message, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Message{}).Where("channel_id = ?", channelID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []models.Message
	offset := (page - 1) * pageSize
	err := query.Preload("Reactions").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, total, nil
}

// AddReaction persists a reaction and notifies the channel group. Reacting
// twice with the same emoji is idempotent.
func (s *ChatService) AddReaction(ctx context.Context, messageID uuid.UUID, userID, emoji string) error {
	message, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return err
	}

	reaction := models.MessageReaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&reaction).Error
	if err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}

	s.notifier.NotifyReactionAdded(message.ChannelID.String(), realtime.ReactionPayload{
		MessageID: messageID.String(),
		ChannelID: message.ChannelID.String(),
		UserID:    userID,
		Emoji:     emoji,
	})
	return nil
}

// RemoveReaction deletes a reaction and notifies the channel group.
func (s *ChatService) RemoveReaction(ctx context.Context, messageID uuid.UUID, userID, emoji string) error {
	message, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&models.MessageReaction{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}

	s.notifier.NotifyReactionRemoved(message.ChannelID.String(), realtime.ReactionPayload{
		MessageID: messageID.String(),
		ChannelID: message.ChannelID.String(),
		UserID:    userID,
		Emoji:     emoji,
	})
	return nil
}

// MarkRead upserts a read receipt and notifies the channel group.
func (s *ChatService) MarkRead(ctx context.Context, messageID uuid.UUID, userID string) error {
	message, err := s.loadMessage(ctx, messageID)
	if err != nil {
		return err
	}

	receipt := models.ReadReceipt{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    time.Now(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"read_at"}),
		}).
		Create(&receipt).Error
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}

	s.notifier.NotifyReadReceipt(message.ChannelID.String(), realtime.ReadReceiptPayload{
		MessageID: messageID.String(),
		ChannelID: message.ChannelID.String(),
		UserID:    userID,
		ReadAt:    receipt.ReadAt,
	})
	return nil
}

func (s *ChatService) loadMessage(ctx context.Context, messageID uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := s.db.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return &message, nil
}
