package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cadence/collab-server/middleware"
	"cadence/collab-server/models"
	"cadence/collab-server/services"
	"cadence/collab-server/utils"
)

type ChatHandler struct {
	service *services.ChatService
	logger  *utils.Logger
}

func NewChatHandler(service *services.ChatService, logger *utils.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// CreateChannel handles POST /api/v1/channels
func (h *ChatHandler) CreateChannel(c *gin.Context) {
	var req models.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID := c.GetString(middleware.ContextUserID)

	channel, err := h.service.CreateChannel(c.Request.Context(), req.WorkspaceID, req.Name, userID)
	if err != nil {
		h.logger.Error("Failed to create channel", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create channel",
		})
		return
	}

	c.JSON(http.StatusCreated, channel)
}

// ListChannels handles GET /api/v1/channels?workspace_id=...
func (h *ChatHandler) ListChannels(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "workspace_id parameter is required",
		})
		return
	}

	channels, err := h.service.ListChannels(c.Request.Context(), workspaceID)
	if err != nil {
		h.logger.Error("Failed to list channels", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list channels",
		})
		return
	}

	c.JSON(http.StatusOK, channels)
}

// CreateMessage handles POST /api/v1/channels/:id/messages
func (h *ChatHandler) CreateMessage(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid channel ID",
		})
		return
	}

	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	userName := c.GetString(middleware.ContextUserName)

	message, err := h.service.CreateMessage(c.Request.Context(), channelID, userID, userName, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Channel not found",
			})
			return
		}
		h.logger.Error("Failed to create message", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create message",
		})
		return
	}

	c.JSON(http.StatusCreated, message)
}

// ListMessages handles GET /api/v1/channels/:id/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid channel ID",
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	messages, total, err := h.service.ListMessages(c.Request.Context(), channelID, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to fetch messages", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch messages",
		})
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	c.JSON(http.StatusOK, models.ListResponse[models.Message]{
		Data:       messages,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// AddReaction handles POST /api/v1/messages/:id/reactions
func (h *ChatHandler) AddReaction(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid message ID",
		})
		return
	}

	var req models.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID := c.GetString(middleware.ContextUserID)

	if err := h.service.AddReaction(c.Request.Context(), messageID, userID, req.Emoji); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Message not found",
			})
			return
		}
		h.logger.Error("Failed to add reaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to add reaction",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success"})
}

// RemoveReaction handles DELETE /api/v1/messages/:id/reactions
func (h *ChatHandler) RemoveReaction(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid message ID",
		})
		return
	}

	var req models.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID := c.GetString(middleware.ContextUserID)

	if err := h.service.RemoveReaction(c.Request.Context(), messageID, userID, req.Emoji); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Message not found",
			})
			return
		}
		h.logger.Error("Failed to remove reaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to remove reaction",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// MarkRead handles POST /api/v1/messages/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid message ID",
		})
		return
	}

	userID := c.GetString(middleware.ContextUserID)

	if err := h.service.MarkRead(c.Request.Context(), messageID, userID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Message not found",
			})
			return
		}
		h.logger.Error("Failed to mark message read", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to mark message read",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
