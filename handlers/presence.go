package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cadence/collab-server/models"
	"cadence/collab-server/realtime"
	"cadence/collab-server/services"
	"cadence/collab-server/utils"
)

type PresenceHandler struct {
	lastSeen *services.LastSeenStore
	presence *realtime.PresenceTracker
	logger   *utils.Logger
}

func NewPresenceHandler(lastSeen *services.LastSeenStore, presence *realtime.PresenceTracker, logger *utils.Logger) *PresenceHandler {
	return &PresenceHandler{
		lastSeen: lastSeen,
		presence: presence,
		logger:   logger,
	}
}

// GetStatus handles GET /api/v1/presence/status?user_id=...
func (h *PresenceHandler) GetStatus(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id parameter is required",
		})
		return
	}

	status, err := h.lastSeen.GetStatus(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	// The live registry is authoritative for "online right now"
	c.JSON(http.StatusOK, models.StatusResponse{
		UserID:   userID,
		Status:   status.Status,
		LastSeen: status.LastSeen,
		IsOnline: h.presence.IsOnline(userID),
	})
}

// GetWorkspaceOnline handles GET /api/v1/workspaces/:id/presence
func (h *PresenceHandler) GetWorkspaceOnline(c *gin.Context) {
	workspaceID := c.Param("id")

	users, err := h.lastSeen.GetOnlineUsers(c.Request.Context(), workspaceID)
	if err != nil {
		h.logger.Error("Failed to get online users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, models.OnlineUsersResponse{
		WorkspaceID: workspaceID,
		Count:       len(users),
		Users:       users,
	})
}
