package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cadence/collab-server/middleware"
	"cadence/collab-server/realtime"
	"cadence/collab-server/utils"
)

// WSHandler upgrades authenticated requests into realtime sessions.
type WSHandler struct {
	upgrader websocket.Upgrader
	deps     realtime.SessionDeps
	logger   *utils.Logger
}

func NewWSHandler(allowedOrigin string, deps realtime.SessionDeps, logger *utils.Logger) *WSHandler {
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		deps:   deps,
		logger: logger,
	}
}

// Chat handles GET /ws/chat: the full chat endpoint with client-invoked
// operations (join/leave channel, typing indicators).
func (h *WSHandler) Chat(c *gin.Context) {
	h.serve(c, true)
}

// Workspace handles GET /ws/workspace: broadcast-only membership for
// meeting and workspace-level events; inbound frames are ignored.
func (h *WSHandler) Workspace(c *gin.Context) {
	h.serve(c, false)
}

func (h *WSHandler) serve(c *gin.Context, interactive bool) {
	// The auth middleware rejects unauthenticated requests before this
	// point; an empty userID here means misconfigured routing.
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthenticated"})
		return
	}
	userName := c.GetString(middleware.ContextUserName)

	// A missing workspace_id keeps the connection open but presence-less.
	workspaceID := c.Query("workspace_id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	user := realtime.UserPayload{UserID: userID, UserName: userName}
	session := realtime.NewSession(conn, user, workspaceID, interactive, h.deps)

	h.logger.Info("Websocket connected",
		"conn_id", session.ConnID, "user_id", userID, "workspace_id", workspaceID)

	session.Run(c.Request.Context())

	h.logger.Info("Websocket disconnected", "conn_id", session.ConnID, "user_id", userID)
}
