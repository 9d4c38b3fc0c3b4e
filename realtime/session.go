package realtime

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cadence/collab-server/utils"
)

// Session lifecycle states.
const (
	stateConnecting int32 = iota
	stateActive
	stateClosed
)

// ChannelDirectory is consumed from the domain layer to check that a channel
// belongs to the caller's workspace before a join is honored. The core holds
// no persistence knowledge of its own.
type ChannelDirectory interface {
	IsChannelInWorkspace(ctx context.Context, channelID, workspaceID string) bool
}

// command is the inbound frame for client-invoked operations.
type command struct {
	Action    string `json:"action"`
	ChannelID string `json:"channel_id"`
}

const (
	actionJoinChannel  = "join_channel"
	actionLeaveChannel = "leave_channel"
	actionTyping       = "typing"
	actionStopTyping   = "stop_typing"
)

// Session is the per-connection lifecycle wrapper: it registers the
// connection on activation, dispatches client-invoked operations, and tears
// everything down exactly once on close, no matter how or when the
// disconnect arrives.
type Session struct {
	ConnID string

	user        UserPayload
	workspaceID string
	interactive bool

	state atomic.Int32

	conn     Conn
	hub      *Hub
	groups   *GroupMembership
	presence *PresenceTracker
	notifier EventNotifier
	channels ChannelDirectory
	logger   *utils.Logger
}

// SessionDeps bundles the shared realtime services a session operates on.
type SessionDeps struct {
	Hub      *Hub
	Groups   *GroupMembership
	Presence *PresenceTracker
	Notifier EventNotifier
	Channels ChannelDirectory
	Logger   *utils.Logger
}

// NewSession creates a session for an authenticated connection. workspaceID
// may be empty: the connection stays open but is never registered in any
// group (a presence-less connection). interactive sessions accept client
// commands; broadcast-only sessions ignore inbound frames.
func NewSession(conn Conn, user UserPayload, workspaceID string, interactive bool, deps SessionDeps) *Session {
	return &Session{
		ConnID:      uuid.NewString(),
		user:        user,
		workspaceID: workspaceID,
		interactive: interactive,
		conn:        conn,
		hub:         deps.Hub,
		groups:      deps.Groups,
		presence:    deps.Presence,
		notifier:    deps.Notifier,
		channels:    deps.Channels,
		logger:      deps.Logger,
	}
}

// Run drives the session to completion: activation, the read loop, then
// teardown. It returns when the connection is gone.
func (s *Session) Run(ctx context.Context) {
	s.activate(ctx)
	s.readLoop(ctx)
	s.Close()
}

func (s *Session) activate(ctx context.Context) {
	if !s.state.CompareAndSwap(stateConnecting, stateActive) {
		return
	}

	s.hub.Attach(s.ConnID, s.conn)

	if s.workspaceID == "" {
		s.logger.Warn("Connection without workspace scope, presence skipped",
			"conn_id", s.ConnID, "user_id", s.user.UserID)
		return
	}

	s.groups.Join(s.ConnID, WorkspaceGroup(s.workspaceID))
	s.presence.ConnectionOpened(ctx, s.user, s.workspaceID, s.ConnID)

	// Close may have raced activation; if so, undo the registration it
	// could not have seen.
	if s.state.Load() == stateClosed {
		s.groups.LeaveAll(s.ConnID)
		s.presence.ConnectionClosed(ctx, s.user, s.workspaceID, s.ConnID)
		s.hub.Detach(s.ConnID)
		return
	}

	s.logger.Debug("Session active",
		"conn_id", s.ConnID, "user_id", s.user.UserID, "workspace_id", s.workspaceID)
}

// Close tears the session down. Idempotent; safe to call concurrently with
// in-flight client operations on the same connection.
func (s *Session) Close() {
	prev := s.state.Swap(stateClosed)
	if prev == stateClosed {
		return
	}

	s.groups.LeaveAll(s.ConnID)
	if prev == stateActive && s.workspaceID != "" {
		s.presence.ConnectionClosed(context.Background(), s.user, s.workspaceID, s.ConnID)
	}
	s.hub.Detach(s.ConnID)
	s.logger.Debug("Session closed", "conn_id", s.ConnID, "user_id", s.user.UserID)
}

func (s *Session) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if !s.interactive {
			continue
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.logger.Debug("Ignoring malformed client frame", "conn_id", s.ConnID, "error", err)
			continue
		}
		s.dispatch(ctx, cmd)
	}
}

func (s *Session) dispatch(ctx context.Context, cmd command) {
	if cmd.ChannelID == "" {
		return
	}
	switch cmd.Action {
	case actionJoinChannel:
		s.JoinChannel(ctx, cmd.ChannelID)
	case actionLeaveChannel:
		s.LeaveChannel(cmd.ChannelID)
	case actionTyping:
		s.Typing(cmd.ChannelID)
	case actionStopTyping:
		s.StopTyping(cmd.ChannelID)
	default:
		s.logger.Debug("Unknown client action", "conn_id", s.ConnID, "action", cmd.Action)
	}
}

// JoinChannel subscribes the connection to a channel group after checking
// the channel belongs to the session's workspace.
func (s *Session) JoinChannel(ctx context.Context, channelID string) {
	if s.state.Load() != stateActive || s.workspaceID == "" {
		return
	}
	if s.channels != nil && !s.channels.IsChannelInWorkspace(ctx, channelID, s.workspaceID) {
		s.logger.Warn("Rejected channel join outside workspace",
			"conn_id", s.ConnID, "channel_id", channelID, "workspace_id", s.workspaceID)
		return
	}

	s.groups.Join(s.ConnID, ChannelGroup(channelID))

	// A disconnect may have raced the join; re-check so no membership can
	// outlive the connection.
	if s.state.Load() == stateClosed {
		s.groups.Leave(s.ConnID, ChannelGroup(channelID))
	}
}

// LeaveChannel unsubscribes the connection from a channel group.
func (s *Session) LeaveChannel(channelID string) {
	s.groups.Leave(s.ConnID, ChannelGroup(channelID))
}

// Typing announces a typing indicator to the channel, excluding the
// session's own connection.
func (s *Session) Typing(channelID string) {
	if s.state.Load() != stateActive {
		return
	}
	s.notifier.NotifyTyping(channelID, s.user, s.ConnID)
}

// StopTyping clears the typing indicator, excluding the session's own
// connection.
func (s *Session) StopTyping(channelID string) {
	if s.state.Load() != stateActive {
		return
	}
	s.notifier.NotifyStopTyping(channelID, s.user, s.ConnID)
}
