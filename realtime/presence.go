package realtime

import (
	"context"

	"cadence/collab-server/utils"
)

// StatusRecorder receives presence transitions for out-of-band recording,
// such as a last-seen store. Recorder failures are logged and swallowed;
// presence events are emitted regardless.
type StatusRecorder interface {
	RecordOnline(ctx context.Context, userID, userName, workspaceID string) error
	RecordOffline(ctx context.Context, userID, workspaceID string) error
}

// PresenceTracker derives online/offline transitions from connection
// lifecycle. A user's observable state moves Offline→Online on their first
// connection and Online→Offline when their last connection drops; connection
// churn in between produces no events, so a second tab opening or closing is
// invisible to the workspace.
type PresenceTracker struct {
	registry *ConnectionRegistry
	notifier EventNotifier
	recorder StatusRecorder
	logger   *utils.Logger
	metrics  *Metrics
}

// NewPresenceTracker wires the tracker. recorder may be nil.
func NewPresenceTracker(registry *ConnectionRegistry, notifier EventNotifier, recorder StatusRecorder, logger *utils.Logger, metrics *Metrics) *PresenceTracker {
	return &PresenceTracker{
		registry: registry,
		notifier: notifier,
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
	}
}

// ConnectionOpened registers the connection and, if it is the user's first,
// announces user:online to the workspace group. The first/last decision is
// made atomically inside the registry, so concurrent connects for the same
// user produce exactly one online event.
func (t *PresenceTracker) ConnectionOpened(ctx context.Context, user UserPayload, workspaceID, connID string) {
	first := t.registry.Register(user.UserID, workspaceID, connID)
	if !first {
		return
	}

	t.metrics.OnlineUsers.Inc()
	t.logger.Info("User online", "user_id", user.UserID, "workspace_id", workspaceID)
	t.notifier.NotifyUserOnline(workspaceID, user)

	if t.recorder != nil {
		if err := t.recorder.RecordOnline(ctx, user.UserID, user.UserName, workspaceID); err != nil {
			t.logger.Warn("Failed to record online status", "user_id", user.UserID, "error", err)
		}
	}
}

// ConnectionClosed unregisters the connection and, if it was the user's
// last, announces user:offline. Duplicate disconnect signals are no-ops.
func (t *PresenceTracker) ConnectionClosed(ctx context.Context, user UserPayload, workspaceID, connID string) {
	last := t.registry.Unregister(user.UserID, connID)
	if !last {
		return
	}

	t.metrics.OnlineUsers.Dec()
	t.logger.Info("User offline", "user_id", user.UserID, "workspace_id", workspaceID)
	t.notifier.NotifyUserOffline(workspaceID, user)

	if t.recorder != nil {
		if err := t.recorder.RecordOffline(ctx, user.UserID, workspaceID); err != nil {
			t.logger.Warn("Failed to record offline status", "user_id", user.UserID, "error", err)
		}
	}
}

// IsOnline reports whether the user currently has any live connection.
func (t *PresenceTracker) IsOnline(userID string) bool {
	return t.registry.IsOnline(userID)
}
