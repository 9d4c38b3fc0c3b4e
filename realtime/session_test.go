package realtime

import (
	"context"
	"sync"
	"testing"
	"time"
)

type allowAllChannels struct{}

func (allowAllChannels) IsChannelInWorkspace(ctx context.Context, channelID, workspaceID string) bool {
	return true
}

type denyAllChannels struct{}

func (denyAllChannels) IsChannelInWorkspace(ctx context.Context, channelID, workspaceID string) bool {
	return false
}

func newSessionDeps(channels ChannelDirectory) (SessionDeps, EventNotifier) {
	logger := testLogger()
	metrics := NewMetrics(nil)
	hub := NewHub(256, logger, metrics)
	groups := NewGroupMembership()
	broadcaster := NewBroadcaster(hub, groups, logger, metrics)
	notifier := NewNotifier(broadcaster)
	presence := NewPresenceTracker(NewConnectionRegistry(), notifier, nil, logger, metrics)

	return SessionDeps{
		Hub:      hub,
		Groups:   groups,
		Presence: presence,
		Notifier: notifier,
		Channels: channels,
		Logger:   logger,
	}, notifier
}

// startSession runs a session against an in-memory connection and waits for
// it to become active.
func startSession(t *testing.T, deps SessionDeps, user UserPayload, workspaceID string) (*Session, *fakeConn, chan struct{}) {
	t.Helper()
	conn := newFakeConn()
	session := NewSession(conn, user, workspaceID, true, deps)

	done := make(chan struct{})
	go func() {
		session.Run(context.Background())
		close(done)
	}()

	if workspaceID != "" {
		waitFor(t, func() bool {
			return containsConn(deps.Groups.MembersOf(WorkspaceGroup(workspaceID)), session.ConnID)
		}, "session activation")
	} else {
		time.Sleep(20 * time.Millisecond)
	}
	return session, conn, done
}

func containsConn(members []string, connID string) bool {
	for _, m := range members {
		if m == connID {
			return true
		}
	}
	return false
}

func TestSession_PresenceScenario(t *testing.T) {
	ctx := context.Background()
	deps, notifier := newSessionDeps(allowAllChannels{})

	// Observer in the workspace sees alice's presence transitions
	_, observerConn, observerDone := startSession(t, deps, UserPayload{UserID: "bob", UserName: "Bob"}, "w1")

	alice := UserPayload{UserID: "alice", UserName: "Alice"}

	// First connection: one online event reaches the workspace group
	sessA1, connA1, doneA1 := startSession(t, deps, alice, "w1")
	waitFor(t, func() bool { return observerConn.countEvent(t, EventUserOnline) == 2 },
		"observer sees alice online")

	envs := observerConn.envelopes(t)
	last := envs[len(envs)-1]
	if payload := last.Payload.(map[string]interface{}); payload["user_id"] != "alice" {
		t.Errorf("expected online payload for alice, got %v", last.Payload)
	}

	// Second connection: no additional online event
	sessA2, connA2, doneA2 := startSession(t, deps, alice, "w1")
	time.Sleep(30 * time.Millisecond)
	if got := observerConn.countEvent(t, EventUserOnline); got != 2 {
		t.Errorf("expected no online event for alice's second connection, got %d total", got)
	}

	// Both of alice's connections join a channel; a message published there
	// reaches both, but not the observer
	sessA1.JoinChannel(ctx, "c1")
	sessA2.JoinChannel(ctx, "c1")

	notifier.NotifyMessage("c1", MessagePayload{ChannelID: "c1", UserID: "bob", Content: "hi"})

	waitFor(t, func() bool { return connA1.countEvent(t, EventMessageNew) == 1 }, "message on conn A1")
	waitFor(t, func() bool { return connA2.countEvent(t, EventMessageNew) == 1 }, "message on conn A2")
	if got := observerConn.countEvent(t, EventMessageNew); got != 0 {
		t.Errorf("observer outside the channel received %d messages", got)
	}

	// Both connections close: exactly one offline event
	connA1.disconnect()
	<-doneA1
	time.Sleep(30 * time.Millisecond)
	if got := observerConn.countEvent(t, EventUserOffline); got != 0 {
		t.Errorf("expected no offline event while alice has a connection, got %d", got)
	}

	connA2.disconnect()
	<-doneA2
	waitFor(t, func() bool { return observerConn.countEvent(t, EventUserOffline) == 1 },
		"observer sees alice offline")

	observerConn.disconnect()
	<-observerDone
}

func TestSession_TypingExcludesSender(t *testing.T) {
	ctx := context.Background()
	deps, _ := newSessionDeps(allowAllChannels{})

	sessA, connA, _ := startSession(t, deps, UserPayload{UserID: "alice"}, "w1")
	sessB, connB, _ := startSession(t, deps, UserPayload{UserID: "bob"}, "w1")

	sessA.JoinChannel(ctx, "c1")
	sessB.JoinChannel(ctx, "c1")

	sessA.Typing("c1")

	waitFor(t, func() bool { return connB.countEvent(t, EventUserTyping) == 1 }, "typing reaches bob")
	time.Sleep(30 * time.Millisecond)
	if got := connA.countEvent(t, EventUserTyping); got != 0 {
		t.Errorf("sender received its own typing indicator %d times", got)
	}
}

func TestSession_CommandsOverWire(t *testing.T) {
	deps, _ := newSessionDeps(allowAllChannels{})

	sess, conn, _ := startSession(t, deps, UserPayload{UserID: "alice"}, "w1")
	_, otherConn, _ := startSession(t, deps, UserPayload{UserID: "bob"}, "w1")

	// Join via a client frame
	conn.inbox <- []byte(`{"action":"join_channel","channel_id":"c9"}`)
	waitFor(t, func() bool {
		return containsConn(deps.Groups.MembersOf(ChannelGroup("c9")), sess.ConnID)
	}, "join via wire command")

	// Other session joins the same channel and sees alice typing
	otherConn.inbox <- []byte(`{"action":"join_channel","channel_id":"c9"}`)
	waitFor(t, func() bool { return len(deps.Groups.MembersOf(ChannelGroup("c9"))) == 2 }, "both joined")

	conn.inbox <- []byte(`{"action":"typing","channel_id":"c9"}`)
	waitFor(t, func() bool { return otherConn.countEvent(t, EventUserTyping) == 1 }, "typing via wire command")

	// Malformed and unknown frames are ignored without killing the session
	conn.inbox <- []byte(`not json`)
	conn.inbox <- []byte(`{"action":"fly","channel_id":"c9"}`)
	time.Sleep(20 * time.Millisecond)
	if !deps.Presence.IsOnline("alice") {
		t.Error("session must survive malformed frames")
	}
}

func TestSession_BroadcastOnlyIgnoresCommands(t *testing.T) {
	deps, _ := newSessionDeps(allowAllChannels{})

	conn := newFakeConn()
	session := NewSession(conn, UserPayload{UserID: "alice"}, "w1", false, deps)
	go session.Run(context.Background())

	waitFor(t, func() bool {
		return containsConn(deps.Groups.MembersOf(WorkspaceGroup("w1")), session.ConnID)
	}, "broadcast-only session activation")

	conn.inbox <- []byte(`{"action":"join_channel","channel_id":"c1"}`)
	time.Sleep(30 * time.Millisecond)

	if len(deps.Groups.MembersOf(ChannelGroup("c1"))) != 0 {
		t.Error("broadcast-only session must not honor client commands")
	}
}

func TestSession_ChannelJoinOutsideWorkspaceRejected(t *testing.T) {
	ctx := context.Background()
	deps, _ := newSessionDeps(denyAllChannels{})

	sess, _, _ := startSession(t, deps, UserPayload{UserID: "alice"}, "w1")
	sess.JoinChannel(ctx, "c1")

	if len(deps.Groups.MembersOf(ChannelGroup("c1"))) != 0 {
		t.Error("join must be rejected when the channel is outside the workspace")
	}
}

func TestSession_MissingWorkspaceSkipsPresence(t *testing.T) {
	deps, _ := newSessionDeps(allowAllChannels{})

	_, conn, done := startSession(t, deps, UserPayload{UserID: "alice"}, "")

	if deps.Presence.IsOnline("alice") {
		t.Error("presence-less connection must not register the user")
	}

	conn.disconnect()
	<-done
}

func TestSession_DisconnectRacingJoinLeavesNoMembership(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		deps, _ := newSessionDeps(allowAllChannels{})
		sess, conn, done := startSession(t, deps, UserPayload{UserID: "alice"}, "w1")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			sess.JoinChannel(ctx, "c1")
		}()
		go func() {
			defer wg.Done()
			conn.disconnect()
		}()
		wg.Wait()
		<-done

		if containsConn(deps.Groups.MembersOf(ChannelGroup("c1")), sess.ConnID) {
			t.Fatal("membership referenced a dead connection after disconnect raced a join")
		}
		if containsConn(deps.Groups.MembersOf(WorkspaceGroup("w1")), sess.ConnID) {
			t.Fatal("workspace membership leaked after disconnect")
		}
	}
}
