package realtime

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
)

type notifyCall struct {
	event   string
	target  string
	exclude string
}

// recordingNotifier captures notifier calls for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (r *recordingNotifier) record(event, target, exclude string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notifyCall{event: event, target: target, exclude: exclude})
}

func (r *recordingNotifier) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.event == event {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) NotifyUserOnline(workspaceID string, user UserPayload) {
	r.record(EventUserOnline, workspaceID, "")
}
func (r *recordingNotifier) NotifyUserOffline(workspaceID string, user UserPayload) {
	r.record(EventUserOffline, workspaceID, "")
}
func (r *recordingNotifier) NotifyMessage(channelID string, msg MessagePayload) {
	r.record(EventMessageNew, channelID, "")
}
func (r *recordingNotifier) NotifyTyping(channelID string, user UserPayload, excludeConnID string) {
	r.record(EventUserTyping, channelID, excludeConnID)
}
func (r *recordingNotifier) NotifyStopTyping(channelID string, user UserPayload, excludeConnID string) {
	r.record(EventUserStopTyping, channelID, excludeConnID)
}
func (r *recordingNotifier) NotifyReactionAdded(channelID string, reaction ReactionPayload) {
	r.record(EventReactionAdded, channelID, "")
}
func (r *recordingNotifier) NotifyReactionRemoved(channelID string, reaction ReactionPayload) {
	r.record(EventReactionRemoved, channelID, "")
}
func (r *recordingNotifier) NotifyReadReceipt(channelID string, receipt ReadReceiptPayload) {
	r.record(EventMessageRead, channelID, "")
}

type failingRecorder struct{}

func (failingRecorder) RecordOnline(ctx context.Context, userID, userName, workspaceID string) error {
	return errors.New("redis down")
}
func (failingRecorder) RecordOffline(ctx context.Context, userID, workspaceID string) error {
	return errors.New("redis down")
}

func newTestTracker(notifier EventNotifier, recorder StatusRecorder) *PresenceTracker {
	return NewPresenceTracker(NewConnectionRegistry(), notifier, recorder, testLogger(), NewMetrics(nil))
}

func TestPresence_OnlineOfflineFireOncePerTransition(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	tracker := newTestTracker(notifier, nil)

	alice := UserPayload{UserID: "alice", UserName: "Alice"}

	tracker.ConnectionOpened(ctx, alice, "w1", "conn-1")
	if got := notifier.count(EventUserOnline); got != 1 {
		t.Fatalf("expected 1 online event after first connection, got %d", got)
	}

	// Second tab: no additional event
	tracker.ConnectionOpened(ctx, alice, "w1", "conn-2")
	if got := notifier.count(EventUserOnline); got != 1 {
		t.Errorf("expected no event on second connection, got %d", got)
	}

	// First tab closes: still online
	tracker.ConnectionClosed(ctx, alice, "w1", "conn-1")
	if got := notifier.count(EventUserOffline); got != 0 {
		t.Errorf("expected no offline event while a connection remains, got %d", got)
	}

	// Last tab closes: offline fires once
	tracker.ConnectionClosed(ctx, alice, "w1", "conn-2")
	if got := notifier.count(EventUserOffline); got != 1 {
		t.Errorf("expected exactly 1 offline event, got %d", got)
	}

	// Duplicate disconnect signal: no-op
	tracker.ConnectionClosed(ctx, alice, "w1", "conn-2")
	if got := notifier.count(EventUserOffline); got != 1 {
		t.Errorf("expected duplicate disconnect to be a no-op, got %d offline events", got)
	}
}

func TestPresence_ConcurrentConnectsAndDisconnects(t *testing.T) {
	for _, n := range []int{2, 10, 100} {
		t.Run(strconv.Itoa(n)+" connections", func(t *testing.T) {
			ctx := context.Background()
			notifier := &recordingNotifier{}
			tracker := newTestTracker(notifier, nil)

			bob := UserPayload{UserID: "bob", UserName: "Bob"}

			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					tracker.ConnectionOpened(ctx, bob, "w1", "conn-"+strconv.Itoa(i))
				}(i)
			}
			wg.Wait()

			if got := notifier.count(EventUserOnline); got != 1 {
				t.Errorf("expected exactly 1 online event for %d concurrent connects, got %d", n, got)
			}

			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					tracker.ConnectionClosed(ctx, bob, "w1", "conn-"+strconv.Itoa(i))
				}(i)
			}
			wg.Wait()

			if got := notifier.count(EventUserOffline); got != 1 {
				t.Errorf("expected exactly 1 offline event for %d concurrent disconnects, got %d", n, got)
			}
		})
	}
}

func TestPresence_RecorderFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	tracker := newTestTracker(notifier, failingRecorder{})

	alice := UserPayload{UserID: "alice"}

	tracker.ConnectionOpened(ctx, alice, "w1", "conn-1")
	tracker.ConnectionClosed(ctx, alice, "w1", "conn-1")

	// Presence events are emitted even when the recorder fails
	if notifier.count(EventUserOnline) != 1 || notifier.count(EventUserOffline) != 1 {
		t.Error("expected presence events despite recorder failures")
	}
}
