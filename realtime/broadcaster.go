package realtime

import (
	"encoding/json"

	"cadence/collab-server/utils"
)

// Broadcaster is the single entry point for pushing an event to every
// connection subscribed to a group. Domain services never touch transport
// connections directly; they go through this seam (usually via EventNotifier).
type Broadcaster struct {
	hub     *Hub
	groups  *GroupMembership
	logger  *utils.Logger
	metrics *Metrics
}

func NewBroadcaster(hub *Hub, groups *GroupMembership, logger *utils.Logger, metrics *Metrics) *Broadcaster {
	return &Broadcaster{
		hub:     hub,
		groups:  groups,
		logger:  logger,
		metrics: metrics,
	}
}

// Publish delivers the payload, tagged with the event name, to every member
// of the group except excludeConnID (empty string excludes nobody).
//
// Delivery is fire-and-forget per connection: a member that is gone or too
// slow to keep up is logged and skipped, never surfaced to the caller.
// Publishing to a group with no members is a no-op.
func (b *Broadcaster) Publish(groupName, event string, payload interface{}, excludeConnID string) {
	members := b.groups.MembersOf(groupName)
	if len(members) == 0 {
		return
	}

	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		b.logger.Error("Failed to encode broadcast event", "event", event, "group", groupName, "error", err)
		return
	}

	b.metrics.BroadcastsTotal.WithLabelValues(event).Inc()

	for _, connID := range members {
		if connID == excludeConnID {
			continue
		}
		if b.hub.deliver(connID, data) {
			b.metrics.DeliveriesTotal.Inc()
		} else {
			b.metrics.DeliveryFailures.Inc()
			b.logger.Debug("Dropped event for connection", "event", event, "group", groupName, "conn_id", connID)
		}
	}
}
