package realtime

import "time"

// Event names carried on the wire. These are part of the client protocol
// and must not change spelling.
const (
	EventUserOnline      = "user:online"
	EventUserOffline     = "user:offline"
	EventMessageNew      = "message:new"
	EventUserTyping      = "user:typing"
	EventUserStopTyping  = "user:stopTyping"
	EventReactionAdded   = "message:reaction:new"
	EventReactionRemoved = "message:reaction:remove"
	EventMessageRead     = "message:read"
)

// WorkspaceGroup returns the broadcast group name for workspace-level
// presence events.
func WorkspaceGroup(workspaceID string) string {
	return "workspace:" + workspaceID
}

// ChannelGroup returns the broadcast group name for channel-scoped chat events.
func ChannelGroup(channelID string) string {
	return "channel:" + channelID
}

// Envelope is the outbound frame delivered to clients: the event name
// discriminates how the payload is interpreted.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// UserPayload identifies a user in presence and typing events.
type UserPayload struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// TypingPayload is the payload for user:typing and user:stopTyping.
type TypingPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
}

// MessagePayload is the payload for message:new.
type MessagePayload struct {
	MessageID string    `json:"message_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionPayload is the payload for message:reaction:new and :remove.
type ReactionPayload struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// ReadReceiptPayload is the payload for message:read.
type ReadReceiptPayload struct {
	MessageID string    `json:"message_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}
