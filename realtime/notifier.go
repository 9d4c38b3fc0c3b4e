package realtime

// EventNotifier is the capability surface domain services use to fan out
// state changes to live connections. Each method is a thin wrapper over
// Broadcaster.Publish with a fixed event name and group-naming convention,
// so callers never need transport or group-name knowledge.
type EventNotifier interface {
	NotifyUserOnline(workspaceID string, user UserPayload)
	NotifyUserOffline(workspaceID string, user UserPayload)
	NotifyMessage(channelID string, msg MessagePayload)
	NotifyTyping(channelID string, user UserPayload, excludeConnID string)
	NotifyStopTyping(channelID string, user UserPayload, excludeConnID string)
	NotifyReactionAdded(channelID string, reaction ReactionPayload)
	NotifyReactionRemoved(channelID string, reaction ReactionPayload)
	NotifyReadReceipt(channelID string, receipt ReadReceiptPayload)
}

type notifier struct {
	broadcaster *Broadcaster
}

func NewNotifier(broadcaster *Broadcaster) EventNotifier {
	return &notifier{broadcaster: broadcaster}
}

func (n *notifier) NotifyUserOnline(workspaceID string, user UserPayload) {
	n.broadcaster.Publish(WorkspaceGroup(workspaceID), EventUserOnline, user, "")
}

func (n *notifier) NotifyUserOffline(workspaceID string, user UserPayload) {
	n.broadcaster.Publish(WorkspaceGroup(workspaceID), EventUserOffline, user, "")
}

func (n *notifier) NotifyMessage(channelID string, msg MessagePayload) {
	n.broadcaster.Publish(ChannelGroup(channelID), EventMessageNew, msg, "")
}

func (n *notifier) NotifyTyping(channelID string, user UserPayload, excludeConnID string) {
	payload := TypingPayload{ChannelID: channelID, UserID: user.UserID, UserName: user.UserName}
	n.broadcaster.Publish(ChannelGroup(channelID), EventUserTyping, payload, excludeConnID)
}

func (n *notifier) NotifyStopTyping(channelID string, user UserPayload, excludeConnID string) {
	payload := TypingPayload{ChannelID: channelID, UserID: user.UserID, UserName: user.UserName}
	n.broadcaster.Publish(ChannelGroup(channelID), EventUserStopTyping, payload, excludeConnID)
}

func (n *notifier) NotifyReactionAdded(channelID string, reaction ReactionPayload) {
	n.broadcaster.Publish(ChannelGroup(channelID), EventReactionAdded, reaction, "")
}

func (n *notifier) NotifyReactionRemoved(channelID string, reaction ReactionPayload) {
	n.broadcaster.Publish(ChannelGroup(channelID), EventReactionRemoved, reaction, "")
}

func (n *notifier) NotifyReadReceipt(channelID string, receipt ReadReceiptPayload) {
	n.broadcaster.Publish(ChannelGroup(channelID), EventMessageRead, receipt, "")
}
