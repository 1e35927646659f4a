package ws

import (
	"github.com/jjq0425/online-chat/internal/model"
)

type EventType string

// Имена событий совпадают с протоколом веб-клиента.
const (
	// клиент → сервер
	EventJoin     EventType = "join"
	EventMessage  EventType = "message"
	EventReaction EventType = "reaction"
	EventRecall   EventType = "recall"

	// сервер → клиент. Других исходящих событий нет: отказ входящего
	// события никак не подтверждается.
	EventHistory       EventType = "history"
	EventNewMessage    EventType = "newMessage"
	EventUpdateMessage EventType = "updateMessage"
)

// IncomingEvent is what the client sends to the server.
type IncomingEvent struct {
	Type      EventType `json:"type"`
	ChannelID string    `json:"channelId,omitempty"`

	// For message submission
	Username        string            `json:"username,omitempty"`
	UserID          string            `json:"userid,omitempty"`
	Content         model.Content     `json:"content,omitempty"`
	ContentType     model.MessageType `json:"contentType,omitempty"`
	ClientID        string            `json:"clientId,omitempty"`
	QuotedMessageID string            `json:"quotedMessageId,omitempty"`

	// For reaction/recall: messageId or clientId of the target record.
	MessageID string `json:"messageId,omitempty"`
	// Reaction category (like | disagree | done).
	Action model.ReactionKind `json:"action,omitempty"`
}

// OutgoingEvent is what the server sends to the client.
type OutgoingEvent struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}
