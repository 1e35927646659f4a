package channel

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jjq0425/online-chat/internal/model"
)

// SubmitRequest — сырой ввод отправки сообщения (WS-событие "message",
// POST /api/send-msg или отправка из fileserver после загрузки файла).
type SubmitRequest struct {
	ChannelID       string            `json:"channelId"`
	Username        string            `json:"username"`
	UserID          string            `json:"userid"`
	Content         model.Content     `json:"content"`
	Type            model.MessageType `json:"type"`
	ClientID        string            `json:"clientId"`
	QuotedMessageID string            `json:"quotedMessageId"`
}

// Normalize превращает сырой ввод в готовую к записи запись журнала:
// свежий messageId, серверное время, разрешение userid/sender, тип по
// умолчанию text, пустые наборы реакций. clientId и quotedMessageId
// переносятся только если заданы.
func Normalize(req SubmitRequest, now time.Time) (model.Message, error) {
	if req.ChannelID == "" {
		return model.Message{}, fmt.Errorf("%w: channelId required", ErrValidation)
	}

	typ := req.Type
	if typ == "" {
		typ = model.MessageTypeText
	}
	if typ == model.MessageTypeText && req.Content.IsZero() {
		return model.Message{}, fmt.Errorf("%w: content required", ErrValidation)
	}

	// userid: явный userid > username > "unknown"; sender: username > userid.
	uid := req.UserID
	if uid == "" {
		uid = req.Username
	}
	if uid == "" {
		uid = "unknown"
	}
	sender := req.Username
	if sender == "" {
		sender = uid
	}

	m := model.Message{
		MessageID: uuid.New().String(),
		Time:      model.FormatTime(now),
		Sender:    sender,
		UserID:    uid,
		Content:   req.Content,
		Type:      typ,
		Reactions: model.NewReactions(),
	}
	if req.ClientID != "" {
		m.ClientID = req.ClientID
	}
	if req.QuotedMessageID != "" {
		m.QuotedMessageID = req.QuotedMessageID
	}
	return m, nil
}
