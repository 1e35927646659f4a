package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jjq0425/online-chat/internal/channel"
	"github.com/jjq0425/online-chat/internal/logger"
	"github.com/jjq0425/online-chat/internal/ws"
)

// MessageHandler — синхронная отправка сообщений по HTTP (для серверов и
// внешних систем, которым не нужен WebSocket).
type MessageHandler struct {
	hub *ws.Hub
}

func NewMessageHandler(hub *ws.Hub) *MessageHandler {
	return &MessageHandler{hub: hub}
}

// SendMessage обрабатывает POST /api/send-msg.
// Тело: { channelId, userid?, username?, content, clientId?, quotedMessageId? }.
// В отличие от событийного пути, ошибки здесь возвращаются вызывающему.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	defer logger.DeferLogDuration("http.SendMessage", time.Now())()

	var req channel.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	msg, err := channel.Normalize(req, time.Now())
	if err != nil {
		if errors.Is(err, channel.ErrValidation) {
			writeError(w, http.StatusBadRequest, "channelId and content required")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.hub.Submit(r.Context(), req.ChannelID, msg); err != nil {
		logger.Errorf("send-msg: append channel=%s: %v", req.ChannelID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	logger.Infof("send-msg: broadcast to channel %s: %s", req.ChannelID, msg.MessageID)
	writeJSON(w, http.StatusOK, msg)
}
