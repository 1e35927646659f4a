package handler

import (
	"encoding/json"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/jjq0425/online-chat/internal/push"
)

// PushHandler регистрирует браузерные push-подписки на каналы.
// svc == nil — пуши выключены конфигом.
type PushHandler struct {
	svc *push.Service
}

func NewPushHandler(svc *push.Service) *PushHandler {
	return &PushHandler{svc: svc}
}

type subscribeRequest struct {
	ChannelID    string               `json:"channelId"`
	Endpoint     string               `json:"endpoint,omitempty"`
	Subscription webpush.Subscription `json:"subscription"`
}

// Subscribe сохраняет подписку канала (POST).
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, http.StatusServiceUnavailable, "push disabled")
		return
	}
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ChannelID == "" || req.Subscription.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "channelId and subscription required")
		return
	}
	h.svc.Subscribe(req.ChannelID, req.Subscription)
	w.WriteHeader(http.StatusNoContent)
}

// Unsubscribe удаляет подписку по endpoint (DELETE).
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, http.StatusServiceUnavailable, "push disabled")
		return
	}
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Subscription.Endpoint
	}
	if req.ChannelID == "" || endpoint == "" {
		writeError(w, http.StatusBadRequest, "channelId and endpoint required")
		return
	}
	h.svc.Unsubscribe(req.ChannelID, endpoint)
	w.WriteHeader(http.StatusNoContent)
}
