package handler

import (
	"net/http"

	"github.com/jjq0425/online-chat/internal/push"
)

// ConfigHandler отдаёт фронту публичные параметры сервера.
type ConfigHandler struct {
	pushSvc *push.Service
}

func NewConfigHandler(pushSvc *push.Service) *ConfigHandler {
	return &ConfigHandler{pushSvc: pushSvc}
}

type pushConfigResponse struct {
	Enabled        bool   `json:"enabled"`
	VAPIDPublicKey string `json:"vapidPublicKey,omitempty"`
}

// GetPushConfig возвращает публичный VAPID-ключ для подписки в браузере.
func (h *ConfigHandler) GetPushConfig(w http.ResponseWriter, r *http.Request) {
	resp := pushConfigResponse{}
	if h.pushSvc != nil {
		resp.Enabled = true
		resp.VAPIDPublicKey = h.pushSvc.PublicKey()
	}
	writeJSON(w, http.StatusOK, resp)
}
