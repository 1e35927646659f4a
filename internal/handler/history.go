package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jjq0425/online-chat/internal/channel"
	"github.com/jjq0425/online-chat/internal/ws"
)

// HistoryHandler отдаёт историю канала и диагностику подписчиков.
type HistoryHandler struct {
	store *channel.Store
	hub   *ws.Hub
}

func NewHistoryHandler(store *channel.Store, hub *ws.Hub) *HistoryHandler {
	return &HistoryHandler{store: store, hub: hub}
}

// GetHistory возвращает полный упорядоченный журнал канала (пустой массив,
// если канала ещё нет).
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelId")
	writeJSON(w, http.StatusOK, h.store.ReadAll(r.Context(), channelID))
}

// GetRawLog отдаёт журнал в сыром сериализованном виде (text/plain).
// 404 с пустым телом — журнала нет.
func (h *HistoryHandler) GetRawLog(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelId")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	data, ok := h.store.ReadRaw(r.Context(), channelID)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type roomInfoResponse struct {
	ChannelID   string   `json:"channelId"`
	Count       int      `json:"count"`
	Connections []string `json:"connections"`
}

// GetRoom возвращает список и число подписанных соединений канала
// (диагностика: удобно проверять, что клиенты действительно сделали join).
func (h *HistoryHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelId")
	ids := h.hub.SubscriberIDs(channelID)
	writeJSON(w, http.StatusOK, roomInfoResponse{
		ChannelID:   channelID,
		Count:       len(ids),
		Connections: ids,
	})
}
