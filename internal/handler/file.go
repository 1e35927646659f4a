package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jjq0425/online-chat/internal/channel"
	"github.com/jjq0425/online-chat/internal/fileserver"
	"github.com/jjq0425/online-chat/internal/logger"
	"github.com/jjq0425/online-chat/internal/model"
	"github.com/jjq0425/online-chat/internal/ws"
)

// FileHandler принимает загрузки и раздаёт файлы. Если форма содержит
// channelId, загрузка дополнительно уходит в канал сообщением type=file —
// тем же путём policy → store → broadcast, что и обычные сообщения.
type FileHandler struct {
	svc           *fileserver.Service
	hub           *ws.Hub
	maxUploadSize int64
}

func NewFileHandler(svc *fileserver.Service, hub *ws.Hub, maxUploadSize int64) *FileHandler {
	return &FileHandler{svc: svc, hub: hub, maxUploadSize: maxUploadSize}
}

// Upload обрабатывает POST multipart/form-data с полем "file".
// Необязательные поля формы: channelId, username, userid, clientId, quotedMessageId.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	defer logger.DeferLogDuration("http.Upload", time.Now())()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	stored, err := h.svc.Store(file, header)
	if err != nil {
		logger.Errorf("upload: store file: %v", err)
		writeError(w, http.StatusBadRequest, "upload failed")
		return
	}
	meta := model.FileMeta{
		URL:          stored.URL,
		OriginalName: stored.OriginalName,
		MimeType:     stored.MimeType,
		Size:         stored.Size,
	}

	// Если форма принесла channelId — сразу публикуем файл в канал.
	// Ошибки этой ветки не ломают ответ: файл уже сохранён.
	if channelID := r.FormValue("channelId"); channelID != "" {
		h.submitFileMessage(r, channelID, meta)
	}

	writeJSON(w, http.StatusOK, meta)
}

func (h *FileHandler) submitFileMessage(r *http.Request, channelID string, meta model.FileMeta) {
	req := channel.SubmitRequest{
		ChannelID:       channelID,
		Username:        r.FormValue("username"),
		UserID:          r.FormValue("userid"),
		Content:         model.FileContent(meta),
		Type:            model.MessageTypeFile,
		ClientID:        r.FormValue("clientId"),
		QuotedMessageID: r.FormValue("quotedMessageId"),
	}
	// Без clientId от клиента помечаем источник, чтобы фронту было что матчить.
	if req.ClientID == "" {
		req.ClientID = "from-api-upload-" + uuid.New().String()
	}

	msg, err := channel.Normalize(req, time.Now())
	if err != nil {
		logger.Errorf("upload: normalize file message channel=%s: %v", channelID, err)
		return
	}
	if err := h.hub.Submit(r.Context(), channelID, msg); err != nil {
		logger.Errorf("upload: append file message channel=%s: %v", channelID, err)
	}
}

// Serve отдаёт ранее загруженный файл.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.svc.Serve(w, r, chi.URLParam(r, "filename"))
}
