// Package fileserver хранит и раздаёт загруженные файлы. Для ядра чата это
// внешний коллаборатор: наружу уходит только кортеж
// (url, originalName, mimeType, size).
package fileserver

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Блокируем только опасные расширения (исполняемые/скрипты). Остальные — разрешены.
var BlockedExt = map[string]bool{
	".exe": true, ".sh": true, ".js": true, ".bat": true, ".cmd": true,
	".php": true, ".py": true, ".rb": true,
}

// Service обрабатывает загрузку и раздачу файлов.
type Service struct {
	UploadDir     string
	MaxUploadSize int64
}

// New создаёт сервис с заданным каталогом и лимитом размера (в байтах).
func New(uploadDir string, maxUploadSize int64) *Service {
	return &Service{UploadDir: uploadDir, MaxUploadSize: maxUploadSize}
}

// StoredFile — кортеж, который fileserver возвращает ядру чата.
type StoredFile struct {
	URL          string
	OriginalName string
	MimeType     string
	Size         int64
}

// Store сохраняет файл под сгенерированным именем и возвращает его дескриптор.
func (s *Service) Store(file multipart.File, header *multipart.FileHeader) (StoredFile, error) {
	// В ряде клиентов/прокси пробел в имени кодируется как "+"; нормализуем.
	rawName := strings.TrimSpace(strings.ReplaceAll(header.Filename, "+", " "))
	ext := strings.ToLower(filepath.Ext(rawName))
	if BlockedExt[ext] {
		return StoredFile{}, fmt.Errorf("file type %q not allowed", ext)
	}

	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("create upload dir: %w", err)
	}

	newName := uuid.New().String() + ext
	dstPath := filepath.Join(s.UploadDir, newName)
	dst, err := os.Create(dstPath)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create %s: %w", newName, err)
	}
	size, err := io.Copy(dst, file)
	if err != nil {
		dst.Close()
		os.Remove(dstPath)
		return StoredFile{}, fmt.Errorf("save %s: %w", newName, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return StoredFile{}, fmt.Errorf("close %s: %w", newName, err)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = contentTypeByExt(ext)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	displayName := safeFilename(filepath.Base(rawName))
	if displayName == "" {
		displayName = newName
	}

	return StoredFile{
		URL:          "/api/files/" + newName,
		OriginalName: displayName,
		MimeType:     mimeType,
		Size:         size,
	}, nil
}

// Serve отдаёт файл по имени; query name= — оригинальное имя для Content-Disposition.
func (s *Service) Serve(w http.ResponseWriter, r *http.Request, filename string) {
	filename = filepath.Base(filename)
	path := filepath.Join(s.UploadDir, filename)

	if ct := contentTypeByExt(filepath.Ext(filename)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if origName := r.URL.Query().Get("name"); origName != "" {
		origName = strings.TrimSpace(strings.ReplaceAll(origName, "+", " "))
		if safe := safeFilename(origName); safe != "" {
			w.Header().Set("Content-Disposition",
				"attachment; filename*=UTF-8''"+url.QueryEscape(safe))
		}
	}

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}

func contentTypeByExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".zip":
		return "application/zip"
	}
	return ""
}

// safeFilename оставляет имя файла безопасным для Content-Disposition
// (без управляющих символов, кавычек и разделителей пути); UTF-8 сохраняется.
func safeFilename(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\r', '\n', '"', '\\', '/', '\x00':
			continue
		}
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
