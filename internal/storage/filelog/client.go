package filelog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Client хранит журнал каждого канала в отдельном файле <dir>/<channelId>.json.
// Запись идёт через временный файл с переименованием, чтобы падение процесса
// не оставляло полузаписанный журнал.
type Client struct {
	dir string
}

func New(dir string) (*Client, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filelog: create dir %s: %w", dir, err)
	}
	return &Client{dir: dir}, nil
}

func (c *Client) Close() error { return nil }

func (c *Client) path(channelID string) string {
	return filepath.Join(c.dir, safeChannelID(channelID)+".json")
}

func (c *Client) Read(ctx context.Context, channelID string) ([]byte, error) {
	data, err := os.ReadFile(c.path(channelID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filelog: read %s: %w", channelID, err)
	}
	return data, nil
}

func (c *Client) Write(ctx context.Context, channelID string, data []byte) error {
	dst := c.path(channelID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("filelog: write %s: %w", channelID, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("filelog: rename %s: %w", channelID, err)
	}
	return nil
}

// safeChannelID сводит идентификатор канала к безопасному имени файла:
// только буквы, цифры, точка, дефис и подчёркивание.
func safeChannelID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "_"
	}
	return s
}
