package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

const keyPrefix = "channel_log:"

// Client хранит журнал каждого канала одним ключом в embedded KV (Pebble).
// Подходит для одиночного узла без внешних сервисов, но с fsync-гарантиями.
type Client struct {
	db *pebble.DB
}

func Open(path string) (*Client, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open %s: %w", path, err)
	}
	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Read(ctx context.Context, channelID string) ([]byte, error) {
	val, closer, err := c.db.Get([]byte(keyPrefix + channelID))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get %s: %w", channelID, err)
	}
	data := make([]byte, len(val))
	copy(data, val)
	if closer != nil {
		closer.Close()
	}
	return data, nil
}

func (c *Client) Write(ctx context.Context, channelID string, data []byte) error {
	if err := c.db.Set([]byte(keyPrefix+channelID), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", channelID, err)
	}
	return nil
}
