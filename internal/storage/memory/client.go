package memory

import (
	"context"
	"sync"
)

// Client держит журналы каналов в памяти (для режима -dev и тестов).
type Client struct {
	mu   sync.RWMutex
	logs map[string][]byte
}

func New() *Client {
	return &Client{logs: make(map[string][]byte)}
}

func (c *Client) Close() error { return nil }

func (c *Client) Read(ctx context.Context, channelID string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.logs[channelID]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (c *Client) Write(ctx context.Context, channelID string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	c.mu.Lock()
	c.logs[channelID] = cp
	c.mu.Unlock()
	return nil
}
