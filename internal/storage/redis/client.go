package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "channel_log:"

// Client хранит журнал каждого канала одним ключом channel_log:{channelId}.
// TTL не ставим: история живёт, пока её не удалят руками.
type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) Read(ctx context.Context, channelID string) ([]byte, error) {
	data, err := c.cli.Get(ctx, keyPrefix+channelID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", channelID, err)
	}
	return data, nil
}

func (c *Client) Write(ctx context.Context, channelID string, data []byte) error {
	if err := c.cli.Set(ctx, keyPrefix+channelID, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", channelID, err)
	}
	return nil
}
