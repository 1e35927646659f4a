package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jjq0425/online-chat/internal/logger"
)

// Client хранит журнал каждого канала одной строкой таблицы channel_logs
// (jsonb-колонка со всем журналом). Схема создаётся миграцией 001.
type Client struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool}
}

func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

func (c *Client) Read(ctx context.Context, channelID string) ([]byte, error) {
	defer logger.DeferLogDuration("pg.Read", time.Now())()
	var data []byte
	err := c.pool.QueryRow(ctx,
		`SELECT log FROM channel_logs WHERE channel_id = $1`, channelID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pg: read log %s: %w", channelID, err)
	}
	return data, nil
}

func (c *Client) Write(ctx context.Context, channelID string, data []byte) error {
	defer logger.DeferLogDuration("pg.Write", time.Now())()
	_, err := c.pool.Exec(ctx,
		`INSERT INTO channel_logs (channel_id, log, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (channel_id) DO UPDATE SET log = EXCLUDED.log, updated_at = now()`,
		channelID, data,
	)
	if err != nil {
		return fmt.Errorf("pg: write log %s: %w", channelID, err)
	}
	return nil
}
