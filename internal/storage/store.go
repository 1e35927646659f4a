package storage

import "context"

// ChannelLog — долговременное хранилище журналов каналов: по одной записи
// (сериализованный JSON-массив сообщений) на канал, без отдельных индексов.
// Реализации: filelog.Client (по умолчанию), memory.Client (для -dev и тестов),
// redis.Client, pg.Client, pebble.Client.
type ChannelLog interface {
	// Read возвращает сырой журнал канала; (nil, nil) — журнала ещё нет.
	Read(ctx context.Context, channelID string) ([]byte, error)
	// Write заменяет журнал канала целиком (полная перезапись при каждой мутации).
	Write(ctx context.Context, channelID string, data []byte) error
	Close() error
}
