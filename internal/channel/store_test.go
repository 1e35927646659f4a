package channel

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjq0425/online-chat/internal/model"
	"github.com/jjq0425/online-chat/internal/storage/memory"
)

func newTestStore() *Store {
	return NewStore(memory.New())
}

func submit(t *testing.T, s *Store, channelID, userID, text string) model.Message {
	t.Helper()
	msg, err := Normalize(SubmitRequest{
		ChannelID: channelID,
		UserID:    userID,
		Content:   model.TextContent(text),
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), channelID, msg))
	return msg
}

func TestStoreAppendPreservesOrder(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	first := submit(t, s, "general", "u1", "first")
	second := submit(t, s, "general", "u1", "second")
	third := submit(t, s, "general", "u2", "third")

	log := s.ReadAll(ctx, "general")
	require.Len(t, log, 3)
	assert.Equal(t, first.MessageID, log[0].MessageID)
	assert.Equal(t, second.MessageID, log[1].MessageID)
	assert.Equal(t, third.MessageID, log[2].MessageID)
}

// notify вызывается под мьютексом канала, поэтому порядок уведомлений при
// конкурентных дозаписях обязан совпадать с порядком записей в журнале.
func TestStoreAppendAndNotifyOrderMatchesLog(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	var notifyMu sync.Mutex
	var notified []string

	const writers = 8
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				msg, err := Normalize(SubmitRequest{
					ChannelID: "general",
					UserID:    fmt.Sprintf("u%d", w),
					Content:   model.TextContent("x"),
				}, time.Now())
				require.NoError(t, err)
				err = s.AppendAndNotify(ctx, "general", msg, func(m model.Message) {
					notifyMu.Lock()
					notified = append(notified, m.MessageID)
					notifyMu.Unlock()
				})
				require.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	log := s.ReadAll(ctx, "general")
	require.Len(t, log, writers*perWriter)
	require.Len(t, notified, writers*perWriter)
	for i := range log {
		assert.Equal(t, log[i].MessageID, notified[i], "position %d", i)
	}
}

func TestStoreChannelsAreIsolated(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	submit(t, s, "alpha", "u1", "in alpha")
	submit(t, s, "beta", "u1", "in beta")

	assert.Len(t, s.ReadAll(ctx, "alpha"), 1)
	assert.Len(t, s.ReadAll(ctx, "beta"), 1)
	assert.Empty(t, s.ReadAll(ctx, "gamma"))
}

func TestStoreReadAllMissingChannelIsEmpty(t *testing.T) {
	s := newTestStore()
	log := s.ReadAll(context.Background(), "nope")
	require.NotNil(t, log)
	assert.Empty(t, log)
}

func TestStoreCorruptLogTreatedAsEmpty(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	require.NoError(t, backend.Write(ctx, "broken", []byte("{not json")))

	s := NewStore(backend)
	assert.Empty(t, s.ReadAll(ctx, "broken"))

	// запись поверх мусора начинает журнал заново
	msg, err := Normalize(SubmitRequest{
		ChannelID: "broken", UserID: "u", Content: model.TextContent("fresh"),
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "broken", msg))
	assert.Len(t, s.ReadAll(ctx, "broken"), 1)
}

func TestStoreFindIndexByMessageIDOrClientID(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	msg, err := Normalize(SubmitRequest{
		ChannelID: "c", UserID: "u", Content: model.TextContent("x"), ClientID: "tmp-1",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "c", msg))
	other := submit(t, s, "c", "u", "y")

	assert.Equal(t, 0, s.FindIndex(ctx, "c", msg.MessageID))
	assert.Equal(t, 0, s.FindIndex(ctx, "c", "tmp-1"))
	assert.Equal(t, 1, s.FindIndex(ctx, "c", other.MessageID))
	assert.Equal(t, -1, s.FindIndex(ctx, "c", "missing"))
	// пустой clientId записей не матчит
	assert.Equal(t, -1, s.FindIndex(ctx, "c", ""))
}

func TestStoreUpdateAtOutOfRange(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	msg := submit(t, s, "c", "u", "x")

	assert.ErrorIs(t, s.UpdateAt(ctx, "c", 5, msg), ErrNotFound)
	assert.ErrorIs(t, s.UpdateAt(ctx, "c", -1, msg), ErrNotFound)
}

func TestStoreUpdateAtRewritesRecord(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	msg := submit(t, s, "c", "u", "before")

	msg.Content = model.TextContent("after")
	require.NoError(t, s.UpdateAt(ctx, "c", 0, msg))

	log := s.ReadAll(ctx, "c")
	require.Len(t, log, 1)
	assert.Equal(t, "after", log[0].Content.Text)
}

func TestStoreRawLog(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	_, ok := s.ReadRaw(ctx, "c")
	assert.False(t, ok)

	submit(t, s, "c", "u", "x")
	data, ok := s.ReadRaw(ctx, "c")
	require.True(t, ok)
	assert.Contains(t, string(data), `"messageId"`)
}
