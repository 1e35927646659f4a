package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjq0425/online-chat/internal/model"
)

// appendAt кладёт в журнал сообщение с заданным временем отправки.
func appendAt(t *testing.T, s *Store, channelID, userID string, sent time.Time) model.Message {
	t.Helper()
	msg, err := Normalize(SubmitRequest{
		ChannelID: channelID,
		UserID:    userID,
		Content:   model.TextContent("text"),
	}, sent)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), channelID, msg))
	return msg
}

func TestRecallByAuthorWithinWindow(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	sent := time.Now()
	msg := appendAt(t, s, "c", "author", sent)

	now := sent.Add(time.Minute)
	updated, err := s.Recall(ctx, "c", msg.MessageID, "author", now)
	require.NoError(t, err)

	assert.True(t, updated.Retracted)
	assert.Equal(t, "author", updated.RetractedBy)
	assert.Equal(t, model.FormatTime(now), updated.RetractedAt)
	assert.Equal(t, model.MessageTypeRetracted, updated.Type)
	// содержимое остаётся в журнале
	assert.Equal(t, "text", updated.Content.Text)

	log := s.ReadAll(ctx, "c")
	require.Len(t, log, 1)
	assert.True(t, log[0].Retracted)
}

func TestRecallDeniedForNonAuthor(t *testing.T) {
	s := newTestStore()
	sent := time.Now()
	msg := appendAt(t, s, "c", "author", sent)

	_, err := s.Recall(context.Background(), "c", msg.MessageID, "intruder", sent.Add(time.Second))
	assert.ErrorIs(t, err, ErrDenied)
}

func TestRecallDeniedAfterWindow(t *testing.T) {
	s := newTestStore()
	sent := time.Now()
	msg := appendAt(t, s, "c", "author", sent)

	_, err := s.Recall(context.Background(), "c", msg.MessageID, "author", sent.Add(RecallWindow+time.Second))
	assert.ErrorIs(t, err, ErrDenied)
}

func TestRecallAllowedAtWindowEdge(t *testing.T) {
	s := newTestStore()
	sent := time.Now().Truncate(time.Millisecond)
	msg := appendAt(t, s, "c", "author", sent)

	// ровно на границе окна отзыв ещё проходит
	_, err := s.Recall(context.Background(), "c", msg.MessageID, "author", sent.Add(RecallWindow))
	assert.NoError(t, err)
}

func TestRecallIsTerminal(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	sent := time.Now()
	msg := appendAt(t, s, "c", "author", sent)

	_, err := s.Recall(ctx, "c", msg.MessageID, "author", sent.Add(time.Second))
	require.NoError(t, err)

	// повторный отзыв — отказ даже автору внутри окна
	_, err = s.Recall(ctx, "c", msg.MessageID, "author", sent.Add(2*time.Second))
	assert.ErrorIs(t, err, ErrDenied)
}

func TestRecallUnparsableTimeDenied(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	msg, err := Normalize(SubmitRequest{
		ChannelID: "c", UserID: "author", Content: model.TextContent("x"),
	}, time.Now())
	require.NoError(t, err)
	msg.Time = "yesterday-ish"
	require.NoError(t, s.Append(ctx, "c", msg))

	_, err = s.Recall(ctx, "c", msg.MessageID, "author", time.Now())
	assert.ErrorIs(t, err, ErrDenied)
}

func TestRecallNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.Recall(context.Background(), "c", "missing", "author", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecallByClientID(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	sent := time.Now()

	msg, err := Normalize(SubmitRequest{
		ChannelID: "c", UserID: "author", Content: model.TextContent("x"), ClientID: "tmp-3",
	}, sent)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "c", msg))

	updated, err := s.Recall(ctx, "c", "tmp-3", "author", sent.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, updated.Retracted)
}
