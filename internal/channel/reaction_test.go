package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjq0425/online-chat/internal/model"
)

func TestToggleReactionAddAndRemove(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	msg := submit(t, s, "c", "author", "x")

	updated, err := s.ToggleReaction(ctx, "c", msg.MessageID, "u1", model.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, updated.Reactions.Like)

	// повторный toggle возвращает набор в исходное состояние
	updated, err = s.ToggleReaction(ctx, "c", msg.MessageID, "u1", model.ReactionLike)
	require.NoError(t, err)
	assert.Empty(t, updated.Reactions.Like)

	// и результат записан на носитель, не только возвращён
	log := s.ReadAll(ctx, "c")
	require.Len(t, log, 1)
	assert.Empty(t, log[0].Reactions.Like)
}

func TestToggleReactionCategoriesIndependent(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	msg := submit(t, s, "c", "author", "x")

	_, err := s.ToggleReaction(ctx, "c", msg.MessageID, "u1", model.ReactionLike)
	require.NoError(t, err)
	updated, err := s.ToggleReaction(ctx, "c", msg.MessageID, "u1", model.ReactionDone)
	require.NoError(t, err)

	assert.Equal(t, []string{"u1"}, updated.Reactions.Like)
	assert.Equal(t, []string{"u1"}, updated.Reactions.Done)
	assert.Empty(t, updated.Reactions.Disagree)
}

func TestToggleReactionMultipleUsers(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	msg := submit(t, s, "c", "author", "x")

	_, err := s.ToggleReaction(ctx, "c", msg.MessageID, "u1", model.ReactionLike)
	require.NoError(t, err)
	_, err = s.ToggleReaction(ctx, "c", msg.MessageID, "u2", model.ReactionLike)
	require.NoError(t, err)
	updated, err := s.ToggleReaction(ctx, "c", msg.MessageID, "u1", model.ReactionLike)
	require.NoError(t, err)

	// удаление u1 не трогает u2
	assert.Equal(t, []string{"u2"}, updated.Reactions.Like)
}

func TestToggleReactionUnknownKind(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	msg := submit(t, s, "c", "author", "x")

	_, err := s.ToggleReaction(ctx, "c", msg.MessageID, "u1", model.ReactionKind("heart"))
	assert.ErrorIs(t, err, ErrUnknownReaction)

	// журнал не изменился
	log := s.ReadAll(ctx, "c")
	require.Len(t, log, 1)
	assert.Empty(t, log[0].Reactions.Like)
}

func TestToggleReactionMessageNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.ToggleReaction(context.Background(), "c", "missing", "u1", model.ReactionLike)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleReactionByClientID(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	msg, err := Normalize(SubmitRequest{
		ChannelID: "c", UserID: "author", Content: model.TextContent("x"), ClientID: "tmp-9",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "c", msg))

	updated, err := s.ToggleReaction(ctx, "c", "tmp-9", "u1", model.ReactionDisagree)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, updated.Reactions.Disagree)
}
