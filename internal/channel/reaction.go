package channel

import (
	"context"
	"time"

	"github.com/jjq0425/online-chat/internal/logger"
	"github.com/jjq0425/online-chat/internal/model"
)

// ToggleReaction идемпотентно переключает членство userid в наборе категории:
// есть — убрать, нет — добавить (с дедупликацией). Два одинаковых вызова
// подряд возвращают набор в исходное состояние.
func (s *Store) ToggleReaction(ctx context.Context, channelID, idOrClientID, userid string, kind model.ReactionKind) (model.Message, error) {
	defer logger.DeferLogDuration("store.ToggleReaction", time.Now())()
	if !kind.Valid() {
		return model.Message{}, ErrUnknownReaction
	}

	return s.mutate(ctx, channelID, idOrClientID, func(m *model.Message) error {
		set := m.Reactions.Set(kind)
		cur := *set
		for i, u := range cur {
			if u == userid {
				*set = append(cur[:i:i], cur[i+1:]...)
				return nil
			}
		}
		// Добавление: выше убедились, что userid в наборе нет.
		*set = append(cur, userid)
		return nil
	})
}
