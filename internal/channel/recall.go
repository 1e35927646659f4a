package channel

import (
	"context"
	"time"

	"github.com/jjq0425/online-chat/internal/logger"
	"github.com/jjq0425/online-chat/internal/model"
)

// RecallWindow — сколько времени после отправки автор может отозвать сообщение.
const RecallWindow = 2 * time.Minute

// Recall переводит сообщение в состояние retracted: только автор, только в
// пределах RecallWindow от записанного времени. Содержимое сохраняется для
// аудита; retracted — терминальное состояние, повторный отзыв — ErrDenied.
func (s *Store) Recall(ctx context.Context, channelID, idOrClientID, requesterID string, now time.Time) (model.Message, error) {
	defer logger.DeferLogDuration("store.Recall", time.Now())()

	return s.mutate(ctx, channelID, idOrClientID, func(m *model.Message) error {
		if m.Retracted || m.Type == model.MessageTypeRetracted {
			return ErrDenied
		}
		if m.UserID != requesterID {
			return ErrDenied
		}
		sent, err := model.ParseTime(m.Time)
		if err != nil {
			// Нечитаемое время трактуем как «окно истекло».
			return ErrDenied
		}
		if now.Sub(sent) > RecallWindow {
			return ErrDenied
		}

		m.Retracted = true
		m.RetractedBy = requesterID
		m.RetractedAt = model.FormatTime(now)
		m.Type = model.MessageTypeRetracted
		return nil
	})
}
