package channel

import "errors"

var (
	// ErrValidation — в запросе нет обязательного поля; ничего не сохраняем
	// и не рассылаем.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound — ни messageId, ни clientId не нашли запись в журнале.
	ErrNotFound = errors.New("message not found")
	// ErrUnknownReaction — категория вне закрытого набора like/disagree/done.
	ErrUnknownReaction = errors.New("unknown reaction")
	// ErrDenied — отзыв не автором, вне окна или у уже отозванного сообщения.
	ErrDenied = errors.New("recall denied")
)

// PersistenceError оборачивает отказ носителя: операция прервана,
// сообщение не рассылается.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "persist channel log: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
