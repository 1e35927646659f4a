package channel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jjq0425/online-chat/internal/logger"
	"github.com/jjq0425/online-chat/internal/model"
	"github.com/jjq0425/online-chat/internal/storage"
)

// Store — упорядоченный журнал сообщений по каналам поверх storage.ChannelLog.
// Каждая мутация переписывает журнал канала целиком; мутации одного канала
// сериализуются своим мьютексом, разные каналы друг друга не блокируют.
type Store struct {
	backend storage.ChannelLog

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(backend storage.ChannelLog) *Store {
	return &Store{
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) lock(channelID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[channelID] = l
	}
	return l
}

// readLog десериализует журнал канала. Отсутствующий или повреждённый журнал
// читается как пустой: выдача истории не должна блокироваться из-за мусора
// на носителе.
func (s *Store) readLog(ctx context.Context, channelID string) []model.Message {
	data, err := s.backend.Read(ctx, channelID)
	if err != nil {
		logger.Errorf("store: read log channel=%s: %v", channelID, err)
		return []model.Message{}
	}
	if len(data) == 0 {
		return []model.Message{}
	}
	var log []model.Message
	if err := json.Unmarshal(data, &log); err != nil {
		logger.Errorf("store: corrupt log channel=%s treated as empty: %v", channelID, err)
		return []model.Message{}
	}
	return log
}

func (s *Store) writeLog(ctx context.Context, channelID string, log []model.Message) error {
	// Отступы как у оригинального формата журнала: файл удобно читать глазами.
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return &PersistenceError{Err: err}
	}
	if err := s.backend.Write(ctx, channelID, data); err != nil {
		return &PersistenceError{Err: err}
	}
	return nil
}

// Append дописывает сообщение в конец журнала канала. Возврат без ошибки
// означает, что запись долетела до носителя.
func (s *Store) Append(ctx context.Context, channelID string, msg model.Message) error {
	return s.AppendAndNotify(ctx, channelID, msg, nil)
}

// AppendAndNotify дописывает сообщение и, если запись удалась, вызывает
// notify ещё под мьютексом канала. Так порядок вызовов notify совпадает с
// порядком записей в журнале: конкурентные Append не могут «обогнать» друг
// друга между записью и уведомлением. notify обязан не обращаться к Store
// того же канала, иначе deadlock.
func (s *Store) AppendAndNotify(ctx context.Context, channelID string, msg model.Message, notify func(model.Message)) error {
	defer logger.DeferLogDuration("store.Append", time.Now())()
	l := s.lock(channelID)
	l.Lock()
	defer l.Unlock()

	log := s.readLog(ctx, channelID)
	log = append(log, msg)
	if err := s.writeLog(ctx, channelID, log); err != nil {
		return err
	}
	if notify != nil {
		notify(msg)
	}
	return nil
}

// ReadAll возвращает полный журнал канала в порядке добавления.
// Никогда не возвращает ошибку: нет журнала — нет истории.
func (s *Store) ReadAll(ctx context.Context, channelID string) []model.Message {
	defer logger.DeferLogDuration("store.ReadAll", time.Now())()
	l := s.lock(channelID)
	l.Lock()
	defer l.Unlock()
	return s.readLog(ctx, channelID)
}

// ReadRaw возвращает журнал в том виде, в котором он лежит на носителе.
// ok == false — журнала ещё нет.
func (s *Store) ReadRaw(ctx context.Context, channelID string) (data []byte, ok bool) {
	l := s.lock(channelID)
	l.Lock()
	defer l.Unlock()

	data, err := s.backend.Read(ctx, channelID)
	if err != nil {
		logger.Errorf("store: read raw log channel=%s: %v", channelID, err)
		return nil, false
	}
	return data, data != nil
}

// findIndex ищет запись по messageId ИЛИ clientId: для поиска это одно
// пространство имён. Возвращает -1, если записи нет.
func findIndex(log []model.Message, idOrClientID string) int {
	for i := range log {
		if log[i].MessageID == idOrClientID || (log[i].ClientID != "" && log[i].ClientID == idOrClientID) {
			return i
		}
	}
	return -1
}

// FindIndex ищет запись по messageId или clientId (см. findIndex).
func (s *Store) FindIndex(ctx context.Context, channelID, idOrClientID string) int {
	l := s.lock(channelID)
	l.Lock()
	defer l.Unlock()
	return findIndex(s.readLog(ctx, channelID), idOrClientID)
}

// UpdateAt переписывает запись журнала на заданной позиции и синхронно
// сохраняет журнал целиком.
func (s *Store) UpdateAt(ctx context.Context, channelID string, index int, msg model.Message) error {
	l := s.lock(channelID)
	l.Lock()
	defer l.Unlock()

	log := s.readLog(ctx, channelID)
	if index < 0 || index >= len(log) {
		return ErrNotFound
	}
	log[index] = msg
	return s.writeLog(ctx, channelID, log)
}

// mutate выполняет read-modify-write одной записи под мьютексом канала,
// закрывая гонку «потерянного обновления» между пересекающимися мутациями.
// Ошибка fn оставляет журнал нетронутым.
func (s *Store) mutate(ctx context.Context, channelID, idOrClientID string, fn func(*model.Message) error) (model.Message, error) {
	l := s.lock(channelID)
	l.Lock()
	defer l.Unlock()

	log := s.readLog(ctx, channelID)
	idx := findIndex(log, idOrClientID)
	if idx == -1 {
		return model.Message{}, ErrNotFound
	}
	if err := fn(&log[idx]); err != nil {
		return model.Message{}, err
	}
	if err := s.writeLog(ctx, channelID, log); err != nil {
		return model.Message{}, err
	}
	return log[idx], nil
}
