package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jjq0425/online-chat/internal/channel"
	"github.com/jjq0425/online-chat/internal/logger"
	"github.com/jjq0425/online-chat/internal/model"
)

// Notifier доставляет событие «новое сообщение» вне WebSocket (web push).
// nil — уведомления выключены.
type Notifier interface {
	NotifyNewMessage(channelID string, m model.Message)
}

// Hub владеет реестром подписчиков каналов и рассылает им события.
// Подписка живёт ровно столько, сколько живёт соединение: отдельного
// события "leave" в протоколе нет.
//
// Ошибки событийного пути клиенту не возвращаются: исходящие события —
// только history, newMessage и updateMessage. Отказ любого входящего
// события — молчаливый drop с записью в лог.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	total    int
	maxConns int
	closed   bool

	store    *channel.Store
	notifier Notifier
}

func NewHub(store *channel.Store, maxConns int, notifier Notifier) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		rooms:    make(map[string]map[*Client]struct{}),
		maxConns: maxConns,
		store:    store,
		notifier: notifier,
	}
}

// Run блокируется до отмены ctx и закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.shutdown()
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	h.closed = true
	seen := make(map[*Client]struct{}, h.total)
	for _, clients := range h.rooms {
		for c := range clients {
			seen[c] = struct{}{}
		}
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for c := range seen {
		c.Close()
	}
	for c := range seen {
		c.Wait()
	}
}

// Register синхронно регистрирует соединение. Вызывается ДО запуска pumps,
// чтобы unregister из умирающего pump не мог обогнать регистрацию.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.closed || h.total >= h.maxConns {
		closed := h.closed
		h.mu.Unlock()
		if closed {
			logger.Infof("ws hub stopped, rejecting conn=%s", c.id)
		} else {
			logger.Errorf("ws connection limit reached (%d), rejecting conn=%s", h.maxConns, c.id)
		}
		c.Close()
		return
	}
	c.registered = true
	h.total++
	h.mu.Unlock()
	logger.Infof("ws connected conn=%s", c.id)
}

// Unregister снимает соединение со всех каналов. Повторные вызовы и вызовы
// для так и не зарегистрированных клиентов — no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if !c.registered {
		h.mu.Unlock()
		return
	}
	c.registered = false
	for ch := range c.channels {
		if clients, ok := h.rooms[ch]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, ch)
			}
		}
	}
	c.channels = make(map[string]struct{})
	h.total--
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()
	logger.Infof("ws disconnected conn=%s", c.id)
}

// HandleEvent dispatches incoming WebSocket events.
func (h *Hub) HandleEvent(ctx context.Context, c *Client, ev IncomingEvent) {
	switch ev.Type {
	case EventJoin:
		h.handleJoin(ctx, c, ev)
	case EventMessage:
		h.handleSubmit(ctx, c, ev)
	case EventReaction:
		h.handleReaction(ctx, c, ev)
	case EventRecall:
		h.handleRecall(ctx, c, ev)
	default:
		logger.Debugf("ws unknown event type %q conn=%s", ev.Type, c.id)
	}
}

// handleJoin регистрирует соединение в канале и отдаёт ему — и только ему —
// полную историю канала.
func (h *Hub) handleJoin(ctx context.Context, c *Client, ev IncomingEvent) {
	defer logger.DeferLogDuration("ws.handleJoin", time.Now())()
	if ev.ChannelID == "" {
		logger.Debugf("ws join without channelId conn=%s", c.id)
		return
	}

	h.mu.Lock()
	if _, ok := h.rooms[ev.ChannelID]; !ok {
		h.rooms[ev.ChannelID] = make(map[*Client]struct{})
	}
	h.rooms[ev.ChannelID][c] = struct{}{}
	c.channels[ev.ChannelID] = struct{}{}
	h.mu.Unlock()

	history := h.store.ReadAll(ctx, ev.ChannelID)
	h.sendToClient(c, OutgoingEvent{Type: EventHistory, Payload: history})
	logger.Infof("ws conn=%s joined channel=%s (history=%d)", c.id, ev.ChannelID, len(history))
}

func (h *Hub) handleSubmit(ctx context.Context, c *Client, ev IncomingEvent) {
	defer logger.DeferLogDuration("ws.handleSubmit", time.Now())()

	msg, err := channel.Normalize(channel.SubmitRequest{
		ChannelID:       ev.ChannelID,
		Username:        ev.Username,
		UserID:          ev.UserID,
		Content:         ev.Content,
		Type:            ev.ContentType,
		ClientID:        ev.ClientID,
		QuotedMessageID: ev.QuotedMessageID,
	}, time.Now())
	if err != nil {
		logger.Debugf("ws message dropped conn=%s: %v", c.id, err)
		return
	}

	if err := h.Submit(ctx, ev.ChannelID, msg); err != nil {
		logger.Errorf("ws save message channel=%s conn=%s: %v", ev.ChannelID, c.id, err)
	}
}

// Submit сохраняет сообщение и рассылает его подписчикам канала. Рассылка
// выполняется внутри критической секции канала, поэтому порядок newMessage
// у каждого подписчика совпадает с порядком записей в журнале.
func (h *Hub) Submit(ctx context.Context, channelID string, msg model.Message) error {
	return h.store.AppendAndNotify(ctx, channelID, msg, func(m model.Message) {
		h.BroadcastNew(channelID, m)
	})
}

// handleReaction: любой отказ (нет записи, чужая категория, отказ носителя) —
// тихий no-op, рассылки нет. Клиент отрицательных подтверждений не получает.
func (h *Hub) handleReaction(ctx context.Context, c *Client, ev IncomingEvent) {
	if ev.ChannelID == "" || ev.MessageID == "" || ev.UserID == "" || ev.Action == "" {
		return
	}

	msg, err := h.store.ToggleReaction(ctx, ev.ChannelID, ev.MessageID, ev.UserID, ev.Action)
	if err != nil {
		if errors.Is(err, channel.ErrNotFound) || errors.Is(err, channel.ErrUnknownReaction) {
			logger.Debugf("ws reaction dropped channel=%s msg=%s: %v", ev.ChannelID, ev.MessageID, err)
		} else {
			logger.Errorf("ws reaction channel=%s msg=%s: %v", ev.ChannelID, ev.MessageID, err)
		}
		return
	}

	h.BroadcastUpdate(ev.ChannelID, msg)
}

// handleRecall: та же тихая политика, что и у реакций.
func (h *Hub) handleRecall(ctx context.Context, c *Client, ev IncomingEvent) {
	if ev.ChannelID == "" || ev.MessageID == "" || ev.UserID == "" {
		return
	}

	msg, err := h.store.Recall(ctx, ev.ChannelID, ev.MessageID, ev.UserID, time.Now())
	if err != nil {
		if errors.Is(err, channel.ErrNotFound) || errors.Is(err, channel.ErrDenied) {
			logger.Debugf("ws recall dropped channel=%s msg=%s: %v", ev.ChannelID, ev.MessageID, err)
		} else {
			logger.Errorf("ws recall channel=%s msg=%s: %v", ev.ChannelID, ev.MessageID, err)
		}
		return
	}

	h.BroadcastUpdate(ev.ChannelID, msg)
}

// BroadcastNew delivers a persisted message to every subscriber of the
// channel, sender included (confirms durability to the sender).
func (h *Hub) BroadcastNew(channelID string, m model.Message) {
	defer logger.DeferLogDuration("ws.BroadcastNew", time.Now())()
	h.broadcast(channelID, OutgoingEvent{Type: EventNewMessage, Payload: m})
	if h.notifier != nil {
		go h.notifier.NotifyNewMessage(channelID, m)
	}
}

// BroadcastUpdate delivers a mutated message (reaction or recall result) to
// every subscriber of the channel.
func (h *Hub) BroadcastUpdate(channelID string, m model.Message) {
	defer logger.DeferLogDuration("ws.BroadcastUpdate", time.Now())()
	h.broadcast(channelID, OutgoingEvent{Type: EventUpdateMessage, Payload: m})
}

func (h *Hub) broadcast(channelID string, ev OutgoingEvent) {
	h.mu.RLock()
	clients, ok := h.rooms[channelID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, ev)
	}
}

// SubscriberIDs возвращает идентификаторы соединений канала (диагностика).
func (h *Hub) SubscriberIDs(channelID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := h.rooms[channelID]
	ids := make([]string, 0, len(clients))
	for c := range clients {
		ids = append(ids, c.id)
	}
	return ids
}

func (h *Hub) sendToClient(c *Client, ev OutgoingEvent) {
	select {
	case c.send <- ev:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client conn=%s", c.id)
		c.Close()
	}
}
