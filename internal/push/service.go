package push

import (
	"encoding/json"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/jjq0425/online-chat/internal/logger"
	"github.com/jjq0425/online-chat/internal/model"
)

const notifyTTL = 60 // секунд жизни уведомления на push-шлюзе

// Service рассылает Web Push подписчикам канала, когда в нём появляется
// новое сообщение. Подписки живут в памяти: после рестарта браузеры
// переподписываются при следующем открытии страницы.
type Service struct {
	keys       *VAPIDKeys
	subscriber string

	mu sync.RWMutex
	// channelID → endpoint → подписка
	subs map[string]map[string]webpush.Subscription
}

// NewService создаёт сервис. subscriber — контакт владельца (mailto:...),
// его требуют push-шлюзы.
func NewService(keys *VAPIDKeys, subscriber string) *Service {
	if subscriber == "" {
		subscriber = "mailto:admin@localhost"
	}
	return &Service{
		keys:       keys,
		subscriber: subscriber,
		subs:       make(map[string]map[string]webpush.Subscription),
	}
}

// PublicKey возвращает публичный VAPID-ключ для подписки в браузере.
func (s *Service) PublicKey() string { return s.keys.PublicKey }

// Subscribe регистрирует подписку браузера на канал (по endpoint — идемпотентно).
func (s *Service) Subscribe(channelID string, sub webpush.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[channelID]; !ok {
		s.subs[channelID] = make(map[string]webpush.Subscription)
	}
	s.subs[channelID][sub.Endpoint] = sub
}

// Unsubscribe удаляет подписку канала по endpoint.
func (s *Service) Unsubscribe(channelID, endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.subs[channelID]; ok {
		delete(m, endpoint)
		if len(m) == 0 {
			delete(s.subs, channelID)
		}
	}
}

// truncateBody обрезает текст до max рун. Резать по байтам нельзя:
// многобайтовая руна развалится и JSON станет невалидным UTF-8.
func truncateBody(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// notifyPayload — то, что получает service worker браузера.
type notifyPayload struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	Type      string `json:"type"`
}

// NotifyNewMessage отправляет уведомление всем подпискам канала.
// Вызывается из hub в отдельной горутине и не блокирует рассылку по WS.
func (s *Service) NotifyNewMessage(channelID string, m model.Message) {
	s.mu.RLock()
	targets := make([]webpush.Subscription, 0, len(s.subs[channelID]))
	for _, sub := range s.subs[channelID] {
		targets = append(targets, sub)
	}
	s.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	body := m.Content.Text
	if m.Content.File != nil {
		body = m.Content.File.OriginalName
	}
	body = truncateBody(body, 120)
	payload, err := json.Marshal(notifyPayload{
		ChannelID: channelID,
		MessageID: m.MessageID,
		Sender:    m.Sender,
		Body:      body,
		Type:      string(m.Type),
	})
	if err != nil {
		logger.Errorf("push: marshal payload: %v", err)
		return
	}

	opts := &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.keys.PublicKey,
		VAPIDPrivateKey: s.keys.PrivateKey,
		TTL:             notifyTTL,
	}
	for i := range targets {
		sub := targets[i]
		resp, err := webpush.SendNotification(payload, &sub, opts)
		if err != nil {
			logger.Errorf("push: send to %s: %v", sub.Endpoint, err)
			continue
		}
		status := resp.StatusCode
		resp.Body.Close()
		// Шлюз сообщает, что подписка мертва — выкидываем её.
		if status == http.StatusNotFound || status == http.StatusGone {
			s.Unsubscribe(channelID, sub.Endpoint)
		}
	}
}
