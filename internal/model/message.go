package model

import (
	"bytes"
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageTypeText      MessageType = "text"
	MessageTypeFile      MessageType = "file"
	MessageTypeRetracted MessageType = "retracted"
)

// TimeLayout соответствует Date.toISOString() у веб-клиентов (UTC, миллисекунды).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime форматирует момент времени для поля Message.Time.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime разбирает поле Message.Time (ISO-8601 / RFC 3339).
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// FileMeta — дескриптор загруженного файла, как его возвращает fileserver.
type FileMeta struct {
	URL          string `json:"url"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}

// Content is the polymorphic message payload: either free-form text
// (marshals as a bare JSON string) or a file descriptor (marshals as an
// object). At most one of the two is set.
type Content struct {
	Text string
	File *FileMeta
}

func TextContent(s string) Content      { return Content{Text: s} }
func FileContent(meta FileMeta) Content { return Content{File: &meta} }

// IsZero reports whether the payload carries neither text nor a file.
func (c Content) IsZero() bool { return c.File == nil && c.Text == "" }

func (c Content) MarshalJSON() ([]byte, error) {
	if c.File != nil {
		return json.Marshal(c.File)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Content{}
		return nil
	}
	if data[0] == '"' {
		c.File = nil
		return json.Unmarshal(data, &c.Text)
	}
	var meta FileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	c.Text = ""
	c.File = &meta
	return nil
}

// ReactionKind — закрытый набор категорий реакций; произвольные ключи не принимаются.
type ReactionKind string

const (
	ReactionLike     ReactionKind = "like"
	ReactionDisagree ReactionKind = "disagree"
	ReactionDone     ReactionKind = "done"
)

func (k ReactionKind) Valid() bool {
	switch k {
	case ReactionLike, ReactionDisagree, ReactionDone:
		return true
	}
	return false
}

// Reactions maps each fixed category to the set of userids who toggled it on.
// Each userid appears at most once per category.
type Reactions struct {
	Like     []string `json:"like"`
	Disagree []string `json:"disagree"`
	Done     []string `json:"done"`
}

// NewReactions возвращает три пустых набора (в JSON — [], не null).
func NewReactions() Reactions {
	return Reactions{Like: []string{}, Disagree: []string{}, Done: []string{}}
}

// Set returns a pointer to the category's userid slice, or nil for an
// unknown kind.
func (r *Reactions) Set(kind ReactionKind) *[]string {
	switch kind {
	case ReactionLike:
		return &r.Like
	case ReactionDisagree:
		return &r.Disagree
	case ReactionDone:
		return &r.Done
	}
	return nil
}

// Message — единственная персистентная сущность: одна запись в журнале канала.
// Поля сериализуются в том виде, в котором их ожидают клиенты (camelCase).
type Message struct {
	MessageID       string      `json:"messageId"`
	ClientID        string      `json:"clientId,omitempty"`
	Time            string      `json:"time"`
	Sender          string      `json:"sender"`
	UserID          string      `json:"userid"`
	Content         Content     `json:"content"`
	Type            MessageType `json:"type"`
	Reactions       Reactions   `json:"reactions"`
	QuotedMessageID string      `json:"quotedMessageId,omitempty"`

	// Заполняются только после успешного отзыва; никогда не снимаются.
	Retracted   bool   `json:"retracted,omitempty"`
	RetractedBy string `json:"retractedBy,omitempty"`
	RetractedAt string `json:"retractedAt,omitempty"`
}
