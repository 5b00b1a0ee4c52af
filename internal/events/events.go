// Package events публикует события журнала после коммита изменений.
package events

import (
	"context"
	"time"
)

const SubjectPrefix = "officehub.activity."

// Activity — одна закоммиченная запись журнала.
type Activity struct {
	Domain    string         `json:"domain"`
	EntityID  uint           `json:"entity_id"`
	EntryID   uint           `json:"entry_id"`
	Action    string         `json:"action"`
	ActorID   *uint          `json:"actor_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (a Activity) Subject() string {
	return SubjectPrefix + a.Domain
}

// Publisher отправляет JSON-сериализуемое значение в subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Nop — заглушка, когда брокер не настроен.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
