// Package workflow применяет изменения статусов оборудования и задач
// и пишет журнал в той же транзакции.
package workflow

import (
	"context"
	"time"

	"office-hub/internal/audit"
	"office-hub/internal/events"
	"office-hub/internal/metrics"
	"office-hub/internal/models"
	"office-hub/internal/storage"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Engine struct {
	db    *gorm.DB
	pub   events.Publisher
	files storage.FileStore
	now   func() time.Time
	log   zerolog.Logger
}

type Option func(*Engine)

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.pub = p
		}
	}
}

func WithFileStore(fs storage.FileStore) Option {
	return func(e *Engine) { e.files = fs }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func NewEngine(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:  db,
		pub: events.Nop{},
		now: time.Now,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("component", "workflow").Logger()
	return e
}

// emitAsset вызывается только после коммита.
func (e *Engine) emitAsset(ctx context.Context, entry *models.AssetLogEntry) {
	metrics.ActivityRecorded.WithLabelValues(audit.DomainAsset, string(entry.Action)).Inc()
	e.publish(ctx, events.Activity{
		Domain:    audit.DomainAsset,
		EntityID:  entry.AssetID,
		EntryID:   entry.ID,
		Action:    string(entry.Action),
		ActorID:   entry.PerformedByID,
		Payload:   entry.Payload,
		CreatedAt: entry.CreatedAt,
	})
}

func (e *Engine) emitTask(ctx context.Context, entry *models.TaskActivity) {
	metrics.ActivityRecorded.WithLabelValues(audit.DomainTask, string(entry.Action)).Inc()
	e.publish(ctx, events.Activity{
		Domain:    audit.DomainTask,
		EntityID:  entry.TaskID,
		EntryID:   entry.ID,
		Action:    string(entry.Action),
		ActorID:   entry.AuthorID,
		Payload:   entry.Payload,
		CreatedAt: entry.CreatedAt,
	})
}

func (e *Engine) publish(ctx context.Context, a events.Activity) {
	if err := e.pub.Publish(ctx, a.Subject(), a); err != nil {
		metrics.PublishFailures.Inc()
		e.log.Warn().Err(err).
			Str("domain", a.Domain).
			Uint("entity_id", a.EntityID).
			Str("action", a.Action).
			Msg("failed to publish activity")
	}
}

func (e *Engine) reject(domain, reason string) {
	metrics.Rejections.WithLabelValues(domain, reason).Inc()
}
