package workflow

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"office-hub/internal/events"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []events.Activity
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := v.(events.Activity); ok {
		p.sent = append(p.sent, a)
	}
	return p.err
}

type memStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (m *memStore) Save(_ context.Context, key string, r io.Reader, _ int64) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = buf.Bytes()
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStore) URL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	return "/media/" + key, nil
}

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

// failInserts ломает вставку в table, чтобы проверить откат транзакции.
func failInserts(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("fail_insert_"+table, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errors.New("journal unavailable"))
		}
	}))
}
