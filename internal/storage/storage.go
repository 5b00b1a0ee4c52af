// Package storage хранит файлы вложений задач и оборудования.
package storage

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore — хранилище файлов по ключу.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	// URL возвращает ссылку для скачивания.
	URL(ctx context.Context, key string) (string, error)
}

// NewKey строит уникальный ключ, сохраняя расширение исходного файла.
func NewKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	return path.Join(prefix, uuid.NewString()+ext)
}
