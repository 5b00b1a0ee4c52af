package audit

import (
	"context"
	"sort"

	"office-hub/internal/models"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 10
	MaxLimit     = 200
)

// Log — чтение журналов для ленты «последние изменения».
type Log struct {
	db *gorm.DB
}

func NewLog(db *gorm.DB) *Log {
	return &Log{db: db}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// RecentAssetEntries — последние записи журнала оборудования, новые первыми.
// assetID == 0 — по всему оборудованию.
func (l *Log) RecentAssetEntries(ctx context.Context, limit int, assetID uint) ([]models.AssetLogEntry, error) {
	q := l.db.WithContext(ctx).
		Preload("Asset").
		Preload("PerformedBy").
		Order("created_at desc, id desc").
		Limit(clampLimit(limit))
	if assetID != 0 {
		q = q.Where("asset_id = ?", assetID)
	}

	var entries []models.AssetLogEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// RecentTaskActivity — последние события по задачам, новые первыми.
// taskID == 0 — по всем задачам.
func (l *Log) RecentTaskActivity(ctx context.Context, limit int, taskID uint) ([]models.TaskActivity, error) {
	q := l.db.WithContext(ctx).
		Preload("Task").
		Preload("Author").
		Order("created_at desc, id desc").
		Limit(clampLimit(limit))
	if taskID != 0 {
		q = q.Where("task_id = ?", taskID)
	}

	var entries []models.TaskActivity
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Recent объединяет оба журнала в одну ленту.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	limit = clampLimit(limit)

	assetEntries, err := l.RecentAssetEntries(ctx, limit, 0)
	if err != nil {
		return nil, err
	}
	taskEntries, err := l.RecentTaskActivity(ctx, limit, 0)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(assetEntries)+len(taskEntries))
	for i := range assetEntries {
		out = append(out, AssetEntryView(&assetEntries[i]))
	}
	for i := range taskEntries {
		out = append(out, TaskEntryView(&taskEntries[i]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
