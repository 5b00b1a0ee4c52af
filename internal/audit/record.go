// Package audit ведёт журналы изменений оборудования и задач.
// Записи только добавляются; API изменения или удаления нет.
package audit

import (
	"errors"
	"fmt"

	"office-hub/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidActionKind = errors.New("invalid audit action kind")

// RecordAsset пишет запись журнала оборудования в транзакции вызывающего.
func RecordAsset(tx *gorm.DB, asset *models.Asset, action models.AssetAction, actor *models.User, payload map[string]any, note string) (*models.AssetLogEntry, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidActionKind, action)
	}
	if asset == nil || asset.ID == 0 {
		return nil, errors.New("audit: asset is not persisted")
	}

	entry := &models.AssetLogEntry{
		AssetID:       asset.ID,
		Action:        action,
		PerformedByID: actorID(actor),
		Payload:       toJSONMap(payload),
		Notes:         note,
	}
	if err := tx.Omit("Asset", "PerformedBy").Create(entry).Error; err != nil {
		return nil, fmt.Errorf("create asset log entry: %w", err)
	}
	return entry, nil
}

// RecordTask пишет активность по задаче в транзакции вызывающего.
// Создание комментария или файла обязано вызывать её с тем же tx.
func RecordTask(tx *gorm.DB, task *models.Task, action models.TaskAction, actor *models.User, payload map[string]any) (*models.TaskActivity, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidActionKind, action)
	}
	if task == nil || task.ID == 0 {
		return nil, errors.New("audit: task is not persisted")
	}

	entry := &models.TaskActivity{
		TaskID:   task.ID,
		AuthorID: actorID(actor),
		Action:   action,
		Payload:  toJSONMap(payload),
	}
	if err := tx.Omit("Task", "Author").Create(entry).Error; err != nil {
		return nil, fmt.Errorf("create task activity: %w", err)
	}
	return entry, nil
}

// nil — изменение выполнила система
func actorID(actor *models.User) *uint {
	if actor == nil || actor.ID == 0 {
		return nil
	}
	id := actor.ID
	return &id
}

func toJSONMap(src map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range src {
		out[k] = v
	}
	return out
}
