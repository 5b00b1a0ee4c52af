package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ЖУРНАЛ ОБОРУДОВАНИЯ

type AssetAction string

const (
	AssetActionCreated      AssetAction = "created"
	AssetActionUpdated      AssetAction = "updated"
	AssetActionStatusChange AssetAction = "status_change"
	AssetActionAssigned     AssetAction = "assigned"
	AssetActionReturned     AssetAction = "returned"
	AssetActionMaintenance  AssetAction = "maintenance"
	AssetActionNote         AssetAction = "note"
)

var assetActions = newChoiceSet(
	choice[AssetAction]{AssetActionCreated, "Создание"},
	choice[AssetAction]{AssetActionUpdated, "Изменение"},
	choice[AssetAction]{AssetActionStatusChange, "Смена статуса"},
	choice[AssetAction]{AssetActionAssigned, "Выдача"},
	choice[AssetAction]{AssetActionReturned, "Возврат"},
	choice[AssetAction]{AssetActionMaintenance, "Обслуживание"},
	choice[AssetAction]{AssetActionNote, "Комментарий"},
)

func (a AssetAction) Valid() bool { return assetActions.has(a) }

func (a AssetAction) Label() string {
	if l, ok := assetActions.label(a); ok {
		return l
	}
	return string(a)
}

type AssetLogEntry struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	AssetID uint `gorm:"not null;index"`
	Asset   Asset

	Action        AssetAction `gorm:"type:varchar(32);not null"`
	PerformedByID *uint
	PerformedBy   *User

	Payload datatypes.JSONMap `gorm:"type:jsonb"`
	Notes   string            `gorm:"type:text"`
}

func (e *AssetLogEntry) BeforeUpdate(tx *gorm.DB) error { return ErrImmutableEntry }
func (e *AssetLogEntry) BeforeDelete(tx *gorm.DB) error { return ErrImmutableEntry }

// АКТИВНОСТЬ ПО ЗАДАЧАМ

type TaskAction string

const (
	TaskActionStatus     TaskAction = "status"
	TaskActionProgress   TaskAction = "progress"
	TaskActionComment    TaskAction = "comment"
	TaskActionChecklist  TaskAction = "checklist"
	TaskActionAttachment TaskAction = "attachment"
)

var taskActions = newChoiceSet(
	choice[TaskAction]{TaskActionStatus, "Статус"},
	choice[TaskAction]{TaskActionProgress, "Прогресс"},
	choice[TaskAction]{TaskActionComment, "Комментарий"},
	choice[TaskAction]{TaskActionChecklist, "Чек-лист"},
	choice[TaskAction]{TaskActionAttachment, "Файл"},
)

func (a TaskAction) Valid() bool { return taskActions.has(a) }

func (a TaskAction) Label() string {
	if l, ok := taskActions.label(a); ok {
		return l
	}
	return string(a)
}

type TaskActivity struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	TaskID uint `gorm:"not null;index"`
	Task   Task

	AuthorID *uint
	Author   *User
	Action   TaskAction        `gorm:"type:varchar(32);not null"`
	Payload  datatypes.JSONMap `gorm:"type:jsonb"`
}

func (TaskActivity) TableName() string { return "task_activity" }

func (e *TaskActivity) BeforeUpdate(tx *gorm.DB) error { return ErrImmutableEntry }
func (e *TaskActivity) BeforeDelete(tx *gorm.DB) error { return ErrImmutableEntry }
