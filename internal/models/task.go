package models

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskBacklog    TaskStatus = "backlog"
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskBlocked    TaskStatus = "blocked"
	TaskDone       TaskStatus = "done"
)

var taskStatuses = newChoiceSet(
	choice[TaskStatus]{TaskBacklog, "Бэклог"},
	choice[TaskStatus]{TaskTodo, "К выполнению"},
	choice[TaskStatus]{TaskInProgress, "В работе"},
	choice[TaskStatus]{TaskReview, "На проверке"},
	choice[TaskStatus]{TaskBlocked, "Заблокировано"},
	choice[TaskStatus]{TaskDone, "Завершено"},
)

// TaskStatuses возвращает статусы в порядке колонок доски.
func TaskStatuses() []TaskStatus { return taskStatuses.values() }

func ParseTaskStatus(raw string) (TaskStatus, bool) {
	s := TaskStatus(raw)
	return s, taskStatuses.has(s)
}

func (s TaskStatus) Valid() bool { return taskStatuses.has(s) }

func (s TaskStatus) Label() string {
	if l, ok := taskStatuses.label(s); ok {
		return l
	}
	return string(s)
}

type TaskPriority int

const (
	PriorityLow      TaskPriority = 10
	PriorityNormal   TaskPriority = 20
	PriorityHigh     TaskPriority = 30
	PriorityCritical TaskPriority = 40
)

var taskPriorities = newChoiceSet(
	choice[TaskPriority]{PriorityLow, "Низкий"},
	choice[TaskPriority]{PriorityNormal, "Средний"},
	choice[TaskPriority]{PriorityHigh, "Высокий"},
	choice[TaskPriority]{PriorityCritical, "Критический"},
)

func TaskPriorities() []TaskPriority { return taskPriorities.values() }

func (p TaskPriority) Valid() bool { return taskPriorities.has(p) }

// Label для неизвестного значения возвращает само число.
func (p TaskPriority) Label() string {
	if l, ok := taskPriorities.label(p); ok {
		return l
	}
	return strconv.Itoa(int(p))
}

type Task struct {
	gorm.Model
	ProjectID uint `gorm:"not null;index"`
	Project   Project

	Title       string       `gorm:"size:200;not null"`
	Description string       `gorm:"type:text"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:backlog;index:idx_task_status_priority"`
	Priority    TaskPriority `gorm:"not null;default:20;index:idx_task_status_priority"`

	CreatedByID *uint
	CreatedBy   *User
	AssigneeID  *uint
	Assignee    *User

	Watchers []User  `gorm:"many2many:task_watchers;"`
	Assets   []Asset `gorm:"many2many:task_assets;"`

	StartDate      *time.Time
	DueDate        *time.Time
	CompletedAt    *time.Time
	EstimatedHours *float64
	ActualHours    *float64
	Progress       int  `gorm:"not null;default:0"`
	IsArchived     bool `gorm:"not null;default:false"`

	Comments    []TaskComment
	Attachments []TaskAttachment
	Checklist   []TaskChecklistItem
	// задачи, которые блокируют эту
	Dependencies []TaskDependency `gorm:"foreignKey:BlockedID"`
}

func (t *Task) BeforeSave(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = TaskBacklog
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task status %q is not declared", t.Status)
	}
	if t.Priority == 0 {
		t.Priority = PriorityNormal
	}
	return nil
}

type TaskComment struct {
	gorm.Model
	TaskID     uint `gorm:"not null;index"`
	Task       Task
	AuthorID   *uint
	Author     *User
	Message    string `gorm:"type:text;not null"`
	IsInternal bool   `gorm:"not null;default:false"`
}

type TaskAttachment struct {
	ID           uint `gorm:"primaryKey"`
	TaskID       uint `gorm:"not null;index"`
	Task         Task
	UploadedByID *uint
	UploadedBy   *User
	Title        string `gorm:"size:160"`
	StorageKey   string `gorm:"size:255;not null"`
	FileName     string `gorm:"size:255"`
	Size         int64
	UploadedAt   time.Time `gorm:"autoCreateTime"`
}

type TaskChecklistItem struct {
	ID          uint `gorm:"primaryKey"`
	TaskID      uint `gorm:"not null;index"`
	Task        Task
	Title       string `gorm:"size:200;not null"`
	IsCompleted bool   `gorm:"not null;default:false"`
	CompletedAt *time.Time
	Order       uint `gorm:"column:sort_order;not null;default:0"`
}

// TaskDependency — Blocked не закончить, пока не закрыта Blocking.
type TaskDependency struct {
	ID         uint `gorm:"primaryKey"`
	BlockingID uint `gorm:"not null;uniqueIndex:idx_task_dependency_pair"`
	Blocking   Task `gorm:"foreignKey:BlockingID"`
	BlockedID  uint `gorm:"not null;uniqueIndex:idx_task_dependency_pair;index"`
	Blocked    Task `gorm:"foreignKey:BlockedID"`
	CreatedAt  time.Time
}
