package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"office-hub/internal/audit"
	"office-hub/internal/metrics"
	"office-hub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransitionTask меняет статус задачи без проверки прав: вызывающий
// обязан проверить CanTransitionTask до вызова.
func (e *Engine) TransitionTask(ctx context.Context, taskID uint, target models.TaskStatus, actor *models.User) (*models.Task, error) {
	if !target.Valid() {
		e.reject(audit.DomainTask, "invalid_status")
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}

	var (
		task  models.Task
		entry *models.TaskActivity
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, taskID).Error; err != nil {
			return translate(err, "load task")
		}
		var err error
		entry, err = e.applyTaskStatus(tx, &task, target, actor)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.reject(audit.DomainTask, "not_found")
		}
		return nil, err
	}

	e.taskTransitioned(ctx, &task, entry)
	return &task, nil
}

// ChangeTaskStatus — то же, что TransitionTask, но с проверкой прав
// внутри той же транзакции.
func (e *Engine) ChangeTaskStatus(ctx context.Context, taskID uint, target models.TaskStatus, actor *models.User) (*models.Task, error) {
	if !target.Valid() {
		e.reject(audit.DomainTask, "invalid_status")
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}

	var (
		task  *models.Task
		entry *models.TaskActivity
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = loadTaskForGuard(tx, taskID)
		if err != nil {
			return err
		}
		if !CanTransitionTask(task, actor) {
			return fmt.Errorf("task %d: %w", taskID, ErrForbidden)
		}
		entry, err = e.applyTaskStatus(tx, task, target, actor)
		return err
	})
	switch {
	case errors.Is(err, ErrForbidden):
		e.reject(audit.DomainTask, "forbidden")
		return nil, err
	case errors.Is(err, ErrNotFound):
		e.reject(audit.DomainTask, "not_found")
		return nil, err
	case err != nil:
		return nil, err
	}

	e.taskTransitioned(ctx, task, entry)
	return task, nil
}

// applyTaskStatus выставляет completed_at только при первом переходе в done.
func (e *Engine) applyTaskStatus(tx *gorm.DB, task *models.Task, target models.TaskStatus, actor *models.User) (*models.TaskActivity, error) {
	task.Status = target
	changes := map[string]any{"status": target}
	if target == models.TaskDone && task.CompletedAt == nil {
		now := e.now()
		task.CompletedAt = &now
		changes["completed_at"] = now
	}

	if err := tx.Model(task).Omit(clause.Associations).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	return audit.RecordTask(tx, task, models.TaskActionStatus, actor, map[string]any{
		"status": string(target),
	})
}

func (e *Engine) taskTransitioned(ctx context.Context, task *models.Task, entry *models.TaskActivity) {
	metrics.Transitions.WithLabelValues(audit.DomainTask, string(task.Status)).Inc()
	e.emitTask(ctx, entry)
	e.log.Info().
		Uint("task_id", task.ID).
		Str("status", string(task.Status)).
		Msg("task status changed")
}

// SetTaskProgress ограничивает значение диапазоном 0..100.
func (e *Engine) SetTaskProgress(ctx context.Context, taskID uint, value int, actor *models.User) (*models.Task, error) {
	value = max(0, min(100, value))

	var (
		task  models.Task
		entry *models.TaskActivity
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, taskID).Error; err != nil {
			return translate(err, "load task")
		}
		task.Progress = value
		if err := tx.Model(&task).Omit(clause.Associations).Update("progress", value).Error; err != nil {
			return fmt.Errorf("update task progress: %w", err)
		}
		var err error
		entry, err = audit.RecordTask(tx, &task, models.TaskActionProgress, actor, map[string]any{
			"progress": value,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emitTask(ctx, entry)
	return &task, nil
}

func (e *Engine) AddChecklistItem(ctx context.Context, taskID uint, title string) (*models.TaskChecklistItem, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: checklist title is required", ErrInvalidInput)
	}

	var item models.TaskChecklistItem
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			return translate(err, "load task")
		}

		var last uint
		if err := tx.Model(&models.TaskChecklistItem{}).
			Where("task_id = ?", task.ID).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("checklist order: %w", err)
		}

		item = models.TaskChecklistItem{TaskID: task.ID, Title: title, Order: last + 1}
		if err := tx.Omit("Task").Create(&item).Error; err != nil {
			return fmt.Errorf("create checklist item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CompleteChecklistItem отмечает шаг выполненным. Повторный вызов ничего
// не меняет и не пишет в журнал.
func (e *Engine) CompleteChecklistItem(ctx context.Context, itemID uint, actor *models.User) (*models.TaskChecklistItem, error) {
	var (
		item  models.TaskChecklistItem
		entry *models.TaskActivity
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, itemID).Error; err != nil {
			return translate(err, "load checklist item")
		}
		if item.IsCompleted {
			return nil
		}

		now := e.now()
		item.IsCompleted = true
		item.CompletedAt = &now
		if err := tx.Model(&item).Omit(clause.Associations).Updates(map[string]any{
			"is_completed": true,
			"completed_at": now,
		}).Error; err != nil {
			return fmt.Errorf("complete checklist item: %w", err)
		}

		task := models.Task{Model: gorm.Model{ID: item.TaskID}}
		var err error
		entry, err = audit.RecordTask(tx, &task, models.TaskActionChecklist, actor, map[string]any{
			"item":  item.ID,
			"title": item.Title,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		e.emitTask(ctx, entry)
	}
	return &item, nil
}

// AddComment создаёт комментарий и запись активности в одной транзакции.
func (e *Engine) AddComment(ctx context.Context, taskID uint, author *models.User, message string, internal bool) (*models.TaskComment, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: comment is empty", ErrInvalidInput)
	}

	var (
		comment models.TaskComment
		entry   *models.TaskActivity
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			return translate(err, "load task")
		}

		comment = models.TaskComment{
			TaskID:     task.ID,
			AuthorID:   actorRef(author),
			Message:    message,
			IsInternal: internal,
		}
		if err := tx.Omit(clause.Associations).Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}

		var err error
		entry, err = audit.RecordTask(tx, &task, models.TaskActionComment, author, map[string]any{
			"comment": comment.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emitTask(ctx, entry)
	return &comment, nil
}

// AddAttachment сначала сохраняет файл, затем создаёт запись и активность.
// Если транзакция не прошла, файл удаляется.
func (e *Engine) AddAttachment(ctx context.Context, taskID uint, uploader *models.User, in AttachmentInput) (*models.TaskAttachment, error) {
	if err := e.checkUpload(in); err != nil {
		return nil, err
	}

	var task models.Task
	if err := e.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, translate(err, "load task")
	}

	var (
		att   models.TaskAttachment
		entry *models.TaskActivity
	)
	err := e.withStoredFile(ctx, attachmentPrefix, in, func(key string) error {
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			att = models.TaskAttachment{
				TaskID:       task.ID,
				UploadedByID: actorRef(uploader),
				Title:        strings.TrimSpace(in.Title),
				StorageKey:   key,
				FileName:     in.FileName,
				Size:         in.Size,
			}
			if err := tx.Omit(clause.Associations).Create(&att).Error; err != nil {
				return fmt.Errorf("create attachment: %w", err)
			}

			var err error
			entry, err = audit.RecordTask(tx, &task, models.TaskActionAttachment, uploader, map[string]any{
				"attachment": att.ID,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	e.emitTask(ctx, entry)
	return &att, nil
}

// AttachmentURL — ссылка на скачивание вложения.
func (e *Engine) AttachmentURL(ctx context.Context, att *models.TaskAttachment) (string, error) {
	return e.fileURL(ctx, att.StorageKey)
}

type TaskInput struct {
	ProjectID      uint
	Title          string
	Description    string
	Status         models.TaskStatus
	Priority       models.TaskPriority
	AssigneeID     *uint
	StartDate      *time.Time
	DueDate        *time.Time
	EstimatedHours *float64
	ActualHours    *float64

	// nil — связи не трогаем, пустой срез — очищаем
	WatcherIDs []uint
	AssetIDs   []uint
}

func (in TaskInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	if in.Priority != 0 && !in.Priority.Valid() {
		return fmt.Errorf("%w: priority %d", ErrInvalidInput, in.Priority)
	}
	if (in.EstimatedHours != nil && *in.EstimatedHours < 0) || (in.ActualHours != nil && *in.ActualHours < 0) {
		return fmt.Errorf("%w: negative hours", ErrInvalidInput)
	}
	if in.StartDate != nil && in.DueDate != nil && in.DueDate.Before(*in.StartDate) {
		return fmt.Errorf("%w: due date before start date", ErrInvalidInput)
	}
	return nil
}

// CreateTask создаёт задачу в активном проекте. Не-админ должен быть
// участником проекта. Начальный статус в журнал не пишется.
func (e *Engine) CreateTask(ctx context.Context, in TaskInput, creator *models.User) (*models.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Status != "" && !in.Status.Valid() {
		e.reject(audit.DomainTask, "invalid_status")
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}

	task := models.Task{
		ProjectID:      in.ProjectID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		CreatedByID:    actorRef(creator),
		AssigneeID:     in.AssigneeID,
		StartDate:      in.StartDate,
		DueDate:        in.DueDate,
		EstimatedHours: in.EstimatedHours,
		ActualHours:    in.ActualHours,
	}
	if task.Status == models.TaskDone {
		now := e.now()
		task.CompletedAt = &now
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Preload("Members").First(&project, in.ProjectID).Error; err != nil {
			return translate(err, "load project")
		}
		if !project.IsActive {
			return fmt.Errorf("%w: project %s is not active", ErrInvalidInput, project.Code)
		}
		if creator != nil && !creator.IsAdmin() && !project.HasMember(creator.ID) {
			return fmt.Errorf("%w: %s is not a member of %s", ErrForbidden, creator.Username, project.Code)
		}
		if err := tx.Omit(clause.Associations).Create(&task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return replaceTaskLinks(tx, &task, in)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask меняет карточку задачи; статус и прогресс меняются отдельно.
func (e *Engine) UpdateTask(ctx context.Context, taskID uint, in TaskInput) (*models.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var task models.Task
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, taskID).Error; err != nil {
			return translate(err, "load task")
		}
		changes := map[string]any{
			"title":           strings.TrimSpace(in.Title),
			"description":     in.Description,
			"assignee_id":     in.AssigneeID,
			"start_date":      in.StartDate,
			"due_date":        in.DueDate,
			"estimated_hours": in.EstimatedHours,
			"actual_hours":    in.ActualHours,
		}
		if in.Priority != 0 {
			changes["priority"] = in.Priority
		}
		if err := tx.Model(&task).Omit(clause.Associations).Updates(changes).Error; err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if err := replaceTaskLinks(tx, &task, in); err != nil {
			return err
		}
		return translate(tx.Preload("Watchers").Preload("Assets").First(&task, taskID).Error, "reload task")
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// replaceTaskLinks заменяет наблюдателей и оборудование задачи.
func replaceTaskLinks(tx *gorm.DB, task *models.Task, in TaskInput) error {
	if in.WatcherIDs != nil {
		watchers, err := loadByIDs[models.User](tx, in.WatcherIDs, "watcher")
		if err != nil {
			return err
		}
		if err := replaceAssociation(tx.Model(task).Omit("Watchers.*"), "Watchers", watchers); err != nil {
			return fmt.Errorf("replace watchers: %w", err)
		}
		task.Watchers = watchers
	}
	if in.AssetIDs != nil {
		assets, err := loadByIDs[models.Asset](tx, in.AssetIDs, "asset")
		if err != nil {
			return err
		}
		if err := replaceAssociation(tx.Model(task).Omit("Assets.*"), "Assets", assets); err != nil {
			return fmt.Errorf("replace assets: %w", err)
		}
		task.Assets = assets
	}
	return nil
}

func replaceAssociation[T any](db *gorm.DB, name string, values []T) error {
	if len(values) == 0 {
		return db.Association(name).Clear()
	}
	return db.Association(name).Replace(values)
}

// loadByIDs загружает записи по списку id; неизвестный id — ErrInvalidInput.
func loadByIDs[T any](tx *gorm.DB, ids []uint, what string) ([]T, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	out := []T{}
	if len(unique) == 0 {
		return out, nil
	}
	if err := tx.Where("id IN ?", unique).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", what, err)
	}
	if len(out) != len(unique) {
		return nil, fmt.Errorf("%w: unknown %s id", ErrInvalidInput, what)
	}
	return out, nil
}

// WatchTask добавляет наблюдателя; повторное добавление ничего не меняет.
func (e *Engine) WatchTask(ctx context.Context, taskID, userID uint) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			return translate(err, "load task")
		}
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return translate(err, "load watcher")
		}

		var count int64
		if err := tx.Table("task_watchers").
			Where("task_id = ? AND user_id = ?", task.ID, user.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check watcher: %w", err)
		}
		if count > 0 {
			return nil
		}
		if err := tx.Model(&task).Omit("Watchers.*").Association("Watchers").Append(&user); err != nil {
			return fmt.Errorf("add watcher: %w", err)
		}
		return nil
	})
}

type ProjectInput struct {
	Name        string
	Code        string
	Description string
	MemberIDs   []uint
	StartDate   *time.Time
	DueDate     *time.Time
}

// CreateProject создаёт проект; владелец сразу становится участником.
func (e *Engine) CreateProject(ctx context.Context, in ProjectInput, owner *models.User) (*models.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}

	project := models.Project{
		Name:        strings.TrimSpace(in.Name),
		Code:        strings.TrimSpace(in.Code),
		Description: in.Description,
		OwnerID:     actorRef(owner),
		IsActive:    true,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
	}

	ids := append([]uint(nil), in.MemberIDs...)
	if owner != nil && owner.ID != 0 {
		ids = append(ids, owner.ID)
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&project).Error; err != nil {
			return translate(err, "create project")
		}
		if len(ids) == 0 {
			return nil
		}

		var members []models.User
		if err := tx.Where("id IN ?", ids).Find(&members).Error; err != nil {
			return fmt.Errorf("load members: %w", err)
		}
		if err := tx.Model(&project).Omit("Members.*").Association("Members").Append(&members); err != nil {
			return fmt.Errorf("add members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func actorRef(u *models.User) *uint {
	if u == nil || u.ID == 0 {
		return nil
	}
	id := u.ID
	return &id
}
