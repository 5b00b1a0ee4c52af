package workflow

import (
	"context"

	"office-hub/internal/models"

	"gorm.io/gorm"
)

// CanTransitionTask: администратор может всегда, остальные — если они
// участник проекта, исполнитель, автор или наблюдатель задачи.
// Ожидает загруженные Project.Members и Watchers.
func CanTransitionTask(task *models.Task, actor *models.User) bool {
	if actor == nil || actor.ID == 0 || task == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}

	if task.Project.HasMember(actor.ID) {
		return true
	}
	if task.AssigneeID != nil && *task.AssigneeID == actor.ID {
		return true
	}
	if task.CreatedByID != nil && *task.CreatedByID == actor.ID {
		return true
	}
	for _, w := range task.Watchers {
		if w.ID == actor.ID {
			return true
		}
	}
	return false
}

// CanManageAssets — мутации оборудования доступны только администратору.
func CanManageAssets(actor *models.User) bool {
	return actor != nil && actor.IsAdmin()
}

func (e *Engine) MayTransitionTask(ctx context.Context, taskID uint, actor *models.User) (bool, error) {
	task, err := loadTaskForGuard(e.db.WithContext(ctx), taskID)
	if err != nil {
		return false, err
	}
	return CanTransitionTask(task, actor), nil
}

func loadTaskForGuard(db *gorm.DB, taskID uint) (*models.Task, error) {
	var task models.Task
	err := db.
		Preload("Project.Members").
		Preload("Watchers").
		First(&task, taskID).Error
	if err != nil {
		return nil, translate(err, "load task")
	}
	return &task, nil
}
