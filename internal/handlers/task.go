package handlers

import (
	"errors"
	"io"
	"net/http"

	"office-hub/internal/audit"
	"office-hub/internal/middleware"
	"office-hub/internal/models"
	"office-hub/internal/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

//
// ДОСКА ЗАДАЧ
//

func (h *Handler) TaskBoard(c *gin.Context) {
	board, err := h.reports.TaskBoardView(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	user := middleware.CurrentUser(c)
	render(c, http.StatusOK, gin.H{
		"board":              board,
		"can_create_task":    user != nil,
		"can_create_project": user.IsAdmin(),
	})
}

func (h *Handler) ShowTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var task models.Task
	if err := h.db.WithContext(ctx).
		Preload("Project.Members").
		Preload("CreatedBy").
		Preload("Assignee").
		Preload("Watchers").
		Preload("Assets").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Comments.Author").
		Preload("Attachments").
		Preload("Checklist", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") }).
		Preload("Dependencies.Blocking").
		First(&task, id).Error; err != nil {
		renderError(c, http.StatusNotFound, "Задача не найдена")
		return
	}

	entries, err := h.journal.RecentTaskActivity(ctx, audit.MaxLimit, task.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	activity := make([]audit.Entry, 0, len(entries))
	for i := range entries {
		activity = append(activity, audit.TaskEntryView(&entries[i]))
	}

	links := make(map[uint]string, len(task.Attachments))
	for _, att := range task.Attachments {
		if url, err := h.engine.AttachmentURL(ctx, &att); err == nil {
			links[att.ID] = url
		}
	}

	render(c, http.StatusOK, gin.H{
		"task":             task,
		"status_label":     task.Status.Label(),
		"priority_label":   task.Priority.Label(),
		"activity":         activity,
		"attachment_urls":  links,
		"can_change_state": workflow.CanTransitionTask(&task, middleware.CurrentUser(c)),
	})
}

type taskForm struct {
	ProjectID      uint     `form:"project_id" json:"project_id"`
	Title          string   `form:"title" json:"title" binding:"required,max=200"`
	Description    string   `form:"description" json:"description"`
	Status         string   `form:"status" json:"status"`
	Priority       int      `form:"priority" json:"priority"`
	AssigneeID     *uint    `form:"assignee_id" json:"assignee_id"`
	StartDate      string   `form:"start_date" json:"start_date"`
	DueDate        string   `form:"due_date" json:"due_date"`
	EstimatedHours *float64 `form:"estimated_hours" json:"estimated_hours" binding:"omitempty,gte=0"`
	ActualHours    *float64 `form:"actual_hours" json:"actual_hours" binding:"omitempty,gte=0"`
	WatcherIDs     []uint   `form:"watcher_ids" json:"watcher_ids"`
	AssetIDs       []uint   `form:"asset_ids" json:"asset_ids"`
}

func (f taskForm) input() (workflow.TaskInput, bool) {
	start, err := parseDate(f.StartDate)
	if err != nil {
		return workflow.TaskInput{}, false
	}
	due, err := parseDate(f.DueDate)
	if err != nil {
		return workflow.TaskInput{}, false
	}
	return workflow.TaskInput{
		ProjectID:      f.ProjectID,
		Title:          f.Title,
		Description:    f.Description,
		Status:         models.TaskStatus(f.Status),
		Priority:       models.TaskPriority(f.Priority),
		AssigneeID:     f.AssigneeID,
		StartDate:      start,
		DueDate:        due,
		EstimatedHours: f.EstimatedHours,
		ActualHours:    f.ActualHours,
		WatcherIDs:     f.WatcherIDs,
		AssetIDs:       f.AssetIDs,
	}, true
}

func (h *Handler) CreateTask(c *gin.Context) {
	var form taskForm
	if err := c.ShouldBind(&form); err != nil || form.ProjectID == 0 {
		renderError(c, http.StatusBadRequest, "Укажите проект и название задачи")
		return
	}
	in, ok := form.input()
	if !ok {
		renderError(c, http.StatusBadRequest, "Дата должна быть в формате ГГГГ-ММ-ДД")
		return
	}

	task, err := h.engine.CreateTask(c.Request.Context(), in, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"task": task, "message": "Задача создана"})
}

func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form taskForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите название задачи")
		return
	}
	in, ok := form.input()
	if !ok {
		renderError(c, http.StatusBadRequest, "Дата должна быть в формате ГГГГ-ММ-ДД")
		return
	}

	task, err := h.engine.UpdateTask(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"task": task, "message": "Изменения сохранены"})
}

//
// СТАТУС, ПРОГРЕСС, ЧЕК-ЛИСТ
//

type taskStatusForm struct {
	Status string `form:"status" json:"status" binding:"required"`
}

// ChangeTaskStatus проверяет права внутри workflow и отвечает 403,
// если пользователь не связан с задачей.
func (h *Handler) ChangeTaskStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form taskStatusForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите статус")
		return
	}

	task, err := h.engine.ChangeTaskStatus(c.Request.Context(), id, models.TaskStatus(form.Status), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"task": task, "status_label": task.Status.Label()})
}

type progressForm struct {
	Progress *int `form:"progress" json:"progress" binding:"required"`
}

func (h *Handler) SetTaskProgress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form progressForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите прогресс")
		return
	}

	task, err := h.engine.SetTaskProgress(c.Request.Context(), id, *form.Progress, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"task": task})
}

type checklistForm struct {
	Title string `form:"title" json:"title" binding:"required,max=200"`
}

func (h *Handler) AddChecklistItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form checklistForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите шаг")
		return
	}

	item, err := h.engine.AddChecklistItem(c.Request.Context(), id, form.Title)
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"item": item})
}

func (h *Handler) CompleteChecklistItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := h.engine.CompleteChecklistItem(c.Request.Context(), id, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"item": item})
}

//
// КОММЕНТАРИИ, ФАЙЛЫ, НАБЛЮДАТЕЛИ
//

type commentForm struct {
	Message    string `form:"message" json:"message" binding:"required"`
	IsInternal bool   `form:"is_internal" json:"is_internal"`
}

func (h *Handler) AddComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Комментарий не может быть пустым")
		return
	}

	comment, err := h.engine.AddComment(c.Request.Context(), id, middleware.CurrentUser(c), form.Message, form.IsInternal)
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"comment": comment})
}

func (h *Handler) UploadAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		renderError(c, http.StatusBadRequest, "Выберите файл")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	att, err := h.engine.AddAttachment(c.Request.Context(), id, middleware.CurrentUser(c), workflow.AttachmentInput{
		Title:    c.PostForm("title"),
		FileName: fh.Filename,
		Size:     fh.Size,
		Body:     f,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"attachment": att})
}

type watchForm struct {
	UserID uint `form:"user_id" json:"user_id"`
}

// WatchTask без user_id подписывает текущего пользователя.
func (h *Handler) WatchTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form watchForm
	// пустое тело — подписываем текущего пользователя
	if err := c.ShouldBind(&form); err != nil && !errors.Is(err, io.EOF) {
		renderError(c, http.StatusBadRequest, "Некорректный пользователь")
		return
	}

	user := middleware.CurrentUser(c)
	userID := form.UserID
	if userID == 0 {
		userID = user.ID
	}
	if userID != user.ID && !user.IsAdmin() {
		renderError(c, http.StatusForbidden, "Доступ запрещён")
		return
	}

	if err := h.engine.WatchTask(c.Request.Context(), id, userID); err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"ok": true})
}

type dependencyForm struct {
	BlockingID uint `form:"blocking_id" json:"blocking_id" binding:"required"`
}

// AddDependency — задача :id ждёт завершения blocking_id.
func (h *Handler) AddDependency(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form dependencyForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите блокирующую задачу")
		return
	}

	dep, err := h.engine.AddTaskDependency(c.Request.Context(), id, form.BlockingID, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"dependency": dep})
}

func (h *Handler) RemoveDependency(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.engine.RemoveTaskDependency(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"ok": true})
}
