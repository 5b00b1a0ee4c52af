package handlers

import (
	"net/http"

	"office-hub/internal/middleware"
	"office-hub/internal/workflow"

	"github.com/gin-gonic/gin"
)

//
// ПРОЕКТЫ
//

type projectForm struct {
	Name        string `form:"name" json:"name" binding:"required,min=3,max=160"`
	Code        string `form:"code" json:"code" binding:"max=32"`
	Description string `form:"description" json:"description"`
	MemberIDs   []uint `form:"member_ids" json:"member_ids"`
	StartDate   string `form:"start_date" json:"start_date"`
	DueDate     string `form:"due_date" json:"due_date"`
}

func (h *Handler) CreateProject(c *gin.Context) {
	var form projectForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Название проекта должно быть не короче 3 символов")
		return
	}
	start, err := parseDate(form.StartDate)
	if err != nil {
		renderError(c, http.StatusBadRequest, "Некорректная дата начала")
		return
	}
	due, err := parseDate(form.DueDate)
	if err != nil {
		renderError(c, http.StatusBadRequest, "Некорректный срок")
		return
	}
	if start != nil && due != nil && due.Before(*start) {
		renderError(c, http.StatusBadRequest, "Срок не может быть раньше даты начала")
		return
	}

	project, err := h.engine.CreateProject(c.Request.Context(), workflow.ProjectInput{
		Name:        form.Name,
		Code:        form.Code,
		Description: form.Description,
		MemberIDs:   form.MemberIDs,
		StartDate:   start,
		DueDate:     due,
	}, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"project": project, "message": "Проект создан"})
}
