package handlers

import (
	"net/http"

	"office-hub/internal/audit"
	"office-hub/internal/middleware"
	"office-hub/internal/models"

	"github.com/gin-gonic/gin"
)

// Index — краткая сводка для главной страницы.
func (h *Handler) Index(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"is_authed": false})
		return
	}

	ctx := c.Request.Context()
	var assets, openTasks, myTasks int64
	db := h.db.WithContext(ctx)
	if err := db.Model(&models.Asset{}).Count(&assets).Error; err != nil {
		h.fail(c, err)
		return
	}
	if err := db.Model(&models.Task{}).Where("status <> ?", models.TaskDone).Count(&openTasks).Error; err != nil {
		h.fail(c, err)
		return
	}
	if err := db.Model(&models.Task{}).
		Where("assignee_id = ? AND status <> ?", user.ID, models.TaskDone).
		Count(&myTasks).Error; err != nil {
		h.fail(c, err)
		return
	}

	recent, err := h.journal.Recent(ctx, audit.DefaultLimit)
	if err != nil {
		h.fail(c, err)
		return
	}

	render(c, http.StatusOK, gin.H{
		"is_authed":       true,
		"asset_total":     assets,
		"open_tasks":      openTasks,
		"my_open_tasks":   myTasks,
		"recent_activity": recent,
	})
}
