package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"office-hub/internal/audit"
	"office-hub/internal/middleware"
	"office-hub/internal/models"
	"office-hub/internal/reporting"
	"office-hub/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Handler struct {
	db      *gorm.DB
	engine  *workflow.Engine
	reports *reporting.Service
	journal *audit.Log
	log     zerolog.Logger
}

func New(db *gorm.DB, engine *workflow.Engine, reports *reporting.Service, log zerolog.Logger) *Handler {
	return &Handler{
		db:      db,
		engine:  engine,
		reports: reports,
		journal: audit.NewLog(db),
		log:     log.With().Str("component", "handlers").Logger(),
	}
}

// render — ответ в JSON; пользователь из middleware.InjectUser добавляется,
// если ответ — gin.H.
func render(c *gin.Context, status int, data any) {
	if h, ok := data.(gin.H); ok {
		if u := middleware.CurrentUser(c); u != nil {
			h["current_user"] = userView(u)
		}
	}
	c.JSON(status, data)
}

func renderError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// fail переводит ошибки workflow в HTTP-статусы. Внутренние ошибки
// наружу не отдаются.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrInvalidStatus):
		renderError(c, http.StatusBadRequest, "Недопустимый статус")
	case errors.Is(err, workflow.ErrInvalidInput):
		renderError(c, http.StatusBadRequest, "Некорректные данные")
	case errors.Is(err, workflow.ErrNotFound):
		renderError(c, http.StatusNotFound, "Запись не найдена")
	case errors.Is(err, workflow.ErrForbidden):
		renderError(c, http.StatusForbidden, "Недостаточно прав для смены статуса")
	case errors.Is(err, workflow.ErrConflict):
		renderError(c, http.StatusConflict, "Запись с такими данными уже существует")
	default:
		_ = c.Error(err)
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		renderError(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
	}
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		renderError(c, http.StatusBadRequest, "Некорректный ID")
		return 0, false
	}
	return uint(id), true
}

// parseDate принимает YYYY-MM-DD; пустая строка — nil.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type userInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsAdmin  bool   `json:"is_admin"`
}

func userView(u *models.User) userInfo {
	return userInfo{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.DisplayName(),
		Role:     string(u.Role),
		IsAdmin:  u.IsAdmin(),
	}
}
