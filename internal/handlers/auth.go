package handlers

import (
	"net/http"
	"strings"
	"time"

	"office-hub/internal/middleware"
	"office-hub/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type loginForm struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Некорректные данные")
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("username = ?", strings.TrimSpace(form.Username)).
		First(&user).Error; err != nil {
		renderError(c, http.StatusUnauthorized, "Неверный логин или пароль")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		renderError(c, http.StatusUnauthorized, "Неверный логин или пароль")
		return
	}

	sess := sessions.Default(c)
	sess.Set(middleware.SessionUserID, user.ID)
	if err := sess.Save(); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.db.WithContext(c.Request.Context()).
		Model(&user).
		UpdateColumn("last_activity", time.Now()).Error; err != nil {
		h.log.Warn().Err(err).Str("username", user.Username).Msg("failed to update last activity")
	}

	h.log.Info().Str("username", user.Username).Msg("user logged in")
	render(c, http.StatusOK, gin.H{"user": userView(&user)})
}

func (h *Handler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Me(c *gin.Context) {
	render(c, http.StatusOK, gin.H{})
}
