package handlers

import (
	"net/http"
	"strings"
	"time"

	"office-hub/internal/database"
	"office-hub/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// СОТРУДНИКИ И ОТДЕЛЫ

func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Department").
		Order("last_name, first_name, username").
		Find(&users).Error; err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"users": users})
}

type userForm struct {
	Username     string `form:"username" json:"username" binding:"required,min=3,max=150"`
	Password     string `form:"password" json:"password" binding:"required,min=6"`
	Email        string `form:"email" json:"email" binding:"omitempty,email"`
	FirstName    string `form:"first_name" json:"first_name"`
	LastName     string `form:"last_name" json:"last_name"`
	Role         string `form:"role" json:"role"`
	JobTitle     string `form:"job_title" json:"job_title"`
	Phone        string `form:"phone" json:"phone"`
	DepartmentID *uint  `form:"department_id" json:"department_id"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var form userForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Слишком короткий логин или пароль")
		return
	}

	role := models.UserRole(form.Role)
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		renderError(c, http.StatusBadRequest, "Неверная роль")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(c, err)
		return
	}
	user := models.User{
		Username:     strings.TrimSpace(form.Username),
		PasswordHash: string(hash),
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Role:         role,
		JobTitle:     form.JobTitle,
		Phone:        form.Phone,
		DepartmentID: form.DepartmentID,
		LastActivity: time.Now(),
	}
	if err := h.db.WithContext(c.Request.Context()).Omit("Department").Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			renderError(c, http.StatusConflict, "Пользователь уже существует")
			return
		}
		h.fail(c, err)
		return
	}

	h.log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("user created")
	render(c, http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) ListDepartments(c *gin.Context) {
	var departments []models.Department
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Users").
		Order("name").
		Find(&departments).Error; err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"departments": departments})
}
