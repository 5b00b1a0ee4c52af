package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

var userRoles = newChoiceSet(
	choice[UserRole]{RoleAdmin, "Администратор"},
	choice[UserRole]{RoleUser, "Пользователь"},
)

func (r UserRole) Valid() bool { return userRoles.has(r) }

func (r UserRole) Label() string {
	if l, ok := userRoles.label(r); ok {
		return l
	}
	return string(r)
}

// Department — организационная единица компании.
type Department struct {
	gorm.Model
	Name        string `gorm:"size:120;uniqueIndex;not null"`
	Slug        string `gorm:"size:150;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	Color       string `gorm:"size:12;default:#4f46e5"`

	Users []User
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.Slug == "" {
		d.Slug = slugOrRandom(d.Name, "dept", 150)
	}
	return nil
}

type User struct {
	gorm.Model
	Username     string   `gorm:"uniqueIndex;size:150;not null"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Email        string   `gorm:"size:254"`
	FirstName    string   `gorm:"size:150"`
	LastName     string   `gorm:"size:150"`
	Role         UserRole `gorm:"type:varchar(20);not null;default:user"`
	JobTitle     string   `gorm:"size:120"`
	Phone        string   `gorm:"size:20"`

	DepartmentID *uint
	Department   *Department

	LastActivity time.Time
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName — полное имя, если заполнено, иначе логин.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
