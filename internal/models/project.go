package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	gorm.Model
	Name        string `gorm:"size:160;not null"`
	Code        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"type:text"`

	OwnerID *uint
	Owner   *User
	Members []User `gorm:"many2many:project_members;"`

	IsActive  bool `gorm:"not null;default:true"`
	StartDate *time.Time
	DueDate   *time.Time

	Tasks []Task
}

// код проекта генерируется из названия, если не задан
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.Code == "" {
		p.Code = slugOrRandom(p.Name, "project", 32)
	}
	return nil
}

// HasMember проверяет членство по уже загруженному списку Members.
func (p *Project) HasMember(userID uint) bool {
	for _, m := range p.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}
