package models

import (
	"time"

	"gorm.io/gorm"
)

type MaintenanceKind string

const (
	MaintenanceService    MaintenanceKind = "service"
	MaintenanceRepair     MaintenanceKind = "repair"
	MaintenanceUpdate     MaintenanceKind = "update"
	MaintenanceInspection MaintenanceKind = "inspection"
)

var maintenanceKinds = newChoiceSet(
	choice[MaintenanceKind]{MaintenanceService, "Плановое обслуживание"},
	choice[MaintenanceKind]{MaintenanceRepair, "Ремонт"},
	choice[MaintenanceKind]{MaintenanceUpdate, "Обновление ПО"},
	choice[MaintenanceKind]{MaintenanceInspection, "Осмотр"},
)

func (k MaintenanceKind) Valid() bool { return maintenanceKinds.has(k) }

func (k MaintenanceKind) Label() string {
	if l, ok := maintenanceKinds.label(k); ok {
		return l
	}
	return string(k)
}

type MaintenanceStatus string

const (
	MaintenancePlanned    MaintenanceStatus = "planned"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceDone       MaintenanceStatus = "done"
	MaintenanceCanceled   MaintenanceStatus = "canceled"
)

var maintenanceStatuses = newChoiceSet(
	choice[MaintenanceStatus]{MaintenancePlanned, "Запланировано"},
	choice[MaintenanceStatus]{MaintenanceInProgress, "В процессе"},
	choice[MaintenanceStatus]{MaintenanceDone, "Завершено"},
	choice[MaintenanceStatus]{MaintenanceCanceled, "Отменено"},
)

func (s MaintenanceStatus) Valid() bool { return maintenanceStatuses.has(s) }

func (s MaintenanceStatus) Label() string {
	if l, ok := maintenanceStatuses.label(s); ok {
		return l
	}
	return string(s)
}

type MaintenanceRecord struct {
	gorm.Model
	AssetID uint `gorm:"not null;index"`
	Asset   Asset

	Title        string            `gorm:"size:160;not null"`
	Kind         MaintenanceKind   `gorm:"type:varchar(20);not null;default:service"`
	Status       MaintenanceStatus `gorm:"type:varchar(20);not null;default:planned"`
	ScheduledFor *time.Time
	CompletedAt  *time.Time
	Description  string `gorm:"type:text"`
	Cost         *float64

	ResponsibleID *uint
	Responsible   *User
	ContractorID  *uint
	Contractor    *Vendor
}

// IsOverdue — дата прошла, а работы не завершены.
func (m *MaintenanceRecord) IsOverdue(now time.Time) bool {
	if m.ScheduledFor == nil || m.Status == MaintenanceDone {
		return false
	}
	y, mo, d := now.Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, now.Location())
	return m.ScheduledFor.Before(today)
}
