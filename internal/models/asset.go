package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssetStatus string

const (
	AssetAvailable   AssetStatus = "available"
	AssetInUse       AssetStatus = "in_use"
	AssetReserved    AssetStatus = "reserved"
	AssetMaintenance AssetStatus = "maintenance"
	AssetLost        AssetStatus = "lost"
	AssetRetired     AssetStatus = "retired"
)

var assetStatuses = newChoiceSet(
	choice[AssetStatus]{AssetAvailable, "В наличии"},
	choice[AssetStatus]{AssetInUse, "Выдано"},
	choice[AssetStatus]{AssetReserved, "Зарезервировано"},
	choice[AssetStatus]{AssetMaintenance, "Обслуживание"},
	choice[AssetStatus]{AssetLost, "Утеряно"},
	choice[AssetStatus]{AssetRetired, "Списано"},
)

func AssetStatuses() []AssetStatus { return assetStatuses.values() }

func ParseAssetStatus(raw string) (AssetStatus, bool) {
	s := AssetStatus(raw)
	return s, assetStatuses.has(s)
}

func (s AssetStatus) Valid() bool { return assetStatuses.has(s) }

func (s AssetStatus) Label() string {
	if l, ok := assetStatuses.label(s); ok {
		return l
	}
	return string(s)
}

type AssetCondition string

const (
	ConditionNew         AssetCondition = "new"
	ConditionGood        AssetCondition = "good"
	ConditionNormal      AssetCondition = "normal"
	ConditionNeedsRepair AssetCondition = "needs_repair"
	ConditionBroken      AssetCondition = "broken"
)

var assetConditions = newChoiceSet(
	choice[AssetCondition]{ConditionNew, "Новый"},
	choice[AssetCondition]{ConditionGood, "Отличное"},
	choice[AssetCondition]{ConditionNormal, "Хорошее"},
	choice[AssetCondition]{ConditionNeedsRepair, "Требует ремонта"},
	choice[AssetCondition]{ConditionBroken, "Неисправно"},
)

func ParseAssetCondition(raw string) (AssetCondition, bool) {
	c := AssetCondition(raw)
	return c, assetConditions.has(c)
}

func (c AssetCondition) Valid() bool { return assetConditions.has(c) }

func (c AssetCondition) Label() string {
	if l, ok := assetConditions.label(c); ok {
		return l
	}
	return string(c)
}

// AssetCategory — категории оборудования.
type AssetCategory struct {
	gorm.Model
	Name        string `gorm:"size:120;uniqueIndex;not null"`
	Slug        string `gorm:"size:150;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	ParentID    *uint
	Parent      *AssetCategory
}

func (c *AssetCategory) BeforeCreate(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = slugOrRandom(c.Name, "category", 150)
	}
	return nil
}

type Location struct {
	gorm.Model
	Name        string `gorm:"size:160;not null"`
	Code        string `gorm:"size:32;uniqueIndex;not null"`
	Address     string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	ContactID   *uint
	Contact     *User
	IsActive    bool `gorm:"not null;default:true"`
}

type Vendor struct {
	gorm.Model
	Name    string `gorm:"size:150;not null"`
	Website string `gorm:"size:200"`
	Email   string `gorm:"size:254"`
	Phone   string `gorm:"size:32"`
	Notes   string `gorm:"type:text"`
}

type Asset struct {
	gorm.Model
	Name string `gorm:"size:160;not null"`

	CategoryID uint `gorm:"not null"`
	Category   AssetCategory

	InventoryCode string         `gorm:"size:64;uniqueIndex;not null"`
	SerialNumber  string         `gorm:"size:128"`
	Status        AssetStatus    `gorm:"type:varchar(20);not null;default:available;index"`
	Condition     AssetCondition `gorm:"type:varchar(20);not null;default:new"`

	LocationID   *uint
	Location     *Location
	CustodianID  *uint
	Custodian    *User
	AssignedToID *uint
	AssignedTo   *User
	VendorID     *uint
	Vendor       *Vendor

	PurchaseDate       *time.Time
	PurchasePrice      *float64
	WarrantyExpiration *time.Time
	Specs              datatypes.JSONMap `gorm:"type:jsonb"`
	Notes              string            `gorm:"type:text"`

	Attachments []AssetAttachment
}

func (a *Asset) BeforeSave(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = AssetAvailable
	}
	if !a.Status.Valid() {
		return fmt.Errorf("asset status %q is not declared", a.Status)
	}
	if a.Condition == "" {
		a.Condition = ConditionNew
	}
	return nil
}

func (a *Asset) String() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.InventoryCode)
}

// AssetAttachment — файл к карточке оборудования (паспорт, акт, фото).
type AssetAttachment struct {
	ID           uint `gorm:"primaryKey"`
	AssetID      uint `gorm:"not null;index"`
	Asset        Asset
	UploadedByID *uint
	UploadedBy   *User
	Title        string `gorm:"size:160"`
	StorageKey   string `gorm:"size:255;not null"`
	FileName     string `gorm:"size:255"`
	Size         int64
	UploadedAt   time.Time `gorm:"autoCreateTime"`
}
