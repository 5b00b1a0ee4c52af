package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"office-hub/internal/audit"
	"office-hub/internal/metrics"
	"office-hub/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransitionAsset меняет статус оборудования и пишет status_change
// с прежним и новым статусом. Права не проверяются: доступ к мутациям
// оборудования ограничивает роутер.
func (e *Engine) TransitionAsset(ctx context.Context, assetID uint, target models.AssetStatus, actor *models.User, note string) (*models.Asset, error) {
	if !target.Valid() {
		e.reject(audit.DomainAsset, "invalid_status")
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}

	var (
		asset models.Asset
		from  models.AssetStatus
		entry *models.AssetLogEntry
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&asset, assetID).Error; err != nil {
			return translate(err, "load asset")
		}

		from = asset.Status
		asset.Status = target
		if err := tx.Model(&asset).Omit(clause.Associations).Update("status", target).Error; err != nil {
			return fmt.Errorf("update asset status: %w", err)
		}

		var err error
		entry, err = audit.RecordAsset(tx, &asset, models.AssetActionStatusChange, actor, map[string]any{
			"from_status": string(from),
			"to_status":   string(target),
		}, note)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.reject(audit.DomainAsset, "not_found")
		}
		return nil, err
	}

	metrics.Transitions.WithLabelValues(audit.DomainAsset, string(target)).Inc()
	e.emitAsset(ctx, entry)
	e.log.Info().
		Uint("asset_id", asset.ID).
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("asset status changed")
	return &asset, nil
}

// AssignAsset выдаёт оборудование сотруднику и переводит его в in_use.
func (e *Engine) AssignAsset(ctx context.Context, assetID, userID uint, actor *models.User, note string) (*models.Asset, error) {
	var (
		asset models.Asset
		entry *models.AssetLogEntry
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&asset, assetID).Error; err != nil {
			return translate(err, "load asset")
		}
		var holder models.User
		if err := tx.First(&holder, userID).Error; err != nil {
			return translate(err, "load assignee")
		}

		from := asset.Status
		asset.Status = models.AssetInUse
		asset.AssignedToID = &holder.ID
		if err := tx.Model(&asset).Omit(clause.Associations).Updates(map[string]any{
			"status":         asset.Status,
			"assigned_to_id": holder.ID,
		}).Error; err != nil {
			return fmt.Errorf("assign asset: %w", err)
		}

		var err error
		entry, err = audit.RecordAsset(tx, &asset, models.AssetActionAssigned, actor, map[string]any{
			"assigned_to": holder.ID,
			"from_status": string(from),
			"to_status":   string(asset.Status),
		}, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues(audit.DomainAsset, string(asset.Status)).Inc()
	e.emitAsset(ctx, entry)
	return &asset, nil
}

// ReturnAsset снимает выдачу и возвращает оборудование на склад.
func (e *Engine) ReturnAsset(ctx context.Context, assetID uint, actor *models.User, note string) (*models.Asset, error) {
	var (
		asset models.Asset
		entry *models.AssetLogEntry
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&asset, assetID).Error; err != nil {
			return translate(err, "load asset")
		}

		payload := map[string]any{
			"from_status": string(asset.Status),
			"to_status":   string(models.AssetAvailable),
		}
		if asset.AssignedToID != nil {
			payload["returned_by"] = *asset.AssignedToID
		}

		asset.Status = models.AssetAvailable
		asset.AssignedToID = nil
		if err := tx.Model(&asset).Omit(clause.Associations).Updates(map[string]any{
			"status":         asset.Status,
			"assigned_to_id": nil,
		}).Error; err != nil {
			return fmt.Errorf("return asset: %w", err)
		}

		var err error
		entry, err = audit.RecordAsset(tx, &asset, models.AssetActionReturned, actor, payload, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.Transitions.WithLabelValues(audit.DomainAsset, string(asset.Status)).Inc()
	e.emitAsset(ctx, entry)
	return &asset, nil
}

// AddAssetNote — запись в журнал без изменения оборудования.
func (e *Engine) AddAssetNote(ctx context.Context, assetID uint, actor *models.User, note string) (*models.AssetLogEntry, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("%w: empty note", ErrInvalidInput)
	}

	var entry *models.AssetLogEntry
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tx.First(&asset, assetID).Error; err != nil {
			return translate(err, "load asset")
		}
		var err error
		entry, err = audit.RecordAsset(tx, &asset, models.AssetActionNote, actor, nil, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emitAsset(ctx, entry)
	return entry, nil
}

type MaintenanceInput struct {
	Title         string
	Kind          models.MaintenanceKind
	ScheduledFor  *time.Time
	Description   string
	Cost          *float64
	ResponsibleID *uint
	ContractorID  *uint
}

// ScheduleMaintenance планирует работы по оборудованию.
func (e *Engine) ScheduleMaintenance(ctx context.Context, assetID uint, in MaintenanceInput, actor *models.User) (*models.MaintenanceRecord, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: maintenance title is required", ErrInvalidInput)
	}
	if in.Kind == "" {
		in.Kind = models.MaintenanceService
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: maintenance kind %q", ErrInvalidInput, in.Kind)
	}

	var (
		rec   models.MaintenanceRecord
		entry *models.AssetLogEntry
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset models.Asset
		if err := tx.First(&asset, assetID).Error; err != nil {
			return translate(err, "load asset")
		}

		rec = models.MaintenanceRecord{
			AssetID:       asset.ID,
			Title:         in.Title,
			Kind:          in.Kind,
			Status:        models.MaintenancePlanned,
			ScheduledFor:  in.ScheduledFor,
			Description:   in.Description,
			Cost:          in.Cost,
			ResponsibleID: in.ResponsibleID,
			ContractorID:  in.ContractorID,
		}
		if err := tx.Omit("Asset", "Responsible", "Contractor").Create(&rec).Error; err != nil {
			return translate(err, "create maintenance record")
		}

		payload := map[string]any{
			"maintenance": rec.ID,
			"kind":        string(rec.Kind),
			"title":       rec.Title,
		}
		if rec.ScheduledFor != nil {
			payload["scheduled_for"] = rec.ScheduledFor.Format(time.DateOnly)
		}
		var err error
		entry, err = audit.RecordAsset(tx, &asset, models.AssetActionMaintenance, actor, payload, in.Description)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emitAsset(ctx, entry)
	return &rec, nil
}

// UpdateMaintenanceStatus переводит работы в новый статус. CompletedAt
// ставится при первом переходе в done.
func (e *Engine) UpdateMaintenanceStatus(ctx context.Context, recordID uint, target models.MaintenanceStatus, actor *models.User, note string) (*models.MaintenanceRecord, error) {
	if !target.Valid() {
		e.reject(audit.DomainAsset, "invalid_maintenance_status")
		return nil, fmt.Errorf("%w: maintenance status %q", ErrInvalidStatus, target)
	}

	var (
		rec   models.MaintenanceRecord
		entry *models.AssetLogEntry
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Asset").First(&rec, recordID).Error; err != nil {
			return translate(err, "load maintenance record")
		}
		from := rec.Status

		changes := map[string]any{"status": target}
		if target == models.MaintenanceDone && rec.CompletedAt == nil {
			now := e.now()
			changes["completed_at"] = &now
			rec.CompletedAt = &now
		}
		if err := tx.Model(&models.MaintenanceRecord{}).Where("id = ?", rec.ID).Updates(changes).Error; err != nil {
			return fmt.Errorf("update maintenance status: %w", err)
		}
		rec.Status = target

		var err error
		entry, err = audit.RecordAsset(tx, &rec.Asset, models.AssetActionMaintenance, actor, map[string]any{
			"maintenance":                 rec.ID,
			"title":                       rec.Title,
			"previous_maintenance_status": string(from),
			"maintenance_status":          string(target),
		}, note)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emitAsset(ctx, entry)
	return &rec, nil
}

type AssetInput struct {
	Name               string
	CategoryID         uint
	InventoryCode      string
	SerialNumber       string
	Status             models.AssetStatus
	Condition          models.AssetCondition
	LocationID         *uint
	CustodianID        *uint
	VendorID           *uint
	PurchaseDate       *time.Time
	PurchasePrice      *float64
	WarrantyExpiration *time.Time
	Specs              map[string]any
	Notes              string
}

func (in AssetInput) validate(requireCode bool) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: asset name is required", ErrInvalidInput)
	}
	if in.CategoryID == 0 {
		return fmt.Errorf("%w: asset category is required", ErrInvalidInput)
	}
	if requireCode && strings.TrimSpace(in.InventoryCode) == "" {
		return fmt.Errorf("%w: inventory code is required", ErrInvalidInput)
	}
	if in.Condition != "" && !in.Condition.Valid() {
		return fmt.Errorf("%w: condition %q", ErrInvalidInput, in.Condition)
	}
	return nil
}

// CreateAsset заводит оборудование; журнал получает запись created.
func (e *Engine) CreateAsset(ctx context.Context, in AssetInput, actor *models.User) (*models.Asset, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if in.Status != "" && !in.Status.Valid() {
		e.reject(audit.DomainAsset, "invalid_status")
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}

	asset := models.Asset{
		Name:               strings.TrimSpace(in.Name),
		CategoryID:         in.CategoryID,
		InventoryCode:      strings.TrimSpace(in.InventoryCode),
		SerialNumber:       in.SerialNumber,
		Status:             in.Status,
		Condition:          in.Condition,
		LocationID:         in.LocationID,
		CustodianID:        in.CustodianID,
		VendorID:           in.VendorID,
		PurchaseDate:       in.PurchaseDate,
		PurchasePrice:      in.PurchasePrice,
		WarrantyExpiration: in.WarrantyExpiration,
		Specs:              datatypes.JSONMap(in.Specs),
		Notes:              in.Notes,
	}

	var entry *models.AssetLogEntry
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.AssetCategory
		if err := tx.First(&category, in.CategoryID).Error; err != nil {
			return translate(err, "load category")
		}
		if err := tx.Omit("Category", "Location", "Custodian", "AssignedTo", "Vendor").Create(&asset).Error; err != nil {
			return translate(err, "create asset")
		}

		var err error
		entry, err = audit.RecordAsset(tx, &asset, models.AssetActionCreated, actor, map[string]any{
			"status": string(asset.Status),
		}, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emitAsset(ctx, entry)
	return &asset, nil
}

// UpdateAsset меняет карточку оборудования. Статус здесь не меняется:
// для этого есть TransitionAsset.
func (e *Engine) UpdateAsset(ctx context.Context, assetID uint, in AssetInput, actor *models.User) (*models.Asset, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}

	var (
		asset models.Asset
		entry *models.AssetLogEntry
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&asset, assetID).Error; err != nil {
			return translate(err, "load asset")
		}

		changes := map[string]any{
			"name":                strings.TrimSpace(in.Name),
			"category_id":         in.CategoryID,
			"serial_number":       in.SerialNumber,
			"location_id":         in.LocationID,
			"custodian_id":        in.CustodianID,
			"vendor_id":           in.VendorID,
			"purchase_date":       in.PurchaseDate,
			"purchase_price":      in.PurchasePrice,
			"warranty_expiration": in.WarrantyExpiration,
			"notes":               in.Notes,
		}
		if code := strings.TrimSpace(in.InventoryCode); code != "" {
			changes["inventory_code"] = code
		}
		if in.Condition != "" {
			changes["condition"] = in.Condition
		}
		if in.Specs != nil {
			changes["specs"] = datatypes.JSONMap(in.Specs)
		}

		changed := diffAsset(&asset, changes)
		if err := tx.Model(&asset).Omit(clause.Associations).Updates(changes).Error; err != nil {
			return translate(err, "update asset")
		}
		if err := tx.First(&asset, assetID).Error; err != nil {
			return translate(err, "reload asset")
		}

		var err error
		entry, err = audit.RecordAsset(tx, &asset, models.AssetActionUpdated, actor, map[string]any{
			"fields": changed,
		}, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emitAsset(ctx, entry)
	return &asset, nil
}

// diffAsset возвращает имена изменённых простых полей.
func diffAsset(a *models.Asset, changes map[string]any) []string {
	current := map[string]any{
		"name":           a.Name,
		"category_id":    a.CategoryID,
		"inventory_code": a.InventoryCode,
		"serial_number":  a.SerialNumber,
		"condition":      a.Condition,
		"notes":          a.Notes,
	}
	out := make([]string, 0, len(changes))
	for _, key := range []string{"name", "category_id", "inventory_code", "serial_number", "condition", "notes"} {
		v, ok := changes[key]
		if !ok {
			continue
		}
		if fmt.Sprint(v) != fmt.Sprint(current[key]) {
			out = append(out, key)
		}
	}
	return out
}
