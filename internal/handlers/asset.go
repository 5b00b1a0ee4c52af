package handlers

import (
	"net/http"
	"strings"

	"office-hub/internal/audit"
	"office-hub/internal/database"
	"office-hub/internal/middleware"
	"office-hub/internal/models"
	"office-hub/internal/workflow"

	"github.com/gin-gonic/gin"
)

// ОБЗОР ОБОРУДОВАНИЯ

func (h *Handler) Inventory(c *gin.Context) {
	overview, err := h.reports.InventoryOverview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{
		"overview":   overview,
		"can_manage": workflow.CanManageAssets(middleware.CurrentUser(c)),
	})
}

func (h *Handler) ShowAsset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var asset models.Asset
	if err := h.db.WithContext(ctx).
		Preload("Category").
		Preload("Location").
		Preload("Vendor").
		Preload("Custodian").
		Preload("AssignedTo").
		Preload("Attachments").
		First(&asset, id).Error; err != nil {
		renderError(c, http.StatusNotFound, "Оборудование не найдено")
		return
	}

	entries, err := h.journal.RecentAssetEntries(ctx, audit.MaxLimit, asset.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	history := make([]audit.Entry, 0, len(entries))
	for i := range entries {
		history = append(history, audit.AssetEntryView(&entries[i]))
	}

	var maintenance []models.MaintenanceRecord
	if err := h.db.WithContext(ctx).
		Preload("Responsible").
		Preload("Contractor").
		Where("asset_id = ?", asset.ID).
		Order("scheduled_for DESC").
		Find(&maintenance).Error; err != nil {
		h.fail(c, err)
		return
	}

	links := make(map[uint]string, len(asset.Attachments))
	for _, att := range asset.Attachments {
		if url, err := h.engine.AssetAttachmentURL(ctx, &att); err == nil {
			links[att.ID] = url
		}
	}

	render(c, http.StatusOK, gin.H{
		"asset":           asset,
		"status_label":    asset.Status.Label(),
		"history":         history,
		"maintenance":     maintenance,
		"attachment_urls": links,
	})
}

// СОЗДАНИЕ И РЕДАКТИРОВАНИЕ

type assetForm struct {
	Name               string         `form:"name" json:"name" binding:"required,min=2,max=160"`
	CategoryID         uint           `form:"category_id" json:"category_id" binding:"required"`
	InventoryCode      string         `form:"inventory_code" json:"inventory_code" binding:"max=64"`
	SerialNumber       string         `form:"serial_number" json:"serial_number" binding:"max=128"`
	Status             string         `form:"status" json:"status"`
	Condition          string         `form:"condition" json:"condition"`
	LocationID         *uint          `form:"location_id" json:"location_id"`
	CustodianID        *uint          `form:"custodian_id" json:"custodian_id"`
	VendorID           *uint          `form:"vendor_id" json:"vendor_id"`
	PurchaseDate       string         `form:"purchase_date" json:"purchase_date"`
	PurchasePrice      *float64       `form:"purchase_price" json:"purchase_price" binding:"omitempty,gte=0"`
	WarrantyExpiration string         `form:"warranty_expiration" json:"warranty_expiration"`
	Specs              map[string]any `json:"specs"`
	Notes              string         `form:"notes" json:"notes"`
}

func (f assetForm) input() (workflow.AssetInput, bool) {
	purchased, err := parseDate(f.PurchaseDate)
	if err != nil {
		return workflow.AssetInput{}, false
	}
	warranty, err := parseDate(f.WarrantyExpiration)
	if err != nil {
		return workflow.AssetInput{}, false
	}
	return workflow.AssetInput{
		Name:               f.Name,
		CategoryID:         f.CategoryID,
		InventoryCode:      f.InventoryCode,
		SerialNumber:       f.SerialNumber,
		Status:             models.AssetStatus(f.Status),
		Condition:          models.AssetCondition(f.Condition),
		LocationID:         f.LocationID,
		CustodianID:        f.CustodianID,
		VendorID:           f.VendorID,
		PurchaseDate:       purchased,
		PurchasePrice:      f.PurchasePrice,
		WarrantyExpiration: warranty,
		Specs:              f.Specs,
		Notes:              f.Notes,
	}, true
}

func (h *Handler) CreateAsset(c *gin.Context) {
	var form assetForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите название и категорию оборудования")
		return
	}
	in, ok := form.input()
	if !ok {
		renderError(c, http.StatusBadRequest, "Дата должна быть в формате ГГГГ-ММ-ДД")
		return
	}

	asset, err := h.engine.CreateAsset(c.Request.Context(), in, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"asset": asset, "message": "Оборудование добавлено"})
}

func (h *Handler) UpdateAsset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form assetForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите название и категорию оборудования")
		return
	}
	in, ok := form.input()
	if !ok {
		renderError(c, http.StatusBadRequest, "Дата должна быть в формате ГГГГ-ММ-ДД")
		return
	}

	asset, err := h.engine.UpdateAsset(c.Request.Context(), id, in, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"asset": asset, "message": "Изменения сохранены"})
}

// СТАТУС, ВЫДАЧА, ВОЗВРАТ

type assetStatusForm struct {
	Status string `form:"status" json:"status" binding:"required"`
	Note   string `form:"note" json:"note"`
}

func (h *Handler) ChangeAssetStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form assetStatusForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите статус")
		return
	}

	asset, err := h.engine.TransitionAsset(c.Request.Context(), id, models.AssetStatus(form.Status), middleware.CurrentUser(c), form.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"asset": asset, "status_label": asset.Status.Label()})
}

type assignForm struct {
	UserID uint   `form:"user_id" json:"user_id" binding:"required"`
	Note   string `form:"note" json:"note"`
}

func (h *Handler) AssignAsset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form assignForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Выберите сотрудника")
		return
	}

	asset, err := h.engine.AssignAsset(c.Request.Context(), id, form.UserID, middleware.CurrentUser(c), form.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"asset": asset})
}

type noteForm struct {
	Note string `form:"note" json:"note"`
}

func (h *Handler) ReturnAsset(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form noteForm
	_ = c.ShouldBind(&form)

	asset, err := h.engine.ReturnAsset(c.Request.Context(), id, middleware.CurrentUser(c), form.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"asset": asset})
}

func (h *Handler) AddAssetNote(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form noteForm
	if err := c.ShouldBind(&form); err != nil || strings.TrimSpace(form.Note) == "" {
		renderError(c, http.StatusBadRequest, "Комментарий не может быть пустым")
		return
	}

	entry, err := h.engine.AddAssetNote(c.Request.Context(), id, middleware.CurrentUser(c), form.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"entry": audit.AssetEntryView(entry)})
}

// ОБСЛУЖИВАНИЕ

type maintenanceForm struct {
	AssetID       uint     `form:"asset_id" json:"asset_id" binding:"required"`
	Title         string   `form:"title" json:"title" binding:"required,max=160"`
	Kind          string   `form:"kind" json:"kind"`
	ScheduledFor  string   `form:"scheduled_for" json:"scheduled_for"`
	Description   string   `form:"description" json:"description"`
	Cost          *float64 `form:"cost" json:"cost" binding:"omitempty,gte=0"`
	ResponsibleID *uint    `form:"responsible_id" json:"responsible_id"`
	ContractorID  *uint    `form:"contractor_id" json:"contractor_id"`
}

func (h *Handler) ScheduleMaintenance(c *gin.Context) {
	var form maintenanceForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите оборудование и название работ")
		return
	}
	when, err := parseDate(form.ScheduledFor)
	if err != nil {
		renderError(c, http.StatusBadRequest, "Дата должна быть в формате ГГГГ-ММ-ДД")
		return
	}

	rec, err := h.engine.ScheduleMaintenance(c.Request.Context(), form.AssetID, workflow.MaintenanceInput{
		Title:         form.Title,
		Kind:          models.MaintenanceKind(form.Kind),
		ScheduledFor:  when,
		Description:   form.Description,
		Cost:          form.Cost,
		ResponsibleID: form.ResponsibleID,
		ContractorID:  form.ContractorID,
	}, middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"maintenance": rec, "message": "Работы запланированы"})
}

// СПРАВОЧНИКИ

type categoryForm struct {
	Name        string `form:"name" json:"name" binding:"required,max=120"`
	Slug        string `form:"slug" json:"slug" binding:"max=150"`
	Description string `form:"description" json:"description"`
	ParentID    *uint  `form:"parent_id" json:"parent_id"`
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var form categoryForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите название категории")
		return
	}
	cat := models.AssetCategory{
		Name:        strings.TrimSpace(form.Name),
		Slug:        strings.TrimSpace(form.Slug),
		Description: form.Description,
		ParentID:    form.ParentID,
	}
	h.createRecord(c, &cat, "category")
}

type locationForm struct {
	Name        string `form:"name" json:"name" binding:"required,max=160"`
	Code        string `form:"code" json:"code" binding:"required,max=32"`
	Address     string `form:"address" json:"address"`
	Description string `form:"description" json:"description"`
	ContactID   *uint  `form:"contact_id" json:"contact_id"`
}

func (h *Handler) CreateLocation(c *gin.Context) {
	var form locationForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите название и код локации")
		return
	}
	loc := models.Location{
		Name:        strings.TrimSpace(form.Name),
		Code:        strings.TrimSpace(form.Code),
		Address:     form.Address,
		Description: form.Description,
		ContactID:   form.ContactID,
		IsActive:    true,
	}
	h.createRecord(c, &loc, "location")
}

type vendorForm struct {
	Name    string `form:"name" json:"name" binding:"required,max=150"`
	Website string `form:"website" json:"website" binding:"omitempty,url"`
	Email   string `form:"email" json:"email" binding:"omitempty,email"`
	Phone   string `form:"phone" json:"phone"`
	Notes   string `form:"notes" json:"notes"`
}

func (h *Handler) CreateVendor(c *gin.Context) {
	var form vendorForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите название поставщика")
		return
	}
	vendor := models.Vendor{
		Name:    strings.TrimSpace(form.Name),
		Website: form.Website,
		Email:   form.Email,
		Phone:   form.Phone,
		Notes:   form.Notes,
	}
	h.createRecord(c, &vendor, "vendor")
}

// createRecord — общий путь для справочников без журнала.
func (h *Handler) createRecord(c *gin.Context, record any, key string) {
	if err := h.db.WithContext(c.Request.Context()).Omit("Parent", "Contact").Create(record).Error; err != nil {
		if database.IsUniqueViolation(err) {
			renderError(c, http.StatusConflict, "Запись с такими данными уже существует")
			return
		}
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{key: record})
}

// UpdateMaintenanceStatus — ход работ: в процессе, завершено, отменено.
func (h *Handler) UpdateMaintenanceStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var form assetStatusForm
	if err := c.ShouldBind(&form); err != nil {
		renderError(c, http.StatusBadRequest, "Укажите статус")
		return
	}

	rec, err := h.engine.UpdateMaintenanceStatus(c.Request.Context(), id, models.MaintenanceStatus(form.Status), middleware.CurrentUser(c), form.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusOK, gin.H{"maintenance": rec, "status_label": rec.Status.Label()})
}

func (h *Handler) UploadAssetAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		renderError(c, http.StatusBadRequest, "Выберите файл")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	att, err := h.engine.AddAssetAttachment(c.Request.Context(), id, middleware.CurrentUser(c), workflow.AttachmentInput{
		Title:    c.PostForm("title"),
		FileName: fh.Filename,
		Size:     fh.Size,
		Body:     f,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	render(c, http.StatusCreated, gin.H{"attachment": att})
}
