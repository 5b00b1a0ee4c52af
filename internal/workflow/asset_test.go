package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"office-hub/internal/database/dbtest"
	"office-hub/internal/events"
	"office-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assetEntries(t *testing.T, e *Engine, assetID uint) []models.AssetLogEntry {
	t.Helper()
	var entries []models.AssetLogEntry
	require.NoError(t, e.db.Where("asset_id = ?", assetID).Order("id").Find(&entries).Error)
	return entries
}

func TestTransitionAssetRecordsFromAndTo(t *testing.T) {
	db := dbtest.New(t)
	pub := &recordingPublisher{}
	e := NewEngine(db, WithPublisher(pub))
	manager := dbtest.CreateUser(t, db, "manager", models.RoleAdmin)
	asset := dbtest.CreateAsset(t, db, "INV-001", models.AssetAvailable)

	got, err := e.TransitionAsset(context.Background(), asset.ID, models.AssetInUse, manager, "выдан на проект")
	require.NoError(t, err)
	assert.Equal(t, models.AssetInUse, got.Status)

	var stored models.Asset
	require.NoError(t, db.First(&stored, asset.ID).Error)
	assert.Equal(t, models.AssetInUse, stored.Status)

	entries := assetEntries(t, e, asset.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AssetActionStatusChange, entries[0].Action)
	assert.Equal(t, "available", entries[0].Payload["from_status"])
	assert.Equal(t, "in_use", entries[0].Payload["to_status"])
	assert.Equal(t, "выдан на проект", entries[0].Notes)
	require.NotNil(t, entries[0].PerformedByID)
	assert.Equal(t, manager.ID, *entries[0].PerformedByID)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "asset", pub.sent[0].Domain)
	assert.Equal(t, events.SubjectPrefix+"asset", pub.sent[0].Subject())
	assert.Equal(t, asset.ID, pub.sent[0].EntityID)
}

func TestTransitionAssetEveryStatus(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	asset := dbtest.CreateAsset(t, db, "INV-002", models.AssetAvailable)

	for _, status := range models.AssetStatuses() {
		_, err := e.TransitionAsset(context.Background(), asset.ID, status, nil, "")
		require.NoError(t, err, status)
	}

	entries := assetEntries(t, e, asset.ID)
	require.Len(t, entries, len(models.AssetStatuses()))
	prev := "available"
	for i, status := range models.AssetStatuses() {
		assert.Equal(t, prev, entries[i].Payload["from_status"])
		assert.Equal(t, string(status), entries[i].Payload["to_status"])
		assert.Nil(t, entries[i].PerformedByID)
		prev = string(status)
	}
}

func TestTransitionAssetInvalidStatus(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	asset := dbtest.CreateAsset(t, db, "INV-003", models.AssetReserved)

	_, err := e.TransitionAsset(context.Background(), asset.ID, models.AssetStatus("stolen"), nil, "")
	require.ErrorIs(t, err, ErrInvalidStatus)

	var stored models.Asset
	require.NoError(t, db.First(&stored, asset.ID).Error)
	assert.Equal(t, models.AssetReserved, stored.Status)
	assert.Empty(t, assetEntries(t, e, asset.ID))
}

func TestTransitionAssetNotFound(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)

	_, err := e.TransitionAsset(context.Background(), 999, models.AssetLost, nil, "")
	require.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.AssetLogEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	db := dbtest.New(t)
	pub := &recordingPublisher{err: assert.AnError}
	e := NewEngine(db, WithPublisher(pub))
	asset := dbtest.CreateAsset(t, db, "INV-004", models.AssetAvailable)

	_, err := e.TransitionAsset(context.Background(), asset.ID, models.AssetMaintenance, nil, "")
	require.NoError(t, err)
	assert.Len(t, assetEntries(t, e, asset.ID), 1)
}

func TestAssignAndReturnAsset(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	admin := dbtest.CreateUser(t, db, "manager", models.RoleAdmin)
	engineer := dbtest.CreateUser(t, db, "engineer", models.RoleUser)
	asset := dbtest.CreateAsset(t, db, "INV-005", models.AssetAvailable)
	ctx := context.Background()

	got, err := e.AssignAsset(ctx, asset.ID, engineer.ID, admin, "")
	require.NoError(t, err)
	assert.Equal(t, models.AssetInUse, got.Status)
	require.NotNil(t, got.AssignedToID)
	assert.Equal(t, engineer.ID, *got.AssignedToID)

	got, err = e.ReturnAsset(ctx, asset.ID, admin, "вернул на склад")
	require.NoError(t, err)
	assert.Equal(t, models.AssetAvailable, got.Status)
	assert.Nil(t, got.AssignedToID)

	var stored models.Asset
	require.NoError(t, db.First(&stored, asset.ID).Error)
	assert.Nil(t, stored.AssignedToID)

	entries := assetEntries(t, e, asset.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, models.AssetActionAssigned, entries[0].Action)
	assert.EqualValues(t, engineer.ID, entries[0].Payload["assigned_to"])
	assert.Equal(t, models.AssetActionReturned, entries[1].Action)
	assert.Equal(t, "in_use", entries[1].Payload["from_status"])

	_, err = e.AssignAsset(ctx, asset.ID, 12345, admin, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddAssetNote(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	asset := dbtest.CreateAsset(t, db, "INV-006", models.AssetAvailable)

	_, err := e.AddAssetNote(context.Background(), asset.ID, nil, "   ")
	require.ErrorIs(t, err, ErrInvalidInput)

	entry, err := e.AddAssetNote(context.Background(), asset.ID, nil, "царапина на корпусе")
	require.NoError(t, err)
	assert.Equal(t, models.AssetActionNote, entry.Action)
	assert.Len(t, assetEntries(t, e, asset.ID), 1)
}

func TestScheduleMaintenance(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	asset := dbtest.CreateAsset(t, db, "INV-007", models.AssetAvailable)

	_, err := e.ScheduleMaintenance(context.Background(), asset.ID, MaintenanceInput{Title: "ТО", Kind: "painting"}, nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	rec, err := e.ScheduleMaintenance(context.Background(), asset.ID, MaintenanceInput{Title: "ТО"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceService, rec.Kind)
	assert.Equal(t, models.MaintenancePlanned, rec.Status)

	entries := assetEntries(t, e, asset.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AssetActionMaintenance, entries[0].Action)
	assert.EqualValues(t, rec.ID, entries[0].Payload["maintenance"])
}

func TestCreateAndUpdateAsset(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	ctx := context.Background()
	cat := &models.AssetCategory{Name: "Ноутбуки"}
	require.NoError(t, db.Create(cat).Error)

	_, err := e.CreateAsset(ctx, AssetInput{Name: "x", CategoryID: cat.ID, InventoryCode: "INV-1", Status: "broken"}, nil)
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = e.CreateAsset(ctx, AssetInput{Name: "x", CategoryID: 999, InventoryCode: "INV-1"}, nil)
	require.ErrorIs(t, err, ErrNotFound)

	asset, err := e.CreateAsset(ctx, AssetInput{Name: "ThinkPad", CategoryID: cat.ID, InventoryCode: "INV-100"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AssetAvailable, asset.Status)

	_, err = e.CreateAsset(ctx, AssetInput{Name: "Другой", CategoryID: cat.ID, InventoryCode: "INV-100"}, nil)
	require.ErrorIs(t, err, ErrConflict)

	updated, err := e.UpdateAsset(ctx, asset.ID, AssetInput{Name: "ThinkPad X1", CategoryID: cat.ID, Notes: "16GB"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ThinkPad X1", updated.Name)
	assert.Equal(t, "INV-100", updated.InventoryCode)
	assert.Equal(t, models.AssetAvailable, updated.Status)

	entries := assetEntries(t, e, asset.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, models.AssetActionCreated, entries[0].Action)
	assert.Equal(t, models.AssetActionUpdated, entries[1].Action)
	assert.ElementsMatch(t, []any{"name", "notes"}, entries[1].Payload["fields"])
}

func TestTransitionAssetRollsBackWhenJournalFails(t *testing.T) {
	db := dbtest.New(t)
	pub := &recordingPublisher{}
	e := NewEngine(db, WithPublisher(pub))
	asset := dbtest.CreateAsset(t, db, "INV-500", models.AssetAvailable)
	failInserts(t, db, "asset_log_entries")

	_, err := e.TransitionAsset(context.Background(), asset.ID, models.AssetInUse, nil, "")
	require.Error(t, err)

	var stored models.Asset
	require.NoError(t, db.First(&stored, asset.ID).Error)
	assert.Equal(t, models.AssetAvailable, stored.Status)
	assert.Empty(t, assetEntries(t, e, asset.ID))
	assert.Empty(t, pub.sent)
}

func TestUpdateMaintenanceStatus(t *testing.T) {
	db := dbtest.New(t)
	clock := &stepClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	e := NewEngine(db, WithClock(clock.now))
	manager := dbtest.CreateUser(t, db, "manager", models.RoleAdmin)
	asset := dbtest.CreateAsset(t, db, "INV-008", models.AssetMaintenance)
	ctx := context.Background()

	due := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
	rec, err := e.ScheduleMaintenance(ctx, asset.ID, MaintenanceInput{Title: "Замена АКБ", Kind: models.MaintenanceRepair, ScheduledFor: &due}, manager)
	require.NoError(t, err)

	_, err = e.UpdateMaintenanceStatus(ctx, rec.ID, "postponed", manager, "")
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = e.UpdateMaintenanceStatus(ctx, 9999, models.MaintenanceDone, manager, "")
	require.ErrorIs(t, err, ErrNotFound)

	started, err := e.UpdateMaintenanceStatus(ctx, rec.ID, models.MaintenanceInProgress, manager, "")
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceInProgress, started.Status)
	assert.Nil(t, started.CompletedAt)

	done, err := e.UpdateMaintenanceStatus(ctx, rec.ID, models.MaintenanceDone, manager, "заменили")
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	finished := *done.CompletedAt

	again, err := e.UpdateMaintenanceStatus(ctx, rec.ID, models.MaintenanceDone, manager, "")
	require.NoError(t, err)
	assert.True(t, finished.Equal(*again.CompletedAt))

	var stored models.MaintenanceRecord
	require.NoError(t, db.First(&stored, rec.ID).Error)
	assert.Equal(t, models.MaintenanceDone, stored.Status)
	assert.True(t, rec.IsOverdue(finished))
	assert.False(t, stored.IsOverdue(finished))

	entries := assetEntries(t, e, asset.ID)
	require.Len(t, entries, 4)
	assert.Equal(t, models.AssetActionMaintenance, entries[2].Action)
	assert.Equal(t, "in_progress", entries[2].Payload["previous_maintenance_status"])
	assert.Equal(t, "done", entries[2].Payload["maintenance_status"])
	assert.Equal(t, "заменили", entries[2].Notes)
}

func TestAddAssetAttachment(t *testing.T) {
	db := dbtest.New(t)
	files := newMemStore()
	e := NewEngine(db, WithFileStore(files))
	asset := dbtest.CreateAsset(t, db, "INV-009", models.AssetAvailable)
	ctx := context.Background()

	att, err := e.AddAssetAttachment(ctx, asset.ID, nil, AttachmentInput{
		Title:    "Паспорт",
		FileName: "Passport.PDF",
		Size:     3,
		Body:     strings.NewReader("pdf"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(att.StorageKey, assetAttachmentPrefix+"/"))
	assert.True(t, strings.HasSuffix(att.StorageKey, ".pdf"))
	assert.Equal(t, []byte("pdf"), files.files[att.StorageKey])

	url, err := e.AssetAttachmentURL(ctx, att)
	require.NoError(t, err)
	assert.Equal(t, "/media/"+att.StorageKey, url)

	var loaded models.Asset
	require.NoError(t, db.Preload("Attachments").First(&loaded, asset.ID).Error)
	require.Len(t, loaded.Attachments, 1)
	assert.Empty(t, assetEntries(t, e, asset.ID))

	_, err = e.AddAssetAttachment(ctx, 4040, nil, AttachmentInput{FileName: "a.txt", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrNotFound)

	failInserts(t, db, "asset_attachments")
	_, err = e.AddAssetAttachment(ctx, asset.ID, nil, AttachmentInput{FileName: "b.txt", Body: strings.NewReader("y")})
	require.Error(t, err)
	assert.Len(t, files.files, 1)
	assert.Len(t, files.deleted, 1)
}
