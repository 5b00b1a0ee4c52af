package reporting

import (
	"testing"
	"time"

	"office-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAssetStatusCountsDescending(t *testing.T) {
	assets := []models.Asset{
		{Status: models.AssetReserved},
		{Status: models.AssetInUse},
		{Status: models.AssetInUse},
		{Status: models.AssetAvailable},
	}

	got := AssetStatusCounts(assets)
	require.Len(t, got, 3)
	assert.Equal(t, StatusCount{Status: "in_use", Label: "Выдано", Total: 2}, got[0])
	// равные количества — в порядке первого появления
	assert.Equal(t, "reserved", got[1].Status)
	assert.Equal(t, "available", got[2].Status)
}

func TestTaskStatusCounts(t *testing.T) {
	tasks := []models.Task{{Status: models.TaskDone}, {Status: models.TaskTodo}, {Status: models.TaskTodo}}

	got := TaskStatusCounts(tasks)
	require.Len(t, got, 2)
	assert.Equal(t, "todo", got[0].Status)
	assert.Equal(t, 2, got[0].Total)
	assert.Equal(t, "Завершено", got[1].Label)
	assert.Empty(t, TaskStatusCounts(nil))
}

func TestTaskPriorityCountsFallsBackToNumber(t *testing.T) {
	tasks := []models.Task{
		{Priority: models.PriorityHigh},
		{Priority: 25},
		{Priority: models.PriorityHigh},
	}

	got := TaskPriorityCounts(tasks)
	require.Len(t, got, 2)
	assert.Equal(t, PriorityCount{Priority: models.PriorityHigh, Label: "Высокий", Total: 2}, got[0])
	assert.Equal(t, PriorityCount{Priority: 25, Label: "25", Total: 1}, got[1])
}

func TestUpcomingMaintenance(t *testing.T) {
	day := func(d int) *time.Time {
		v := time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	records := []models.MaintenanceRecord{
		{Title: "late", Status: models.MaintenancePlanned, ScheduledFor: day(20)},
		{Title: "done", Status: models.MaintenanceDone, ScheduledFor: day(1)},
		{Title: "unscheduled", Status: models.MaintenancePlanned},
		{Title: "soon", Status: models.MaintenanceInProgress, ScheduledFor: day(3)},
		{Title: "canceled", Status: models.MaintenanceCanceled, ScheduledFor: day(2)},
		{Title: "mid", Status: models.MaintenancePlanned, ScheduledFor: day(10)},
	}

	got := UpcomingMaintenance(records, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "soon", got[0].Title)
	assert.Equal(t, "mid", got[1].Title)

	assert.Len(t, UpcomingMaintenance(records, 0), 3)
}

func TestTaskBoardColumns(t *testing.T) {
	tasks := []models.Task{
		{Title: "a", Status: models.TaskTodo},
		{Title: "b", Status: models.TaskDone},
		{Title: "c", Status: models.TaskTodo},
		{Title: "d", Status: models.TaskTodo},
	}

	board := TaskBoard(tasks, 2)
	require.Len(t, board, len(models.TaskStatuses()))
	assert.Equal(t, models.TaskBacklog, board[0].Status)
	assert.NotNil(t, board[0].Items)
	assert.Empty(t, board[0].Items)

	todo := board[1]
	assert.Equal(t, models.TaskTodo, todo.Status)
	assert.Equal(t, 3, todo.Total)
	require.Len(t, todo.Items, 2)
	assert.Equal(t, "a", todo.Items[0].Title)
	assert.Equal(t, "c", todo.Items[1].Title)

	assert.Equal(t, 1, CountCompleted(tasks))
}

func TestCategoryCountsIncludesEmpty(t *testing.T) {
	cats := []models.AssetCategory{
		{Model: gorm.Model{ID: 1}, Name: "Мониторы"},
		{Model: gorm.Model{ID: 2}, Name: "Ноутбуки"},
	}
	assets := []models.Asset{{CategoryID: 2}, {CategoryID: 2}}

	got := CategoryCounts(cats, assets)
	require.Len(t, got, 2)
	assert.Equal(t, CategoryCount{CategoryID: 2, Name: "Ноутбуки", Total: 2}, got[0])
	assert.Equal(t, 0, got[1].Total)
}

func TestNeedsAttention(t *testing.T) {
	assets := []models.Asset{
		{Name: "a", Status: models.AssetAvailable},
		{Name: "b", Status: models.AssetMaintenance},
		{Name: "c", Status: models.AssetReserved},
		{Name: "d", Status: models.AssetReserved},
	}
	got := NeedsAttention(assets, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
}
