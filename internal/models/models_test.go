package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusEnumerations(t *testing.T) {
	assert.Equal(t,
		[]AssetStatus{AssetAvailable, AssetInUse, AssetReserved, AssetMaintenance, AssetLost, AssetRetired},
		AssetStatuses())
	assert.Equal(t,
		[]TaskStatus{TaskBacklog, TaskTodo, TaskInProgress, TaskReview, TaskBlocked, TaskDone},
		TaskStatuses())

	s, ok := ParseAssetStatus("in_use")
	assert.True(t, ok)
	assert.Equal(t, "Выдано", s.Label())

	_, ok = ParseTaskStatus("archived")
	assert.False(t, ok)
	assert.Equal(t, "archived", TaskStatus("archived").Label())
}

func TestValuesReturnsCopy(t *testing.T) {
	statuses := TaskStatuses()
	statuses[0] = "mutated"
	assert.Equal(t, TaskBacklog, TaskStatuses()[0])
}

func TestPriorityLabelFallback(t *testing.T) {
	assert.Equal(t, "Критический", PriorityCritical.Label())
	assert.Equal(t, "35", TaskPriority(35).Label())
	assert.False(t, TaskPriority(35).Valid())
}

func TestActionKinds(t *testing.T) {
	assert.True(t, AssetActionStatusChange.Valid())
	assert.False(t, AssetAction("status").Valid())
	assert.True(t, TaskActionStatus.Valid())
	assert.False(t, TaskAction("status_change").Valid())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "office-move-2024", Slugify("  Office Move 2024 "))
	assert.Equal(t, "a-b", Slugify("a -- b"))
	assert.Equal(t, "", Slugify("Переезд"))

	slug := slugOrRandom("Переезд", "project", 32)
	assert.True(t, strings.HasPrefix(slug, "project-"))
	assert.Len(t, slugOrRandom(strings.Repeat("x", 40), "project", 32), 32)
}

func TestMaintenanceIsOverdue(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	earlierToday := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

	assert.True(t, (&MaintenanceRecord{Status: MaintenancePlanned, ScheduledFor: &yesterday}).IsOverdue(now))
	assert.False(t, (&MaintenanceRecord{Status: MaintenancePlanned, ScheduledFor: &earlierToday}).IsOverdue(now))
	assert.False(t, (&MaintenanceRecord{Status: MaintenanceDone, ScheduledFor: &yesterday}).IsOverdue(now))
	assert.False(t, (&MaintenanceRecord{Status: MaintenancePlanned}).IsOverdue(now))
}

func TestUserDisplayName(t *testing.T) {
	var nobody *User
	assert.Equal(t, "", nobody.DisplayName())
	assert.Equal(t, "ivanov", (&User{Username: "ivanov"}).DisplayName())
	assert.Equal(t, "Иван Иванов", (&User{Username: "ivanov", FirstName: "Иван", LastName: "Иванов"}).DisplayName())
	assert.False(t, nobody.IsAdmin())
}

func TestTaskBeforeSaveDefaults(t *testing.T) {
	task := &Task{}
	assert.NoError(t, task.BeforeSave(nil))
	assert.Equal(t, TaskBacklog, task.Status)
	assert.Equal(t, PriorityNormal, task.Priority)

	assert.Error(t, (&Task{Status: "someday"}).BeforeSave(nil))
	assert.Error(t, (&Asset{Status: "melted"}).BeforeSave(nil))
}
