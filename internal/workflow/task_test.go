package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"office-hub/internal/database/dbtest"
	"office-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func taskActivity(t *testing.T, e *Engine, taskID uint) []models.TaskActivity {
	t.Helper()
	var out []models.TaskActivity
	require.NoError(t, e.db.Where("task_id = ?", taskID).Order("id").Find(&out).Error)
	return out
}

func TestTransitionTaskRecordsOnlyNewStatus(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	owner := dbtest.CreateUser(t, db, "owner", models.RoleUser)
	project := dbtest.CreateProject(t, db, "CRM", owner)
	task := dbtest.CreateTask(t, db, project, "T1", owner)

	got, err := e.TransitionTask(context.Background(), task.ID, models.TaskInProgress, owner)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, got.Status)
	assert.Nil(t, got.CompletedAt)

	entries := taskActivity(t, e, task.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TaskActionStatus, entries[0].Action)
	assert.Equal(t, map[string]any{"status": "in_progress"}, map[string]any(entries[0].Payload))
}

func TestTransitionTaskInvalidStatus(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	project := dbtest.CreateProject(t, db, "CRM")
	task := dbtest.CreateTask(t, db, project, "T1", nil)

	_, err := e.TransitionTask(context.Background(), task.ID, models.TaskStatus("archived"), nil)
	require.ErrorIs(t, err, ErrInvalidStatus)

	var stored models.Task
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.TaskBacklog, stored.Status)
	assert.Empty(t, taskActivity(t, e, task.ID))

	_, err = e.TransitionTask(context.Background(), 4040, models.TaskDone, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompletionLatch(t *testing.T) {
	db := dbtest.New(t)
	clock := &stepClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := NewEngine(db, WithClock(clock.now))
	project := dbtest.CreateProject(t, db, "CRM")
	task := dbtest.CreateTask(t, db, project, "T1", nil)
	ctx := context.Background()

	done, err := e.TransitionTask(ctx, task.ID, models.TaskDone, nil)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	first := *done.CompletedAt

	_, err = e.TransitionTask(ctx, task.ID, models.TaskReview, nil)
	require.NoError(t, err)
	again, err := e.TransitionTask(ctx, task.ID, models.TaskDone, nil)
	require.NoError(t, err)
	require.NotNil(t, again.CompletedAt)
	assert.True(t, first.Equal(*again.CompletedAt))

	var stored models.Task
	require.NoError(t, db.First(&stored, task.ID).Error)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, first.Equal(*stored.CompletedAt))
	assert.Len(t, taskActivity(t, e, task.ID), 3)
}

func TestCanTransitionTask(t *testing.T) {
	const actorID = 7
	id := func(v uint) *uint { return &v }
	actor := &models.User{Role: models.RoleUser}
	actor.ID = actorID
	admin := &models.User{Role: models.RoleAdmin}
	admin.ID = 1

	tests := []struct {
		name  string
		task  models.Task
		actor *models.User
		want  bool
	}{
		{name: "outsider", task: models.Task{}, actor: actor, want: false},
		{name: "nil actor", task: models.Task{}, actor: nil, want: false},
		{name: "admin", task: models.Task{}, actor: admin, want: true},
		{
			name:  "project member",
			task:  models.Task{Project: models.Project{Members: []models.User{{Model: modelWithID(actorID)}}}},
			actor: actor,
			want:  true,
		},
		{name: "assignee", task: models.Task{AssigneeID: id(actorID)}, actor: actor, want: true},
		{name: "creator", task: models.Task{CreatedByID: id(actorID)}, actor: actor, want: true},
		{
			name:  "watcher",
			task:  models.Task{Watchers: []models.User{{Model: modelWithID(actorID)}}},
			actor: actor,
			want:  true,
		},
		{
			name:  "someone else assigned",
			task:  models.Task{AssigneeID: id(99), CreatedByID: id(98)},
			actor: actor,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionTask(&tt.task, tt.actor))
		})
	}
}

func TestCanManageAssets(t *testing.T) {
	assert.True(t, CanManageAssets(&models.User{Role: models.RoleAdmin}))
	assert.False(t, CanManageAssets(&models.User{Role: models.RoleUser}))
	assert.False(t, CanManageAssets(nil))
}

func TestChangeTaskStatusGuard(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	member := dbtest.CreateUser(t, db, "member", models.RoleUser)
	outsider := dbtest.CreateUser(t, db, "outsider", models.RoleUser)
	watcher := dbtest.CreateUser(t, db, "watcher", models.RoleUser)
	project := dbtest.CreateProject(t, db, "Переезд", member)
	task := dbtest.CreateTask(t, db, project, "T1", nil)
	ctx := context.Background()

	ok, err := e.MayTransitionTask(ctx, task.ID, outsider)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.ChangeTaskStatus(ctx, task.ID, models.TaskTodo, outsider)
	require.ErrorIs(t, err, ErrForbidden)

	var stored models.Task
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.TaskBacklog, stored.Status)
	assert.Empty(t, taskActivity(t, e, task.ID))

	got, err := e.ChangeTaskStatus(ctx, task.ID, models.TaskTodo, member)
	require.NoError(t, err)
	assert.Equal(t, models.TaskTodo, got.Status)

	require.NoError(t, e.WatchTask(ctx, task.ID, watcher.ID))
	require.NoError(t, e.WatchTask(ctx, task.ID, watcher.ID))
	ok, err = e.MayTransitionTask(ctx, task.ID, watcher)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = e.MayTransitionTask(ctx, 777, member)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = e.ChangeTaskStatus(ctx, task.ID, "nope", member)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSetTaskProgressClamps(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	project := dbtest.CreateProject(t, db, "CRM")
	task := dbtest.CreateTask(t, db, project, "T1", nil)
	ctx := context.Background()

	got, err := e.SetTaskProgress(ctx, task.ID, 140, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)

	got, err = e.SetTaskProgress(ctx, task.ID, -5, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)

	entries := taskActivity(t, e, task.ID)
	require.Len(t, entries, 2)
	assert.EqualValues(t, 100, entries[0].Payload["progress"])
	assert.EqualValues(t, 0, entries[1].Payload["progress"])
}

func TestChecklistCompletionIsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	project := dbtest.CreateProject(t, db, "CRM")
	task := dbtest.CreateTask(t, db, project, "T1", nil)
	ctx := context.Background()

	first, err := e.AddChecklistItem(ctx, task.ID, "Согласовать ТЗ")
	require.NoError(t, err)
	second, err := e.AddChecklistItem(ctx, task.ID, "Развернуть стенд")
	require.NoError(t, err)
	assert.Equal(t, first.Order+1, second.Order)

	_, err = e.AddChecklistItem(ctx, task.ID, " ")
	require.ErrorIs(t, err, ErrInvalidInput)

	item, err := e.CompleteChecklistItem(ctx, first.ID, nil)
	require.NoError(t, err)
	assert.True(t, item.IsCompleted)
	require.NotNil(t, item.CompletedAt)

	again, err := e.CompleteChecklistItem(ctx, first.ID, nil)
	require.NoError(t, err)
	assert.True(t, item.CompletedAt.Equal(*again.CompletedAt))

	entries := taskActivity(t, e, task.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TaskActionChecklist, entries[0].Action)
	assert.Equal(t, "Согласовать ТЗ", entries[0].Payload["title"])
}

func TestAddCommentLogsActivity(t *testing.T) {
	db := dbtest.New(t)
	pub := &recordingPublisher{}
	e := NewEngine(db, WithPublisher(pub))
	author := dbtest.CreateUser(t, db, "analyst", models.RoleUser)
	project := dbtest.CreateProject(t, db, "CRM")
	task := dbtest.CreateTask(t, db, project, "T1", nil)

	_, err := e.AddComment(context.Background(), task.ID, author, "", false)
	require.ErrorIs(t, err, ErrInvalidInput)

	comment, err := e.AddComment(context.Background(), task.ID, author, "Готово к ревью", false)
	require.NoError(t, err)

	entries := taskActivity(t, e, task.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TaskActionComment, entries[0].Action)
	assert.EqualValues(t, comment.ID, entries[0].Payload["comment"])
	require.NotNil(t, entries[0].AuthorID)
	assert.Equal(t, author.ID, *entries[0].AuthorID)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, "task", pub.sent[0].Domain)
}

func TestAddAttachment(t *testing.T) {
	db := dbtest.New(t)
	files := newMemStore()
	e := NewEngine(db, WithFileStore(files))
	project := dbtest.CreateProject(t, db, "CRM")
	task := dbtest.CreateTask(t, db, project, "T1", nil)
	ctx := context.Background()

	att, err := e.AddAttachment(ctx, task.ID, nil, AttachmentInput{
		FileName: "plan.xlsx",
		Size:     4,
		Body:     strings.NewReader("data"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(att.StorageKey, attachmentPrefix+"/"))
	assert.Equal(t, []byte("data"), files.files[att.StorageKey])

	url, err := e.AttachmentURL(ctx, att)
	require.NoError(t, err)
	assert.Equal(t, "/media/"+att.StorageKey, url)

	entries := taskActivity(t, e, task.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.TaskActionAttachment, entries[0].Action)
	assert.EqualValues(t, att.ID, entries[0].Payload["attachment"])

	_, err = e.AddAttachment(ctx, 999, nil, AttachmentInput{FileName: "a.txt", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, files.files, 1)

	_, err = NewEngine(db).AddAttachment(ctx, task.ID, nil, AttachmentInput{FileName: "a.txt", Body: strings.NewReader("x")})
	require.Error(t, err)
}

func TestCreateTaskAndProject(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	owner := dbtest.CreateUser(t, db, "owner", models.RoleAdmin)
	member := dbtest.CreateUser(t, db, "member", models.RoleUser)
	ctx := context.Background()

	project, err := e.CreateProject(ctx, ProjectInput{Name: "Office Move", MemberIDs: []uint{member.ID}}, owner)
	require.NoError(t, err)
	assert.Equal(t, "office-move", project.Code)

	var loaded models.Project
	require.NoError(t, db.Preload("Members").First(&loaded, project.ID).Error)
	assert.True(t, loaded.HasMember(owner.ID))
	assert.True(t, loaded.HasMember(member.ID))

	_, err = e.CreateTask(ctx, TaskInput{ProjectID: project.ID, Title: "T", Status: "later"}, owner)
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = e.CreateTask(ctx, TaskInput{ProjectID: project.ID, Title: "T", Priority: 15}, owner)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.CreateTask(ctx, TaskInput{ProjectID: 999, Title: "T"}, owner)
	require.ErrorIs(t, err, ErrNotFound)

	task, err := e.CreateTask(ctx, TaskInput{ProjectID: project.ID, Title: "Перевезти сервер"}, owner)
	require.NoError(t, err)
	assert.Equal(t, models.TaskBacklog, task.Status)
	assert.Equal(t, models.PriorityNormal, task.Priority)
	require.NotNil(t, task.CreatedByID)
	assert.Equal(t, owner.ID, *task.CreatedByID)

	updated, err := e.UpdateTask(ctx, task.ID, TaskInput{Title: "Перевезти стойку", Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, "Перевезти стойку", updated.Title)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Equal(t, models.TaskBacklog, updated.Status)
}

func TestCreateTaskRequiresActiveProjectMembership(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	member := dbtest.CreateUser(t, db, "member", models.RoleUser)
	outsider := dbtest.CreateUser(t, db, "outsider", models.RoleUser)
	admin := dbtest.CreateUser(t, db, "admin", models.RoleAdmin)
	project := dbtest.CreateProject(t, db, "CRM", member)
	archived := dbtest.CreateProject(t, db, "Legacy", member)
	require.NoError(t, db.Model(&models.Project{}).Where("id = ?", archived.ID).Update("is_active", false).Error)
	ctx := context.Background()

	_, err := e.CreateTask(ctx, TaskInput{ProjectID: project.ID, Title: "Чужая задача"}, outsider)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = e.CreateTask(ctx, TaskInput{ProjectID: archived.ID, Title: "Поздно"}, member)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.CreateTask(ctx, TaskInput{ProjectID: archived.ID, Title: "Поздно"}, admin)
	require.ErrorIs(t, err, ErrInvalidInput)

	var count int64
	require.NoError(t, db.Model(&models.Task{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = e.CreateTask(ctx, TaskInput{ProjectID: project.ID, Title: "Своя задача"}, member)
	require.NoError(t, err)
	_, err = e.CreateTask(ctx, TaskInput{ProjectID: project.ID, Title: "От админа"}, admin)
	require.NoError(t, err)
}

func TestTaskWatchersAndAssets(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	owner := dbtest.CreateUser(t, db, "owner", models.RoleUser)
	watcher := dbtest.CreateUser(t, db, "watcher", models.RoleUser)
	project := dbtest.CreateProject(t, db, "CRM", owner)
	laptop := dbtest.CreateAsset(t, db, "INV-1", models.AssetAvailable)
	monitor := dbtest.CreateAsset(t, db, "INV-2", models.AssetAvailable)
	ctx := context.Background()
	hours := 2.5

	task, err := e.CreateTask(ctx, TaskInput{
		ProjectID:   project.ID,
		Title:       "Рабочее место",
		ActualHours: &hours,
		WatcherIDs:  []uint{watcher.ID, watcher.ID},
		AssetIDs:    []uint{laptop.ID},
	}, owner)
	require.NoError(t, err)
	require.NotNil(t, task.ActualHours)
	assert.InDelta(t, 2.5, *task.ActualHours, 0.001)

	var loaded models.Task
	require.NoError(t, db.Preload("Watchers").Preload("Assets").First(&loaded, task.ID).Error)
	require.Len(t, loaded.Watchers, 1)
	assert.Equal(t, watcher.ID, loaded.Watchers[0].ID)
	require.Len(t, loaded.Assets, 1)
	assert.Equal(t, laptop.ID, loaded.Assets[0].ID)

	ok, err := e.MayTransitionTask(ctx, task.ID, watcher)
	require.NoError(t, err)
	assert.True(t, ok)

	updated, err := e.UpdateTask(ctx, task.ID, TaskInput{Title: "Рабочее место", AssetIDs: []uint{monitor.ID}, WatcherIDs: []uint{}})
	require.NoError(t, err)
	assert.Empty(t, updated.Watchers)
	require.Len(t, updated.Assets, 1)
	assert.Equal(t, monitor.ID, updated.Assets[0].ID)

	untouched, err := e.UpdateTask(ctx, task.ID, TaskInput{Title: "Рабочее место 2"})
	require.NoError(t, err)
	require.Len(t, untouched.Assets, 1)

	_, err = e.UpdateTask(ctx, task.ID, TaskInput{Title: "x", AssetIDs: []uint{4040}})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.NoError(t, db.Preload("Assets").First(&loaded, task.ID).Error)
	require.Len(t, loaded.Assets, 1)
	assert.Equal(t, "Рабочее место 2", loaded.Title)
}

func TestTransitionTaskRollsBackWhenJournalFails(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	project := dbtest.CreateProject(t, db, "CRM")
	task := dbtest.CreateTask(t, db, project, "T1", nil)
	failInserts(t, db, "task_activity")

	_, err := e.TransitionTask(context.Background(), task.ID, models.TaskDone, nil)
	require.Error(t, err)

	var stored models.Task
	require.NoError(t, db.First(&stored, task.ID).Error)
	assert.Equal(t, models.TaskBacklog, stored.Status)
	assert.Nil(t, stored.CompletedAt)
	assert.Empty(t, taskActivity(t, e, task.ID))
}

func TestTaskDependencies(t *testing.T) {
	db := dbtest.New(t)
	e := NewEngine(db)
	member := dbtest.CreateUser(t, db, "member", models.RoleUser)
	outsider := dbtest.CreateUser(t, db, "outsider", models.RoleUser)
	project := dbtest.CreateProject(t, db, "Переезд", member)
	cabling := dbtest.CreateTask(t, db, project, "Проложить кабель", nil)
	racks := dbtest.CreateTask(t, db, project, "Смонтировать стойки", nil)
	ctx := context.Background()

	_, err := e.AddTaskDependency(ctx, cabling.ID, cabling.ID, member)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.AddTaskDependency(ctx, cabling.ID, racks.ID, outsider)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = e.AddTaskDependency(ctx, cabling.ID, 4040, member)
	require.ErrorIs(t, err, ErrNotFound)

	dep, err := e.AddTaskDependency(ctx, cabling.ID, racks.ID, member)
	require.NoError(t, err)
	assert.Equal(t, racks.ID, dep.BlockingID)

	_, err = e.AddTaskDependency(ctx, cabling.ID, racks.ID, member)
	require.ErrorIs(t, err, ErrConflict)
	_, err = e.AddTaskDependency(ctx, racks.ID, cabling.ID, member)
	require.ErrorIs(t, err, ErrInvalidInput)

	var loaded models.Task
	require.NoError(t, db.Preload("Dependencies.Blocking").First(&loaded, cabling.ID).Error)
	require.Len(t, loaded.Dependencies, 1)
	assert.Equal(t, "Смонтировать стойки", loaded.Dependencies[0].Blocking.Title)

	require.ErrorIs(t, e.RemoveTaskDependency(ctx, dep.ID, outsider), ErrForbidden)
	require.NoError(t, e.RemoveTaskDependency(ctx, dep.ID, member))
	require.ErrorIs(t, e.RemoveTaskDependency(ctx, dep.ID, member), ErrNotFound)
}

func modelWithID(id uint) gorm.Model {
	return gorm.Model{ID: id}
}
