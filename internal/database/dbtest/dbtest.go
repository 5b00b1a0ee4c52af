// Package dbtest поднимает изолированную sqlite-БД в памяти для тестов.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"office-hub/internal/database"
	"office-hub/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New возвращает мигрированную БД, закрываемую по окончании теста.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// одно соединение: транзакции не видят чужих незакоммиченных строк
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser создаёт пользователя с паролем "secret".
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{Username: username, PasswordHash: string(hash), Role: role}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateAsset создаёт оборудование с отдельной категорией.
func CreateAsset(t testing.TB, db *gorm.DB, code string, status models.AssetStatus) *models.Asset {
	t.Helper()

	cat := &models.AssetCategory{Name: "category " + code}
	if err := db.Create(cat).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	a := &models.Asset{Name: "asset " + code, InventoryCode: code, CategoryID: cat.ID, Status: status}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create asset %s: %v", code, err)
	}
	return a
}

// CreateProject создаёт проект с указанными участниками.
func CreateProject(t testing.TB, db *gorm.DB, name string, members ...*models.User) *models.Project {
	t.Helper()

	p := &models.Project{Name: name, IsActive: true}
	for _, m := range members {
		p.Members = append(p.Members, *m)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return p
}

// CreateTask создаёт задачу в проекте.
func CreateTask(t testing.TB, db *gorm.DB, project *models.Project, title string, createdBy *models.User) *models.Task {
	t.Helper()

	task := &models.Task{ProjectID: project.ID, Title: title, Status: models.TaskBacklog}
	if createdBy != nil {
		task.CreatedByID = &createdBy.ID
	}
	if err := db.Omit("Project").Create(task).Error; err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}
