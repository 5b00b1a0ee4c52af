package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"office-hub/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed demo.yaml
var DefaultDemoFixture []byte

// SeedAdmin создаёт администратора, если в системе ещё нет ни одного.
func SeedAdmin(ctx context.Context, db *gorm.DB, username, password string, log zerolog.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		// админ уже есть — ничего не делаем
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash default admin password: %w", err)
	}

	admin := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		LastActivity: time.Now(),
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}

	log.Info().Str("username", username).Msg("created default admin user")
	return nil
}

type demoFixture struct {
	Departments []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Color       string `yaml:"color"`
	} `yaml:"departments"`
	Users []struct {
		Username   string `yaml:"username"`
		Password   string `yaml:"password"`
		FirstName  string `yaml:"first_name"`
		LastName   string `yaml:"last_name"`
		Email      string `yaml:"email"`
		Role       string `yaml:"role"`
		JobTitle   string `yaml:"job_title"`
		Department string `yaml:"department"`
	} `yaml:"users"`
	Categories []struct {
		Name string `yaml:"name"`
		Slug string `yaml:"slug"`
	} `yaml:"categories"`
	Locations []struct {
		Name    string `yaml:"name"`
		Code    string `yaml:"code"`
		Address string `yaml:"address"`
	} `yaml:"locations"`
	Vendors []struct {
		Name    string `yaml:"name"`
		Website string `yaml:"website"`
	} `yaml:"vendors"`
	Assets []struct {
		Name          string `yaml:"name"`
		InventoryCode string `yaml:"inventory_code"`
		Category      string `yaml:"category"`
		Location      string `yaml:"location"`
		Vendor        string `yaml:"vendor"`
		Status        string `yaml:"status"`
		Condition     string `yaml:"condition"`
		Custodian     string `yaml:"custodian"`
		AssignedTo    string `yaml:"assigned_to"`
	} `yaml:"assets"`
	Maintenance []struct {
		Asset       string `yaml:"asset"`
		Title       string `yaml:"title"`
		Kind        string `yaml:"kind"`
		InDays      int    `yaml:"in_days"`
		Responsible string `yaml:"responsible"`
	} `yaml:"maintenance"`
	Projects []struct {
		Name    string   `yaml:"name"`
		Code    string   `yaml:"code"`
		Owner   string   `yaml:"owner"`
		Members []string `yaml:"members"`
	} `yaml:"projects"`
	Tasks []struct {
		Project   string   `yaml:"project"`
		Title     string   `yaml:"title"`
		Status    string   `yaml:"status"`
		Priority  int      `yaml:"priority"`
		Progress  int      `yaml:"progress"`
		CreatedBy string   `yaml:"created_by"`
		Assignee  string   `yaml:"assignee"`
		Watchers  []string `yaml:"watchers"`
	} `yaml:"tasks"`
}

// SeedDemo заполняет БД демо-данными. Повторный запуск ничего не дублирует.
func SeedDemo(ctx context.Context, db *gorm.DB, fixture []byte, log zerolog.Logger) error {
	var fx demoFixture
	if err := yaml.Unmarshal(fixture, &fx); err != nil {
		return fmt.Errorf("parse demo fixture: %w", err)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := seeder{users: map[string]*models.User{}}

		depts := map[string]uint{}
		for _, d := range fx.Departments {
			dept := models.Department{Name: d.Name, Description: d.Description, Color: d.Color}
			if err := tx.Where(models.Department{Name: d.Name}).FirstOrCreate(&dept).Error; err != nil {
				return fmt.Errorf("seed department %s: %w", d.Name, err)
			}
			depts[d.Name] = dept.ID
		}

		for _, u := range fx.Users {
			var user models.User
			err := tx.Where("username = ?", u.Username).First(&user).Error
			switch {
			case err == nil:
			case errors.Is(err, gorm.ErrRecordNotFound):
				hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
				if err != nil {
					return fmt.Errorf("hash password for %s: %w", u.Username, err)
				}
				user = models.User{
					Username:     u.Username,
					PasswordHash: string(hash),
					FirstName:    u.FirstName,
					LastName:     u.LastName,
					Email:        u.Email,
					Role:         models.UserRole(u.Role),
					JobTitle:     u.JobTitle,
					LastActivity: time.Now(),
				}
				if id, ok := depts[u.Department]; ok {
					user.DepartmentID = &id
				}
				if err := tx.Create(&user).Error; err != nil {
					return fmt.Errorf("create seed user %s: %w", u.Username, err)
				}
				log.Info().Str("username", u.Username).Str("role", string(user.Role)).Msg("created seed user")
			default:
				return fmt.Errorf("check seed user %s: %w", u.Username, err)
			}
			s.users[u.Username] = &user
		}

		categories := map[string]uint{}
		for _, c := range fx.Categories {
			cat := models.AssetCategory{Name: c.Name, Slug: c.Slug}
			if err := tx.Where(models.AssetCategory{Name: c.Name}).FirstOrCreate(&cat).Error; err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
			categories[c.Name] = cat.ID
		}

		locations := map[string]uint{}
		for _, l := range fx.Locations {
			loc := models.Location{Name: l.Name, Code: l.Code, Address: l.Address, IsActive: true}
			if err := tx.Where(models.Location{Code: l.Code}).FirstOrCreate(&loc).Error; err != nil {
				return fmt.Errorf("seed location %s: %w", l.Code, err)
			}
			locations[l.Code] = loc.ID
		}

		vendors := map[string]uint{}
		for _, v := range fx.Vendors {
			vendor := models.Vendor{Name: v.Name, Website: v.Website}
			if err := tx.Where(models.Vendor{Name: v.Name}).FirstOrCreate(&vendor).Error; err != nil {
				return fmt.Errorf("seed vendor %s: %w", v.Name, err)
			}
			vendors[v.Name] = vendor.ID
		}

		assets := map[string]uint{}
		for _, a := range fx.Assets {
			asset := models.Asset{
				Name:          a.Name,
				InventoryCode: a.InventoryCode,
				CategoryID:    categories[a.Category],
				Status:        models.AssetStatus(a.Status),
				Condition:     models.AssetCondition(a.Condition),
				CustodianID:   s.userID(a.Custodian),
				AssignedToID:  s.userID(a.AssignedTo),
			}
			if id, ok := locations[a.Location]; ok {
				asset.LocationID = &id
			}
			if id, ok := vendors[a.Vendor]; ok {
				asset.VendorID = &id
			}
			if err := tx.Where(models.Asset{InventoryCode: a.InventoryCode}).FirstOrCreate(&asset).Error; err != nil {
				return fmt.Errorf("seed asset %s: %w", a.InventoryCode, err)
			}
			assets[a.InventoryCode] = asset.ID
		}

		for _, m := range fx.Maintenance {
			assetID, ok := assets[m.Asset]
			if !ok {
				continue
			}
			when := time.Now().AddDate(0, 0, m.InDays)
			rec := models.MaintenanceRecord{
				AssetID:       assetID,
				Title:         m.Title,
				Kind:          models.MaintenanceKind(m.Kind),
				Status:        models.MaintenancePlanned,
				ScheduledFor:  &when,
				ResponsibleID: s.userID(m.Responsible),
			}
			if err := tx.Where(models.MaintenanceRecord{AssetID: assetID, Title: m.Title}).FirstOrCreate(&rec).Error; err != nil {
				return fmt.Errorf("seed maintenance %s: %w", m.Title, err)
			}
		}

		projects := map[string]uint{}
		for _, p := range fx.Projects {
			project := models.Project{Name: p.Name, Code: p.Code, OwnerID: s.userID(p.Owner), IsActive: true}
			if err := tx.Where(models.Project{Code: p.Code}).FirstOrCreate(&project).Error; err != nil {
				return fmt.Errorf("seed project %s: %w", p.Code, err)
			}
			if members := s.usersByName(p.Members); len(members) > 0 {
				if err := tx.Model(&project).Association("Members").Append(members); err != nil {
					return fmt.Errorf("seed project members %s: %w", p.Code, err)
				}
			}
			projects[p.Code] = project.ID
		}

		for _, t := range fx.Tasks {
			projectID, ok := projects[t.Project]
			if !ok {
				continue
			}
			task := models.Task{
				ProjectID:   projectID,
				Title:       t.Title,
				Status:      models.TaskStatus(t.Status),
				Priority:    models.TaskPriority(t.Priority),
				Progress:    t.Progress,
				CreatedByID: s.userID(t.CreatedBy),
				AssigneeID:  s.userID(t.Assignee),
			}
			if task.Status == models.TaskDone {
				now := time.Now()
				task.CompletedAt = &now
			}
			if err := tx.Where(models.Task{ProjectID: projectID, Title: t.Title}).FirstOrCreate(&task).Error; err != nil {
				return fmt.Errorf("seed task %s: %w", t.Title, err)
			}
			if watchers := s.usersByName(t.Watchers); len(watchers) > 0 {
				if err := tx.Model(&task).Association("Watchers").Append(watchers); err != nil {
					return fmt.Errorf("seed task watchers %s: %w", t.Title, err)
				}
			}
		}

		log.Info().
			Int("users", len(fx.Users)).
			Int("assets", len(fx.Assets)).
			Int("tasks", len(fx.Tasks)).
			Msg("demo data seeded")
		return nil
	})
}

type seeder struct {
	users map[string]*models.User
}

func (s seeder) userID(username string) *uint {
	if u, ok := s.users[username]; ok {
		id := u.ID
		return &id
	}
	return nil
}

func (s seeder) usersByName(names []string) []models.User {
	out := make([]models.User, 0, len(names))
	for _, n := range names {
		if u, ok := s.users[n]; ok {
			out = append(out, *u)
		}
	}
	return out
}
