package reporting

import (
	"context"
	"fmt"
	"time"

	"office-hub/internal/audit"
	"office-hub/internal/models"

	"gorm.io/gorm"
)

// Limits задаёт размеры списков на дашбордах.
type Limits struct {
	AssetList      int
	Attention      int
	Upcoming       int
	RecentActivity int
	RecentComments int
	BoardColumn    int
}

func DefaultLimits() Limits {
	return Limits{
		AssetList:      25,
		Attention:      6,
		Upcoming:       6,
		RecentActivity: 10,
		RecentComments: 5,
		BoardColumn:    15,
	}
}

type Service struct {
	db     *gorm.DB
	log    *audit.Log
	limits Limits
	now    func() time.Time
}

func NewService(db *gorm.DB, limits Limits) *Service {
	return &Service{db: db, log: audit.NewLog(db), limits: limits, now: time.Now}
}

type InventoryOverview struct {
	Assets              []models.Asset    `json:"assets"`
	AssetTotal          int               `json:"asset_total"`
	StatusBreakdown     []StatusCount     `json:"status_breakdown"`
	CategoryBreakdown   []CategoryCount   `json:"category_breakdown"`
	VendorCount         int64             `json:"vendor_count"`
	UpcomingMaintenance []MaintenanceItem `json:"upcoming_maintenance"`
	Attention           []models.Asset    `json:"attention"`
	CurrentDate         string            `json:"current_date"`
}

func (s *Service) InventoryOverview(ctx context.Context) (*InventoryOverview, error) {
	db := s.db.WithContext(ctx)

	var assets []models.Asset
	if err := db.
		Preload("Category").
		Preload("Location").
		Preload("AssignedTo").
		Preload("Custodian").
		Order("name, inventory_code").
		Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	var categories []models.AssetCategory
	if err := db.Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	var vendors int64
	if err := db.Model(&models.Vendor{}).Count(&vendors).Error; err != nil {
		return nil, fmt.Errorf("count vendors: %w", err)
	}

	var maintenance []models.MaintenanceRecord
	if err := db.
		Preload("Asset").
		Preload("Responsible").
		Where("status IN ?", []models.MaintenanceStatus{models.MaintenancePlanned, models.MaintenanceInProgress}).
		Where("scheduled_for IS NOT NULL").
		Find(&maintenance).Error; err != nil {
		return nil, fmt.Errorf("load maintenance: %w", err)
	}

	now := s.now()
	return &InventoryOverview{
		Assets:              capped(assets, s.limits.AssetList),
		AssetTotal:          len(assets),
		StatusBreakdown:     AssetStatusCounts(assets),
		CategoryBreakdown:   CategoryCounts(categories, assets),
		VendorCount:         vendors,
		UpcomingMaintenance: withOverdue(UpcomingMaintenance(maintenance, s.limits.Upcoming), now),
		Attention:           NeedsAttention(assets, s.limits.Attention),
		CurrentDate:         now.Format(time.DateOnly),
	}, nil
}

type TaskBoardView struct {
	Columns           []BoardColumn        `json:"columns"`
	ProjectCount      int64                `json:"project_count"`
	TaskTotal         int                  `json:"task_total"`
	TasksCompleted    int                  `json:"tasks_completed"`
	StatusBreakdown   []StatusCount        `json:"status_breakdown"`
	PriorityBreakdown []PriorityCount      `json:"priority_breakdown"`
	RecentActivity    []audit.Entry        `json:"recent_activity"`
	RecentComments    []models.TaskComment `json:"recent_comments"`
}

func (s *Service) TaskBoardView(ctx context.Context) (*TaskBoardView, error) {
	db := s.db.WithContext(ctx)

	var tasks []models.Task
	if err := db.
		Preload("Project").
		Preload("Assignee").
		Preload("CreatedBy").
		Preload("Watchers").
		Order("priority").
		Order("due_date").
		Order("id").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	var projects int64
	if err := db.Model(&models.Project{}).Where("is_active = ?", true).Count(&projects).Error; err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}

	activity, err := s.log.RecentTaskActivity(ctx, s.limits.RecentActivity, 0)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	entries := make([]audit.Entry, 0, len(activity))
	for i := range activity {
		entries = append(entries, audit.TaskEntryView(&activity[i]))
	}

	comments := []models.TaskComment{}
	if err := db.
		Preload("Task").
		Preload("Author").
		Order("created_at DESC, id DESC").
		Limit(max(s.limits.RecentComments, 1)).
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("recent comments: %w", err)
	}

	return &TaskBoardView{
		Columns:           TaskBoard(tasks, s.limits.BoardColumn),
		ProjectCount:      projects,
		TaskTotal:         len(tasks),
		TasksCompleted:    CountCompleted(tasks),
		StatusBreakdown:   TaskStatusCounts(tasks),
		PriorityBreakdown: TaskPriorityCounts(tasks),
		RecentActivity:    entries,
		RecentComments:    comments,
	}, nil
}
