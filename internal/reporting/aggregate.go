// Package reporting сводит оборудование и задачи в счётчики для дашбордов.
// Функции этого файла ничего не меняют и не ходят в БД.
package reporting

import (
	"sort"
	"time"

	"office-hub/internal/models"
)

type StatusCount struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Total  int    `json:"total"`
}

type PriorityCount struct {
	Priority models.TaskPriority `json:"priority"`
	Label    string              `json:"label"`
	Total    int                 `json:"total"`
}

type CategoryCount struct {
	CategoryID uint   `json:"category_id"`
	Name       string `json:"name"`
	Total      int    `json:"total"`
}

type BoardColumn struct {
	Status models.TaskStatus `json:"status"`
	Label  string            `json:"label"`
	Total  int               `json:"total"`
	Items  []models.Task     `json:"items"`
}

type bucket[K comparable] struct {
	key   K
	total int
}

// countBy группирует по ключу; порядок — по убыванию количества,
// при равенстве — в порядке первого появления.
func countBy[T any, K comparable](items []T, key func(*T) K) []bucket[K] {
	index := map[K]int{}
	var out []bucket[K]
	for i := range items {
		k := key(&items[i])
		if pos, ok := index[k]; ok {
			out[pos].total++
			continue
		}
		index[k] = len(out)
		out = append(out, bucket[K]{key: k, total: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].total > out[j].total })
	return out
}

func AssetStatusCounts(assets []models.Asset) []StatusCount {
	buckets := countBy(assets, func(a *models.Asset) models.AssetStatus { return a.Status })
	out := make([]StatusCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, StatusCount{Status: string(b.key), Label: b.key.Label(), Total: b.total})
	}
	return out
}

func TaskStatusCounts(tasks []models.Task) []StatusCount {
	buckets := countBy(tasks, func(t *models.Task) models.TaskStatus { return t.Status })
	out := make([]StatusCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, StatusCount{Status: string(b.key), Label: b.key.Label(), Total: b.total})
	}
	return out
}

// TaskPriorityCounts — для неизвестного приоритета подписью служит число.
func TaskPriorityCounts(tasks []models.Task) []PriorityCount {
	buckets := countBy(tasks, func(t *models.Task) models.TaskPriority { return t.Priority })
	out := make([]PriorityCount, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, PriorityCount{Priority: b.key, Label: b.key.Label(), Total: b.total})
	}
	return out
}

// CategoryCounts включает категории без оборудования.
func CategoryCounts(categories []models.AssetCategory, assets []models.Asset) []CategoryCount {
	totals := map[uint]int{}
	for _, a := range assets {
		totals[a.CategoryID]++
	}
	out := make([]CategoryCount, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryCount{CategoryID: c.ID, Name: c.Name, Total: totals[c.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// UpcomingMaintenance — запланированные и идущие работы с датой,
// ближайшие первыми.
func UpcomingMaintenance(records []models.MaintenanceRecord, limit int) []models.MaintenanceRecord {
	out := make([]models.MaintenanceRecord, 0, len(records))
	for _, r := range records {
		if r.ScheduledFor == nil {
			continue
		}
		if r.Status != models.MaintenancePlanned && r.Status != models.MaintenanceInProgress {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledFor.Before(*out[j].ScheduledFor)
	})
	return capped(out, limit)
}

// NeedsAttention — оборудование в резерве или на обслуживании.
func NeedsAttention(assets []models.Asset, limit int) []models.Asset {
	var out []models.Asset
	for _, a := range assets {
		if a.Status == models.AssetReserved || a.Status == models.AssetMaintenance {
			out = append(out, a)
		}
	}
	return capped(out, limit)
}

// TaskBoard раскладывает задачи по колонкам в порядке объявления статусов.
// Порядок задач внутри колонки сохраняется.
func TaskBoard(tasks []models.Task, perColumn int) []BoardColumn {
	byStatus := map[models.TaskStatus][]models.Task{}
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	statuses := models.TaskStatuses()
	out := make([]BoardColumn, 0, len(statuses))
	for _, s := range statuses {
		items := byStatus[s]
		out = append(out, BoardColumn{
			Status: s,
			Label:  s.Label(),
			Total:  len(items),
			Items:  capped(items, perColumn),
		})
	}
	return out
}

func CountCompleted(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status == models.TaskDone {
			n++
		}
	}
	return n
}

type MaintenanceItem struct {
	Record  models.MaintenanceRecord `json:"record"`
	Overdue bool                     `json:"overdue"`
}

func withOverdue(records []models.MaintenanceRecord, now time.Time) []MaintenanceItem {
	out := make([]MaintenanceItem, 0, len(records))
	for i := range records {
		out = append(out, MaintenanceItem{Record: records[i], Overdue: records[i].IsOverdue(now)})
	}
	return out
}

// limit <= 0 — без ограничения
func capped[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	if items == nil {
		return []T{}
	}
	return items
}
