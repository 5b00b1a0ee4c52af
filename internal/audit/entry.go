package audit

import (
	"time"

	"office-hub/internal/models"
)

const (
	DomainAsset = "asset"
	DomainTask  = "task"
)

// Entry — запись журнала в виде, готовом для отображения.
type Entry struct {
	ID          uint           `json:"id"`
	Domain      string         `json:"domain"`
	EntityID    uint           `json:"entity_id"`
	EntityLabel string         `json:"entity_label"`
	Action      string         `json:"action"`
	ActionLabel string         `json:"action_label"`
	Actor       string         `json:"actor,omitempty"`
	Payload     map[string]any `json:"payload"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func AssetEntryView(e *models.AssetLogEntry) Entry {
	payload := copyPayload(e.Payload)
	for _, key := range []string{"status", "from_status", "to_status"} {
		if raw, ok := payload[key].(string); ok {
			payload[key+"_label"] = models.AssetStatus(raw).Label()
		}
	}
	for _, key := range []string{"maintenance_status", "previous_maintenance_status"} {
		if raw, ok := payload[key].(string); ok {
			payload[key+"_label"] = models.MaintenanceStatus(raw).Label()
		}
	}

	label := e.Asset.InventoryCode
	if e.Asset.ID != 0 {
		label = e.Asset.String()
	}
	return Entry{
		ID:          e.ID,
		Domain:      DomainAsset,
		EntityID:    e.AssetID,
		EntityLabel: label,
		Action:      string(e.Action),
		ActionLabel: e.Action.Label(),
		Actor:       e.PerformedBy.DisplayName(),
		Payload:     payload,
		Notes:       e.Notes,
		CreatedAt:   e.CreatedAt,
	}
}

func TaskEntryView(e *models.TaskActivity) Entry {
	payload := copyPayload(e.Payload)
	if raw, ok := payload["status"].(string); ok {
		payload["status_label"] = models.TaskStatus(raw).Label()
	}

	return Entry{
		ID:          e.ID,
		Domain:      DomainTask,
		EntityID:    e.TaskID,
		EntityLabel: e.Task.Title,
		Action:      string(e.Action),
		ActionLabel: e.Action.Label(),
		Actor:       e.Author.DisplayName(),
		Payload:     payload,
		CreatedAt:   e.CreatedAt,
	}
}

func copyPayload(src map[string]any) map[string]any {
	out := make(map[string]any, len(src)+2)
	for k, v := range src {
		out[k] = v
	}
	return out
}
