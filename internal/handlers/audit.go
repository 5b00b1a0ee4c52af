package handlers

import (
	"net/http"
	"strconv"

	"office-hub/internal/audit"

	"github.com/gin-gonic/gin"
)

// ListActivity — лента журнала. domain=asset|task сужает ленту,
// entity_id — до одной записи.
func (h *Handler) ListActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	var entityID uint
	if raw := c.Query("entity_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			renderError(c, http.StatusBadRequest, "Некорректный ID")
			return
		}
		entityID = uint(id)
	}

	ctx := c.Request.Context()
	var entries []audit.Entry

	switch c.Query("domain") {
	case audit.DomainAsset:
		rows, err := h.journal.RecentAssetEntries(ctx, limit, entityID)
		if err != nil {
			h.fail(c, err)
			return
		}
		for i := range rows {
			entries = append(entries, audit.AssetEntryView(&rows[i]))
		}
	case audit.DomainTask:
		rows, err := h.journal.RecentTaskActivity(ctx, limit, entityID)
		if err != nil {
			h.fail(c, err)
			return
		}
		for i := range rows {
			entries = append(entries, audit.TaskEntryView(&rows[i]))
		}
	case "":
		if entityID != 0 {
			renderError(c, http.StatusBadRequest, "Для entity_id укажите domain")
			return
		}
		var err error
		if entries, err = h.journal.Recent(ctx, limit); err != nil {
			h.fail(c, err)
			return
		}
	default:
		renderError(c, http.StatusBadRequest, "Неизвестный журнал")
		return
	}

	if entries == nil {
		entries = []audit.Entry{}
	}
	render(c, http.StatusOK, gin.H{"entries": entries})
}
