package handlers

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"hostel-backend/internal/database"
)

// ActivityHandler exposes the audit trail to administrators.
type ActivityHandler struct {
	db database.Service
}

func NewActivityHandler(db database.Service) *ActivityHandler {
	return &ActivityHandler{db: db}
}

// ActivityEntry is one audit trail row, joined with the actor's name.
type ActivityEntry struct {
	ID         string                 `json:"id"`
	UserID     *string                `json:"userId,omitempty"`
	UserName   *string                `json:"userName,omitempty"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  string                 `json:"createdAt"`
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	var total int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM activity_log`).Scan(&total); err != nil {
		log.Printf("Failed to count activity: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to load activity")
		return
	}

	rows, err := pool.Query(ctx, `
		SELECT a.id, a.user_id, u.name, a.action, a.entity_type, a.entity_id,
		       a.details, a.created_at::text
		FROM activity_log a
		LEFT JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, (page-1)*limit)
	if err != nil {
		log.Printf("Failed to list activity: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to load activity")
		return
	}
	defer rows.Close()

	entries := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		var details []byte
		err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Action,
			&e.EntityType, &e.EntityID, &details, &e.CreatedAt)
		if err != nil {
			log.Printf("Failed to scan activity entry: %v", err)
			JSONError(w, http.StatusInternalServerError, "Failed to load activity")
			return
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				e.Details = nil
			}
		}
		entries = append(entries, e)
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data: entries,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}
