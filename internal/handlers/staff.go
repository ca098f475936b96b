package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hostel-backend/internal/ctxkeys"
	"hostel-backend/internal/database"
	"hostel-backend/internal/models"
)

// StaffHandler manages the staff directory. Members are never hard-deleted,
// only deactivated, so complaint history keeps its references.
type StaffHandler struct {
	db database.Service
}

func NewStaffHandler(db database.Service) *StaffHandler {
	return &StaffHandler{db: db}
}

// ── Create ─────────────────────────────────────────────────────

func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())

	var req models.CreateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "Validation failed",
			"details": errs,
		})
		return
	}

	if req.CategoryExpertise == nil {
		req.CategoryExpertise = map[string]int{}
	}
	// A member always has full expertise in their home category
	if _, ok := req.CategoryExpertise[req.Category]; !ok {
		req.CategoryExpertise[req.Category] = 100
	}

	expertiseJSON, err := json.Marshal(req.CategoryExpertise)
	if err != nil {
		log.Printf("Failed to marshal expertise: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create staff member")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	var m models.StaffMember
	var rawExpertise []byte
	err = pool.QueryRow(ctx, `
		INSERT INTO staff (name, phone, category, category_expertise)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, phone, category, category_expertise, efficiency_score,
		          current_workload, last_active, is_active, created_at, updated_at
	`, req.Name, req.Phone, req.Category, expertiseJSON).Scan(
		&m.ID, &m.Name, &m.Phone, &m.Category, &rawExpertise, &m.EfficiencyScore,
		&m.CurrentWorkload, &m.LastActive, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		log.Printf("Failed to create staff member: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create staff member")
		return
	}
	if err := json.Unmarshal(rawExpertise, &m.CategoryExpertise); err != nil {
		m.CategoryExpertise = map[string]int{}
	}

	go logActivity(pool, userID, "created", "staff", m.ID, map[string]interface{}{
		"name":     m.Name,
		"category": m.Category,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    m,
		"message": "Staff member created successfully",
	})
}

// ── List ───────────────────────────────────────────────────────

var staffSortColumns = map[string]string{
	"name":       "name",
	"category":   "category",
	"efficiency": "efficiency_score",
	"workload":   "current_workload",
	"createdAt":  "created_at",
}

func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := ""
	args := []interface{}{}
	argIdx := 1

	addFilter := func(clause string, value interface{}) {
		if where == "" {
			where = "WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(clause, argIdx)
		args = append(args, value)
		argIdx++
	}

	if category := q.Get("category"); category != "" {
		addFilter("category = $%d", category)
	}
	if active := q.Get("active"); active != "" {
		addFilter("is_active = $%d", active == "true")
	}
	if search := q.Get("search"); search != "" {
		addFilter("name ILIKE $%d", "%"+search+"%")
	}

	sortCol, ok := staffSortColumns[q.Get("sortBy")]
	if !ok {
		sortCol = "name"
	}
	sortDir := "ASC"
	if q.Get("sortOrder") == "desc" {
		sortDir = "DESC"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	var total int
	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM staff "+where, args...).Scan(&total)
	if err != nil {
		log.Printf("Failed to count staff: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to list staff")
		return
	}

	query := fmt.Sprintf(`
		SELECT id, name, phone, category, category_expertise, efficiency_score,
		       current_workload, last_active, is_active, created_at, updated_at
		FROM staff
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, sortCol, sortDir, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Failed to list staff: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to list staff")
		return
	}
	defer rows.Close()

	members := []models.StaffMember{}
	for rows.Next() {
		var m models.StaffMember
		var rawExpertise []byte
		err := rows.Scan(&m.ID, &m.Name, &m.Phone, &m.Category, &rawExpertise,
			&m.EfficiencyScore, &m.CurrentWorkload, &m.LastActive, &m.IsActive,
			&m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			log.Printf("Failed to scan staff member: %v", err)
			JSONError(w, http.StatusInternalServerError, "Failed to list staff")
			return
		}
		if err := json.Unmarshal(rawExpertise, &m.CategoryExpertise); err != nil {
			m.CategoryExpertise = map[string]int{}
		}
		members = append(members, m)
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data: members,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// ── GetByID ────────────────────────────────────────────────────

func (h *StaffHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	m, err := h.fetch(ctx, chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, http.StatusNotFound, "Staff member not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": m})
}

// ── Update ─────────────────────────────────────────────────────

// Update edits name, phone and expertise in place. Category is fixed at
// creation; moving a member would invalidate their assignment history.
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())

	var req models.UpdateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "Validation failed",
			"details": errs,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	m, err := h.fetch(ctx, chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, http.StatusNotFound, "Staff member not found")
		return
	}

	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Phone != nil {
		m.Phone = *req.Phone
	}
	if req.CategoryExpertise != nil {
		m.CategoryExpertise = *req.CategoryExpertise
	}

	expertiseJSON, err := json.Marshal(m.CategoryExpertise)
	if err != nil {
		log.Printf("Failed to marshal expertise: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update staff member")
		return
	}

	err = pool.QueryRow(ctx, `
		UPDATE staff
		SET name = $1, phone = $2, category_expertise = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`, m.Name, m.Phone, expertiseJSON, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		log.Printf("Failed to update staff member %s: %v", m.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to update staff member")
		return
	}

	go logActivity(pool, userID, "updated", "staff", m.ID, nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    m,
		"message": "Staff member updated successfully",
	})
}

// ── Deactivate ─────────────────────────────────────────────────

// Deactivate takes a member out of the assignment pool. The guard keeps at
// least two active members in every category so assignment never starves;
// the count check and the flag flip happen in one statement so two racing
// deactivations cannot both slip through.
func (h *StaffHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	m, err := h.fetch(ctx, chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, http.StatusNotFound, "Staff member not found")
		return
	}
	if !m.IsActive {
		JSONError(w, http.StatusConflict, "Staff member is already deactivated")
		return
	}

	tag, err := pool.Exec(ctx, `
		UPDATE staff SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active
		  AND (SELECT COUNT(*) FROM staff s2
		       WHERE s2.category = staff.category AND s2.is_active AND s2.id != staff.id) >= 2
	`, m.ID)
	if err != nil {
		log.Printf("Failed to deactivate staff member %s: %v", m.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to deactivate staff member")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusConflict,
			"Deactivating this member would leave fewer than 2 active members in the category")
		return
	}

	go logActivity(pool, userID, "deactivated", "staff", m.ID, map[string]interface{}{
		"category": m.Category,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Staff member deactivated successfully",
	})
}

// ── Reactivate ─────────────────────────────────────────────────

func (h *StaffHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, `
		UPDATE staff SET is_active = TRUE, last_active = NOW(), updated_at = NOW()
		WHERE id = $1 AND NOT is_active
	`, chi.URLParam(r, "id"))
	if err != nil {
		log.Printf("Failed to reactivate staff member: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to reactivate staff member")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Staff member not found or already active")
		return
	}

	go logActivity(pool, userID, "reactivated", "staff", chi.URLParam(r, "id"), nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Staff member reactivated successfully",
	})
}

func (h *StaffHandler) fetch(ctx context.Context, id string) (*models.StaffMember, error) {
	var m models.StaffMember
	var rawExpertise []byte
	err := h.db.GetPool().QueryRow(ctx, `
		SELECT id, name, phone, category, category_expertise, efficiency_score,
		       current_workload, last_active, is_active, created_at, updated_at
		FROM staff WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Phone, &m.Category, &rawExpertise, &m.EfficiencyScore,
		&m.CurrentWorkload, &m.LastActive, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawExpertise, &m.CategoryExpertise); err != nil {
		m.CategoryExpertise = map[string]int{}
	}
	return &m, nil
}
