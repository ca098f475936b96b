package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hostel-backend/internal/assignment"
	"hostel-backend/internal/ctxkeys"
	"hostel-backend/internal/database"
	"hostel-backend/internal/lifecycle"
	"hostel-backend/internal/models"
	"hostel-backend/internal/notify"
	"hostel-backend/internal/storage"
)

// ComplaintHandler drives the complaint lifecycle: creation, listing, status
// transitions, feedback, deletion and assignment triggering.
type ComplaintHandler struct {
	db       database.Service
	engine   *assignment.Engine
	notifier notify.Dispatcher
	store    storage.Store
}

func NewComplaintHandler(db database.Service, engine *assignment.Engine, notifier notify.Dispatcher, store storage.Store) *ComplaintHandler {
	return &ComplaintHandler{db: db, engine: engine, notifier: notifier, store: store}
}

// ── Create ─────────────────────────────────────────────────────

func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())
	userName := ctxkeys.GetUserName(r.Context())

	var req models.CreateComplaintRequest
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

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Printf("Failed to begin transaction: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create complaint")
		return
	}
	defer tx.Rollback(ctx)

	var c models.Complaint
	err = tx.QueryRow(ctx, `
		INSERT INTO complaints (student_id, category, sub_category, description, image_url, image_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, student_id, category, sub_category, description, current_status,
		          assigned_staff_id, image_url, image_path, is_reopened, is_locked,
		          version, created_at, updated_at
	`, userID, req.Category, req.SubCategory, req.Description,
		nilIfEmpty(req.ImageURL), nilIfEmpty(req.ImagePath)).Scan(
		&c.ID, &c.StudentID, &c.Category, &c.SubCategory, &c.Description,
		&c.CurrentStatus, &c.AssignedStaffID, &c.ImageURL, &c.ImagePath,
		&c.IsReopened, &c.IsLocked, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		log.Printf("Failed to create complaint: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create complaint")
		return
	}

	// Seed the history with the initial state so the timeline is never empty
	_, err = tx.Exec(ctx, `
		INSERT INTO status_history (complaint_id, status, note)
		VALUES ($1, $2, 'Complaint received')
	`, c.ID, lifecycle.StatusReceived)
	if err != nil {
		log.Printf("Failed to seed status history: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create complaint")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Failed to commit complaint: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create complaint")
		return
	}

	go logActivity(pool, userID, "created", "complaint", c.ID, map[string]interface{}{
		"category":    c.Category,
		"subCategory": c.SubCategory,
	})

	bg := context.WithoutCancel(r.Context())
	h.notifyElevated(bg, func(recipientID string) {
		h.notifier.ComplaintCreated(bg, recipientID, &c, userName)
	})

	// Automated assignment runs synchronously but never fails the creation:
	// the complaint simply stays Received when no one can take it.
	var result *assignment.Result
	cfg, err := loadAssignmentConfig(ctx, pool)
	if err != nil {
		log.Printf("[assign] load config: %v", err)
	} else if cfg.AutoAssignEnabled(c.Category) {
		result, err = h.engine.Assign(ctx, &c, cfg)
		if err != nil {
			if errors.Is(err, assignment.ErrNoCandidate) {
				log.Printf("[assign] no candidate for complaint %s (%s)", c.ID, c.Category)
			} else {
				log.Printf("[assign] complaint %s: %v", c.ID, err)
			}
		}
	}

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":       c,
		"assignment": result,
		"message":    "Complaint submitted successfully",
	})
}

// ── List ───────────────────────────────────────────────────────

var complaintSortColumns = map[string]string{
	"createdAt": "c.created_at",
	"updatedAt": "c.updated_at",
	"status":    "c.current_status",
	"category":  "c.category",
}

func (h *ComplaintHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())
	role := ctxkeys.GetUserRole(r.Context())

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

	// Students only ever see their own complaints
	if role == "student" {
		addFilter("c.student_id = $%d", userID)
	}
	if status := q.Get("status"); status != "" {
		if !lifecycle.IsValidStatus(status) {
			JSONError(w, http.StatusBadRequest, "Unknown status filter")
			return
		}
		addFilter("c.current_status = $%d", status)
	}
	if category := q.Get("category"); category != "" {
		addFilter("c.category = $%d", category)
	}
	if search := q.Get("search"); search != "" {
		addFilter("c.description ILIKE $%d", "%"+search+"%")
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			addFilter("c.created_at >= $%d", t)
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			addFilter("c.created_at < $%d", t.AddDate(0, 0, 1))
		}
	}

	sortCol, ok := complaintSortColumns[q.Get("sortBy")]
	if !ok {
		sortCol = "c.created_at"
	}
	sortDir := "DESC"
	if q.Get("sortOrder") == "asc" {
		sortDir = "ASC"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	var total int
	err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM complaints c "+where, args...).Scan(&total)
	if err != nil {
		log.Printf("Failed to count complaints: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to list complaints")
		return
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.student_id, c.category, c.sub_category, c.description,
		       c.current_status, c.assigned_staff_id, c.image_url, c.image_path,
		       c.is_reopened, c.is_locked,
		       c.feedback_satisfied, c.feedback_comment, c.feedback_at,
		       c.version, c.created_at, c.updated_at,
		       s.name, s.phone
		FROM complaints c
		LEFT JOIN staff s ON s.id = c.assigned_staff_id
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, sortCol, sortDir, argIdx, argIdx+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Failed to list complaints: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to list complaints")
		return
	}
	defer rows.Close()

	complaints := []models.ComplaintWithStaff{}
	for rows.Next() {
		c, err := scanComplaintWithStaff(rows.Scan)
		if err != nil {
			log.Printf("Failed to scan complaint: %v", err)
			JSONError(w, http.StatusInternalServerError, "Failed to list complaints")
			return
		}
		complaints = append(complaints, *c)
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data: complaints,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// ── GetByID ────────────────────────────────────────────────────

func (h *ComplaintHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.fetchComplaint(ctx, chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	if !h.canView(r, &c.Complaint) {
		JSONError(w, http.StatusNotFound, "Complaint not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": c})
}

// ── Timeline ───────────────────────────────────────────────────

func (h *ComplaintHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	c, err := h.fetchComplaint(ctx, chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	if !h.canView(r, &c.Complaint) {
		JSONError(w, http.StatusNotFound, "Complaint not found")
		return
	}

	rows, err := pool.Query(ctx, `
		SELECT id, complaint_id, status, note, created_at
		FROM status_history
		WHERE complaint_id = $1
		ORDER BY created_at ASC
	`, c.ID)
	if err != nil {
		log.Printf("Failed to load timeline: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to load timeline")
		return
	}
	defer rows.Close()

	entries := []models.StatusEntry{}
	for rows.Next() {
		var e models.StatusEntry
		if err := rows.Scan(&e.ID, &e.ComplaintID, &e.Status, &e.Note, &e.CreatedAt); err != nil {
			log.Printf("Failed to scan history entry: %v", err)
			JSONError(w, http.StatusInternalServerError, "Failed to load timeline")
			return
		}
		entries = append(entries, e)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"complaint": c,
			"timeline":  entries,
		},
	})
}

// ── UpdateStatus ───────────────────────────────────────────────

func (h *ComplaintHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())
	userName := ctxkeys.GetUserName(r.Context())
	role := ctxkeys.GetUserRole(r.Context())

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	c, err := h.fetchComplaint(ctx, chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, http.StatusNotFound, "Complaint not found")
		return
	}

	// Re-closing a closed complaint is the one tolerated no-op
	if c.CurrentStatus == lifecycle.StatusClosed && req.Status == lifecycle.StatusClosed {
		JSON(w, http.StatusOK, map[string]interface{}{
			"data":    c,
			"message": "Complaint is already closed",
		})
		return
	}

	if req.Status == lifecycle.StatusClosed {
		err = lifecycle.CanClose(c.CurrentStatus, c.IsLocked, ctxkeys.IsElevated(role))
	} else {
		err = lifecycle.CanTransition(c.CurrentStatus, req.Status, c.IsLocked)
	}
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	if req.Version != nil && *req.Version != c.Version {
		JSONError(w, http.StatusConflict, "Complaint was modified by someone else; refresh and retry")
		return
	}

	// Work out who ends up assigned
	var finalAssignee *string
	switch {
	case req.Status == lifecycle.StatusInProgress && req.StaffID != nil:
		member, err := h.fetchStaff(ctx, *req.StaffID)
		if err != nil {
			JSONError(w, http.StatusNotFound, "Staff member not found")
			return
		}
		if !member.IsActive {
			JSONError(w, http.StatusUnprocessableEntity, "Staff member is deactivated")
			return
		}
		target := c.Category
		if c.SubCategory != nil && *c.SubCategory != "" {
			target = *c.SubCategory
		}
		if !member.ServicesCategory(target) && !member.ServicesCategory(c.Category) {
			JSONError(w, http.StatusUnprocessableEntity, "Staff member does not service this category")
			return
		}
		finalAssignee = &member.ID
	case req.Status == lifecycle.StatusInProgress:
		if c.AssignedStaffID == nil {
			JSONError(w, http.StatusUnprocessableEntity, "A staff member is required to move a complaint to In Progress")
			return
		}
		finalAssignee = c.AssignedStaffID
	case lifecycle.ClearsAssignment(req.Status):
		finalAssignee = nil
	default:
		finalAssignee = c.AssignedStaffID
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Printf("Failed to begin transaction: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	defer tx.Rollback(ctx)

	// The version guard makes the write first-committer-wins even when the
	// client did not send an expected version.
	set := `current_status = $1, assigned_staff_id = $2, version = version + 1, updated_at = NOW()`
	switch req.Status {
	case lifecycle.StatusResolved:
		// A fresh resolution needs fresh feedback
		set += `, is_reopened = FALSE, feedback_satisfied = NULL, feedback_comment = NULL, feedback_at = NULL`
	case lifecycle.StatusClosed:
		set += `, is_reopened = FALSE`
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE complaints SET %s
		WHERE id = $3 AND version = $4 AND NOT is_locked AND current_status != 'Closed'
	`, set), req.Status, finalAssignee, c.ID, c.Version)
	if err != nil {
		log.Printf("Failed to update complaint %s: %v", c.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusConflict, "Complaint was modified by someone else; refresh and retry")
		return
	}

	note := req.Note
	if note == "" {
		note = fmt.Sprintf("Status changed to %s by %s", req.Status, userName)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO status_history (complaint_id, status, note)
		VALUES ($1, $2, $3)
	`, c.ID, req.Status, note)
	if err != nil {
		log.Printf("Failed to append history for %s: %v", c.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Failed to commit status update: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	bg := context.WithoutCancel(r.Context())
	h.settleWorkloads(bg, &c.Complaint, req.Status, finalAssignee)

	if req.Status == lifecycle.StatusResolved && finalAssignee != nil {
		h.engine.MarkActive(bg, *finalAssignee)
		if err := h.engine.RecomputeEfficiency(bg, *finalAssignee); err != nil {
			log.Printf("[assign] recompute efficiency for %s: %v", *finalAssignee, err)
		}
	}

	go logActivity(pool, userID, "status_changed", "complaint", c.ID, map[string]interface{}{
		"from": c.CurrentStatus,
		"to":   req.Status,
	})

	updated, err := h.fetchComplaint(ctx, c.ID)
	if err != nil {
		log.Printf("Failed to reload complaint %s: %v", c.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	go h.notifier.StatusChanged(bg, updated.StudentID, &updated.Complaint, req.Status, userName)

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    updated,
		"message": "Status updated successfully",
	})
}

// settleWorkloads reconciles staff workload counters after a transition:
// releases the slot held by an assignee whose complaint leaves In Progress,
// and takes a slot for a manual assignment. Manual assignment deliberately
// skips the cap check; the cap only gates automated selection.
func (h *ComplaintHandler) settleWorkloads(ctx context.Context, before *models.Complaint, target string, finalAssignee *string) {
	prevOpen := before.CurrentStatus == lifecycle.StatusInProgress
	newOpen := target == lifecycle.StatusInProgress

	if prevOpen && before.AssignedStaffID != nil &&
		(!newOpen || finalAssignee == nil || *finalAssignee != *before.AssignedStaffID) {
		h.engine.ReleaseWorkload(ctx, *before.AssignedStaffID)
	}
	if newOpen && finalAssignee != nil &&
		(!prevOpen || before.AssignedStaffID == nil || *before.AssignedStaffID != *finalAssignee) {
		_, err := h.db.GetPool().Exec(ctx, `
			UPDATE staff
			SET current_workload = current_workload + 1, updated_at = NOW()
			WHERE id = $1
		`, *finalAssignee)
		if err != nil {
			log.Printf("[assign] take workload slot for %s: %v", *finalAssignee, err)
		}
	}
}

// ── Feedback ───────────────────────────────────────────────────

func (h *ComplaintHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())
	userName := ctxkeys.GetUserName(r.Context())

	var req models.FeedbackRequest
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

	c, err := h.fetchComplaint(ctx, chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	if c.StudentID != userID {
		JSONError(w, http.StatusForbidden, "Only the submitting student can give feedback")
		return
	}

	if err := lifecycle.CheckFeedback(c.CurrentStatus, c.IsLocked, c.Feedback != nil); err != nil {
		writeLifecycleError(w, err)
		return
	}

	satisfied := *req.IsSatisfied

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Printf("Failed to begin transaction: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to submit feedback")
		return
	}
	defer tx.Rollback(ctx)

	var tag pgconn.CommandTag
	var newStatus, note string

	if satisfied {
		// Positive feedback locks the complaint for good
		newStatus = c.CurrentStatus
		note = "Student confirmed the resolution; complaint locked"
		tag, err = tx.Exec(ctx, `
			UPDATE complaints
			SET feedback_satisfied = TRUE, feedback_comment = $1, feedback_at = NOW(),
			    is_locked = TRUE, is_reopened = FALSE,
			    version = version + 1, updated_at = NOW()
			WHERE id = $2 AND version = $3 AND NOT is_locked
			  AND current_status = 'Resolved' AND feedback_satisfied IS NULL
		`, req.Comment, c.ID, c.Version)
	} else {
		newStatus = lifecycle.ReopenTarget(c.AssignedStaffID != nil)
		note = "Reopened after unsatisfied feedback"
		if req.Comment != "" {
			note = fmt.Sprintf("Reopened after unsatisfied feedback: %s", req.Comment)
		}
		tag, err = tx.Exec(ctx, `
			UPDATE complaints
			SET feedback_satisfied = FALSE, feedback_comment = $1, feedback_at = NOW(),
			    is_reopened = TRUE, current_status = $2,
			    version = version + 1, updated_at = NOW()
			WHERE id = $3 AND version = $4 AND NOT is_locked
			  AND current_status = 'Resolved' AND feedback_satisfied IS NULL
		`, req.Comment, newStatus, c.ID, c.Version)
	}
	if err != nil {
		log.Printf("Failed to record feedback for %s: %v", c.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to submit feedback")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusConflict, "Complaint was modified by someone else; refresh and retry")
		return
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO status_history (complaint_id, status, note)
		VALUES ($1, $2, $3)
	`, c.ID, newStatus, note)
	if err != nil {
		log.Printf("Failed to append history for %s: %v", c.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to submit feedback")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Failed to commit feedback: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to submit feedback")
		return
	}

	bg := context.WithoutCancel(r.Context())

	// Reopening to In Progress puts the complaint back on the assignee's plate
	if !satisfied && newStatus == lifecycle.StatusInProgress && c.AssignedStaffID != nil {
		h.settleWorkloads(bg, &c.Complaint, newStatus, c.AssignedStaffID)
	}

	go logActivity(pool, userID, "feedback", "complaint", c.ID, map[string]interface{}{
		"isSatisfied": satisfied,
	})

	updated, err := h.fetchComplaint(ctx, c.ID)
	if err != nil {
		log.Printf("Failed to reload complaint %s: %v", c.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to submit feedback")
		return
	}

	if !satisfied {
		h.notifyElevated(bg, func(recipientID string) {
			h.notifier.StatusChanged(bg, recipientID, &updated.Complaint, newStatus, userName)
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    updated,
		"message": "Feedback submitted successfully",
	})
}

// ── Delete ─────────────────────────────────────────────────────

func (h *ComplaintHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	c, err := h.fetchComplaint(ctx, chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, http.StatusNotFound, "Complaint not found")
		return
	}

	if err := lifecycle.CanDelete(c.CurrentStatus, c.IsLocked); err != nil {
		writeLifecycleError(w, err)
		return
	}

	// History rows cascade with the complaint
	tag, err := pool.Exec(ctx, `
		DELETE FROM complaints
		WHERE id = $1 AND current_status = 'Received' AND NOT is_locked
	`, c.ID)
	if err != nil {
		log.Printf("Failed to delete complaint %s: %v", c.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete complaint")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusConflict, "Complaint was modified by someone else; refresh and retry")
		return
	}

	if c.ImagePath != nil {
		// Best effort; an orphaned image is not worth failing the delete
		if err := h.store.Delete(ctx, *c.ImagePath); err != nil {
			log.Printf("Failed to delete complaint image %s: %v", *c.ImagePath, err)
		}
	}

	go logActivity(pool, userID, "deleted", "complaint", c.ID, map[string]interface{}{
		"category": c.Category,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Complaint deleted successfully",
	})
}

// ── TriggerAssign ──────────────────────────────────────────────

// TriggerAssign runs the assignment engine on demand. An explicit trigger
// bypasses the per-category auto-assign switches but still honors the cap.
func (h *ComplaintHandler) TriggerAssign(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.GetUserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	pool := h.db.GetPool()

	c, err := h.fetchComplaint(ctx, chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, http.StatusNotFound, "Complaint not found")
		return
	}

	if c.IsLocked || c.CurrentStatus == lifecycle.StatusClosed {
		JSONError(w, http.StatusConflict, "Complaint can no longer be assigned")
		return
	}
	if c.AssignedStaffID != nil ||
		(c.CurrentStatus != lifecycle.StatusReceived && c.CurrentStatus != lifecycle.StatusPending) {
		JSONError(w, http.StatusConflict, "Complaint is already assigned or in progress")
		return
	}

	cfg, err := loadAssignmentConfig(ctx, pool)
	if err != nil {
		log.Printf("[assign] load config: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to run assignment")
		return
	}

	result, err := h.engine.Assign(ctx, &c.Complaint, cfg)
	if err != nil {
		if errors.Is(err, assignment.ErrNoCandidate) {
			JSON(w, http.StatusOK, map[string]interface{}{
				"assigned": false,
				"message":  "No eligible staff member available",
			})
			return
		}
		if errors.Is(err, assignment.ErrRaced) {
			JSONError(w, http.StatusConflict, "Complaint was modified by someone else; refresh and retry")
			return
		}
		log.Printf("[assign] complaint %s: %v", c.ID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to run assignment")
		return
	}

	go logActivity(pool, userID, "assigned", "complaint", c.ID, map[string]interface{}{
		"staffId":   result.StaffID,
		"staffName": result.StaffName,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"assigned":   true,
		"assignment": result,
	})
}

// ── helpers ────────────────────────────────────────────────────

func (h *ComplaintHandler) fetchComplaint(ctx context.Context, id string) (*models.ComplaintWithStaff, error) {
	row := h.db.GetPool().QueryRow(ctx, `
		SELECT c.id, c.student_id, c.category, c.sub_category, c.description,
		       c.current_status, c.assigned_staff_id, c.image_url, c.image_path,
		       c.is_reopened, c.is_locked,
		       c.feedback_satisfied, c.feedback_comment, c.feedback_at,
		       c.version, c.created_at, c.updated_at,
		       s.name, s.phone
		FROM complaints c
		LEFT JOIN staff s ON s.id = c.assigned_staff_id
		WHERE c.id = $1
	`, id)
	return scanComplaintWithStaff(row.Scan)
}

func scanComplaintWithStaff(scan func(...interface{}) error) (*models.ComplaintWithStaff, error) {
	var c models.ComplaintWithStaff
	var fbSatisfied *bool
	var fbComment *string
	var fbAt *time.Time

	err := scan(
		&c.ID, &c.StudentID, &c.Category, &c.SubCategory, &c.Description,
		&c.CurrentStatus, &c.AssignedStaffID, &c.ImageURL, &c.ImagePath,
		&c.IsReopened, &c.IsLocked,
		&fbSatisfied, &fbComment, &fbAt,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
		&c.StaffName, &c.StaffPhone,
	)
	if err != nil {
		return nil, err
	}

	if fbSatisfied != nil {
		fb := models.Feedback{IsSatisfied: *fbSatisfied}
		if fbComment != nil {
			fb.Comment = *fbComment
		}
		if fbAt != nil {
			fb.Timestamp = *fbAt
		}
		c.Feedback = &fb
	}
	return &c, nil
}

func (h *ComplaintHandler) fetchStaff(ctx context.Context, id string) (*models.StaffMember, error) {
	var m models.StaffMember
	var expertise []byte
	err := h.db.GetPool().QueryRow(ctx, `
		SELECT id, name, phone, category, category_expertise, efficiency_score,
		       current_workload, last_active, is_active, created_at, updated_at
		FROM staff WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Phone, &m.Category, &expertise, &m.EfficiencyScore,
		&m.CurrentWorkload, &m.LastActive, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(expertise, &m.CategoryExpertise); err != nil {
		m.CategoryExpertise = map[string]int{}
	}
	return &m, nil
}

// canView hides other students' complaints; elevated roles see everything.
func (h *ComplaintHandler) canView(r *http.Request, c *models.Complaint) bool {
	role := ctxkeys.GetUserRole(r.Context())
	if role != "student" {
		return true
	}
	userID := ctxkeys.GetUserID(r.Context())
	return c.StudentID == userID
}

// notifyElevated fans a notification out to every warden and admin.
func (h *ComplaintHandler) notifyElevated(ctx context.Context, send func(recipientID string)) {
	rows, err := h.db.GetPool().Query(ctx,
		`SELECT id FROM users WHERE role IN ('warden', 'admin')`)
	if err != nil {
		log.Printf("[notify] load recipients: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		// Fire-and-forget: the dispatcher bounds and logs its own failures
		go send(id)
	}
}

// writeLifecycleError maps state-machine violations onto HTTP statuses.
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidStatus):
		JSONError(w, http.StatusUnprocessableEntity, "Unknown complaint status")
	case errors.Is(err, lifecycle.ErrCloseForbidden):
		JSONError(w, http.StatusForbidden, "Closing a complaint requires a warden or admin")
	case errors.Is(err, lifecycle.ErrLocked):
		JSONError(w, http.StatusConflict, "Complaint is locked after satisfied feedback")
	case errors.Is(err, lifecycle.ErrClosed):
		JSONError(w, http.StatusConflict, "Complaint is closed and can no longer change")
	case errors.Is(err, lifecycle.ErrNotResolved):
		JSONError(w, http.StatusConflict, "Feedback can only be given on a resolved complaint")
	case errors.Is(err, lifecycle.ErrFeedbackExists):
		JSONError(w, http.StatusConflict, "Feedback has already been submitted")
	case errors.Is(err, lifecycle.ErrNotDeletable):
		JSONError(w, http.StatusConflict, "Only complaints still in Received can be deleted")
	default:
		JSONError(w, http.StatusInternalServerError, "Operation failed")
	}
}
