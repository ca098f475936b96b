package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hostel-backend/internal/ctxkeys"
	"hostel-backend/internal/database"
	"hostel-backend/internal/models"
)

// AssignConfigHandler exposes the assignment configuration singleton.
type AssignConfigHandler struct {
	db database.Service
}

func NewAssignConfigHandler(db database.Service) *AssignConfigHandler {
	return &AssignConfigHandler{db: db}
}

// loadAssignmentConfig reads the singleton row, creating it with defaults on
// first access. The id = 1 primary key constraint guarantees there is never
// more than one row, no matter how many processes race the insert.
func loadAssignmentConfig(ctx context.Context, pool *pgxpool.Pool) (*models.AssignmentConfig, error) {
	_, err := pool.Exec(ctx,
		`INSERT INTO assignment_config (id) VALUES (1) ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return nil, err
	}

	var cfg models.AssignmentConfig
	var categoryJSON []byte
	err = pool.QueryRow(ctx, `
		SELECT enabled_globally, category_enabled, max_workload,
		       efficiency_threshold, updated_at
		FROM assignment_config WHERE id = 1
	`).Scan(&cfg.EnabledGlobally, &categoryJSON, &cfg.MaxWorkload,
		&cfg.EfficiencyThreshold, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(categoryJSON, &cfg.CategoryEnabled); err != nil {
		cfg.CategoryEnabled = map[string]bool{}
	}
	return &cfg, nil
}

// ── Get ────────────────────────────────────────────────────────

func (h *AssignConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cfg, err := loadAssignmentConfig(ctx, h.db.GetPool())
	if err != nil {
		log.Printf("Failed to load assignment config: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": cfg})
}

// ── Save ───────────────────────────────────────────────────────

// Save applies a partial update: only the fields present in the request
// change, everything else keeps its current value.
func (h *AssignConfigHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SaveConfigRequest
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

	cfg, err := loadAssignmentConfig(ctx, pool)
	if err != nil {
		log.Printf("Failed to load assignment config: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}

	if req.EnabledGlobally != nil {
		cfg.EnabledGlobally = *req.EnabledGlobally
	}
	if req.CategoryEnabled != nil {
		// Merge per category rather than replacing the whole map
		if cfg.CategoryEnabled == nil {
			cfg.CategoryEnabled = map[string]bool{}
		}
		for name, enabled := range *req.CategoryEnabled {
			cfg.CategoryEnabled[name] = enabled
		}
	}
	if req.MaxWorkload != nil {
		cfg.MaxWorkload = *req.MaxWorkload
	}
	if req.EfficiencyThreshold != nil {
		cfg.EfficiencyThreshold = *req.EfficiencyThreshold
	}

	categoryJSON, err := json.Marshal(cfg.CategoryEnabled)
	if err != nil {
		log.Printf("Failed to marshal category config: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to save configuration")
		return
	}

	err = pool.QueryRow(ctx, `
		UPDATE assignment_config
		SET enabled_globally = $1, category_enabled = $2, max_workload = $3,
		    efficiency_threshold = $4, updated_at = NOW()
		WHERE id = 1
		RETURNING updated_at
	`, cfg.EnabledGlobally, categoryJSON, cfg.MaxWorkload, cfg.EfficiencyThreshold).
		Scan(&cfg.UpdatedAt)
	if err != nil {
		log.Printf("Failed to save assignment config: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to save configuration")
		return
	}

	if userID := ctxkeys.GetUserID(r.Context()); userID != "" {
		go logActivity(pool, userID, "updated", "assignment_config", "1", map[string]interface{}{
			"enabledGlobally": cfg.EnabledGlobally,
			"maxWorkload":     cfg.MaxWorkload,
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    cfg,
		"message": "Configuration updated successfully",
	})
}
