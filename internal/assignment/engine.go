package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hostel-backend/internal/lifecycle"
	"hostel-backend/internal/models"
)

// ErrNoCandidate means no active staff member in the target category is under
// the workload cap. A normal outcome, not a failure: the complaint stays
// unassigned.
var ErrNoCandidate = errors.New("no eligible staff member available")

// ErrRaced means another request mutated the complaint between candidate
// selection and assignment. The claimed workload slot is released.
var ErrRaced = errors.New("complaint was modified concurrently")

// Engine scores staff members and applies assignments. The workload claim is
// a single increment-and-check statement, never a read-then-write.
type Engine struct {
	pool *pgxpool.Pool
}

// New creates an Engine over the given pool.
func New(pool *pgxpool.Pool) *Engine {
	return &Engine{pool: pool}
}

// Result describes a successful assignment.
type Result struct {
	StaffID   string  `json:"staffId"`
	StaffName string  `json:"staffName"`
	Category  string  `json:"category"`
	Score     float64 `json:"score"`
	LatencyMS int64   `json:"latencyMs"`
}

// Assign picks the best-available staff member for the complaint and applies
// the assignment. Candidates are tried best-first: losing a workload claim to
// a concurrent assignment just moves on to the next one.
func (e *Engine) Assign(ctx context.Context, c *models.Complaint, cfg *models.AssignmentConfig) (*Result, error) {
	target, err := e.effectiveCategory(ctx, c)
	if err != nil {
		return nil, err
	}

	if err := e.refreshWorkloads(ctx, target); err != nil {
		return nil, fmt.Errorf("refresh workloads: %w", err)
	}

	candidates, err := e.loadCandidates(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidate
	}

	now := time.Now()
	for len(candidates) > 0 {
		best, ok := SelectBest(candidates, target, cfg.MaxWorkload, now)
		if !ok {
			return nil, ErrNoCandidate
		}

		claimed, err := e.claimSlot(ctx, best.ID, cfg.MaxWorkload)
		if err != nil {
			return nil, fmt.Errorf("claim workload slot: %w", err)
		}
		if !claimed {
			// Lost to a concurrent assignment; drop this candidate and retry.
			candidates = remove(candidates, best.ID)
			continue
		}

		latency := time.Since(c.CreatedAt).Milliseconds()
		if err := e.applyAssignment(ctx, c, best, target, latency); err != nil {
			e.ReleaseWorkload(context.WithoutCancel(ctx), best.ID)
			return nil, err
		}

		log.Printf("[assign] complaint %s -> %s (%s), latency %dms", c.ID, best.Name, target, latency)

		return &Result{
			StaffID:   best.ID,
			StaffName: best.Name,
			Category:  target,
			Score:     Score(best, target, cfg.MaxWorkload, now),
			LatencyMS: latency,
		}, nil
	}

	return nil, ErrNoCandidate
}

// effectiveCategory resolves the category staff are searched in: the
// Maintenance sub-category when active staff exist for it, else the parent.
func (e *Engine) effectiveCategory(ctx context.Context, c *models.Complaint) (string, error) {
	if c.SubCategory == nil || *c.SubCategory == "" {
		return c.Category, nil
	}

	var count int
	err := e.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM staff WHERE category = $1 AND is_active`,
		*c.SubCategory,
	).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("check sub-category staffing: %w", err)
	}
	if count > 0 {
		return *c.SubCategory, nil
	}
	return c.Category, nil
}

// refreshWorkloads recomputes current_workload for every active member of the
// category from the complaints actually in progress, so scoring never runs on
// stale counts.
func (e *Engine) refreshWorkloads(ctx context.Context, category string) error {
	_, err := e.pool.Exec(ctx, `
		UPDATE staff SET current_workload = sub.open_count
		FROM (
			SELECT s.id, COUNT(c.id) AS open_count
			FROM staff s
			LEFT JOIN complaints c
				ON c.assigned_staff_id = s.id AND c.current_status = 'In Progress'
			WHERE s.category = $1 AND s.is_active
			GROUP BY s.id
		) sub
		WHERE staff.id = sub.id AND staff.current_workload != sub.open_count
	`, category)
	return err
}

func (e *Engine) loadCandidates(ctx context.Context, category string) ([]Candidate, error) {
	rows, err := e.pool.Query(ctx, `
		SELECT id, name, category, category_expertise, efficiency_score,
		       current_workload, last_active
		FROM staff
		WHERE category = $1 AND is_active
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		var expertise []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Category, &expertise,
			&c.Efficiency, &c.Workload, &c.LastActive); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(expertise, &c.Expertise); err != nil {
			c.Expertise = map[string]int{}
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// claimSlot atomically increments the member's workload if and only if it is
// still under the cap. Returns false when the slot was taken concurrently.
func (e *Engine) claimSlot(ctx context.Context, staffID string, maxWorkload int) (bool, error) {
	tag, err := e.pool.Exec(ctx, `
		UPDATE staff
		SET current_workload = current_workload + 1, updated_at = NOW()
		WHERE id = $1 AND is_active AND current_workload < $2
	`, staffID, maxWorkload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// applyAssignment moves the complaint to In Progress and appends the history
// entry in one transaction. The status guard makes the update a no-op if the
// complaint moved on since selection.
func (e *Engine) applyAssignment(ctx context.Context, c *models.Complaint, member Candidate, category string, latencyMS int64) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE complaints
		SET current_status = $1, assigned_staff_id = $2,
		    version = version + 1, updated_at = NOW()
		WHERE id = $3
		  AND current_status IN ('Received', 'Pending')
		  AND assigned_staff_id IS NULL
		  AND NOT is_locked
	`, lifecycle.StatusInProgress, member.ID, c.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRaced
	}

	note := fmt.Sprintf("Auto-assigned to %s (%s department) after %dms", member.Name, category, latencyMS)
	_, err = tx.Exec(ctx, `
		INSERT INTO status_history (complaint_id, status, note)
		VALUES ($1, $2, $3)
	`, c.ID, lifecycle.StatusInProgress, note)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	c.CurrentStatus = lifecycle.StatusInProgress
	c.AssignedStaffID = &member.ID
	c.Version++
	return nil
}

// ReleaseWorkload frees one workload slot, flooring at zero. Used when a
// complaint leaves In Progress and when an assignment loses its race.
func (e *Engine) ReleaseWorkload(ctx context.Context, staffID string) {
	_, err := e.pool.Exec(ctx, `
		UPDATE staff
		SET current_workload = GREATEST(current_workload - 1, 0), updated_at = NOW()
		WHERE id = $1
	`, staffID)
	if err != nil {
		log.Printf("[assign] release workload for %s: %v", staffID, err)
	}
}

// MarkActive refreshes the availability timestamp after the member acted on a
// complaint.
func (e *Engine) MarkActive(ctx context.Context, staffID string) {
	_, err := e.pool.Exec(ctx,
		`UPDATE staff SET last_active = NOW(), updated_at = NOW() WHERE id = $1`, staffID)
	if err != nil {
		log.Printf("[assign] mark active for %s: %v", staffID, err)
	}
}

// RecomputeEfficiency refreshes the member's efficiency score from their
// resolution history. Called after each resolution and by the nightly cycle.
func (e *Engine) RecomputeEfficiency(ctx context.Context, staffID string) error {
	var clean, reopened int
	var avgHours float64
	err := e.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE current_status IN ('Resolved', 'Closed') AND NOT is_reopened)::int,
			COALESCE(EXTRACT(EPOCH FROM AVG(updated_at - created_at)
				FILTER (WHERE current_status IN ('Resolved', 'Closed'))) / 3600, 0),
			COUNT(*) FILTER (WHERE is_reopened)::int
		FROM complaints
		WHERE assigned_staff_id = $1
	`, staffID).Scan(&clean, &avgHours, &reopened)
	if err != nil {
		return fmt.Errorf("resolution stats: %w", err)
	}

	score := ComputeEfficiency(clean, avgHours, reopened)
	_, err = e.pool.Exec(ctx,
		`UPDATE staff SET efficiency_score = $1, updated_at = NOW() WHERE id = $2`,
		score, staffID)
	return err
}

func remove(candidates []Candidate, id string) []Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
