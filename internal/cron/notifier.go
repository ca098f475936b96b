package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hostel-backend/internal/assignment"
	"hostel-backend/internal/database"
)

// Complaints still Received after this long trigger a reminder.
const staleAfter = 48 * time.Hour

// StartNotifier launches a background goroutine that runs once per day
// (and once immediately) to remind wardens and admins about complaints
// stuck in Received, and to refresh every active staff member's
// efficiency score.
func StartNotifier(db database.Service, engine *assignment.Engine) {
	go func() {
		runCycle(db, engine)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			runCycle(db, engine)
		}
	}()

	log.Println("[cron] stale-complaint notifier started – runs every 24 h")
}

func runCycle(db database.Service, engine *assignment.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool := db.GetPool()

	// ─── 1. Fetch complaints stuck in Received ───────────────────────────
	rows, err := pool.Query(ctx, `
		SELECT c.id, c.category, c.description, c.created_at
		FROM complaints c
		WHERE c.current_status = 'Received'
		  AND c.assigned_staff_id IS NULL
		  AND c.created_at <= NOW() - make_interval(hours => $1)
	`, int(staleAfter.Hours()))
	if err != nil {
		log.Printf("[cron] error querying stale complaints: %v", err)
		return
	}
	defer rows.Close()

	type staleRow struct {
		ID        string
		Category  string
		CreatedAt time.Time
	}

	var stale []staleRow
	for rows.Next() {
		var s staleRow
		var description string
		if err := rows.Scan(&s.ID, &s.Category, &description, &s.CreatedAt); err != nil {
			log.Printf("[cron] scan error: %v", err)
			continue
		}
		stale = append(stale, s)
	}
	rows.Close()

	// ─── 2. Notify every warden and admin (skip if already sent today) ───
	inserted := 0
	if len(stale) > 0 {
		recipients, err := elevatedUserIDs(ctx, pool)
		if err != nil {
			log.Printf("[cron] error querying recipients: %v", err)
			return
		}

		today := time.Now().Format("2006-01-02")
		for _, s := range stale {
			age := int(time.Since(s.CreatedAt).Hours() / 24)
			title := fmt.Sprintf("%s complaint unattended", s.Category)
			message := fmt.Sprintf(
				"A %s complaint has been waiting for assignment for %d days. Please assign it manually or review staffing.",
				s.Category, age,
			)

			for _, userID := range recipients {
				var exists bool
				_ = pool.QueryRow(ctx, `
					SELECT EXISTS(
						SELECT 1 FROM notifications
						WHERE user_id     = $1
						  AND entity_type = 'complaint'
						  AND entity_id   = $2
						  AND type        = 'complaint_stale'
						  AND created_at::date = $3::date
					)
				`, userID, s.ID, today).Scan(&exists)
				if exists {
					continue
				}

				_, err := pool.Exec(ctx, `
					INSERT INTO notifications (user_id, title, message, type, entity_type, entity_id)
					VALUES ($1, $2, $3, 'complaint_stale', 'complaint', $4)
				`, userID, title, message, s.ID)
				if err != nil {
					log.Printf("[cron] insert notification error: %v", err)
					continue
				}
				inserted++
			}
		}
	}

	// ─── 3. Refresh efficiency scores for all active staff ───────────────
	refreshed := refreshEfficiency(ctx, pool, engine)

	log.Printf("[cron] cycle complete – %d stale complaints, %d new notifications, %d efficiency scores refreshed",
		len(stale), inserted, refreshed)
}

func elevatedUserIDs(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	rows, err := pool.Query(ctx,
		`SELECT id FROM users WHERE role IN ('warden', 'admin')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// refreshEfficiency recomputes every active member's score so members whose
// history aged since their last resolution drift back toward the base.
func refreshEfficiency(ctx context.Context, pool *pgxpool.Pool, engine *assignment.Engine) int {
	rows, err := pool.Query(ctx, `SELECT id FROM staff WHERE is_active`)
	if err != nil {
		log.Printf("[cron] error querying staff: %v", err)
		return 0
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	rows.Close()

	refreshed := 0
	for _, id := range ids {
		if err := engine.RecomputeEfficiency(ctx, id); err != nil {
			log.Printf("[cron] recompute efficiency for %s: %v", id, err)
			continue
		}
		refreshed++
	}
	return refreshed
}
