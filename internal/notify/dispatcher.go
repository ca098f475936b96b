// Package notify delivers lifecycle events to users. Delivery is best-effort:
// a notification is persisted for the in-app inbox and mirrored onto a Redis
// pub/sub channel for connected clients. Failures are logged, never returned,
// so a slow or dead channel can never fail the state change that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"hostel-backend/internal/models"
)

// dispatchTimeout bounds every delivery attempt so notification trouble
// cannot stall request handling.
const dispatchTimeout = 5 * time.Second

// Dispatcher is the narrow interface the complaint lifecycle consumes.
type Dispatcher interface {
	ComplaintCreated(ctx context.Context, recipientID string, c *models.Complaint, submitterName string)
	StatusChanged(ctx context.Context, recipientID string, c *models.Complaint, newStatus, actorName string)
}

// Service implements Dispatcher over Postgres + Redis.
type Service struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewService creates a dispatcher. rdb may be nil, in which case only the
// persisted inbox is written.
func NewService(pool *pgxpool.Pool, rdb *redis.Client) *Service {
	return &Service{pool: pool, rdb: rdb}
}

// event is the JSON payload published on the per-user Redis channel.
type event struct {
	Type        string `json:"type"`
	ComplaintID string `json:"complaintId"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Title       string `json:"title"`
	Message     string `json:"message"`
}

// ComplaintCreated notifies a recipient that a new complaint was submitted.
func (s *Service) ComplaintCreated(ctx context.Context, recipientID string, c *models.Complaint, submitterName string) {
	title, message := BuildCreatedMessage(c, submitterName)
	s.deliver(ctx, recipientID, c, "complaint_created", title, message)
}

// StatusChanged notifies a recipient that a complaint changed status.
func (s *Service) StatusChanged(ctx context.Context, recipientID string, c *models.Complaint, newStatus, actorName string) {
	title, message := BuildStatusMessage(c, newStatus, actorName)
	s.deliver(ctx, recipientID, c, "complaint_status", title, message)
}

func (s *Service) deliver(ctx context.Context, recipientID string, c *models.Complaint, nType, title, message string) {
	// Detach from the request context: the triggering mutation has already
	// committed and must not be tied to this delivery.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (user_id, title, message, type, entity_type, entity_id)
		VALUES ($1, $2, $3, $4, 'complaint', $5)
	`, recipientID, title, message, nType, c.ID)
	if err != nil {
		log.Printf("[notify] insert notification for %s: %v", recipientID, err)
	}

	if s.rdb == nil {
		return
	}

	payload, err := json.Marshal(event{
		Type:        nType,
		ComplaintID: c.ID,
		Category:    c.Category,
		Status:      c.CurrentStatus,
		Title:       title,
		Message:     message,
	})
	if err != nil {
		log.Printf("[notify] marshal event: %v", err)
		return
	}

	if err := s.rdb.Publish(ctx, "notify:"+recipientID, payload).Err(); err != nil {
		log.Printf("[notify] publish to %s: %v", recipientID, err)
	}
}

// BuildCreatedMessage renders the title and body for a creation event.
func BuildCreatedMessage(c *models.Complaint, submitterName string) (title, message string) {
	title = fmt.Sprintf("New %s complaint", c.Category)
	message = fmt.Sprintf("%s submitted a %s complaint: %s",
		submitterName, categoryLabel(c), truncate(c.Description, 120))
	return title, message
}

// BuildStatusMessage renders the title and body for a status-change event.
func BuildStatusMessage(c *models.Complaint, newStatus, actorName string) (title, message string) {
	title = fmt.Sprintf("Complaint %s", newStatus)
	message = fmt.Sprintf("Your %s complaint was moved to '%s' by %s.",
		categoryLabel(c), newStatus, actorName)
	return title, message
}

func categoryLabel(c *models.Complaint) string {
	if c.SubCategory != nil && *c.SubCategory != "" {
		return c.Category + "/" + *c.SubCategory
	}
	return c.Category
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
