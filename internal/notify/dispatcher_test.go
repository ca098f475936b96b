package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"hostel-backend/internal/models"
)

func TestBuildCreatedMessage(t *testing.T) {
	sub := "Plumbing"
	c := &models.Complaint{
		ID:          "c-1",
		Category:    models.CategoryMaintenance,
		SubCategory: &sub,
		Description: "The tap in room 204 has been leaking for two days.",
	}

	title, message := BuildCreatedMessage(c, "Asha Verma")
	assert.Equal(t, "New Maintenance complaint", title)
	assert.Contains(t, message, "Asha Verma")
	assert.Contains(t, message, "Maintenance/Plumbing")
	assert.Contains(t, message, "leaking")
}

func TestBuildCreatedMessageTruncatesLongDescriptions(t *testing.T) {
	c := &models.Complaint{
		Category:    models.CategoryInternet,
		Description: strings.Repeat("slow wifi ", 50),
	}

	_, message := BuildCreatedMessage(c, "Ravi")
	assert.Less(t, len(message), 200, "long descriptions must be truncated")
	assert.Contains(t, message, "…")
}

func TestBuildStatusMessage(t *testing.T) {
	c := &models.Complaint{ID: "c-2", Category: models.CategoryCanteen}

	title, message := BuildStatusMessage(c, "Resolved", "Warden Rao")
	assert.Equal(t, "Complaint Resolved", title)
	assert.Contains(t, message, "Canteen")
	assert.Contains(t, message, "'Resolved'")
	assert.Contains(t, message, "Warden Rao")
}
