package models_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"hostel-backend/internal/models"
)

func strPtr(s string) *string { return &s }

func TestCreateComplaintRequestValidate(t *testing.T) {
	valid := models.CreateComplaintRequest{
		Category:    models.CategoryCanteen,
		Description: "The morning meal was served cold again",
	}
	assert.Empty(t, valid.Validate())

	t.Run("unknown category", func(t *testing.T) {
		r := valid
		r.Category = "Laundry"
		errs := r.Validate()
		assert.Contains(t, errs, "category")
	})

	t.Run("maintenance requires sub-category", func(t *testing.T) {
		r := valid
		r.Category = models.CategoryMaintenance
		errs := r.Validate()
		assert.Contains(t, errs, "subCategory")

		r.SubCategory = strPtr("Plumbing")
		assert.Empty(t, r.Validate())
	})

	t.Run("unknown sub-category", func(t *testing.T) {
		r := valid
		r.Category = models.CategoryMaintenance
		r.SubCategory = strPtr("Gardening")
		errs := r.Validate()
		assert.Contains(t, errs, "subCategory")
	})

	t.Run("sub-category forbidden outside maintenance", func(t *testing.T) {
		r := valid
		r.SubCategory = strPtr("Plumbing")
		errs := r.Validate()
		assert.Contains(t, errs, "subCategory")
	})

	t.Run("description bounds", func(t *testing.T) {
		r := valid
		r.Description = "too short"
		assert.Contains(t, r.Validate(), "description")

		r.Description = strings.Repeat("x", 1001)
		assert.Contains(t, r.Validate(), "description")

		r.Description = strings.Repeat("x", 1000)
		assert.Empty(t, r.Validate())
	})
}

func TestFeedbackRequestValidate(t *testing.T) {
	r := models.FeedbackRequest{}
	assert.Contains(t, r.Validate(), "isSatisfied")

	yes := true
	r.IsSatisfied = &yes
	assert.Empty(t, r.Validate())

	r.Comment = strings.Repeat("x", 1001)
	assert.Contains(t, r.Validate(), "comment")
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, models.IsValidPhone("9876543210"))
	assert.False(t, models.IsValidPhone("987654321"))   // 9 digits
	assert.False(t, models.IsValidPhone("98765432100")) // 11 digits
	assert.False(t, models.IsValidPhone("98765a3210"))
	assert.False(t, models.IsValidPhone("+919876543210"))
	assert.False(t, models.IsValidPhone(""))
}
