package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hostel-backend/internal/models"
)

func TestCreateStaffRequestValidate(t *testing.T) {
	valid := models.CreateStaffRequest{
		Name:     "Ravi Kumar",
		Phone:    "9876543210",
		Category: models.CategoryCanteen,
	}
	assert.Empty(t, valid.Validate())

	t.Run("bad phone", func(t *testing.T) {
		r := valid
		r.Phone = "12345"
		assert.Contains(t, r.Validate(), "phone")
	})

	t.Run("sub-category is a valid home category", func(t *testing.T) {
		r := valid
		r.Category = "Plumbing"
		assert.Empty(t, r.Validate())
	})

	t.Run("unknown category", func(t *testing.T) {
		r := valid
		r.Category = "Security"
		assert.Contains(t, r.Validate(), "category")
	})

	t.Run("expertise bounds", func(t *testing.T) {
		r := valid
		r.CategoryExpertise = map[string]int{models.CategoryCanteen: 101}
		assert.Contains(t, r.Validate(), "categoryExpertise")

		r.CategoryExpertise = map[string]int{models.CategoryCanteen: -1}
		assert.Contains(t, r.Validate(), "categoryExpertise")

		r.CategoryExpertise = map[string]int{"Bakery": 50}
		assert.Contains(t, r.Validate(), "categoryExpertise")

		r.CategoryExpertise = map[string]int{models.CategoryCanteen: 80, "Plumbing": 40}
		assert.Empty(t, r.Validate())
	})
}

func TestServicesCategory(t *testing.T) {
	m := models.StaffMember{
		Category:          "Plumbing",
		CategoryExpertise: map[string]int{"Plumbing": 100, models.CategoryMaintenance: 60},
	}
	assert.True(t, m.ServicesCategory("Plumbing"))
	assert.True(t, m.ServicesCategory(models.CategoryMaintenance))
	assert.False(t, m.ServicesCategory(models.CategoryCanteen))
}

func TestAssignmentConfigAutoAssignEnabled(t *testing.T) {
	cfg := models.AssignmentConfig{
		EnabledGlobally: true,
		CategoryEnabled: map[string]bool{models.CategoryCanteen: false},
	}

	assert.False(t, cfg.AutoAssignEnabled(models.CategoryCanteen))
	// Categories absent from the map default to enabled
	assert.True(t, cfg.AutoAssignEnabled(models.CategoryInternet))

	cfg.EnabledGlobally = false
	assert.False(t, cfg.AutoAssignEnabled(models.CategoryInternet))
}
