package models

import "time"

// StaffMember is a service staff record in the directory.
// CurrentWorkload counts complaints currently assigned and not yet
// Resolved/Closed; it is only ever changed through atomic SQL increments.
type StaffMember struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Phone             string         `json:"phone"`
	Category          string         `json:"category"`
	CategoryExpertise map[string]int `json:"categoryExpertise"`
	EfficiencyScore   float64        `json:"efficiencyScore"`
	CurrentWorkload   int            `json:"currentWorkload"`
	LastActive        time.Time      `json:"lastActive"`
	IsActive          bool           `json:"isActive"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// ServicesCategory reports whether the member covers the given category or
// Maintenance sub-category, either as their home category or via expertise.
func (s *StaffMember) ServicesCategory(category string) bool {
	if s.Category == category {
		return true
	}
	_, ok := s.CategoryExpertise[category]
	return ok
}

// CreateStaffRequest holds the fields needed to add a staff member.
type CreateStaffRequest struct {
	Name              string         `json:"name"`
	Phone             string         `json:"phone"`
	Category          string         `json:"category"`
	CategoryExpertise map[string]int `json:"categoryExpertise,omitempty"`
}

// Validate checks name, the 10-digit phone format and the category enumeration.
// Duplicate members within a category are allowed.
func (r *CreateStaffRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Name) < 2 || len(r.Name) > 100 {
		errors["name"] = "Name must be between 2 and 100 characters"
	}
	if !IsValidPhone(r.Phone) {
		errors["phone"] = "Phone must be exactly 10 digits"
	}
	if !ValidCategories[r.Category] && !ValidSubCategories[r.Category] {
		errors["category"] = "Category must be a valid service category or Maintenance sub-category"
	}
	for name, score := range r.CategoryExpertise {
		if score < 0 || score > 100 {
			errors["categoryExpertise"] = "Expertise scores must be between 0 and 100"
			break
		}
		if !ValidCategories[name] && !ValidSubCategories[name] {
			errors["categoryExpertise"] = "Expertise keys must be valid categories or sub-categories"
			break
		}
	}

	return errors
}

// UpdateStaffRequest holds the fields that can be updated in place.
type UpdateStaffRequest struct {
	Name              *string         `json:"name,omitempty"`
	Phone             *string         `json:"phone,omitempty"`
	CategoryExpertise *map[string]int `json:"categoryExpertise,omitempty"`
}

// Validate re-checks the phone format on every write.
func (r *UpdateStaffRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name != nil && (len(*r.Name) < 2 || len(*r.Name) > 100) {
		errors["name"] = "Name must be between 2 and 100 characters"
	}
	if r.Phone != nil && !IsValidPhone(*r.Phone) {
		errors["phone"] = "Phone must be exactly 10 digits"
	}
	if r.CategoryExpertise != nil {
		for _, score := range *r.CategoryExpertise {
			if score < 0 || score > 100 {
				errors["categoryExpertise"] = "Expertise scores must be between 0 and 100"
				break
			}
		}
	}

	return errors
}
