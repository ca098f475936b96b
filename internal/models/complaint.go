package models

import (
	"regexp"
	"time"
)

// Complaint categories. Sub-categories exist only under Maintenance.
const (
	CategoryCanteen     = "Canteen"
	CategoryInternet    = "Internet"
	CategoryMaintenance = "Maintenance"
	CategoryOther       = "Other"
)

// ValidCategories is the fixed service-category enumeration.
var ValidCategories = map[string]bool{
	CategoryCanteen:     true,
	CategoryInternet:    true,
	CategoryMaintenance: true,
	CategoryOther:       true,
}

// ValidSubCategories lists the fixed Maintenance sub-categories.
var ValidSubCategories = map[string]bool{
	"Plumbing":   true,
	"Electrical": true,
	"Carpentry":  true,
	"Cleaning":   true,
}

// Complaint represents a service complaint raised by a student.
type Complaint struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"studentId"`
	Category        string     `json:"category"`
	SubCategory     *string    `json:"subCategory,omitempty"`
	Description     string     `json:"description"`
	CurrentStatus   string     `json:"currentStatus"`
	AssignedStaffID *string    `json:"assignedStaffId,omitempty"`
	ImageURL        *string    `json:"imageUrl,omitempty"`
	ImagePath       *string    `json:"-"` // storage key, internal only
	IsReopened      bool       `json:"isReopened"`
	IsLocked        bool       `json:"isLockedForUpdates"`
	Feedback        *Feedback  `json:"feedback,omitempty"`
	Version         int        `json:"version"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Feedback is the student's verdict on a resolved complaint.
type Feedback struct {
	IsSatisfied bool      `json:"isSatisfied"`
	Comment     string    `json:"comment,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// StatusEntry is one row of a complaint's append-only status history.
type StatusEntry struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaintId"`
	Status      string    `json:"status"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ComplaintWithStaff includes the assigned staff member's name and phone
// alongside the complaint for list and detail responses.
type ComplaintWithStaff struct {
	Complaint
	StaffName  *string `json:"staffName,omitempty"`
	StaffPhone *string `json:"staffPhone,omitempty"`
}

// CreateComplaintRequest holds the fields a student submits when raising a complaint.
type CreateComplaintRequest struct {
	Category    string  `json:"category"`
	SubCategory *string `json:"subCategory,omitempty"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	ImagePath   string  `json:"imagePath,omitempty"`
}

// Validate checks category/sub-category pairing and description bounds.
// Sub-category is required for Maintenance and forbidden for everything else.
func (r *CreateComplaintRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !ValidCategories[r.Category] {
		errors["category"] = "Category must be one of 'Canteen', 'Internet', 'Maintenance', 'Other'"
	}

	if r.Category == CategoryMaintenance {
		if r.SubCategory == nil || *r.SubCategory == "" {
			errors["subCategory"] = "Sub-category is required for Maintenance complaints"
		} else if !ValidSubCategories[*r.SubCategory] {
			errors["subCategory"] = "Sub-category must be one of 'Plumbing', 'Electrical', 'Carpentry', 'Cleaning'"
		}
	} else if r.SubCategory != nil && *r.SubCategory != "" {
		errors["subCategory"] = "Sub-category is only allowed for Maintenance complaints"
	}

	if len(r.Description) < 10 || len(r.Description) > 1000 {
		errors["description"] = "Description must be between 10 and 1000 characters"
	}

	return errors
}

// UpdateStatusRequest drives a manual status transition.
// StaffID is only honored when the target status is 'In Progress'.
type UpdateStatusRequest struct {
	Status  string  `json:"status"`
	Note    string  `json:"note,omitempty"`
	StaffID *string `json:"staffId,omitempty"`
	Version *int    `json:"version,omitempty"` // expected version for optimistic concurrency
}

// FeedbackRequest is the student's feedback submission on a resolved complaint.
type FeedbackRequest struct {
	IsSatisfied *bool  `json:"isSatisfied"`
	Comment     string `json:"comment,omitempty"`
}

// Validate requires an explicit verdict and bounds the comment.
func (r *FeedbackRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.IsSatisfied == nil {
		errors["isSatisfied"] = "isSatisfied is required"
	}
	if len(r.Comment) > 1000 {
		errors["comment"] = "Comment must be at most 1000 characters"
	}

	return errors
}

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// IsValidPhone reports whether s is a 10-digit phone number.
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}
