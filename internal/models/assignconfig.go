package models

import "time"

// AssignmentConfig is the process-wide automated-assignment configuration.
// Exactly one row exists (id = 1); reads find-or-create it with defaults.
type AssignmentConfig struct {
	EnabledGlobally     bool            `json:"enabledGlobally"`
	CategoryEnabled     map[string]bool `json:"categoryEnabled"`
	MaxWorkload         int             `json:"maxWorkload"`
	EfficiencyThreshold float64         `json:"efficiencyThreshold"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// AutoAssignEnabled reports whether automated assignment should run for the
// given category. The global switch gates everything; a category missing from
// CategoryEnabled defaults to enabled.
func (c *AssignmentConfig) AutoAssignEnabled(category string) bool {
	if !c.EnabledGlobally {
		return false
	}
	if enabled, ok := c.CategoryEnabled[category]; ok {
		return enabled
	}
	return true
}

// SaveConfigRequest is a partial update of the configuration singleton.
type SaveConfigRequest struct {
	EnabledGlobally     *bool            `json:"enabledGlobally,omitempty"`
	CategoryEnabled     *map[string]bool `json:"categoryEnabled,omitempty"`
	MaxWorkload         *int             `json:"maxWorkload,omitempty"`
	EfficiencyThreshold *float64         `json:"efficiencyThreshold,omitempty"`
}

// Validate bounds the tuning knobs.
func (r *SaveConfigRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.MaxWorkload != nil && *r.MaxWorkload < 1 {
		errors["maxWorkload"] = "Max workload must be at least 1"
	}
	if r.EfficiencyThreshold != nil && (*r.EfficiencyThreshold < 0 || *r.EfficiencyThreshold > 100) {
		errors["efficiencyThreshold"] = "Efficiency threshold must be between 0 and 100"
	}
	if r.CategoryEnabled != nil {
		for name := range *r.CategoryEnabled {
			if !ValidCategories[name] {
				errors["categoryEnabled"] = "Unknown category: " + name
				break
			}
		}
	}

	return errors
}
