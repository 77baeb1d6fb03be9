package domain

import (
	"sort"
	"strings"
)

// WorkOrderCategory classifies the trade a work order needs.
type WorkOrderCategory string

const (
	CategoryPlumbing   WorkOrderCategory = "PLUMBING"
	CategoryElectrical WorkOrderCategory = "ELECTRICAL"
	CategoryHVAC       WorkOrderCategory = "HVAC"
	CategoryAppliance  WorkOrderCategory = "APPLIANCE"
	CategoryPainting   WorkOrderCategory = "PAINTING"
	CategoryGeneral    WorkOrderCategory = "GENERAL"
)

// Categories lists every category in display order.
var Categories = []WorkOrderCategory{CategoryPlumbing, CategoryElectrical, CategoryHVAC, CategoryAppliance, CategoryPainting, CategoryGeneral}

// Label returns the display name of the category.
func (c WorkOrderCategory) Label() string {
	if c == CategoryHVAC {
		return "HVAC"
	}
	return titleCase(string(c))
}

// Priority is the urgency of a work order.
type Priority string

const (
	PriorityLow       Priority = "LOW"
	PriorityMedium    Priority = "MEDIUM"
	PriorityHigh      Priority = "HIGH"
	PriorityEmergency Priority = "EMERGENCY"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency}

// Label returns the display name of the priority.
func (p Priority) Label() string { return titleCase(string(p)) }

// WorkOrderStatus is the lifecycle state of a work order. Transitions are enforced by the API.
type WorkOrderStatus string

const (
	StatusSubmitted  WorkOrderStatus = "SUBMITTED"
	StatusAssigned   WorkOrderStatus = "ASSIGNED"
	StatusInProgress WorkOrderStatus = "IN_PROGRESS"
	StatusCompleted  WorkOrderStatus = "COMPLETED"
	StatusCancelled  WorkOrderStatus = "CANCELLED"
)

// WorkOrderStatuses lists every status in lifecycle order.
var WorkOrderStatuses = []WorkOrderStatus{StatusSubmitted, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled}

// Label returns the display name of the status.
func (s WorkOrderStatus) Label() string { return titleCase(string(s)) }

// WorkOrder is a maintenance request against a unit.
type WorkOrder struct {
	ID              int64             `json:"id"`
	SubmittedByID   int64             `json:"submittedById"`
	SubmittedByName string            `json:"submittedByName"`
	UnitID          int64             `json:"unitId"`
	UnitNumber      string            `json:"unitNumber"`
	PropertyID      int64             `json:"propertyId"`
	PropertyName    string            `json:"propertyName"`
	Title           string            `json:"title"`
	Description     *string           `json:"description"`
	Category        WorkOrderCategory `json:"category"`
	Priority        Priority          `json:"priority"`
	Status          WorkOrderStatus   `json:"status"`
	AssignedToID    *int64            `json:"assignedToId"`
	AssignedToName  *string           `json:"assignedToName"`
	CreatedAt       Timestamp         `json:"createdAt"`
	UpdatedAt       Timestamp         `json:"updatedAt"`
}

// WorkOrderRequest creates a work order.
type WorkOrderRequest struct {
	PropertyID  int64             `json:"propertyId" validate:"gt=0"`
	UnitID      int64             `json:"unitId" validate:"gt=0"`
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description,omitempty"`
	Category    WorkOrderCategory `json:"category"`
	Priority    Priority          `json:"priority"`
}

// WorkOrderUpdateRequest changes status and/or assignee; nil fields are left unchanged.
type WorkOrderUpdateRequest struct {
	Status       *WorkOrderStatus `json:"status,omitempty"`
	AssignedToID *int64           `json:"assignedToId,omitempty"`
}

// Empty reports whether the update carries no change.
func (r WorkOrderUpdateRequest) Empty() bool {
	return r.Status == nil && r.AssignedToID == nil
}

// WorkOrderFilter narrows a work order list. Zero values match everything.
type WorkOrderFilter struct {
	PropertyID int64
	Status     WorkOrderStatus
	Priority   Priority
	Category   WorkOrderCategory
	Oldest     bool
}

// FilterWorkOrders returns the work orders matching f, sorted by creation time (newest first unless f.Oldest).
// The input slice is not modified.
func FilterWorkOrders(list []WorkOrder, f WorkOrderFilter) []WorkOrder {
	out := make([]WorkOrder, 0, len(list))
	for _, wo := range list {
		if f.PropertyID != 0 && wo.PropertyID != f.PropertyID {
			continue
		}
		if f.Status != "" && wo.Status != f.Status {
			continue
		}
		if f.Priority != "" && wo.Priority != f.Priority {
			continue
		}
		if f.Category != "" && wo.Category != f.Category {
			continue
		}
		out = append(out, wo)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.Oldest {
			return out[i].CreatedAt.Before(out[j].CreatedAt.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	return out
}

// CountByStatus returns the number of work orders per status.
func CountByStatus(list []WorkOrder) map[WorkOrderStatus]int {
	out := make(map[WorkOrderStatus]int, len(WorkOrderStatuses))
	for _, wo := range list {
		out[wo.Status]++
	}
	return out
}

func titleCase(s string) string {
	words := strings.Split(strings.ToLower(s), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
