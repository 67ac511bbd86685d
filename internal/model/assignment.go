package model

import "time"

// Assignment records custody of an asset by a person.
type Assignment struct {
	ID                 int64      `json:"id"`
	Ref                string     `json:"ref"`
	AssetID            int64      `json:"asset_id"`
	AssigneeID         int64      `json:"assignee_id"`
	BaseID             int64      `json:"base_id"`
	AssignmentDate     time.Time  `json:"assignment_date"`
	ExpectedReturnDate *time.Time `json:"expected_return_date,omitempty"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	Status             string     `json:"status"`
	AssignedBy         int64      `json:"assigned_by"`
	Purpose            string     `json:"purpose,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	SerialNumber string `json:"serial_number,omitempty"`
	AssigneeName string `json:"assignee_name,omitempty"`
	BaseName     string `json:"base_name,omitempty"`
}

// Assignment statuses.
const (
	AssignmentActive   = "ACTIVE"
	AssignmentReturned = "RETURNED"
	AssignmentLost     = "LOST"
	AssignmentDamaged  = "DAMAGED"
	AssignmentExpended = "EXPENDED"
)
