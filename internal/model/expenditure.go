package model

import "time"

// Expenditure consumes a quantity of assets permanently.
type Expenditure struct {
	ID               int64              `json:"id"`
	Ref              string             `json:"ref"`
	EquipmentTypeID  int64              `json:"equipment_type_id"`
	BaseID           int64              `json:"base_id"`
	Quantity         int                `json:"quantity"`
	ExpenditureDate  time.Time          `json:"expenditure_date"`
	Reason           string             `json:"reason"`
	Assets           []ExpenditureAsset `json:"assets"`
	Status           string             `json:"status"`
	AuthorizedBy     int64              `json:"authorized_by"`
	ApprovedBy       *int64             `json:"approved_by,omitempty"`
	CompletedBy      *int64             `json:"completed_by,omitempty"`
	CompletedDate    *time.Time         `json:"completed_date,omitempty"`
	OperationDetails string             `json:"operation_details,omitempty"`
	Notes            string             `json:"notes,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`

	// Joined fields (not always populated).
	EquipmentTypeName string `json:"equipment_type_name,omitempty"`
	BaseName          string `json:"base_name,omitempty"`
}

// ExpenditureAsset is an asset backing an expenditure.
type ExpenditureAsset struct {
	AssetID      int64  `json:"asset_id"`
	SerialNumber string `json:"serial_number,omitempty"`
	Quantity     int    `json:"quantity"`
}

// Expenditure statuses.
const (
	ExpenditurePending   = "PENDING"
	ExpenditureApproved  = "APPROVED"
	ExpenditureCompleted = "COMPLETED"
	ExpenditureCancelled = "CANCELLED"
)

// Expenditure reasons.
const (
	ReasonTraining    = "TRAINING"
	ReasonOperation   = "OPERATION"
	ReasonMaintenance = "MAINTENANCE"
	ReasonDisposal    = "DISPOSAL"
	ReasonOther       = "OTHER"
)

// ValidReason reports whether r is a known expenditure reason.
func ValidReason(r string) bool {
	switch r {
	case ReasonTraining, ReasonOperation, ReasonMaintenance, ReasonDisposal, ReasonOther:
		return true
	}
	return false
}
