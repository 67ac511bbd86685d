package model

import "time"

// Transfer moves assets of one equipment type from one base to another.
type Transfer struct {
	ID               int64          `json:"id"`
	Ref              string         `json:"ref"`
	FromBaseID       int64          `json:"from_base_id"`
	ToBaseID         int64          `json:"to_base_id"`
	EquipmentTypeID  int64          `json:"equipment_type_id"`
	Lines            []TransferLine `json:"lines"`
	TotalQuantity    int            `json:"total_quantity"`
	Status           string         `json:"status"`
	InitiatedBy      int64          `json:"initiated_by"`
	ApprovedBy       *int64         `json:"approved_by,omitempty"`
	CompletedBy      *int64         `json:"completed_by,omitempty"`
	TransferDate     time.Time      `json:"transfer_date"`
	CompletionDate   *time.Time     `json:"completion_date,omitempty"`
	TransportDetails string         `json:"transport_details,omitempty"`
	Notes            string         `json:"notes,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	// Joined fields (not always populated).
	FromBaseName      string `json:"from_base_name,omitempty"`
	ToBaseName        string `json:"to_base_name,omitempty"`
	EquipmentTypeName string `json:"equipment_type_name,omitempty"`
	InitiatedByName   string `json:"initiated_by_name,omitempty"`
}

// TransferLine is the quantity of a single asset carried by a transfer.
type TransferLine struct {
	AssetID      int64  `json:"asset_id"`
	SerialNumber string `json:"serial_number,omitempty"`
	Quantity     int    `json:"quantity"`
}

// Transfer statuses.
const (
	TransferInitiated = "INITIATED"
	TransferInTransit = "IN_TRANSIT"
	TransferCompleted = "COMPLETED"
	TransferCancelled = "CANCELLED"
)

// Open reports whether the transfer still holds its assets in transit.
func (t *Transfer) Open() bool {
	return t.Status == TransferInitiated || t.Status == TransferInTransit
}
