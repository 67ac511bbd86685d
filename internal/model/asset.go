package model

import "time"

// Asset is one tracked unit, or a batch of a fungible item, held at a base.
type Asset struct {
	ID              int64     `json:"id"`
	SerialNumber    string    `json:"serial_number"`
	EquipmentTypeID int64     `json:"equipment_type_id"`
	BaseID          int64     `json:"base_id"`
	Status          string    `json:"status"`
	Condition       string    `json:"condition"`
	Quantity        int       `json:"quantity"`
	PurchaseID      *int64    `json:"purchase_id,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	EquipmentTypeName string `json:"equipment_type_name,omitempty"`
	EquipmentTypeCode string `json:"equipment_type_code,omitempty"`
	BaseName          string `json:"base_name,omitempty"`
}

// Asset statuses.
const (
	AssetAvailable   = "AVAILABLE"
	AssetAssigned    = "ASSIGNED"
	AssetInTransit   = "IN_TRANSIT"
	AssetMaintenance = "MAINTENANCE"
	AssetExpended    = "EXPENDED"
)

// Asset conditions.
const (
	ConditionNew           = "NEW"
	ConditionGood          = "GOOD"
	ConditionFair          = "FAIR"
	ConditionPoor          = "POOR"
	ConditionUnserviceable = "UNSERVICEABLE"
)

// ValidAssetStatus reports whether s is a known asset status.
func ValidAssetStatus(s string) bool {
	switch s {
	case AssetAvailable, AssetAssigned, AssetInTransit, AssetMaintenance, AssetExpended:
		return true
	}
	return false
}

// ValidCondition reports whether c is a known asset condition.
func ValidCondition(c string) bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionFair, ConditionPoor, ConditionUnserviceable:
		return true
	}
	return false
}
