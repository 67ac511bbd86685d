package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a procurement order for a quantity of one equipment type.
type Purchase struct {
	ID              int64           `json:"id"`
	Ref             string          `json:"ref"`
	BaseID          int64           `json:"base_id"`
	EquipmentTypeID int64           `json:"equipment_type_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SupplierName    string          `json:"supplier_name,omitempty"`
	SupplierContact string          `json:"supplier_contact,omitempty"`
	PurchaseDate    time.Time       `json:"purchase_date"`
	DeliveryDate    *time.Time      `json:"delivery_date,omitempty"`
	Status          string          `json:"status"`
	CreatedBy       int64           `json:"created_by"`
	Notes           string          `json:"notes,omitempty"`
	AssetIDs        []int64         `json:"asset_ids,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Joined fields (not always populated).
	BaseName          string `json:"base_name,omitempty"`
	EquipmentTypeName string `json:"equipment_type_name,omitempty"`
	CreatedByName     string `json:"created_by_name,omitempty"`
}

// Purchase statuses.
const (
	PurchaseOrdered   = "ORDERED"
	PurchaseDelivered = "DELIVERED"
	PurchaseCancelled = "CANCELLED"
)

// PurchaseTotal is quantity times unit price.
func PurchaseTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
