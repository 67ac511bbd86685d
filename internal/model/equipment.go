package model

import "time"

// EquipmentType describes a kind of equipment. Assets are instances of a type.
type EquipmentType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	ImageMime   string    `json:"image_mime,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Equipment categories.
const (
	CategoryWeapon     = "WEAPON"
	CategoryVehicle    = "VEHICLE"
	CategoryAmmunition = "AMMUNITION"
	CategoryEquipment  = "EQUIPMENT"
	CategorySupply     = "SUPPLY"
)

// ValidCategory reports whether c is a known equipment category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryWeapon, CategoryVehicle, CategoryAmmunition, CategoryEquipment, CategorySupply:
		return true
	}
	return false
}

// Fungible reports whether units of the category are tracked as one batch
// asset instead of one asset per unit.
func Fungible(category string) bool {
	return category == CategoryAmmunition || category == CategorySupply
}
