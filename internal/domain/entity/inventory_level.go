package entity

import "time"

// Estados del nivel de inventario.
const (
	LevelStatusActive   = "active"
	LevelStatusDisabled = "disabled"
)

// InventoryLevel stock físico de una variante en una bodega.
// Invariante en toda mutación: 0 <= ReservedQuantity <= Quantity.
// La cantidad disponible SIEMPRE se deriva; nunca se almacena como columna.
type InventoryLevel struct {
	ID               string
	VariantID        string
	WarehouseID      string
	Quantity         int
	ReservedQuantity int
	Status           string
	UpdatedAt        time.Time
}

// AvailableQuantity cantidad disponible para nuevas reservas (derivada).
func (l *InventoryLevel) AvailableQuantity() int {
	return l.Quantity - l.ReservedQuantity
}
