package entity

import "time"

// ReferenceType discrimina al dueño de una reserva o movimiento de stock.
// Reemplaza la referencia polimórfica tipo-nombre-más-id por una unión
// etiquetada con identificador opaco.
type ReferenceType string

const (
	ReferenceCheckout   ReferenceType = "checkout"
	ReferenceOrder      ReferenceType = "order"
	ReferencePreorder   ReferenceType = "preorder"
	ReferenceAdjustment ReferenceType = "adjustment"
)

// Valid indica si el discriminante es uno de los conocidos.
func (t ReferenceType) Valid() bool {
	switch t {
	case ReferenceCheckout, ReferenceOrder, ReferencePreorder, ReferenceAdjustment:
		return true
	}
	return false
}

// StockReservation retención temporal de stock disponible, convertible en
// deducción permanente (confirm) o reversible (release). WarehouseID nil
// solo para preórdenes sin bodega asignada.
type StockReservation struct {
	ID            string
	VariantID     string
	WarehouseID   *string
	Quantity      int
	ReferenceType ReferenceType
	ReferenceID   string
	ExpiresAt     time.Time
	IsReleased    bool
	ReleasedAt    *time.Time
	CreatedAt     time.Time
}

// IsExpired indica si la reserva pasó su expires_at.
func (r *StockReservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IsActive reserva vigente: ni liberada ni expirada.
func (r *StockReservation) IsActive(now time.Time) bool {
	return !r.IsReleased && !r.IsExpired(now)
}
