package entity

import "time"

// Tipos de movimiento del ledger de stock.
const (
	MovementTypeReserve  = "reserve"  // retiene disponible (sube reserved)
	MovementTypeRelease  = "release"  // devuelve una reserva (baja reserved)
	MovementTypeSale     = "sale"     // deducción permanente al confirmar
	MovementTypeAdjust   = "adjust"   // ajuste manual
	MovementTypeTransfer = "transfer" // entre bodegas
)

// StockMovement entrada append-only del ledger de inventario. Cada mutación
// de un InventoryLevel escribe su movimiento en la misma transacción, con
// cantidades antes/después, para que el ledger sea una historia fiel y
// reproducible (reconciliación).
type StockMovement struct {
	ID             string
	VariantID      string
	WarehouseID    string
	Type           string
	Quantity       int // positivo reserva/entrada, negativo liberación/salida según tipo
	QuantityBefore int
	QuantityAfter  int
	ReservedBefore int
	ReservedAfter  int
	ReferenceType  ReferenceType
	ReferenceID    string
	Notes          string
	CreatedAt      time.Time
}
