package dto

import "time"

// CreateWarehouseRequest alta de bodega.
type CreateWarehouseRequest struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Priority int    `json:"priority"`
}

// WarehouseResponse bodega serializada.
type WarehouseResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Priority int    `json:"priority"`
	IsActive bool   `json:"is_active"`
}

// MovementResponse entrada del ledger serializada.
type MovementResponse struct {
	ID             string    `json:"id"`
	VariantID      string    `json:"variant_id"`
	WarehouseID    string    `json:"warehouse_id"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	ReservedBefore int       `json:"reserved_before"`
	ReservedAfter  int       `json:"reserved_after"`
	ReferenceType  string    `json:"reference_type"`
	ReferenceID    string    `json:"reference_id"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// LevelResponse nivel de inventario serializado. Available siempre derivado.
type LevelResponse struct {
	VariantID   string `json:"variant_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`
	Reserved    int    `json:"reserved_quantity"`
	Available   int    `json:"available_quantity"`
	Status      string `json:"status"`
}
