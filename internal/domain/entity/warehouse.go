package entity

import "time"

// Warehouse bodega física donde se almacena inventario (multi-bodega).
// La selección para reservar es first-fit sobre bodegas activas ordenadas
// por Priority ascendente; no se optimiza por costo ni cercanía.
type Warehouse struct {
	ID        string
	Name      string
	Code      string
	Priority  int
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
