package repository

import (
	"context"

	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para bodegas (DIP).
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	// ListActiveByPriority devuelve las bodegas activas ordenadas por
	// prioridad ascendente (el orden que usa la selección first-fit).
	ListActiveByPriority(ctx context.Context) ([]*entity.Warehouse, error)
}
