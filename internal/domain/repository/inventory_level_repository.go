package repository

import (
	"context"

	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

// InventoryLevelRepository define el puerto para consultar/actualizar stock
// por variante+bodega (DIP). GetForUpdate bloquea la fila (SELECT FOR UPDATE)
// para serializar la secuencia leer-comparar-incrementar de reserved_quantity;
// si la fila no existe devuelve un nivel en cero (se materializa con Upsert).
type InventoryLevelRepository interface {
	Get(ctx context.Context, variantID, warehouseID string) (*entity.InventoryLevel, error)
	GetForUpdate(ctx context.Context, variantID, warehouseID string) (*entity.InventoryLevel, error)
	Upsert(ctx context.Context, level *entity.InventoryLevel) error
	ListByVariant(ctx context.Context, variantID string) ([]*entity.InventoryLevel, error)
}
