package repository

import (
	"context"
	"time"

	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia del ledger de
// movimientos (DIP). El ledger es append-only: no hay update ni delete.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByVariant(ctx context.Context, variantID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByWarehouse(ctx context.Context, warehouseID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByReference(ctx context.Context, refType entity.ReferenceType, refID string) ([]*entity.StockMovement, error)
}
