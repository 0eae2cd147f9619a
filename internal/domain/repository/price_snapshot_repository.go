package repository

import (
	"context"

	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

// PriceSnapshotRepository define el puerto de persistencia para snapshots de precio (DIP).
// Los snapshots son inmutables: solo Create y lecturas.
type PriceSnapshotRepository interface {
	Create(ctx context.Context, snapshot *entity.PriceSnapshot) error
	ListByLock(ctx context.Context, lockID string) ([]*entity.PriceSnapshot, error)
	// GetCartLevelByLock devuelve el snapshot a nivel de carrito del bloqueo, o nil.
	GetCartLevelByLock(ctx context.Context, lockID string) (*entity.PriceSnapshot, error)
}
