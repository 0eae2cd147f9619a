package repository

import (
	"context"

	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

// OrderRepository colaborador de órdenes: persiste la orden de un checkout
// completado. Se invoca exactamente una vez por execute() exitoso, dentro de
// la misma transacción.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order, lines []*entity.OrderLine) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetByCart(ctx context.Context, cartID string) (*entity.Order, error)
}
