package repository

import (
	"context"
	"time"

	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

// CheckoutLockRepository define el puerto de persistencia para bloqueos de checkout (DIP).
// Los métodos ForUpdate deben usarse dentro de una transacción: bloquean la
// fila para serializar la secuencia check-then-insert/update por carrito.
type CheckoutLockRepository interface {
	Create(ctx context.Context, lock *entity.CheckoutLock) error
	GetByID(ctx context.Context, id string) (*entity.CheckoutLock, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.CheckoutLock, error)
	// GetActiveByCart devuelve el bloqueo pending/active del carrito, o nil.
	GetActiveByCart(ctx context.Context, cartID string) (*entity.CheckoutLock, error)
	GetActiveByCartForUpdate(ctx context.Context, cartID string) (*entity.CheckoutLock, error)
	// GetLatestByCart devuelve el bloqueo más reciente del carrito en cualquier estado, o nil.
	GetLatestByCart(ctx context.Context, cartID string) (*entity.CheckoutLock, error)
	Update(ctx context.Context, lock *entity.CheckoutLock) error
	// ListExpired devuelve bloqueos pending/active con expires_at anterior a now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.CheckoutLock, error)
}
