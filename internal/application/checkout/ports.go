package checkout

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/checkout-core/internal/application/dto"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD con todos los
// repositorios que participan de un checkout atados a esa tx. execute() es
// una sola unidad atómica: cualquier error revierte bloqueo, reservas,
// ledger y orden escritos dentro de la invocación.
type TxRunner interface {
	RunCheckout(ctx context.Context, fn func(
		lockRepo repository.CheckoutLockRepository,
		snapRepo repository.PriceSnapshotRepository,
		resRepo repository.StockReservationRepository,
		levelRepo repository.InventoryLevelRepository,
		movRepo repository.StockMovementRepository,
		orderRepo repository.OrderRepository,
	) error) error
}

// CartOracle oráculo de carrito/precios (colaborador externo de solo
// lectura): total vigente calculado, líneas y cupón activo. Devuelve nil
// cuando el carrito no existe.
type CartOracle interface {
	GetCart(ctx context.Context, cartID string) (*entity.Cart, error)
}

// PaymentGateway colaborador de pago: llamada síncrona y opaca. Timeout y
// rechazo de negocio cuentan igual como falla de execute(); este motor no
// reintenta por su cuenta.
type PaymentGateway interface {
	Accept(ctx context.Context, payment dto.PaymentData, amount decimal.Decimal, currency string) (transactionID string, err error)
}

// StatusCache cache de lectura del estado de checkout por carrito, con
// staleness acotada. Get devuelve (nil, nil) en miss.
type StatusCache interface {
	Get(ctx context.Context, cartID string) (*dto.CheckoutStatus, error)
	Set(ctx context.Context, cartID string, status *dto.CheckoutStatus) error
	Invalidate(ctx context.Context, cartID string) error
}

// EventPublisher publicador de eventos de ciclo de vida del checkout.
// Best-effort: una falla de publicación se registra, nunca falla el checkout.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
