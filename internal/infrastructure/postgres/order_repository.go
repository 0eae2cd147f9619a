package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

const orderColumns = `id, cart_id, customer_id, total, currency_code, currency_rate, coupon_code, created_at`

// OrderRepo implementación de OrderRepository sobre PostgreSQL (usable con
// pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// Create persiste la orden con sus líneas. cart_id tiene índice único: un
// segundo intento para el mismo carrito falla con ErrConflict.
func (r *OrderRepo) Create(ctx context.Context, order *entity.Order, lines []*entity.OrderLine) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		order.ID, order.CartID, order.CustomerID, order.Total,
		order.CurrencyCode, order.CurrencyRate, order.CouponCode, order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ya existe una orden para el carrito %s: %w", order.CartID, domain.ErrConflict)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (id, order_id, variant_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`
	for _, line := range lines {
		if _, err := r.q.Exec(ctx, lineQuery,
			line.ID, line.OrderID, line.VariantID, line.Quantity, line.UnitPrice,
		); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

// GetByID devuelve la orden o nil si no existe.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.q.QueryRow(ctx, query, id))
}

// GetByCart devuelve la orden del carrito o nil si no existe.
func (r *OrderRepo) GetByCart(ctx context.Context, cartID string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE cart_id = $1`
	return scanOrder(r.q.QueryRow(ctx, query, cartID))
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var o entity.Order
	err := row.Scan(
		&o.ID, &o.CartID, &o.CustomerID, &o.Total,
		&o.CurrencyCode, &o.CurrencyRate, &o.CouponCode, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}
