package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/checkout-core/internal/application/checkout"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

var _ checkout.CartOracle = (*CartRepo)(nil)

// CartRepo adaptador de solo lectura sobre las tablas de carritos. Implementa
// el oráculo de carrito/precios: los totales ya vienen calculados por el
// servicio de carrito que escribe estas filas.
type CartRepo struct {
	q Querier
}

// NewCartRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCartRepository(q Querier) *CartRepo {
	return &CartRepo{q: q}
}

// GetCart devuelve el carrito con sus líneas, o nil si no existe.
func (r *CartRepo) GetCart(ctx context.Context, cartID string) (*entity.Cart, error) {
	query := `
		SELECT id, customer_id, status, currency_code, currency_rate, coupon_code, total
		FROM carts WHERE id = $1`
	var cart entity.Cart
	err := r.q.QueryRow(ctx, query, cartID).Scan(
		&cart.ID, &cart.CustomerID, &cart.Status,
		&cart.CurrencyCode, &cart.CurrencyRate, &cart.CouponCode, &cart.Total,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	lineQuery := `
		SELECT id, variant_id, quantity, unit_price, track_inventory
		FROM cart_lines WHERE cart_id = $1
		ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, lineQuery, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line entity.CartLine
		if err := rows.Scan(
			&line.ID, &line.VariantID, &line.Quantity, &line.UnitPrice, &line.TrackInventory,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &cart, nil
}
