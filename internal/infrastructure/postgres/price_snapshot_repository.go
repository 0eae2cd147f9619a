package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

var _ repository.PriceSnapshotRepository = (*PriceSnapshotRepo)(nil)

// PriceSnapshotRepo implementación de PriceSnapshotRepository sobre PostgreSQL
// (usable con pool o tx). Los snapshots son inmutables: solo INSERT y SELECT.
type PriceSnapshotRepo struct {
	q Querier
}

// NewPriceSnapshotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPriceSnapshotRepository(q Querier) *PriceSnapshotRepo {
	return &PriceSnapshotRepo{q: q}
}

// Create persiste un snapshot de precios.
func (r *PriceSnapshotRepo) Create(ctx context.Context, snapshot *entity.PriceSnapshot) error {
	query := `
		INSERT INTO price_snapshots (id, checkout_lock_id, cart_line_id, total, coupon_code, currency_code, currency_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		snapshot.ID, snapshot.CheckoutLockID, snapshot.CartLineID,
		snapshot.Total, snapshot.CouponCode, snapshot.CurrencyCode, snapshot.CurrencyRate,
		snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert price snapshot: %w", err)
	}
	return nil
}

// ListByLock devuelve todos los snapshots del bloqueo (carrito y líneas).
func (r *PriceSnapshotRepo) ListByLock(ctx context.Context, lockID string) ([]*entity.PriceSnapshot, error) {
	query := `
		SELECT id, checkout_lock_id, cart_line_id, total, coupon_code, currency_code, currency_rate, created_at
		FROM price_snapshots WHERE checkout_lock_id = $1
		ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, lockID)
	if err != nil {
		return nil, fmt.Errorf("list price snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*entity.PriceSnapshot
	for rows.Next() {
		var s entity.PriceSnapshot
		if err := rows.Scan(
			&s.ID, &s.CheckoutLockID, &s.CartLineID,
			&s.Total, &s.CouponCode, &s.CurrencyCode, &s.CurrencyRate, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan price snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}

// GetCartLevelByLock devuelve el snapshot a nivel de carrito del bloqueo, o nil.
func (r *PriceSnapshotRepo) GetCartLevelByLock(ctx context.Context, lockID string) (*entity.PriceSnapshot, error) {
	query := `
		SELECT id, checkout_lock_id, cart_line_id, total, coupon_code, currency_code, currency_rate, created_at
		FROM price_snapshots
		WHERE checkout_lock_id = $1 AND cart_line_id IS NULL`
	var s entity.PriceSnapshot
	err := r.q.QueryRow(ctx, query, lockID).Scan(
		&s.ID, &s.CheckoutLockID, &s.CartLineID,
		&s.Total, &s.CouponCode, &s.CurrencyCode, &s.CurrencyRate, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart snapshot: %w", err)
	}
	return &s, nil
}
