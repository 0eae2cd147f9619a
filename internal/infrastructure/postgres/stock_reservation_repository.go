package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

var _ repository.StockReservationRepository = (*StockReservationRepo)(nil)

const reservationColumns = `id, variant_id, warehouse_id, quantity, reference_type, reference_id, expires_at, is_released, released_at, created_at`

// StockReservationRepo implementación de StockReservationRepository sobre
// PostgreSQL (usable con pool o tx).
type StockReservationRepo struct {
	q Querier
}

// NewStockReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockReservationRepository(q Querier) *StockReservationRepo {
	return &StockReservationRepo{q: q}
}

// Create persiste una reserva nueva.
func (r *StockReservationRepo) Create(ctx context.Context, res *entity.StockReservation) error {
	query := `
		INSERT INTO stock_reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.VariantID, res.WarehouseID, res.Quantity,
		res.ReferenceType, res.ReferenceID, res.ExpiresAt,
		res.IsReleased, res.ReleasedAt, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock reservation: %w", err)
	}
	return nil
}

// GetByID devuelve la reserva o nil si no existe.
func (r *StockReservationRepo) GetByID(ctx context.Context, id string) (*entity.StockReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM stock_reservations WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetByIDForUpdate como GetByID pero bloqueando la fila (FOR UPDATE).
// Solo tiene sentido dentro de una transacción.
func (r *StockReservationRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM stock_reservations WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// Update persiste los campos mutables de la reserva.
func (r *StockReservationRepo) Update(ctx context.Context, res *entity.StockReservation) error {
	query := `
		UPDATE stock_reservations
		SET quantity = $2, reference_type = $3, reference_id = $4,
		    expires_at = $5, is_released = $6, released_at = $7
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.Quantity, res.ReferenceType, res.ReferenceID,
		res.ExpiresAt, res.IsReleased, res.ReleasedAt,
	)
	if err != nil {
		return fmt.Errorf("update stock reservation: %w", err)
	}
	return nil
}

// ListActiveByReference devuelve las reservas sin liberar del dueño dado.
// Con now en cero no se filtra por expiración.
func (r *StockReservationRepo) ListActiveByReference(ctx context.Context, refType entity.ReferenceType, refID string, now time.Time) ([]*entity.StockReservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM stock_reservations
		WHERE reference_type = $1 AND reference_id = $2 AND is_released = FALSE`
	args := []any{refType, refID}
	if !now.IsZero() {
		query += ` AND expires_at > $3`
		args = append(args, now)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations by reference: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListExpired devuelve reservas sin liberar con expires_at anterior a now.
func (r *StockReservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.StockReservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM stock_reservations
		WHERE is_released = FALSE AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *StockReservationRepo) scanOne(row pgx.Row) (*entity.StockReservation, error) {
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock reservation: %w", err)
	}
	return res, nil
}

func (r *StockReservationRepo) scanAll(rows pgx.Rows) ([]*entity.StockReservation, error) {
	var reservations []*entity.StockReservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func scanReservation(row rowScanner) (*entity.StockReservation, error) {
	var res entity.StockReservation
	err := row.Scan(
		&res.ID, &res.VariantID, &res.WarehouseID, &res.Quantity,
		&res.ReferenceType, &res.ReferenceID, &res.ExpiresAt,
		&res.IsReleased, &res.ReleasedAt, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
