package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

var _ repository.CheckoutLockRepository = (*CheckoutLockRepo)(nil)

// CheckoutLockRepo implementación de CheckoutLockRepository sobre PostgreSQL
// (usable con pool o tx). La tabla lleva un índice único parcial:
//
//	CREATE UNIQUE INDEX uq_checkout_locks_active
//	ON checkout_locks (cart_id) WHERE state IN ('pending', 'active');
//
// que respalda la exclusividad por carrito ante inserciones concurrentes.
type CheckoutLockRepo struct {
	q Querier
}

// NewCheckoutLockRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCheckoutLockRepository(q Querier) *CheckoutLockRepo {
	return &CheckoutLockRepo{q: q}
}

const lockColumns = `id, cart_id, session_id, state, phase, failure_reason, released, created_at, updated_at, expires_at`

// Create inserta el bloqueo. Una violación del índice único parcial se
// traduce a ErrLockConflict: otra sesión ganó la carrera.
func (r *CheckoutLockRepo) Create(ctx context.Context, lock *entity.CheckoutLock) error {
	query := `
		INSERT INTO checkout_locks (id, cart_id, session_id, state, phase, failure_reason, released, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		lock.ID, lock.CartID, lock.SessionID, string(lock.State), string(lock.Phase),
		lock.FailureReason, lock.Released, lock.CreatedAt, lock.UpdatedAt, lock.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrLockConflict
		}
		return fmt.Errorf("insert checkout lock: %w", err)
	}
	return nil
}

// GetByID obtiene un bloqueo por ID, o nil si no existe.
func (r *CheckoutLockRepo) GetByID(ctx context.Context, id string) (*entity.CheckoutLock, error) {
	query := `SELECT ` + lockColumns + ` FROM checkout_locks WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// GetByIDForUpdate obtiene el bloqueo y bloquea la fila (SELECT FOR UPDATE).
func (r *CheckoutLockRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.CheckoutLock, error) {
	query := `SELECT ` + lockColumns + ` FROM checkout_locks WHERE id = $1 FOR UPDATE`
	return r.scanOne(ctx, query, id)
}

// GetActiveByCart devuelve el bloqueo pending/active del carrito, o nil.
func (r *CheckoutLockRepo) GetActiveByCart(ctx context.Context, cartID string) (*entity.CheckoutLock, error) {
	query := `
		SELECT ` + lockColumns + `
		FROM checkout_locks
		WHERE cart_id = $1 AND state IN ('pending', 'active')`
	return r.scanOne(ctx, query, cartID)
}

// GetActiveByCartForUpdate igual que GetActiveByCart pero bloqueando la fila,
// para serializar la secuencia verificar-e-insertar por carrito.
func (r *CheckoutLockRepo) GetActiveByCartForUpdate(ctx context.Context, cartID string) (*entity.CheckoutLock, error) {
	query := `
		SELECT ` + lockColumns + `
		FROM checkout_locks
		WHERE cart_id = $1 AND state IN ('pending', 'active')
		FOR UPDATE`
	return r.scanOne(ctx, query, cartID)
}

// GetLatestByCart devuelve el bloqueo más reciente del carrito, o nil.
func (r *CheckoutLockRepo) GetLatestByCart(ctx context.Context, cartID string) (*entity.CheckoutLock, error) {
	query := `
		SELECT ` + lockColumns + `
		FROM checkout_locks
		WHERE cart_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanOne(ctx, query, cartID)
}

// Update persiste estado, fase y banderas del bloqueo.
func (r *CheckoutLockRepo) Update(ctx context.Context, lock *entity.CheckoutLock) error {
	query := `
		UPDATE checkout_locks
		SET state = $2, phase = $3, failure_reason = $4, released = $5, updated_at = $6, expires_at = $7
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query,
		lock.ID, string(lock.State), string(lock.Phase),
		lock.FailureReason, lock.Released, lock.UpdatedAt, lock.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("update checkout lock: %w", err)
	}
	return nil
}

// ListExpired devuelve bloqueos pending/active vencidos a la hora dada.
func (r *CheckoutLockRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.CheckoutLock, error) {
	query := `
		SELECT ` + lockColumns + `
		FROM checkout_locks
		WHERE state IN ('pending', 'active') AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired locks: %w", err)
	}
	defer rows.Close()

	var locks []*entity.CheckoutLock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, err
		}
		locks = append(locks, lock)
	}
	return locks, rows.Err()
}

func (r *CheckoutLockRepo) scanOne(ctx context.Context, query string, args ...any) (*entity.CheckoutLock, error) {
	lock, err := scanLock(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return lock, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLock(row rowScanner) (*entity.CheckoutLock, error) {
	var l entity.CheckoutLock
	var state, phase string
	err := row.Scan(
		&l.ID, &l.CartID, &l.SessionID, &state, &phase,
		&l.FailureReason, &l.Released, &l.CreatedAt, &l.UpdatedAt, &l.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan checkout lock: %w", err)
	}
	l.State = entity.LockState(state)
	l.Phase = entity.CheckoutPhase(phase)
	return &l, nil
}
