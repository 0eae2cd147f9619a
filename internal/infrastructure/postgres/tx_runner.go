package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/checkout-core/internal/application/checkout"
	"github.com/jhoicas/checkout-core/internal/application/stock"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

// Ensure TxRunner implements stock.TxRunner and checkout.TxRunner.
var _ stock.TxRunner = (*TxRunner)(nil)
var _ checkout.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción con los repos del motor de reservas atados a la
// tx y hace Commit o Rollback. Nivel + reserva + ledger mutan como una unidad.
func (r *TxRunner) Run(ctx context.Context, fn func(
	levelRepo repository.InventoryLevelRepository,
	resRepo repository.StockReservationRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	levelRepo := NewInventoryLevelRepository(tx)
	resRepo := NewStockReservationRepository(tx)
	movRepo := NewStockMovementRepository(tx)

	if err := fn(levelRepo, resRepo, movRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunCheckout inicia una transacción con todos los repos que participan de
// un checkout (para acquire/execute/release). Cualquier error revierte todo
// lo escrito dentro de la invocación.
func (r *TxRunner) RunCheckout(ctx context.Context, fn func(
	lockRepo repository.CheckoutLockRepository,
	snapRepo repository.PriceSnapshotRepository,
	resRepo repository.StockReservationRepository,
	levelRepo repository.InventoryLevelRepository,
	movRepo repository.StockMovementRepository,
	orderRepo repository.OrderRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockRepo := NewCheckoutLockRepository(tx)
	snapRepo := NewPriceSnapshotRepository(tx)
	resRepo := NewStockReservationRepository(tx)
	levelRepo := NewInventoryLevelRepository(tx)
	movRepo := NewStockMovementRepository(tx)
	orderRepo := NewOrderRepository(tx)

	if err := fn(lockRepo, snapRepo, resRepo, levelRepo, movRepo, orderRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
