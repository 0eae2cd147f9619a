package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/checkout-core/internal/application/dto"
	"github.com/jhoicas/checkout-core/internal/application/stock"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
	"github.com/jhoicas/checkout-core/pkg/logger"
	"github.com/jhoicas/checkout-core/pkg/metrics"
)

// StateMachine conduce un carrito por las fases del checkout:
// locked -> priced -> stock_reserved -> paid -> completed, con failed
// alcanzable desde cualquiera. Solo un execute() exitoso crea una orden;
// completed es terminal, así que hay a lo sumo un execute exitoso por bloqueo.
type StateMachine struct {
	txRunner       TxRunner
	locks          *LockManager
	lockRepo       repository.CheckoutLockRepository
	carts          CartOracle
	engine         *stock.ReservationEngine
	validator      *Validator
	payments       PaymentGateway
	events         EventPublisher
	metrics        *metrics.CheckoutMetrics
	log            *logger.Logger
	lockTTL        time.Duration
	reservationTTL time.Duration
}

// NewStateMachine construye la máquina de estados del checkout.
// events y metrics pueden ser nil (se omiten).
func NewStateMachine(
	txRunner TxRunner,
	locks *LockManager,
	lockRepo repository.CheckoutLockRepository,
	carts CartOracle,
	engine *stock.ReservationEngine,
	validator *Validator,
	payments PaymentGateway,
	events EventPublisher,
	m *metrics.CheckoutMetrics,
	log *logger.Logger,
	lockTTL, reservationTTL time.Duration,
) *StateMachine {
	return &StateMachine{
		txRunner:       txRunner,
		locks:          locks,
		lockRepo:       lockRepo,
		carts:          carts,
		engine:         engine,
		validator:      validator,
		payments:       payments,
		events:         events,
		metrics:        m,
		log:            log.Component("checkout_state_machine"),
		lockTTL:        lockTTL,
		reservationTTL: reservationTTL,
	}
}

// Start adquiere el bloqueo del carrito, captura el snapshot de precios a
// partir de los totales/cupón/moneda vigentes y pasa a la fase priced.
// Re-llamarlo desde la sesión dueña devuelve el bloqueo sin cambios.
func (sm *StateMachine) Start(ctx context.Context, cartID, sessionID string) (*entity.CheckoutLock, error) {
	lock, err := sm.locks.Acquire(ctx, cartID, sessionID, sm.lockTTL)
	if err != nil {
		return nil, err
	}
	if lock.Phase != entity.PhaseLocked {
		// Re-adquisición idempotente: el snapshot ya existe.
		return lock, nil
	}

	err = sm.txRunner.RunCheckout(ctx, func(
		lockRepo repository.CheckoutLockRepository,
		snapRepo repository.PriceSnapshotRepository,
		_ repository.StockReservationRepository,
		_ repository.InventoryLevelRepository,
		_ repository.StockMovementRepository,
		_ repository.OrderRepository,
	) error {
		current, err := lockRepo.GetByIDForUpdate(ctx, lock.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if current.State != entity.LockStateActive || !current.OwnedBy(sessionID) {
			return domain.ErrConflict
		}
		if current.Phase != entity.PhaseLocked {
			lock = current
			return nil
		}

		cart, err := sm.carts.GetCart(ctx, cartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return domain.ErrNotFound
		}

		now := time.Now()
		cartSnap := &entity.PriceSnapshot{
			ID:             uuid.New().String(),
			CheckoutLockID: current.ID,
			Total:          cart.Total,
			CouponCode:     cart.CouponCode,
			CurrencyCode:   cart.CurrencyCode,
			CurrencyRate:   cart.CurrencyRate,
			CreatedAt:      now,
		}
		if err := snapRepo.Create(ctx, cartSnap); err != nil {
			return err
		}
		for _, line := range cart.Lines {
			lineID := line.ID
			lineSnap := &entity.PriceSnapshot{
				ID:             uuid.New().String(),
				CheckoutLockID: current.ID,
				CartLineID:     &lineID,
				Total:          line.UnitPrice.Mul(decimalFromInt(line.Quantity)),
				CouponCode:     cart.CouponCode,
				CurrencyCode:   cart.CurrencyCode,
				CurrencyRate:   cart.CurrencyRate,
				CreatedAt:      now,
			}
			if err := snapRepo.Create(ctx, lineSnap); err != nil {
				return err
			}
		}

		current.Phase = entity.PhasePriced
		current.UpdatedAt = now
		if err := lockRepo.Update(ctx, current); err != nil {
			return err
		}
		lock = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	sm.locks.invalidateStatus(ctx, cartID)
	sm.log.Info().
		Str("lock_id", lock.ID).
		Str("cart_id", cartID).
		Str("session_id", sessionID).
		Msg("checkout iniciado con snapshot de precios")
	return lock, nil
}

// Execute corre el checkout bajo un bloqueo activo: valida consistencia,
// reserva las líneas sin reservar, cobra, crea la orden y confirma las
// reservas, todo como una sola unidad atómica. Cualquier falla revierte lo
// escrito en esta invocación, no deja orden parcial y marca el bloqueo failed.
func (sm *StateMachine) Execute(ctx context.Context, lockID, sessionID string, payment dto.PaymentData) (*entity.Order, error) {
	return sm.run(ctx, lockID, sessionID, payment, false)
}

// Resume reintenta el checkout tras una falla de colaborador. Legal solo si
// el bloqueo puede reanudarse; vuelve a correr el validador antes de confiar
// en reservas y snapshots previos, porque pasó tiempo real desde start().
// No hay tope de reanudaciones: el reintento es decisión del caller.
func (sm *StateMachine) Resume(ctx context.Context, lockID, sessionID string, payment dto.PaymentData) (*entity.Order, error) {
	return sm.run(ctx, lockID, sessionID, payment, true)
}

// Cancel aborta el checkout y libera sus recursos. Legal salvo completed.
func (sm *StateMachine) Cancel(ctx context.Context, lockID, sessionID string) error {
	lock, err := sm.lockRepo.GetByID(ctx, lockID)
	if err != nil {
		return err
	}
	if lock == nil {
		return domain.ErrNotFound
	}
	if !lock.OwnedBy(sessionID) {
		return domain.ErrLockConflict
	}
	if lock.State == entity.LockStateCompleted {
		return domain.ErrConflict
	}
	if err := sm.locks.release(ctx, lockID, "canceled"); err != nil {
		return err
	}
	sm.publishEvent(ctx, Event{
		Type:       EventFailed,
		LockID:     lock.ID,
		CartID:     lock.CartID,
		Reason:     "canceled",
		OccurredAt: time.Now(),
	})
	return nil
}

func (sm *StateMachine) run(ctx context.Context, lockID, sessionID string, payment dto.PaymentData, resuming bool) (*entity.Order, error) {
	started := time.Now()
	var order *entity.Order
	var cartID string

	err := sm.txRunner.RunCheckout(ctx, func(
		lockRepo repository.CheckoutLockRepository,
		snapRepo repository.PriceSnapshotRepository,
		resRepo repository.StockReservationRepository,
		levelRepo repository.InventoryLevelRepository,
		movRepo repository.StockMovementRepository,
		orderRepo repository.OrderRepository,
	) error {
		lock, err := lockRepo.GetByIDForUpdate(ctx, lockID)
		if err != nil {
			return err
		}
		if lock == nil {
			return domain.ErrNotFound
		}
		cartID = lock.CartID
		now := time.Now()

		if !lock.OwnedBy(sessionID) {
			return domain.ErrLockConflict
		}
		if resuming {
			if !lock.CanResume(now) {
				return domain.ErrLockNotResumable
			}
			if lock.State == entity.LockStateFailed {
				// Reactivación: la falla previa fue de colaborador y las
				// reservas siguen vivas.
				lock.State = entity.LockStateActive
				lock.FailureReason = ""
			}
		} else if lock.State != entity.LockStateActive {
			return domain.ErrConflict
		}
		if lock.IsExpired(now) {
			return domain.ErrLockExpired
		}

		cart, err := sm.carts.GetCart(ctx, cartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return domain.ErrNotFound
		}
		snapshot, err := snapRepo.GetCartLevelByLock(ctx, lock.ID)
		if err != nil {
			return err
		}
		if snapshot == nil {
			// start() no capturó snapshot: el bloqueo no está listo para ejecutar.
			return domain.ErrConflict
		}

		toReserve, err := sm.validator.Validate(ctx, resRepo, lock, cart, snapshot)
		if err != nil {
			return err
		}
		for _, line := range toReserve {
			res, err := sm.engine.ReserveInTx(ctx, levelRepo, resRepo, movRepo, stock.ReserveInput{
				VariantID:     line.VariantID,
				Quantity:      line.Quantity,
				ReferenceType: entity.ReferenceCheckout,
				ReferenceID:   lock.ID,
				TTL:           sm.reservationTTL,
			})
			if err != nil {
				return err
			}
			if res == nil {
				return domain.ErrInsufficientStock
			}
		}
		if lock.Phase.CanAdvanceTo(entity.PhaseStockReserved) {
			lock.Phase = entity.PhaseStockReserved
			lock.UpdatedAt = time.Now()
			if err := lockRepo.Update(ctx, lock); err != nil {
				return err
			}
		}

		// Se cobra el total congelado, no el vivo (política frozen-price).
		transactionID, err := sm.payments.Accept(ctx, payment, snapshot.Total, snapshot.CurrencyCode)
		if err != nil {
			if errors.Is(err, domain.ErrPaymentDeclined) {
				return err
			}
			return fmt.Errorf("pasarela de pago: %w", err)
		}
		if lock.Phase.CanAdvanceTo(entity.PhasePaid) {
			lock.Phase = entity.PhasePaid
			lock.UpdatedAt = time.Now()
			if err := lockRepo.Update(ctx, lock); err != nil {
				return err
			}
		}

		order = &entity.Order{
			ID:           uuid.New().String(),
			CartID:       cart.ID,
			CustomerID:   cart.CustomerID,
			Total:        snapshot.Total,
			CurrencyCode: snapshot.CurrencyCode,
			CurrencyRate: snapshot.CurrencyRate,
			CouponCode:   snapshot.CouponCode,
			CreatedAt:    time.Now(),
		}
		lines := make([]*entity.OrderLine, 0, len(cart.Lines))
		for _, line := range cart.Lines {
			lines = append(lines, &entity.OrderLine{
				ID:        uuid.New().String(),
				OrderID:   order.ID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			})
		}
		if err := orderRepo.Create(ctx, order, lines); err != nil {
			return err
		}

		// Deducción permanente: confirmar toda reserva viva del bloqueo.
		reservations, err := resRepo.ListActiveByReference(ctx, entity.ReferenceCheckout, lock.ID, time.Time{})
		if err != nil {
			return err
		}
		for _, res := range reservations {
			if err := sm.engine.ConfirmInTx(ctx, levelRepo, resRepo, movRepo, res, order.ID); err != nil {
				return err
			}
		}

		lock.State = entity.LockStateCompleted
		lock.Phase = entity.PhaseCompleted
		lock.UpdatedAt = time.Now()
		if err := lockRepo.Update(ctx, lock); err != nil {
			return err
		}

		sm.log.Info().
			Str("lock_id", lock.ID).
			Str("cart_id", cart.ID).
			Str("order_id", order.ID).
			Str("transaction_id", transactionID).
			Str("total", snapshot.Total.String()).
			Msg("checkout completado")
		return nil
	})

	if sm.metrics != nil {
		sm.metrics.ExecuteDuration.Observe(float64(time.Since(started).Milliseconds()))
	}

	if err != nil {
		sm.handleFailure(ctx, lockID, cartID, err)
		return nil, err
	}

	sm.locks.invalidateStatus(ctx, cartID)
	if sm.metrics != nil {
		sm.metrics.CheckoutsCompleted.Inc()
	}
	sm.publishEvent(ctx, Event{
		Type:       EventCompleted,
		LockID:     lockID,
		CartID:     cartID,
		OrderID:    order.ID,
		OccurredAt: time.Now(),
	})
	return order, nil
}

// handleFailure clasifica la falla de execute()/resume():
//   - precondiciones (no dueño, no encontrado, no reanudable) no tocan el
//     bloqueo: la invocación ni siquiera corrió en nombre del dueño;
//   - validación fatal y expiración abortan el checkout y devuelven los
//     recursos de inmediato;
//   - fallas de colaborador (pago, creación de orden) marcan failed pero
//     conservan las reservas hasta su TTL: el caller puede reintentar con resume().
func (sm *StateMachine) handleFailure(ctx context.Context, lockID, cartID string, cause error) {
	switch {
	case errors.Is(cause, domain.ErrNotFound),
		errors.Is(cause, domain.ErrLockConflict),
		errors.Is(cause, domain.ErrConflict),
		errors.Is(cause, domain.ErrLockNotResumable),
		errors.Is(cause, domain.ErrInvalidInput):
		return

	case errors.Is(cause, domain.ErrReservationMissing),
		errors.Is(cause, domain.ErrInsufficientStock),
		errors.Is(cause, domain.ErrCartNotCheckoutable):
		if err := sm.locks.release(ctx, lockID, cause.Error()); err != nil {
			sm.log.Error().Err(err).Str("lock_id", lockID).Msg("liberar bloqueo tras validación fatal")
		}

	case errors.Is(cause, domain.ErrLockExpired):
		if err := sm.locks.release(ctx, lockID, "expired"); err != nil {
			sm.log.Error().Err(err).Str("lock_id", lockID).Msg("liberar bloqueo vencido")
		}

	default:
		// Falla de colaborador: el rollback ya descartó lo escrito en esta
		// invocación; el failed se persiste en una transacción aparte.
		sm.markFailed(ctx, lockID, cause.Error())
	}

	sm.locks.invalidateStatus(ctx, cartID)
	if sm.metrics != nil {
		sm.metrics.CheckoutsFailed.Inc()
	}
	sm.publishEvent(ctx, Event{
		Type:       EventFailed,
		LockID:     lockID,
		CartID:     cartID,
		Reason:     cause.Error(),
		OccurredAt: time.Now(),
	})
}

func (sm *StateMachine) markFailed(ctx context.Context, lockID, reason string) {
	err := sm.txRunner.RunCheckout(ctx, func(
		lockRepo repository.CheckoutLockRepository,
		_ repository.PriceSnapshotRepository,
		_ repository.StockReservationRepository,
		_ repository.InventoryLevelRepository,
		_ repository.StockMovementRepository,
		_ repository.OrderRepository,
	) error {
		lock, err := lockRepo.GetByIDForUpdate(ctx, lockID)
		if err != nil {
			return err
		}
		if lock == nil || lock.State == entity.LockStateCompleted {
			return nil
		}
		lock.State = entity.LockStateFailed
		lock.FailureReason = reason
		lock.UpdatedAt = time.Now()
		return lockRepo.Update(ctx, lock)
	})
	if err != nil {
		sm.log.Error().Err(err).Str("lock_id", lockID).Msg("marcar bloqueo como failed")
	}
}

func (sm *StateMachine) publishEvent(ctx context.Context, event Event) {
	if sm.events == nil {
		return
	}
	if err := sm.events.Publish(ctx, event); err != nil {
		sm.log.Warn().Err(err).Str("type", event.Type).Str("lock_id", event.LockID).Msg("publicar evento de checkout")
	}
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
