package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/checkout-core/internal/application/dto"
	"github.com/jhoicas/checkout-core/internal/application/stock"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
	"github.com/jhoicas/checkout-core/pkg/logger"
	"github.com/jhoicas/checkout-core/pkg/metrics"
)

// LockManager administra la exclusividad por carrito: a lo sumo un bloqueo
// activo por carrito en todo instante. La secuencia verificar-e-insertar corre
// dentro de una transacción con FOR UPDATE sobre el bloqueo existente, con el
// índice único parcial de checkout_locks como respaldo ante la carrera.
type LockManager struct {
	txRunner   TxRunner
	lockRepo   repository.CheckoutLockRepository
	carts      CartOracle
	engine     *stock.ReservationEngine
	cache      StatusCache
	events     EventPublisher
	metrics    *metrics.CheckoutMetrics
	log        *logger.Logger
	defaultTTL time.Duration
}

// NewLockManager construye el administrador de bloqueos.
// events y metrics pueden ser nil (se omiten).
func NewLockManager(
	txRunner TxRunner,
	lockRepo repository.CheckoutLockRepository,
	carts CartOracle,
	engine *stock.ReservationEngine,
	cache StatusCache,
	events EventPublisher,
	m *metrics.CheckoutMetrics,
	log *logger.Logger,
	defaultTTL time.Duration,
) *LockManager {
	return &LockManager{
		txRunner:   txRunner,
		lockRepo:   lockRepo,
		carts:      carts,
		engine:     engine,
		cache:      cache,
		events:     events,
		metrics:    m,
		log:        log.Component("lock_manager"),
		defaultTTL: defaultTTL,
	}
}

// Acquire adquiere el bloqueo de checkout del carrito para la sesión dada.
// Si la sesión ya posee el bloqueo activo, lo devuelve sin cambios
// (idempotente). Si otra sesión lo posee, falla con ErrLockConflict. Si no
// hay bloqueo, valida elegibilidad y crea uno nuevo, todo en una transacción.
func (m *LockManager) Acquire(ctx context.Context, cartID, sessionID string, ttl time.Duration) (*entity.CheckoutLock, error) {
	if cartID == "" || sessionID == "" {
		return nil, domain.ErrInvalidInput
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	var acquired *entity.CheckoutLock
	err := m.txRunner.RunCheckout(ctx, func(
		lockRepo repository.CheckoutLockRepository,
		_ repository.PriceSnapshotRepository,
		resRepo repository.StockReservationRepository,
		levelRepo repository.InventoryLevelRepository,
		movRepo repository.StockMovementRepository,
		_ repository.OrderRepository,
	) error {
		now := time.Now()

		existing, err := lockRepo.GetActiveByCartForUpdate(ctx, cartID)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.IsExpired(now) {
				if existing.OwnedBy(sessionID) {
					acquired = existing
					return nil
				}
				return domain.ErrLockConflict
			}
			// Bloqueo activo pero vencido: el barrido aún no pasó. Se
			// fuerza su cierre aquí mismo para no negar el carrito.
			m.log.Info().
				Str("lock_id", existing.ID).
				Str("cart_id", cartID).
				Msg("bloqueo vencido encontrado al adquirir; se recupera en línea")
			if err := m.failAndReleaseInTx(ctx, lockRepo, resRepo, levelRepo, movRepo, existing, "expired"); err != nil {
				return err
			}
		}

		cart, err := m.carts.GetCart(ctx, cartID)
		if err != nil {
			return err
		}
		if cart == nil {
			return domain.ErrNotFound
		}
		if !cart.IsCheckoutable() {
			return domain.ErrCartNotCheckoutable
		}

		lock := &entity.CheckoutLock{
			ID:        uuid.New().String(),
			CartID:    cartID,
			SessionID: sessionID,
			State:     entity.LockStatePending,
			Phase:     entity.PhaseLocked,
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := lockRepo.Create(ctx, lock); err != nil {
			return err
		}
		lock.State = entity.LockStateActive
		if err := lockRepo.Update(ctx, lock); err != nil {
			return err
		}
		acquired = lock
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrLockConflict) && m.metrics != nil {
			m.metrics.LockConflicts.Inc()
		}
		return nil, err
	}

	m.invalidateStatus(ctx, cartID)
	if m.metrics != nil {
		m.metrics.LocksAcquired.Inc()
	}
	return acquired, nil
}

// Release marca el bloqueo como failed (salvo que ya esté completed), libera
// toda reserva que lo referencie y limpia el estado cacheado. Idempotente:
// es seguro llamarlo dos veces, incluso bajo un barrido concurrente.
func (m *LockManager) Release(ctx context.Context, lockID string) error {
	return m.release(ctx, lockID, "released")
}

func (m *LockManager) release(ctx context.Context, lockID, reason string) error {
	var cartID string
	err := m.txRunner.RunCheckout(ctx, func(
		lockRepo repository.CheckoutLockRepository,
		_ repository.PriceSnapshotRepository,
		resRepo repository.StockReservationRepository,
		levelRepo repository.InventoryLevelRepository,
		movRepo repository.StockMovementRepository,
		_ repository.OrderRepository,
	) error {
		lock, err := lockRepo.GetByIDForUpdate(ctx, lockID)
		if err != nil {
			return err
		}
		if lock == nil {
			return domain.ErrNotFound
		}
		cartID = lock.CartID
		if lock.State == entity.LockStateCompleted || lock.Released {
			// El primero en voltear la bandera terminal gana; el resto es no-op.
			return nil
		}
		return m.failAndReleaseInTx(ctx, lockRepo, resRepo, levelRepo, movRepo, lock, reason)
	})
	if err != nil {
		return err
	}
	m.invalidateStatus(ctx, cartID)
	return nil
}

// failAndReleaseInTx cierra el bloqueo como failed+released y devuelve todas
// sus reservas, dentro de la transacción del caller.
func (m *LockManager) failAndReleaseInTx(
	ctx context.Context,
	lockRepo repository.CheckoutLockRepository,
	resRepo repository.StockReservationRepository,
	levelRepo repository.InventoryLevelRepository,
	movRepo repository.StockMovementRepository,
	lock *entity.CheckoutLock,
	reason string,
) error {
	reservations, err := resRepo.ListActiveByReference(ctx, entity.ReferenceCheckout, lock.ID, time.Time{})
	if err != nil {
		return err
	}
	for _, res := range reservations {
		if err := m.engine.ReleaseInTx(ctx, levelRepo, resRepo, movRepo, res); err != nil {
			return fmt.Errorf("liberar reserva %s: %w", res.ID, err)
		}
	}

	lock.State = entity.LockStateFailed
	lock.Phase = entity.PhaseFailed
	lock.Released = true
	if lock.FailureReason == "" {
		lock.FailureReason = reason
	}
	lock.UpdatedAt = time.Now()
	return lockRepo.Update(ctx, lock)
}

// IsLocked indica si existe un bloqueo activo del carrito en manos de una
// sesión distinta a excludingSession.
func (m *LockManager) IsLocked(ctx context.Context, cartID, excludingSession string) (bool, error) {
	lock, err := m.lockRepo.GetActiveByCart(ctx, cartID)
	if err != nil {
		return false, err
	}
	if lock == nil || lock.IsExpired(time.Now()) {
		return false, nil
	}
	return !lock.OwnedBy(excludingSession), nil
}

// SweepExpired encuentra los bloqueos activos vencidos y los libera uno a
// uno; la falla de uno no aborta el procesamiento de los demás. Devuelve
// cuántos se recuperaron.
func (m *LockManager) SweepExpired(ctx context.Context) (int, error) {
	expired, err := m.lockRepo.ListExpired(ctx, time.Now(), 500)
	if err != nil {
		return 0, fmt.Errorf("listar bloqueos vencidos: %w", err)
	}

	reclaimed := 0
	for _, lock := range expired {
		if err := m.release(ctx, lock.ID, "expired"); err != nil {
			m.log.Error().Err(err).
				Str("lock_id", lock.ID).
				Str("cart_id", lock.CartID).
				Msg("recuperar bloqueo vencido")
			continue
		}
		reclaimed++
		if m.metrics != nil {
			m.metrics.LocksReclaimed.Inc()
		}
		m.publishEvent(ctx, Event{
			Type:       EventExpired,
			LockID:     lock.ID,
			CartID:     lock.CartID,
			Reason:     "expired",
			OccurredAt: time.Now(),
		})
	}
	return reclaimed, nil
}

// GetStatus devuelve la vista cacheada del estado de checkout del carrito
// (read-through con staleness acotada; nunca bloquea sobre la tabla de locks
// si hay un valor cacheado).
func (m *LockManager) GetStatus(ctx context.Context, cartID string) (*dto.CheckoutStatus, error) {
	if cartID == "" {
		return nil, domain.ErrInvalidInput
	}

	if cached, err := m.cache.Get(ctx, cartID); err != nil {
		m.log.Debug().Err(err).Str("cart_id", cartID).Msg("cache de estado no disponible")
	} else if cached != nil {
		return cached, nil
	}

	latest, err := m.lockRepo.GetLatestByCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	status := &dto.CheckoutStatus{CanCheckout: true}
	if latest != nil {
		now := time.Now()
		active := (latest.State == entity.LockStatePending || latest.State == entity.LockStateActive) && !latest.IsExpired(now)
		status.Locked = active
		status.CanCheckout = !active
		status.Phase = latest.Phase.String()
		expiresAt := latest.ExpiresAt
		status.ExpiresAt = &expiresAt
		status.CanResume = latest.CanResume(now)
	}

	if err := m.cache.Set(ctx, cartID, status); err != nil {
		m.log.Debug().Err(err).Str("cart_id", cartID).Msg("no se pudo cachear el estado")
	}
	return status, nil
}

func (m *LockManager) invalidateStatus(ctx context.Context, cartID string) {
	if cartID == "" {
		return
	}
	if err := m.cache.Invalidate(ctx, cartID); err != nil {
		m.log.Debug().Err(err).Str("cart_id", cartID).Msg("invalidar cache de estado")
	}
}

func (m *LockManager) publishEvent(ctx context.Context, event Event) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, event); err != nil {
		m.log.Warn().Err(err).Str("type", event.Type).Str("lock_id", event.LockID).Msg("publicar evento de checkout")
	}
}
