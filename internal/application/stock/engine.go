package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
	"github.com/jhoicas/checkout-core/pkg/logger"
)

// ReservationEngine motor de reservas de stock: reserva, liberación y
// confirmación con TTL, sobre bodegas múltiples. Toda mutación de un
// InventoryLevel bloquea la fila (SELECT FOR UPDATE), respeta el invariante
// 0 <= reserved_quantity <= quantity y escribe su entrada de ledger en la
// misma transacción.
type ReservationEngine struct {
	txRunner      TxRunner
	warehouseRepo repository.WarehouseRepository
	log           *logger.Logger
}

// NewReservationEngine construye el motor.
func NewReservationEngine(txRunner TxRunner, warehouseRepo repository.WarehouseRepository, log *logger.Logger) *ReservationEngine {
	return &ReservationEngine{
		txRunner:      txRunner,
		warehouseRepo: warehouseRepo,
		log:           log.Component("reservation_engine"),
	}
}

// ReserveInput entrada para crear una reserva.
// WarehouseID nil = elegir bodega por first-fit sobre activas por prioridad.
type ReserveInput struct {
	VariantID     string
	Quantity      int
	ReferenceType entity.ReferenceType
	ReferenceID   string
	WarehouseID   *string
	TTL           time.Duration
}

// Reserve crea una reserva en su propia transacción.
// Devuelve (nil, nil) cuando ninguna bodega puede satisfacer la cantidad:
// "sin stock" es una condición de negocio esperada, no una falla.
func (e *ReservationEngine) Reserve(ctx context.Context, in ReserveInput) (*entity.StockReservation, error) {
	var res *entity.StockReservation
	err := e.txRunner.Run(ctx, func(
		levelRepo repository.InventoryLevelRepository,
		resRepo repository.StockReservationRepository,
		movRepo repository.StockMovementRepository,
	) error {
		var err error
		res, err = e.ReserveInTx(ctx, levelRepo, resRepo, movRepo, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReserveInTx crea la reserva usando repositorios ya atados a la transacción
// del caller (execute() del checkout reserva dentro de su propia tx).
func (e *ReservationEngine) ReserveInTx(
	ctx context.Context,
	levelRepo repository.InventoryLevelRepository,
	resRepo repository.StockReservationRepository,
	movRepo repository.StockMovementRepository,
	in ReserveInput,
) (*entity.StockReservation, error) {
	if in.VariantID == "" || in.Quantity <= 0 || in.ReferenceID == "" || !in.ReferenceType.Valid() {
		return nil, domain.ErrInvalidInput
	}

	candidates, err := e.candidateWarehouses(ctx, in.WarehouseID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// First-fit: la primera bodega con disponible suficiente gana; no se
	// reparte la cantidad entre bodegas.
	for _, warehouseID := range candidates {
		level, err := levelRepo.GetForUpdate(ctx, in.VariantID, warehouseID)
		if err != nil {
			return nil, err
		}
		if level.Status == entity.LevelStatusDisabled || level.AvailableQuantity() < in.Quantity {
			continue
		}

		reservedBefore := level.ReservedQuantity
		level.ReservedQuantity += in.Quantity
		level.UpdatedAt = now
		if err := levelRepo.Upsert(ctx, level); err != nil {
			return nil, err
		}

		whID := warehouseID
		res := &entity.StockReservation{
			ID:            uuid.New().String(),
			VariantID:     in.VariantID,
			WarehouseID:   &whID,
			Quantity:      in.Quantity,
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
			ExpiresAt:     now.Add(in.TTL),
			CreatedAt:     now,
		}
		if err := resRepo.Create(ctx, res); err != nil {
			return nil, err
		}

		mov := &entity.StockMovement{
			ID:             uuid.New().String(),
			VariantID:      in.VariantID,
			WarehouseID:    warehouseID,
			Type:           entity.MovementTypeReserve,
			Quantity:       in.Quantity,
			QuantityBefore: level.Quantity,
			QuantityAfter:  level.Quantity,
			ReservedBefore: reservedBefore,
			ReservedAfter:  level.ReservedQuantity,
			ReferenceType:  in.ReferenceType,
			ReferenceID:    in.ReferenceID,
			CreatedAt:      now,
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return nil, err
		}

		e.log.Debug().
			Str("variant_id", in.VariantID).
			Str("warehouse_id", warehouseID).
			Int("quantity", in.Quantity).
			Str("reservation_id", res.ID).
			Msg("stock reservado")
		return res, nil
	}

	// Ninguna bodega puede satisfacer la cantidad: el caller decide qué
	// hacer con "sin stock"; no es un error.
	return nil, nil
}

// Release libera una reserva en su propia transacción. Idempotente.
func (e *ReservationEngine) Release(ctx context.Context, reservationID string) error {
	return e.txRunner.Run(ctx, func(
		levelRepo repository.InventoryLevelRepository,
		resRepo repository.StockReservationRepository,
		movRepo repository.StockMovementRepository,
	) error {
		res, err := resRepo.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if res == nil {
			return domain.ErrNotFound
		}
		return e.ReleaseInTx(ctx, levelRepo, resRepo, movRepo, res)
	})
}

// ReleaseInTx devuelve la cantidad reservada al disponible. No-op si la
// reserva ya fue liberada. Si el reserved_quantity almacenado quedó
// inconsistente, se ajusta a cero y se registra la anomalía en vez de fallar.
func (e *ReservationEngine) ReleaseInTx(
	ctx context.Context,
	levelRepo repository.InventoryLevelRepository,
	resRepo repository.StockReservationRepository,
	movRepo repository.StockMovementRepository,
	res *entity.StockReservation,
) error {
	if res.IsReleased {
		return nil
	}
	now := time.Now()

	if res.WarehouseID != nil {
		level, err := levelRepo.GetForUpdate(ctx, res.VariantID, *res.WarehouseID)
		if err != nil {
			return err
		}
		reservedBefore := level.ReservedQuantity
		newReserved := level.ReservedQuantity - res.Quantity
		if newReserved < 0 {
			e.log.Warn().
				Str("reservation_id", res.ID).
				Str("variant_id", res.VariantID).
				Str("warehouse_id", *res.WarehouseID).
				Int("reserved_quantity", level.ReservedQuantity).
				Int("release_quantity", res.Quantity).
				Msg("reserved_quantity inconsistente al liberar; se ajusta a cero")
			newReserved = 0
		}
		level.ReservedQuantity = newReserved
		level.UpdatedAt = now
		if err := levelRepo.Upsert(ctx, level); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			ID:             uuid.New().String(),
			VariantID:      res.VariantID,
			WarehouseID:    *res.WarehouseID,
			Type:           entity.MovementTypeRelease,
			Quantity:       -res.Quantity,
			QuantityBefore: level.Quantity,
			QuantityAfter:  level.Quantity,
			ReservedBefore: reservedBefore,
			ReservedAfter:  level.ReservedQuantity,
			ReferenceType:  res.ReferenceType,
			ReferenceID:    res.ReferenceID,
			CreatedAt:      now,
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
	}

	res.IsReleased = true
	res.ReleasedAt = &now
	return resRepo.Update(ctx, res)
}

// Confirm convierte la reserva en deducción permanente dentro de su propia transacción.
func (e *ReservationEngine) Confirm(ctx context.Context, reservationID, orderID string) error {
	return e.txRunner.Run(ctx, func(
		levelRepo repository.InventoryLevelRepository,
		resRepo repository.StockReservationRepository,
		movRepo repository.StockMovementRepository,
	) error {
		res, err := resRepo.GetByIDForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if res == nil {
			return domain.ErrNotFound
		}
		return e.ConfirmInTx(ctx, levelRepo, resRepo, movRepo, res, orderID)
	})
}

// ConfirmInTx es la única operación que deduce quantity de forma permanente:
// baja reserved_quantity y quantity, marca la reserva liberada con referencia
// a la orden y escribe el movimiento de venta. Idempotente frente a doble
// confirmación (is_released se revisa primero).
func (e *ReservationEngine) ConfirmInTx(
	ctx context.Context,
	levelRepo repository.InventoryLevelRepository,
	resRepo repository.StockReservationRepository,
	movRepo repository.StockMovementRepository,
	res *entity.StockReservation,
	orderID string,
) error {
	if res.IsReleased {
		return nil
	}
	if orderID == "" {
		return domain.ErrInvalidInput
	}
	now := time.Now()

	if res.WarehouseID != nil {
		level, err := levelRepo.GetForUpdate(ctx, res.VariantID, *res.WarehouseID)
		if err != nil {
			return err
		}
		quantityBefore := level.Quantity
		reservedBefore := level.ReservedQuantity

		newReserved := level.ReservedQuantity - res.Quantity
		if newReserved < 0 {
			e.log.Warn().
				Str("reservation_id", res.ID).
				Str("variant_id", res.VariantID).
				Int("reserved_quantity", level.ReservedQuantity).
				Int("confirm_quantity", res.Quantity).
				Msg("reserved_quantity inconsistente al confirmar; se ajusta a cero")
			newReserved = 0
		}
		newQuantity := level.Quantity - res.Quantity
		if newQuantity < 0 {
			e.log.Warn().
				Str("reservation_id", res.ID).
				Str("variant_id", res.VariantID).
				Int("quantity", level.Quantity).
				Int("confirm_quantity", res.Quantity).
				Msg("quantity inconsistente al confirmar; se ajusta a cero")
			newQuantity = 0
		}
		level.ReservedQuantity = newReserved
		level.Quantity = newQuantity
		level.UpdatedAt = now
		if err := levelRepo.Upsert(ctx, level); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			ID:             uuid.New().String(),
			VariantID:      res.VariantID,
			WarehouseID:    *res.WarehouseID,
			Type:           entity.MovementTypeSale,
			Quantity:       -res.Quantity,
			QuantityBefore: quantityBefore,
			QuantityAfter:  level.Quantity,
			ReservedBefore: reservedBefore,
			ReservedAfter:  level.ReservedQuantity,
			ReferenceType:  entity.ReferenceOrder,
			ReferenceID:    orderID,
			CreatedAt:      now,
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
	}

	res.IsReleased = true
	res.ReleasedAt = &now
	res.ReferenceType = entity.ReferenceOrder
	res.ReferenceID = orderID
	return resRepo.Update(ctx, res)
}

// ReleaseExpired barre reservas sin liberar ya expiradas y las libera, cada
// una en su propia transacción: la falla de una no aborta el resto.
// Devuelve cuántas se liberaron.
func (e *ReservationEngine) ReleaseExpired(ctx context.Context) (int, error) {
	var expired []*entity.StockReservation
	err := e.txRunner.Run(ctx, func(
		_ repository.InventoryLevelRepository,
		resRepo repository.StockReservationRepository,
		_ repository.StockMovementRepository,
	) error {
		var err error
		expired, err = resRepo.ListExpired(ctx, time.Now(), 500)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("listar reservas expiradas: %w", err)
	}

	released := 0
	for _, res := range expired {
		if err := e.Release(ctx, res.ID); err != nil {
			e.log.Error().Err(err).
				Str("reservation_id", res.ID).
				Msg("liberar reserva expirada")
			continue
		}
		released++
	}
	if released > 0 {
		e.log.Info().Int("released", released).Msg("reservas expiradas liberadas")
	}
	return released, nil
}

// candidateWarehouses bodega explícita, o todas las activas por prioridad.
func (e *ReservationEngine) candidateWarehouses(ctx context.Context, explicit *string) ([]string, error) {
	if explicit != nil && *explicit != "" {
		return []string{*explicit}, nil
	}
	warehouses, err := e.warehouseRepo.ListActiveByPriority(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar bodegas activas: %w", err)
	}
	ids := make([]string, 0, len(warehouses))
	for _, w := range warehouses {
		ids = append(ids, w.ID)
	}
	return ids, nil
}
