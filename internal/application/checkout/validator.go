package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
	"github.com/jhoicas/checkout-core/pkg/logger"
)

// Validator re-verifica consistencia contra el snapshot congelado en cada
// execute()/resume(). Política: deriva de precio y de promoción son solo
// advertencias (se honra el valor congelado); únicamente la cobertura de
// reservas de stock puede abortar el checkout. La tasa de cambio queda
// congelada al snapshot y nunca se revalida.
type Validator struct {
	tolerance decimal.Decimal
	log       *logger.Logger
}

// NewValidator construye el validador con la tolerancia de deriva (unidad
// monetaria menor, ej. 0.01).
func NewValidator(tolerance decimal.Decimal, log *logger.Logger) *Validator {
	return &Validator{
		tolerance: tolerance,
		log:       log.Component("consistency_validator"),
	}
}

// Validate corre los chequeos y devuelve las líneas del carrito que aún no
// tienen reserva (para que execute() las reserve a continuación).
//
//   - Deriva de precio: se recalcula el total vivo; si difiere del snapshot
//     más que la tolerancia, se registra y se continúa con el valor congelado.
//   - Promoción: el cupón del snapshot se da por válido; un cambio se
//     registra solo para auditoría.
//   - Stock: una línea rastreable con reserva parcial (existe pero no cubre
//     la cantidad) es fatal; una línea sin reserva alguna se devuelve para
//     reservarse dentro de la misma transacción.
func (v *Validator) Validate(
	ctx context.Context,
	resRepo repository.StockReservationRepository,
	lock *entity.CheckoutLock,
	cart *entity.Cart,
	snapshot *entity.PriceSnapshot,
) ([]entity.CartLine, error) {
	// 1. Deriva de precio (advisory)
	drift := cart.Total.Sub(snapshot.Total).Abs()
	if drift.GreaterThan(v.tolerance) {
		v.log.Warn().
			Str("lock_id", lock.ID).
			Str("cart_id", cart.ID).
			Str("snapshot_total", snapshot.Total.String()).
			Str("live_total", cart.Total.String()).
			Str("drift", drift.String()).
			Msg("deriva de precio detectada; se honra el total congelado")
	}

	// 2. Validez de promoción (advisory, política frozen-promotion)
	if cart.CouponCode != snapshot.CouponCode {
		v.log.Warn().
			Str("lock_id", lock.ID).
			Str("cart_id", cart.ID).
			Str("snapshot_coupon", snapshot.CouponCode).
			Str("live_coupon", cart.CouponCode).
			Msg("el cupón del carrito cambió; se honra el cupón congelado")
	}

	// 3. Cobertura de reservas (fatal)
	now := time.Now()
	reservations, err := resRepo.ListActiveByReference(ctx, entity.ReferenceCheckout, lock.ID, now)
	if err != nil {
		return nil, err
	}
	reservedByVariant := make(map[string]int, len(reservations))
	for _, r := range reservations {
		reservedByVariant[r.VariantID] += r.Quantity
	}

	var toReserve []entity.CartLine
	for _, line := range cart.Lines {
		if !line.TrackInventory {
			continue
		}
		reserved := reservedByVariant[line.VariantID]
		switch {
		case reserved == 0:
			toReserve = append(toReserve, line)
		case reserved < line.Quantity:
			v.log.Error().
				Str("lock_id", lock.ID).
				Str("variant_id", line.VariantID).
				Int("reserved", reserved).
				Int("required", line.Quantity).
				Msg("reserva insuficiente para la línea")
			return nil, domain.ErrReservationMissing
		}
	}

	// 4. Tasa de cambio: congelada al snapshot, sin revalidación.
	return toReserve, nil
}
