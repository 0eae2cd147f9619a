package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/checkout-core/internal/application/checkout"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

func newValidatorHarness() (*checkout.Validator, *memStore) {
	s := newMemStore()
	return checkout.NewValidator(decimal.NewFromFloat(0.01), testLogger()), s
}

func validatorLock() *entity.CheckoutLock {
	return &entity.CheckoutLock{
		ID:        "lock-1",
		CartID:    "cart-1",
		SessionID: "sess-1",
		State:     entity.LockStateActive,
		Phase:     entity.PhasePriced,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
}

func snapshotFor(cart *entity.Cart) *entity.PriceSnapshot {
	return &entity.PriceSnapshot{
		ID:             "snap-1",
		CheckoutLockID: "lock-1",
		Total:          cart.Total,
		CouponCode:     cart.CouponCode,
		CurrencyCode:   cart.CurrencyCode,
		CurrencyRate:   cart.CurrencyRate,
		CreatedAt:      time.Now(),
	}
}

func addReservation(s *memStore, variantID string, qty int, lockID string) {
	wh := "wh-1"
	s.reservations["res-"+variantID] = &entity.StockReservation{
		ID:            "res-" + variantID,
		VariantID:     variantID,
		WarehouseID:   &wh,
		Quantity:      qty,
		ReferenceType: entity.ReferenceCheckout,
		ReferenceID:   lockID,
		ExpiresAt:     time.Now().Add(10 * time.Minute),
		CreatedAt:     time.Now(),
	}
}

func TestValidate_SinReservas_DevuelveLasLineas(t *testing.T) {
	v, s := newValidatorHarness()
	cart := simpleCart("cart-1", 2, 100)

	toReserve, err := v.Validate(context.Background(), &memReservationRepo{s},
		validatorLock(), cart, snapshotFor(cart))
	require.NoError(t, err)
	require.Len(t, toReserve, 1)
	assert.Equal(t, "v1", toReserve[0].VariantID)
}

func TestValidate_CoberturaCompleta_NadaQueReservar(t *testing.T) {
	v, s := newValidatorHarness()
	cart := simpleCart("cart-1", 2, 100)
	addReservation(s, "v1", 2, "lock-1")

	toReserve, err := v.Validate(context.Background(), &memReservationRepo{s},
		validatorLock(), cart, snapshotFor(cart))
	require.NoError(t, err)
	assert.Empty(t, toReserve)
}

func TestValidate_ReservaParcial_EsFatal(t *testing.T) {
	v, s := newValidatorHarness()
	cart := simpleCart("cart-1", 3, 100)
	addReservation(s, "v1", 2, "lock-1")

	_, err := v.Validate(context.Background(), &memReservationRepo{s},
		validatorLock(), cart, snapshotFor(cart))
	assert.ErrorIs(t, err, domain.ErrReservationMissing,
		"existe reserva pero no cubre la cantidad")
}

func TestValidate_ReservaVencida_CuentaComoAusente(t *testing.T) {
	v, s := newValidatorHarness()
	cart := simpleCart("cart-1", 2, 100)
	addReservation(s, "v1", 2, "lock-1")
	s.reservations["res-v1"].ExpiresAt = time.Now().Add(-time.Minute)

	toReserve, err := v.Validate(context.Background(), &memReservationRepo{s},
		validatorLock(), cart, snapshotFor(cart))
	require.NoError(t, err, "ausencia total se re-reserva, no aborta")
	assert.Len(t, toReserve, 1)
}

func TestValidate_DerivaDePrecio_SoloAdvierte(t *testing.T) {
	v, s := newValidatorHarness()
	cart := simpleCart("cart-1", 2, 100)
	snap := snapshotFor(cart)
	addReservation(s, "v1", 2, "lock-1")

	// El total vivo subió muy por encima de la tolerancia.
	cart.Total = decimal.NewFromInt(999)

	toReserve, err := v.Validate(context.Background(), &memReservationRepo{s},
		validatorLock(), cart, snap)
	require.NoError(t, err)
	assert.Empty(t, toReserve)
}

func TestValidate_CambioDeCupon_SoloAdvierte(t *testing.T) {
	v, s := newValidatorHarness()
	cart := simpleCart("cart-1", 2, 100)
	snap := snapshotFor(cart)
	addReservation(s, "v1", 2, "lock-1")
	cart.CouponCode = "NUEVO10"

	_, err := v.Validate(context.Background(), &memReservationRepo{s},
		validatorLock(), cart, snap)
	assert.NoError(t, err)
}

func TestValidate_LineaSinInventario_SeOmite(t *testing.T) {
	v, s := newValidatorHarness()
	cart := simpleCart("cart-1", 2, 100)
	cart.Lines = append(cart.Lines, entity.CartLine{
		ID: "line-2", VariantID: "v-digital", Quantity: 1,
		UnitPrice: decimal.NewFromInt(50), TrackInventory: false,
	})
	addReservation(s, "v1", 2, "lock-1")

	toReserve, err := v.Validate(context.Background(), &memReservationRepo{s},
		validatorLock(), cart, snapshotFor(cart))
	require.NoError(t, err)
	assert.Empty(t, toReserve, "las líneas no rastreables nunca se reservan")
}
