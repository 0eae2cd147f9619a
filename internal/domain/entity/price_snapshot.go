package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot captura inmutable de los términos monetarios de la venta al
// instante de adquirir el bloqueo. Se usa solo para comparar deriva: el valor
// congelado es el que manda (política frozen-price).
// CartLineID nil = snapshot a nivel de carrito.
type PriceSnapshot struct {
	ID             string
	CheckoutLockID string
	CartLineID     *string
	Total          decimal.Decimal
	CouponCode     string
	CurrencyCode   string
	CurrencyRate   decimal.Decimal
	CreatedAt      time.Time
}

// IsCartLevel indica si el snapshot cubre el carrito completo.
func (s *PriceSnapshot) IsCartLevel() bool {
	return s.CartLineID == nil
}
