package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order orden creada por un execute() exitoso. Los montos provienen del
// snapshot congelado, no del total vivo del carrito.
type Order struct {
	ID           string
	CartID       string
	CustomerID   string
	Total        decimal.Decimal
	CurrencyCode string
	CurrencyRate decimal.Decimal
	CouponCode   string
	CreatedAt    time.Time
}

// OrderLine línea de la orden, a precio de snapshot.
type OrderLine struct {
	ID        string
	OrderID   string
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
}
