package entity

import "github.com/shopspring/decimal"

// Estados de carrito relevantes para elegibilidad de checkout.
const (
	CartStatusActive  = "active"
	CartStatusBlocked = "blocked" // fraude, revisión manual, etc.
)

// CartLine línea de carrito tal como la reporta el oráculo de precios.
type CartLine struct {
	ID             string
	VariantID      string
	Quantity       int
	UnitPrice      decimal.Decimal
	TrackInventory bool // false = servicios/digitales, no reservan stock
}

// Cart vista de solo lectura del carrito que entrega el oráculo de
// carrito/precios. El catálogo y el motor de promociones son colaboradores
// externos; este tipo es su contrato de salida.
type Cart struct {
	ID           string
	CustomerID   string
	Status       string
	CurrencyCode string
	CurrencyRate decimal.Decimal
	CouponCode   string
	Total        decimal.Decimal
	Lines        []CartLine
}

// IsEmpty indica si el carrito no tiene líneas.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// IsCheckoutable elegibilidad básica: no vacío y sin estado bloqueante.
func (c *Cart) IsCheckoutable() bool {
	return !c.IsEmpty() && c.Status != CartStatusBlocked
}
