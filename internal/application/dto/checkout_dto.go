package dto

import "time"

// StartCheckoutRequest inicia el checkout de un carrito.
type StartCheckoutRequest struct {
	CartID string `json:"cart_id"`
}

// PaymentData datos opacos para la pasarela de pago. Este servicio no los
// interpreta; solo los reenvía en la llamada accept().
type PaymentData struct {
	Method string `json:"method"`
	Token  string `json:"token"`
}

// ExecuteCheckoutRequest ejecuta (o reanuda) el checkout bajo un bloqueo.
type ExecuteCheckoutRequest struct {
	LockID  string      `json:"lock_id"`
	Payment PaymentData `json:"payment"`
}

// CancelCheckoutRequest cancela el checkout bajo un bloqueo.
type CancelCheckoutRequest struct {
	LockID string `json:"lock_id"`
}

// LockResponse respuesta de start: el bloqueo adquirido.
type LockResponse struct {
	LockID    string    `json:"lock_id"`
	CartID    string    `json:"cart_id"`
	State     string    `json:"state"`
	Phase     string    `json:"phase"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OrderResponse respuesta de execute/resume exitoso.
type OrderResponse struct {
	OrderID      string `json:"order_id"`
	CartID       string `json:"cart_id"`
	Total        string `json:"total"`
	CurrencyCode string `json:"currency_code"`
}

// CheckoutStatus vista cacheada (staleness acotada) del estado de checkout de un carrito.
type CheckoutStatus struct {
	Locked      bool       `json:"locked"`
	CanCheckout bool       `json:"can_checkout"`
	Phase       string     `json:"phase,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CanResume   bool       `json:"can_resume"`
}

// ErrorResponse error estándar de la API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
