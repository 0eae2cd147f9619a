package checkout

import "time"

// Tipos de evento del ciclo de vida del checkout.
const (
	EventCompleted = "checkout.completed"
	EventFailed    = "checkout.failed"
	EventExpired   = "checkout.expired"
)

// Event evento de ciclo de vida publicado al completar, fallar o expirar un checkout.
type Event struct {
	Type       string    `json:"type"`
	LockID     string    `json:"lock_id"`
	CartID     string    `json:"cart_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
