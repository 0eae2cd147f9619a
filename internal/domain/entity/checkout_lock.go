package entity

import "time"

// LockState estado del ciclo de vida de un bloqueo de checkout.
// pending -> active -> {completed | failed}; failed es alcanzable desde
// cualquier estado no terminal. De completed no hay salida; de failed solo
// se puede volver a active vía resume() mientras las reservas sigan vivas.
type LockState string

const (
	LockStatePending   LockState = "pending"
	LockStateActive    LockState = "active"
	LockStateCompleted LockState = "completed"
	LockStateFailed    LockState = "failed"
)

// IsTerminal indica si el estado no admite más transiciones de checkout.
func (s LockState) IsTerminal() bool {
	return s == LockStateCompleted || s == LockStateFailed
}

// String representación para logging.
func (s LockState) String() string { return string(s) }

// CheckoutPhase fase del checkout dentro de un bloqueo. Monótona por bloqueo:
// locked -> priced -> stock_reserved -> paid -> completed; failed desde cualquiera.
type CheckoutPhase string

const (
	PhaseLocked        CheckoutPhase = "locked"
	PhasePriced        CheckoutPhase = "priced"
	PhaseStockReserved CheckoutPhase = "stock_reserved"
	PhasePaid          CheckoutPhase = "paid"
	PhaseCompleted     CheckoutPhase = "completed"
	PhaseFailed        CheckoutPhase = "failed"
)

var phaseOrder = map[CheckoutPhase]int{
	PhaseLocked:        0,
	PhasePriced:        1,
	PhaseStockReserved: 2,
	PhasePaid:          3,
	PhaseCompleted:     4,
}

// CanAdvanceTo valida que la transición de fase sea monótona hacia adelante.
// failed es válida desde cualquier fase no terminal.
func (p CheckoutPhase) CanAdvanceTo(next CheckoutPhase) bool {
	if p == PhaseCompleted || p == PhaseFailed {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	cur, ok := phaseOrder[p]
	if !ok {
		return false
	}
	nxt, ok := phaseOrder[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// String representación para logging.
func (p CheckoutPhase) String() string { return string(p) }

// CheckoutLock reclamo exclusivo, acotado por TTL, de una sesión sobre el
// derecho de un carrito a completar checkout. A lo sumo un bloqueo activo por
// carrito en todo instante (índice único parcial en la tabla + FOR UPDATE).
type CheckoutLock struct {
	ID            string
	CartID        string
	SessionID     string
	State         LockState
	Phase         CheckoutPhase
	FailureReason string
	// Released indica que las reservas del bloqueo ya fueron devueltas
	// (cancel, barrido o validación fatal). Un bloqueo failed y released es
	// irrecuperable: resume() ya no puede confiar en reservas previas.
	Released  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired indica si el bloqueo pasó su expires_at.
func (l *CheckoutLock) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// OwnedBy indica si la sesión dada es la dueña del bloqueo.
func (l *CheckoutLock) OwnedBy(sessionID string) bool {
	return sessionID != "" && l.SessionID == sessionID
}

// CanResume indica si el checkout puede reanudarse: no completado, no
// expirado y con sus reservas todavía sin liberar.
func (l *CheckoutLock) CanResume(now time.Time) bool {
	return l.State != LockStateCompleted && !l.Released && !l.IsExpired(now)
}
