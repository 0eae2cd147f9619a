package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// El motor de reservas NO usa un error para "sin stock disponible": esa es una
// condición de negocio esperada y se señala devolviendo nil. Los errores de
// esta lista son conflictos, validaciones o fallas de colaboradores.
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrLockConflict        = errors.New("el carrito está bloqueado por otra sesión")
	ErrCartNotCheckoutable = errors.New("el carrito no es elegible para checkout")
	ErrLockExpired         = errors.New("el bloqueo de checkout expiró")
	ErrLockNotResumable    = errors.New("el checkout no puede reanudarse")
	ErrReservationMissing  = errors.New("reserva de stock faltante o insuficiente")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrPaymentDeclined     = errors.New("pago rechazado por la pasarela")
	ErrUnauthorized        = errors.New("no autorizado")
)
