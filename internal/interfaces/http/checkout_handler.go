package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/checkout-core/internal/application/checkout"
	"github.com/jhoicas/checkout-core/internal/application/dto"
	"github.com/jhoicas/checkout-core/internal/domain"
)

// CheckoutHandler maneja las peticiones HTTP del ciclo de vida del checkout (protegido).
type CheckoutHandler struct {
	sm    *checkout.StateMachine
	locks *checkout.LockManager
}

// NewCheckoutHandler construye el handler.
func NewCheckoutHandler(sm *checkout.StateMachine, locks *checkout.LockManager) *CheckoutHandler {
	return &CheckoutHandler{sm: sm, locks: locks}
}

// Start godoc
// @Summary      Iniciar checkout (adquirir bloqueo y congelar precios)
// @Tags         checkout
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StartCheckoutRequest  true  "cart_id"
// @Success      201   {object}  dto.LockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/checkout/start [post]
func (h *CheckoutHandler) Start(c *fiber.Ctx) error {
	sessionID := GetSessionID(c)
	if sessionID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.StartCheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.CartID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "cart_id requerido"})
	}
	lock, err := h.sm.Start(c.Context(), in.CartID, sessionID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.LockResponse{
		LockID:    lock.ID,
		CartID:    lock.CartID,
		State:     string(lock.State),
		Phase:     string(lock.Phase),
		ExpiresAt: lock.ExpiresAt,
	})
}

// Execute godoc
// @Summary      Ejecutar checkout (validar, reservar stock, cobrar, crear orden)
// @Tags         checkout
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ExecuteCheckoutRequest  true  "lock_id, payment"
// @Success      200   {object}  dto.OrderResponse
// @Failure      402   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/checkout/execute [post]
func (h *CheckoutHandler) Execute(c *fiber.Ctx) error {
	return h.runCheckout(c, false)
}

// Resume godoc
// @Summary      Reanudar un checkout fallido recuperable
// @Tags         checkout
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ExecuteCheckoutRequest  true  "lock_id, payment"
// @Success      200   {object}  dto.OrderResponse
// @Failure      402   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/checkout/resume [post]
func (h *CheckoutHandler) Resume(c *fiber.Ctx) error {
	return h.runCheckout(c, true)
}

func (h *CheckoutHandler) runCheckout(c *fiber.Ctx, resume bool) error {
	sessionID := GetSessionID(c)
	if sessionID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ExecuteCheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.LockID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "lock_id requerido"})
	}

	run := h.sm.Execute
	if resume {
		run = h.sm.Resume
	}
	order, err := run(c.Context(), in.LockID, sessionID, in.Payment)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(dto.OrderResponse{
		OrderID:      order.ID,
		CartID:       order.CartID,
		Total:        order.Total.StringFixed(2),
		CurrencyCode: order.CurrencyCode,
	})
}

// Cancel godoc
// @Summary      Cancelar el checkout y liberar bloqueo y reservas
// @Tags         checkout
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CancelCheckoutRequest  true  "lock_id"
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/checkout/cancel [post]
func (h *CheckoutHandler) Cancel(c *fiber.Ctx) error {
	sessionID := GetSessionID(c)
	if sessionID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CancelCheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.LockID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "lock_id requerido"})
	}
	if err := h.sm.Cancel(c.Context(), in.LockID, sessionID); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(fiber.Map{"message": "checkout cancelado"})
}

// Status godoc
// @Summary      Estado de checkout de un carrito (vista cacheada)
// @Tags         checkout
// @Security     Bearer
// @Produce      json
// @Param        cart_id  path  string  true  "ID del carrito"
// @Success      200  {object}  dto.CheckoutStatus
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/checkout/status/{cart_id} [get]
func (h *CheckoutHandler) Status(c *fiber.Ctx) error {
	cartID := c.Params("cart_id")
	if cartID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "cart_id requerido"})
	}
	status, err := h.locks.GetStatus(c.Context(), cartID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(status)
}

// mapError traduce los errores de dominio a códigos HTTP.
func (h *CheckoutHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: err.Error()})
	case errors.Is(err, domain.ErrCartNotCheckoutable):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CART_NOT_CHECKOUTABLE", Message: err.Error()})
	case errors.Is(err, domain.ErrLockConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "LOCK_CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrLockExpired):
		return c.Status(fiber.StatusGone).JSON(dto.ErrorResponse{Code: "LOCK_EXPIRED", Message: err.Error()})
	case errors.Is(err, domain.ErrLockNotResumable):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_RESUMABLE", Message: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error()})
	case errors.Is(err, domain.ErrReservationMissing):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "RESERVATION_MISSING", Message: err.Error()})
	case errors.Is(err, domain.ErrPaymentDeclined):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Code: "PAYMENT_DECLINED", Message: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
