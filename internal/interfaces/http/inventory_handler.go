package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/checkout-core/internal/application/dto"
	"github.com/jhoicas/checkout-core/internal/application/stock"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

// InventoryHandler consultas de solo lectura del ledger y los niveles (protegido).
type InventoryHandler struct {
	queries *stock.QueryService
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(queries *stock.QueryService) *InventoryHandler {
	return &InventoryHandler{queries: queries}
}

// ListMovements godoc
// @Summary      Consultar el ledger de movimientos de stock
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        variant_id      query  string  false  "Filtrar por variante"
// @Param        warehouse_id    query  string  false  "Filtrar por bodega"
// @Param        reference_type  query  string  false  "checkout|order|preorder|adjustment"
// @Param        reference_id    query  string  false  "ID del dueño de la referencia"
// @Param        from            query  string  false  "RFC3339"
// @Param        to              query  string  false  "RFC3339"
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	filter := stock.MovementFilter{
		VariantID:     c.Query("variant_id"),
		WarehouseID:   c.Query("warehouse_id"),
		ReferenceType: entity.ReferenceType(c.Query("reference_type")),
		ReferenceID:   c.Query("reference_id"),
		Limit:         c.QueryInt("limit", 100),
		Offset:        c.QueryInt("offset", 0),
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido (RFC3339)"})
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido (RFC3339)"})
		}
		filter.To = &t
	}

	movements, err := h.queries.Movements(c.Context(), filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	out := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, dto.MovementResponse{
			ID:             m.ID,
			VariantID:      m.VariantID,
			WarehouseID:    m.WarehouseID,
			Type:           m.Type,
			Quantity:       m.Quantity,
			QuantityBefore: m.QuantityBefore,
			QuantityAfter:  m.QuantityAfter,
			ReservedBefore: m.ReservedBefore,
			ReservedAfter:  m.ReservedAfter,
			ReferenceType:  string(m.ReferenceType),
			ReferenceID:    m.ReferenceID,
			Notes:          m.Notes,
			CreatedAt:      m.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"total": len(out), "movements": out})
}

// ListLevels godoc
// @Summary      Niveles de inventario de una variante por bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        variant_id  path  string  true  "ID de la variante"
// @Success      200  {array}   dto.LevelResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/levels/{variant_id} [get]
func (h *InventoryHandler) ListLevels(c *fiber.Ctx) error {
	levels, err := h.queries.LevelsByVariant(c.Context(), c.Params("variant_id"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	out := make([]dto.LevelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, dto.LevelResponse{
			VariantID:   l.VariantID,
			WarehouseID: l.WarehouseID,
			Quantity:    l.Quantity,
			Reserved:    l.ReservedQuantity,
			Available:   l.AvailableQuantity(),
			Status:      l.Status,
		})
	}
	return c.JSON(out)
}
