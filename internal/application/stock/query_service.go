package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

// MovementFilter filtro de consulta del ledger. Exactamente uno de VariantID,
// WarehouseID o (ReferenceType, ReferenceID) debe estar presente.
type MovementFilter struct {
	VariantID     string
	WarehouseID   string
	ReferenceType entity.ReferenceType
	ReferenceID   string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// QueryService consultas de solo lectura sobre el ledger de movimientos y
// los niveles de inventario (reconciliación y soporte).
type QueryService struct {
	movements repository.StockMovementRepository
	levels    repository.InventoryLevelRepository
}

// NewQueryService construye el servicio de consulta.
func NewQueryService(movements repository.StockMovementRepository, levels repository.InventoryLevelRepository) *QueryService {
	return &QueryService{movements: movements, levels: levels}
}

// Movements devuelve movimientos del ledger según el filtro.
func (s *QueryService) Movements(ctx context.Context, f MovementFilter) ([]*entity.StockMovement, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	switch {
	case f.VariantID != "":
		return s.movements.ListByVariant(ctx, f.VariantID, f.From, f.To, f.Limit, f.Offset)
	case f.WarehouseID != "":
		return s.movements.ListByWarehouse(ctx, f.WarehouseID, f.From, f.To, f.Limit, f.Offset)
	case f.ReferenceID != "":
		if !f.ReferenceType.Valid() {
			return nil, fmt.Errorf("reference_type desconocido: %w", domain.ErrInvalidInput)
		}
		return s.movements.ListByReference(ctx, f.ReferenceType, f.ReferenceID)
	}
	return nil, fmt.Errorf("filtro vacío: %w", domain.ErrInvalidInput)
}

// LevelsByVariant devuelve los niveles de la variante en todas las bodegas.
func (s *QueryService) LevelsByVariant(ctx context.Context, variantID string) ([]*entity.InventoryLevel, error) {
	if variantID == "" {
		return nil, fmt.Errorf("variant_id requerido: %w", domain.ErrInvalidInput)
	}
	return s.levels.ListByVariant(ctx, variantID)
}
