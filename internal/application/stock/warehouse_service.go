package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

// WarehouseService administración de bodegas. La prioridad define el orden
// de la selección first-fit al reservar.
type WarehouseService struct {
	warehouses repository.WarehouseRepository
}

// NewWarehouseService construye el servicio.
func NewWarehouseService(warehouses repository.WarehouseRepository) *WarehouseService {
	return &WarehouseService{warehouses: warehouses}
}

// Create registra una bodega nueva.
func (s *WarehouseService) Create(ctx context.Context, name, code string, priority int) (*entity.Warehouse, error) {
	if name == "" || code == "" {
		return nil, fmt.Errorf("name y code requeridos: %w", domain.ErrInvalidInput)
	}
	now := time.Now()
	w := &entity.Warehouse{
		ID:        uuid.NewString(),
		Name:      name,
		Code:      code,
		Priority:  priority,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.warehouses.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// GetByID devuelve la bodega o ErrNotFound.
func (s *WarehouseService) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	w, err := s.warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("bodega %s: %w", id, domain.ErrNotFound)
	}
	return w, nil
}

// ListActive devuelve las bodegas activas en orden de prioridad.
func (s *WarehouseService) ListActive(ctx context.Context) ([]*entity.Warehouse, error) {
	return s.warehouses.ListActiveByPriority(ctx)
}
