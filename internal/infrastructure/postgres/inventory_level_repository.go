package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

var _ repository.InventoryLevelRepository = (*InventoryLevelRepo)(nil)

const levelColumns = `id, variant_id, warehouse_id, quantity, reserved_quantity, status, updated_at`

// InventoryLevelRepo implementación de InventoryLevelRepository sobre
// PostgreSQL (usable con pool o tx).
type InventoryLevelRepo struct {
	q Querier
}

// NewInventoryLevelRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryLevelRepository(q Querier) *InventoryLevelRepo {
	return &InventoryLevelRepo{q: q}
}

// Get devuelve el nivel de la variante en la bodega, o nil si no existe.
func (r *InventoryLevelRepo) Get(ctx context.Context, variantID, warehouseID string) (*entity.InventoryLevel, error) {
	query := `SELECT ` + levelColumns + ` FROM inventory_levels WHERE variant_id = $1 AND warehouse_id = $2`
	level, err := scanLevel(r.q.QueryRow(ctx, query, variantID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory level: %w", err)
	}
	return level, nil
}

// GetForUpdate como Get pero bloqueando la fila (FOR UPDATE). Si la fila no
// existe devuelve un nivel en cero listo para materializar con Upsert.
func (r *InventoryLevelRepo) GetForUpdate(ctx context.Context, variantID, warehouseID string) (*entity.InventoryLevel, error) {
	query := `SELECT ` + levelColumns + ` FROM inventory_levels WHERE variant_id = $1 AND warehouse_id = $2 FOR UPDATE`
	level, err := scanLevel(r.q.QueryRow(ctx, query, variantID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.InventoryLevel{
				ID:          uuid.NewString(),
				VariantID:   variantID,
				WarehouseID: warehouseID,
				Status:      entity.LevelStatusActive,
			}, nil
		}
		return nil, fmt.Errorf("get inventory level for update: %w", err)
	}
	return level, nil
}

// Upsert inserta o actualiza el nivel (clave natural variant_id+warehouse_id).
func (r *InventoryLevelRepo) Upsert(ctx context.Context, level *entity.InventoryLevel) error {
	query := `
		INSERT INTO inventory_levels (id, variant_id, warehouse_id, quantity, reserved_quantity, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (variant_id, warehouse_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    reserved_quantity = EXCLUDED.reserved_quantity,
		    status = EXCLUDED.status,
		    updated_at = NOW()`
	_, err := r.q.Exec(ctx, query,
		level.ID, level.VariantID, level.WarehouseID,
		level.Quantity, level.ReservedQuantity, level.Status,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory level: %w", err)
	}
	return nil
}

// ListByVariant devuelve los niveles de la variante en todas las bodegas.
func (r *InventoryLevelRepo) ListByVariant(ctx context.Context, variantID string) ([]*entity.InventoryLevel, error) {
	query := `SELECT ` + levelColumns + ` FROM inventory_levels WHERE variant_id = $1 ORDER BY warehouse_id`
	rows, err := r.q.Query(ctx, query, variantID)
	if err != nil {
		return nil, fmt.Errorf("list inventory levels: %w", err)
	}
	defer rows.Close()

	var levels []*entity.InventoryLevel
	for rows.Next() {
		level, err := scanLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory level: %w", err)
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

func scanLevel(row rowScanner) (*entity.InventoryLevel, error) {
	var l entity.InventoryLevel
	err := row.Scan(
		&l.ID, &l.VariantID, &l.WarehouseID,
		&l.Quantity, &l.ReservedQuantity, &l.Status, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
