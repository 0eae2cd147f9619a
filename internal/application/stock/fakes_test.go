package stock_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
	"github.com/jhoicas/checkout-core/pkg/logger"
)

// testLogger logger silencioso para los tests.
func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "test", Level: "error"})
}

// stockStore almacén en memoria compartido por los repos fake. La transacción
// fake toma una copia al comenzar y la restaura si el callback falla, para
// emular el rollback de la BD.
type stockStore struct {
	mu           sync.Mutex
	levels       map[string]*entity.InventoryLevel
	reservations map[string]*entity.StockReservation
	movements    []*entity.StockMovement
	warehouses   []*entity.Warehouse
}

func newStockStore() *stockStore {
	return &stockStore{
		levels:       make(map[string]*entity.InventoryLevel),
		reservations: make(map[string]*entity.StockReservation),
	}
}

func levelKey(variantID, warehouseID string) string {
	return variantID + "|" + warehouseID
}

func (s *stockStore) addWarehouse(id string, priority int, active bool) {
	s.warehouses = append(s.warehouses, &entity.Warehouse{
		ID: id, Name: id, Code: id, Priority: priority, IsActive: active,
	})
}

func (s *stockStore) setLevel(variantID, warehouseID string, quantity, reserved int) {
	s.levels[levelKey(variantID, warehouseID)] = &entity.InventoryLevel{
		ID:               levelKey(variantID, warehouseID),
		VariantID:        variantID,
		WarehouseID:      warehouseID,
		Quantity:         quantity,
		ReservedQuantity: reserved,
		Status:           entity.LevelStatusActive,
	}
}

func (s *stockStore) snapshot() *stockStore {
	cp := newStockStore()
	for k, v := range s.levels {
		lv := *v
		cp.levels[k] = &lv
	}
	for k, v := range s.reservations {
		cp.reservations[k] = cloneReservation(v)
	}
	cp.movements = append(cp.movements, s.movements...)
	cp.warehouses = append(cp.warehouses, s.warehouses...)
	return cp
}

func (s *stockStore) restore(from *stockStore) {
	s.levels = from.levels
	s.reservations = from.reservations
	s.movements = from.movements
	s.warehouses = from.warehouses
}

func cloneReservation(r *entity.StockReservation) *entity.StockReservation {
	cp := *r
	if r.WarehouseID != nil {
		wh := *r.WarehouseID
		cp.WarehouseID = &wh
	}
	if r.ReleasedAt != nil {
		at := *r.ReleasedAt
		cp.ReleasedAt = &at
	}
	return &cp
}

// fakeTxRunner serializa las transacciones con un mutex (como lo haría
// FOR UPDATE sobre las mismas filas) y revierte el almacén en caso de error.
type fakeTxRunner struct {
	s *stockStore
}

func (t *fakeTxRunner) Run(ctx context.Context, fn func(
	levelRepo repository.InventoryLevelRepository,
	resRepo repository.StockReservationRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	before := t.s.snapshot()
	err := fn(&fakeLevelRepo{t.s}, &fakeReservationRepo{t.s}, &fakeMovementRepo{t.s})
	if err != nil {
		t.s.restore(before)
	}
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// Repos fake: devuelven copias (como un scan de fila) y persisten copias
// ──────────────────────────────────────────────────────────────────────────────

type fakeLevelRepo struct{ s *stockStore }

func (r *fakeLevelRepo) Get(_ context.Context, variantID, warehouseID string) (*entity.InventoryLevel, error) {
	if l, ok := r.s.levels[levelKey(variantID, warehouseID)]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeLevelRepo) GetForUpdate(_ context.Context, variantID, warehouseID string) (*entity.InventoryLevel, error) {
	if l, ok := r.s.levels[levelKey(variantID, warehouseID)]; ok {
		cp := *l
		return &cp, nil
	}
	return &entity.InventoryLevel{
		ID:          levelKey(variantID, warehouseID),
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Status:      entity.LevelStatusActive,
	}, nil
}

func (r *fakeLevelRepo) Upsert(_ context.Context, level *entity.InventoryLevel) error {
	cp := *level
	r.s.levels[levelKey(level.VariantID, level.WarehouseID)] = &cp
	return nil
}

func (r *fakeLevelRepo) ListByVariant(_ context.Context, variantID string) ([]*entity.InventoryLevel, error) {
	var out []*entity.InventoryLevel
	for _, l := range r.s.levels {
		if l.VariantID == variantID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WarehouseID < out[j].WarehouseID })
	return out, nil
}

type fakeReservationRepo struct{ s *stockStore }

func (r *fakeReservationRepo) Create(_ context.Context, res *entity.StockReservation) error {
	r.s.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *fakeReservationRepo) GetByID(_ context.Context, id string) (*entity.StockReservation, error) {
	if res, ok := r.s.reservations[id]; ok {
		return cloneReservation(res), nil
	}
	return nil, nil
}

func (r *fakeReservationRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockReservation, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeReservationRepo) Update(_ context.Context, res *entity.StockReservation) error {
	r.s.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *fakeReservationRepo) ListActiveByReference(_ context.Context, refType entity.ReferenceType, refID string, now time.Time) ([]*entity.StockReservation, error) {
	var out []*entity.StockReservation
	for _, res := range r.s.reservations {
		if res.ReferenceType != refType || res.ReferenceID != refID || res.IsReleased {
			continue
		}
		if !now.IsZero() && res.IsExpired(now) {
			continue
		}
		out = append(out, cloneReservation(res))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeReservationRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*entity.StockReservation, error) {
	var out []*entity.StockReservation
	for _, res := range r.s.reservations {
		if !res.IsReleased && res.IsExpired(now) {
			out = append(out, cloneReservation(res))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeMovementRepo struct{ s *stockStore }

func (r *fakeMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	cp := *m
	r.s.movements = append(r.s.movements, &cp)
	return nil
}

func (r *fakeMovementRepo) ListByVariant(_ context.Context, variantID string, _, _ *time.Time, _, _ int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.VariantID == variantID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) ListByWarehouse(_ context.Context, warehouseID string, _, _ *time.Time, _, _ int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.WarehouseID == warehouseID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) ListByReference(_ context.Context, refType entity.ReferenceType, refID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeWarehouseRepo struct{ s *stockStore }

func (r *fakeWarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	r.s.warehouses = append(r.s.warehouses, w)
	return nil
}

func (r *fakeWarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	for _, w := range r.s.warehouses {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, nil
}

func (r *fakeWarehouseRepo) ListActiveByPriority(_ context.Context) ([]*entity.Warehouse, error) {
	var out []*entity.Warehouse
	for _, w := range r.s.warehouses {
		if w.IsActive {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}
