package checkout_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/checkout-core/internal/application/checkout"
	"github.com/jhoicas/checkout-core/internal/application/dto"
	"github.com/jhoicas/checkout-core/internal/domain"
	"github.com/jhoicas/checkout-core/internal/domain/entity"
	"github.com/jhoicas/checkout-core/internal/domain/repository"
	"github.com/jhoicas/checkout-core/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "test", Level: "error"})
}

// memStore almacén en memoria detrás de todos los repos fake. El runner de
// transacciones toma una copia al comenzar y la restaura si el callback
// falla, emulando el rollback de la BD; el mutex serializa las transacciones
// como lo harían los FOR UPDATE sobre las mismas filas.
type memStore struct {
	mu           sync.Mutex
	locks        map[string]*entity.CheckoutLock
	snapshots    map[string]*entity.PriceSnapshot
	reservations map[string]*entity.StockReservation
	levels       map[string]*entity.InventoryLevel
	movements    []*entity.StockMovement
	orders       map[string]*entity.Order
	orderLines   map[string][]*entity.OrderLine
	warehouses   []*entity.Warehouse
	carts        map[string]*entity.Cart
}

func newMemStore() *memStore {
	return &memStore{
		locks:        make(map[string]*entity.CheckoutLock),
		snapshots:    make(map[string]*entity.PriceSnapshot),
		reservations: make(map[string]*entity.StockReservation),
		levels:       make(map[string]*entity.InventoryLevel),
		orders:       make(map[string]*entity.Order),
		orderLines:   make(map[string][]*entity.OrderLine),
		carts:        make(map[string]*entity.Cart),
	}
}

func levelKey(variantID, warehouseID string) string {
	return variantID + "|" + warehouseID
}

func (s *memStore) addWarehouse(id string, priority int) {
	s.warehouses = append(s.warehouses, &entity.Warehouse{
		ID: id, Name: id, Code: id, Priority: priority, IsActive: true,
	})
}

func (s *memStore) setLevel(variantID, warehouseID string, quantity, reserved int) {
	s.levels[levelKey(variantID, warehouseID)] = &entity.InventoryLevel{
		ID:               levelKey(variantID, warehouseID),
		VariantID:        variantID,
		WarehouseID:      warehouseID,
		Quantity:         quantity,
		ReservedQuantity: reserved,
		Status:           entity.LevelStatusActive,
	}
}

func (s *memStore) setCart(cart *entity.Cart) {
	s.carts[cart.ID] = cart
}

func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	for k, v := range s.locks {
		cp.locks[k] = cloneLock(v)
	}
	for k, v := range s.snapshots {
		cp.snapshots[k] = cloneSnapshot(v)
	}
	for k, v := range s.reservations {
		cp.reservations[k] = cloneReservation(v)
	}
	for k, v := range s.levels {
		lv := *v
		cp.levels[k] = &lv
	}
	cp.movements = append(cp.movements, s.movements...)
	for k, v := range s.orders {
		o := *v
		cp.orders[k] = &o
	}
	for k, v := range s.orderLines {
		cp.orderLines[k] = append([]*entity.OrderLine(nil), v...)
	}
	cp.warehouses = append(cp.warehouses, s.warehouses...)
	for k, v := range s.carts {
		cp.carts[k] = v
	}
	return cp
}

func (s *memStore) restore(from *memStore) {
	s.locks = from.locks
	s.snapshots = from.snapshots
	s.reservations = from.reservations
	s.levels = from.levels
	s.movements = from.movements
	s.orders = from.orders
	s.orderLines = from.orderLines
	s.warehouses = from.warehouses
	s.carts = from.carts
}

func cloneLock(l *entity.CheckoutLock) *entity.CheckoutLock {
	cp := *l
	return &cp
}

func cloneSnapshot(p *entity.PriceSnapshot) *entity.PriceSnapshot {
	cp := *p
	if p.CartLineID != nil {
		id := *p.CartLineID
		cp.CartLineID = &id
	}
	return &cp
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

// memTxRunner implementa checkout.TxRunner y stock.TxRunner sobre el mismo
// almacén.
type memTxRunner struct {
	s *memStore
}

func (t *memTxRunner) RunCheckout(ctx context.Context, fn func(
	lockRepo repository.CheckoutLockRepository,
	snapRepo repository.PriceSnapshotRepository,
	resRepo repository.StockReservationRepository,
	levelRepo repository.InventoryLevelRepository,
	movRepo repository.StockMovementRepository,
	orderRepo repository.OrderRepository,
) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	before := t.s.snapshot()
	err := fn(&memLockRepo{t.s}, &memSnapshotRepo{t.s}, &memReservationRepo{t.s},
		&memLevelRepo{t.s}, &memMovementRepo{t.s}, &memOrderRepo{t.s})
	if err != nil {
		t.s.restore(before)
	}
	return err
}

func (t *memTxRunner) Run(ctx context.Context, fn func(
	levelRepo repository.InventoryLevelRepository,
	resRepo repository.StockReservationRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	before := t.s.snapshot()
	err := fn(&memLevelRepo{t.s}, &memReservationRepo{t.s}, &memMovementRepo{t.s})
	if err != nil {
		t.s.restore(before)
	}
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// Repos fake
// ──────────────────────────────────────────────────────────────────────────────

type memLockRepo struct{ s *memStore }

func (r *memLockRepo) Create(_ context.Context, lock *entity.CheckoutLock) error {
	// Emula el índice único parcial: un solo bloqueo pending/active por carrito.
	for _, l := range r.s.locks {
		if l.CartID == lock.CartID &&
			(l.State == entity.LockStatePending || l.State == entity.LockStateActive) {
			return fmt.Errorf("el carrito %s ya tiene un bloqueo activo: %w", lock.CartID, domain.ErrLockConflict)
		}
	}
	r.s.locks[lock.ID] = cloneLock(lock)
	return nil
}

func (r *memLockRepo) GetByID(_ context.Context, id string) (*entity.CheckoutLock, error) {
	if l, ok := r.s.locks[id]; ok {
		return cloneLock(l), nil
	}
	return nil, nil
}

func (r *memLockRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.CheckoutLock, error) {
	return r.GetByID(ctx, id)
}

func (r *memLockRepo) GetActiveByCart(_ context.Context, cartID string) (*entity.CheckoutLock, error) {
	for _, l := range r.s.locks {
		if l.CartID == cartID &&
			(l.State == entity.LockStatePending || l.State == entity.LockStateActive) {
			return cloneLock(l), nil
		}
	}
	return nil, nil
}

func (r *memLockRepo) GetActiveByCartForUpdate(ctx context.Context, cartID string) (*entity.CheckoutLock, error) {
	return r.GetActiveByCart(ctx, cartID)
}

func (r *memLockRepo) GetLatestByCart(_ context.Context, cartID string) (*entity.CheckoutLock, error) {
	var latest *entity.CheckoutLock
	for _, l := range r.s.locks {
		if l.CartID != cartID {
			continue
		}
		if latest == nil || l.CreatedAt.After(latest.CreatedAt) {
			latest = l
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneLock(latest), nil
}

func (r *memLockRepo) Update(_ context.Context, lock *entity.CheckoutLock) error {
	r.s.locks[lock.ID] = cloneLock(lock)
	return nil
}

func (r *memLockRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*entity.CheckoutLock, error) {
	var out []*entity.CheckoutLock
	for _, l := range r.s.locks {
		if (l.State == entity.LockStatePending || l.State == entity.LockStateActive) && l.IsExpired(now) {
			out = append(out, cloneLock(l))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memSnapshotRepo struct{ s *memStore }

func (r *memSnapshotRepo) Create(_ context.Context, snap *entity.PriceSnapshot) error {
	r.s.snapshots[snap.ID] = cloneSnapshot(snap)
	return nil
}

func (r *memSnapshotRepo) ListByLock(_ context.Context, lockID string) ([]*entity.PriceSnapshot, error) {
	var out []*entity.PriceSnapshot
	for _, snap := range r.s.snapshots {
		if snap.CheckoutLockID == lockID {
			out = append(out, cloneSnapshot(snap))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memSnapshotRepo) GetCartLevelByLock(_ context.Context, lockID string) (*entity.PriceSnapshot, error) {
	for _, snap := range r.s.snapshots {
		if snap.CheckoutLockID == lockID && snap.CartLineID == nil {
			return cloneSnapshot(snap), nil
		}
	}
	return nil, nil
}

type memReservationRepo struct{ s *memStore }

func (r *memReservationRepo) Create(_ context.Context, res *entity.StockReservation) error {
	r.s.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *memReservationRepo) GetByID(_ context.Context, id string) (*entity.StockReservation, error) {
	if res, ok := r.s.reservations[id]; ok {
		return cloneReservation(res), nil
	}
	return nil, nil
}

func (r *memReservationRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.StockReservation, error) {
	return r.GetByID(ctx, id)
}

func (r *memReservationRepo) Update(_ context.Context, res *entity.StockReservation) error {
	r.s.reservations[res.ID] = cloneReservation(res)
	return nil
}

func (r *memReservationRepo) ListActiveByReference(_ context.Context, refType entity.ReferenceType, refID string, now time.Time) ([]*entity.StockReservation, error) {
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

func (r *memReservationRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*entity.StockReservation, error) {
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

type memLevelRepo struct{ s *memStore }

func (r *memLevelRepo) Get(_ context.Context, variantID, warehouseID string) (*entity.InventoryLevel, error) {
	if l, ok := r.s.levels[levelKey(variantID, warehouseID)]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *memLevelRepo) GetForUpdate(_ context.Context, variantID, warehouseID string) (*entity.InventoryLevel, error) {
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

func (r *memLevelRepo) Upsert(_ context.Context, level *entity.InventoryLevel) error {
	cp := *level
	r.s.levels[levelKey(level.VariantID, level.WarehouseID)] = &cp
	return nil
}

func (r *memLevelRepo) ListByVariant(_ context.Context, variantID string) ([]*entity.InventoryLevel, error) {
	var out []*entity.InventoryLevel
	for _, l := range r.s.levels {
		if l.VariantID == variantID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memMovementRepo struct{ s *memStore }

func (r *memMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	cp := *m
	r.s.movements = append(r.s.movements, &cp)
	return nil
}

func (r *memMovementRepo) ListByVariant(_ context.Context, variantID string, _, _ *time.Time, _, _ int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.VariantID == variantID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMovementRepo) ListByWarehouse(_ context.Context, warehouseID string, _, _ *time.Time, _, _ int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.WarehouseID == warehouseID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memMovementRepo) ListByReference(_ context.Context, refType entity.ReferenceType, refID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) Create(_ context.Context, order *entity.Order, lines []*entity.OrderLine) error {
	for _, o := range r.s.orders {
		if o.CartID == order.CartID {
			return fmt.Errorf("ya existe una orden para el carrito %s: %w", order.CartID, domain.ErrConflict)
		}
	}
	o := *order
	r.s.orders[order.ID] = &o
	r.s.orderLines[order.ID] = append([]*entity.OrderLine(nil), lines...)
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	if o, ok := r.s.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (r *memOrderRepo) GetByCart(_ context.Context, cartID string) (*entity.Order, error) {
	for _, o := range r.s.orders {
		if o.CartID == cartID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

type memWarehouseRepo struct{ s *memStore }

func (r *memWarehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	r.s.warehouses = append(r.s.warehouses, w)
	return nil
}

func (r *memWarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	for _, w := range r.s.warehouses {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, nil
}

func (r *memWarehouseRepo) ListActiveByPriority(_ context.Context) ([]*entity.Warehouse, error) {
	var out []*entity.Warehouse
	for _, w := range r.s.warehouses {
		if w.IsActive {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Colaboradores fake
// ──────────────────────────────────────────────────────────────────────────────

type cartOracleFake struct{ s *memStore }

func (o *cartOracleFake) GetCart(_ context.Context, cartID string) (*entity.Cart, error) {
	cart, ok := o.s.carts[cartID]
	if !ok {
		return nil, nil
	}
	cp := *cart
	cp.Lines = append([]entity.CartLine(nil), cart.Lines...)
	return &cp, nil
}

// paymentFake pasarela configurable: declina, falla con error arbitrario o
// aprueba, contando las llamadas.
type paymentFake struct {
	declined bool
	err      error
	calls    int
	lastAmt  decimal.Decimal
}

func (p *paymentFake) Accept(_ context.Context, _ dto.PaymentData, amount decimal.Decimal, _ string) (string, error) {
	p.calls++
	p.lastAmt = amount
	if p.err != nil {
		return "", p.err
	}
	if p.declined {
		return "", domain.ErrPaymentDeclined
	}
	return "txn-ok", nil
}

// statusCacheFake cache en memoria con conteo de invalidaciones.
type statusCacheFake struct {
	mu            sync.Mutex
	entries       map[string]*dto.CheckoutStatus
	invalidations int
}

func newStatusCacheFake() *statusCacheFake {
	return &statusCacheFake{entries: make(map[string]*dto.CheckoutStatus)}
}

func (c *statusCacheFake) Get(_ context.Context, cartID string) (*dto.CheckoutStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.entries[cartID]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, nil
}

func (c *statusCacheFake) Set(_ context.Context, cartID string, status *dto.CheckoutStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *status
	c.entries[cartID] = &cp
	return nil
}

func (c *statusCacheFake) Invalidate(_ context.Context, cartID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cartID)
	c.invalidations++
	return nil
}

// eventsFake registra los eventos publicados.
type eventsFake struct {
	mu     sync.Mutex
	events []checkout.Event
}

func (e *eventsFake) Publish(_ context.Context, event checkout.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *eventsFake) byType(eventType string) []checkout.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []checkout.Event
	for _, ev := range e.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
