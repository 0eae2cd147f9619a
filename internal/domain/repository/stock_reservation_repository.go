package repository

import (
	"context"
	"time"

	"github.com/jhoicas/checkout-core/internal/domain/entity"
)

// StockReservationRepository define el puerto de persistencia para reservas de stock (DIP).
type StockReservationRepository interface {
	Create(ctx context.Context, res *entity.StockReservation) error
	GetByID(ctx context.Context, id string) (*entity.StockReservation, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.StockReservation, error)
	Update(ctx context.Context, res *entity.StockReservation) error
	// ListActiveByReference devuelve las reservas vivas (no liberadas, no
	// expiradas a la hora dada) del dueño indicado. Con now en cero no se
	// filtra por expiración: devuelve toda reserva sin liberar del dueño.
	ListActiveByReference(ctx context.Context, refType entity.ReferenceType, refID string, now time.Time) ([]*entity.StockReservation, error)
	// ListExpired devuelve reservas sin liberar con expires_at anterior a now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.StockReservation, error)
}
