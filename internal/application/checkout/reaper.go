package checkout

import (
	"context"
	"time"

	"github.com/jhoicas/checkout-core/internal/application/stock"
	"github.com/jhoicas/checkout-core/pkg/logger"
	"github.com/jhoicas/checkout-core/pkg/metrics"
)

// Reaper proceso de fondo que recupera bloqueos y reservas vencidos en un
// intervalo fijo. Una sesión desaparecida retiene recursos a lo sumo hasta el
// próximo barrido después del TTL.
type Reaper struct {
	locks    *LockManager
	engine   *stock.ReservationEngine
	interval time.Duration
	metrics  *metrics.CheckoutMetrics
	log      *logger.Logger
}

// NewReaper construye el reaper. metrics puede ser nil.
func NewReaper(locks *LockManager, engine *stock.ReservationEngine, interval time.Duration, m *metrics.CheckoutMetrics, log *logger.Logger) *Reaper {
	return &Reaper{
		locks:    locks,
		engine:   engine,
		interval: interval,
		metrics:  m,
		log:      log.Component("reaper"),
	}
}

// Run ejecuta el barrido en loop hasta que el contexto se cancele.
// Pensado para correr en su propia goroutine desde main.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("reaper iniciado")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reaper detenido")
			return
		case <-ticker.C:
			r.SweepOnce(ctx)
		}
	}
}

// SweepOnce corre un barrido: primero los bloqueos vencidos (liberar un
// bloqueo devuelve sus reservas), luego las reservas huérfanas vencidas.
func (r *Reaper) SweepOnce(ctx context.Context) {
	locksReclaimed, err := r.locks.SweepExpired(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("barrido de bloqueos vencidos")
	}

	reservationsReleased, err := r.engine.ReleaseExpired(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("barrido de reservas vencidas")
	}
	if r.metrics != nil && reservationsReleased > 0 {
		r.metrics.ReservationsReclaimed.Add(float64(reservationsReleased))
	}

	if locksReclaimed > 0 || reservationsReleased > 0 {
		r.log.Info().
			Int("locks", locksReclaimed).
			Int("reservations", reservationsReleased).
			Msg("barrido completado")
	}
}
