package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckoutMetrics contadores e histogramas del motor de checkout.
type CheckoutMetrics struct {
	LocksAcquired         prometheus.Counter
	LockConflicts         prometheus.Counter
	CheckoutsCompleted    prometheus.Counter
	CheckoutsFailed       prometheus.Counter
	LocksReclaimed        prometheus.Counter
	ReservationsReclaimed prometheus.Counter
	ExecuteDuration       prometheus.Histogram
}

// New registra y devuelve las métricas del motor.
func New(namespace string) *CheckoutMetrics {
	m := &CheckoutMetrics{
		LocksAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locks_acquired_total",
			Help:      "Bloqueos de checkout adquiridos.",
		}),
		LockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_conflicts_total",
			Help:      "Intentos de adquirir un carrito bloqueado por otra sesión.",
		}),
		CheckoutsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_completed_total",
			Help:      "Checkouts completados (orden creada).",
		}),
		CheckoutsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_failed_total",
			Help:      "Ejecuciones de checkout fallidas.",
		}),
		LocksReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locks_reclaimed_total",
			Help:      "Bloqueos expirados recuperados por el barrido.",
		}),
		ReservationsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_reclaimed_total",
			Help:      "Reservas expiradas liberadas por el barrido.",
		}),
		ExecuteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execute_duration_ms",
			Help:      "Duración de execute() en milisegundos.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
	prometheus.MustRegister(
		m.LocksAcquired, m.LockConflicts,
		m.CheckoutsCompleted, m.CheckoutsFailed,
		m.LocksReclaimed, m.ReservationsReclaimed,
		m.ExecuteDuration,
	)
	return m
}

// Handler expone el endpoint /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
