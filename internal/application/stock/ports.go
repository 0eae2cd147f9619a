package stock

import (
	"context"

	"github.com/jhoicas/checkout-core/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza que cada mutación de un nivel de
// inventario y su entrada de ledger se escriban atómicamente.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		levelRepo repository.InventoryLevelRepository,
		resRepo repository.StockReservationRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}
