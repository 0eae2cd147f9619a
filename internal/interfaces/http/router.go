package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/checkout-core/internal/application/checkout"
	"github.com/jhoicas/checkout-core/internal/application/stock"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	StateMachine *checkout.StateMachine
	LockManager  *checkout.LockManager
	Queries      *stock.QueryService
	Warehouses   *stock.WarehouseService
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token de sesión)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Checkout (protegido)
	checkoutGroup := protected.Group("/checkout")
	checkoutHandler := NewCheckoutHandler(deps.StateMachine, deps.LockManager)
	checkoutGroup.Post("/start", checkoutHandler.Start)
	checkoutGroup.Post("/execute", checkoutHandler.Execute)
	checkoutGroup.Post("/resume", checkoutHandler.Resume)
	checkoutGroup.Post("/cancel", checkoutHandler.Cancel)
	checkoutGroup.Get("/status/:cart_id", checkoutHandler.Status)

	// Ledger y niveles (protegido, solo lectura)
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Queries)
	invGroup.Get("/movements", inventoryHandler.ListMovements)
	invGroup.Get("/levels/:variant_id", inventoryHandler.ListLevels)

	// Warehouses (protegido)
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.Warehouses)
	warehouses.Post("/", warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
}
