package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lavanflow/ncf-api/internal/application/vouchers"
	"github.com/lavanflow/ncf-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Allocator *vouchers.Allocator
	Logger    *logger.Logger
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	vouchersGroup := protected.Group("/vouchers")
	h := NewVoucherHandler(deps.Allocator, deps.Logger)
	// Rutas fijas antes de /:id.
	vouchersGroup.Get("/summary", h.Summary)
	vouchersGroup.Get("/issuances", h.Issuances)
	vouchersGroup.Post("/burn", RequireRole(RoleAdmin, RoleCashier), h.Burn)
	vouchersGroup.Get("/", h.List)
	vouchersGroup.Get("/:id", h.GetByID)

	admin := RequireRole(RoleAdmin)
	vouchersGroup.Post("/", admin, h.Create)
	vouchersGroup.Patch("/:id", admin, h.Update)
	vouchersGroup.Delete("/:id", admin, h.Delete)
}
