package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/afip-bridge/internal/application/auth"
	"github.com/jhoicas/afip-bridge/internal/application/billing"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC    *auth.AuthUseCase
	Invoices  *billing.InvoiceService
	Documents *billing.DocumentAuthorizer
	AuditLog  repository.AuthorizationLogRepository
	Tenants   TenantResolver
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (login público)
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Get("/me", AuthMiddleware(deps.JWTSecret), authHandler.Me)
	authGroup.Post("/register", AuthMiddleware(deps.JWTSecret), RequireRole(entity.RoleAdmin), authHandler.Register)

	// Rutas protegidas: token + emisor activo
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireTenant(deps.Tenants))

	afipHandler := NewAFIPHandler(deps.Invoices, deps.AuditLog)
	afip := protected.Group("/afip")
	afip.Get("/ultimo-comprobante", afipHandler.LastNumber)
	afip.Post("/obtener-cae", afipHandler.RequestCAE)
	afip.Get("/cotizacion/:moneda", afipHandler.CurrencyRate)
	afip.Get("/condiciones-iva", afipHandler.VATTypes)
	afip.Get("/condiciones-iva-receptor", afipHandler.ReceiverConditions)
	afip.Get("/tipos-comprobantes", afipHandler.DocumentTypes)
	afip.Get("/estado", afipHandler.Status)
	afip.Get("/autorizaciones", afipHandler.Authorizations)

	docHandler := NewDocumentHandler(deps.Documents)
	docs := protected.Group("/documentos")
	docs.Get("/sin-cae", docHandler.Pending)
	docs.Post("/:tipo/:punto_venta/:numero/cae", docHandler.Authorize)
}
