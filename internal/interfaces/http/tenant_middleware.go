package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
)

const localTenant = "tenant"

// TenantResolver es el contrato mínimo que necesita el middleware; lo implementa *tenant.Resolver.
type TenantResolver interface {
	Resolve(ctx context.Context, id string) (*entity.Tenant, error)
}

// RequireTenant carga el tenant del token y lo deja en c.Locals. Va después de AuthMiddleware.
//
//   - 401 si el token no trae tenant_id.
//   - 403 si el tenant no existe o está suspendido.
//   - 503 si falla el registro de tenants.
func RequireTenant(resolver TenantResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := GetTenantID(c)
		if tenantID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "tenant_id no encontrado en el token",
			})
		}
		t, err := resolver.Resolve(c.UserContext(), tenantID)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "TENANT_DISABLED",
				Message: "el emisor no existe o está suspendido",
			})
		case errors.Is(err, domain.ErrValidation):
			return writeError(c, err)
		default:
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "TENANT_LOOKUP_FAILED",
				Message: "no se pudo cargar el emisor, intente más tarde",
			})
		}
		c.Locals(localTenant, t)
		return c.Next()
	}
}

// GetTenant devuelve el tenant cargado por RequireTenant.
func GetTenant(c *fiber.Ctx) *entity.Tenant {
	t, _ := c.Locals(localTenant).(*entity.Tenant)
	return t
}
