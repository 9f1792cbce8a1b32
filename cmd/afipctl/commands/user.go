package commands

import (
	"context"
	"fmt"

	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

// UserRegistrar alta de usuarios (AuthUseCase).
type UserRegistrar interface {
	RegisterUser(ctx context.Context, tenantID string, in dto.RegisterRequest) (*dto.UserResponse, error)
}

// TenantBootstrapper registra un emisor si su CUIT no existe.
type TenantBootstrapper interface {
	Bootstrap(ctx context.Context, t *entity.Tenant) (*entity.Tenant, error)
}

// RunBootstrapTenant registra el emisor configurado y devuelve su ID.
func RunBootstrapTenant(ctx context.Context, b TenantBootstrapper, t *entity.Tenant, out IOTuple) (string, error) {
	if t == nil {
		return "", fmt.Errorf("AFIP_CUIT no configurado")
	}
	registered, err := b.Bootstrap(ctx, t)
	if err != nil {
		return "", fmt.Errorf("registrar tenant: %w", err)
	}
	return registered.ID, writeJSON(out.Writer, map[string]string{
		"id":   registered.ID,
		"cuit": registered.CUIT,
		"name": registered.Name,
		"mode": registered.Mode,
	})
}

// RunCreateUser crea un usuario del tenant. El primer usuario de cada tenant se crea así.
func RunCreateUser(ctx context.Context, users UserRegistrar, log *logger.Logger, tenantID string, in dto.RegisterRequest, out IOTuple) error {
	if tenantID == "" {
		return fmt.Errorf("tenant requerido")
	}
	if in.Email == "" || len(in.Password) < 8 {
		return fmt.Errorf("email y contraseña (mínimo 8 caracteres) son requeridos")
	}
	user, err := users.RegisterUser(ctx, tenantID, in)
	if err != nil {
		return fmt.Errorf("crear usuario: %w", err)
	}
	log.Info().Str("user_id", user.ID).Str("tenant", tenantID).Str("role", user.Role).Msg("usuario creado")
	return writeJSON(out.Writer, user)
}
