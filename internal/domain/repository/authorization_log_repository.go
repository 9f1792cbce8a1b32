package repository

import (
	"context"

	"github.com/jhoicas/afip-bridge/internal/domain/entity"
)

// AuthorizationLogRepository auditoría de pedidos de CAE.
type AuthorizationLogRepository interface {
	Create(ctx context.Context, log *entity.AuthorizationLog) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.AuthorizationLog, error)
}
