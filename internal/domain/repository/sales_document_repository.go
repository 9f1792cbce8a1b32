package repository

import (
	"context"
	"time"

	"github.com/jhoicas/afip-bridge/internal/domain/entity"
)

// SalesDocumentRepository acceso a los comprobantes de venta del ERP de un tenant.
type SalesDocumentRepository interface {
	// ListPending comprobantes no anulados y sin CAE, más recientes primero.
	ListPending(ctx context.Context, tenant *entity.Tenant, filter entity.SalesDocumentFilter) ([]*entity.SalesDocument, error)
	Get(ctx context.Context, tenant *entity.Tenant, key entity.SalesDocumentKey) (*entity.SalesDocument, error)
	SaveCAE(ctx context.Context, tenant *entity.Tenant, key entity.SalesDocumentKey, cae string, expiry time.Time) error
}
