package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
)

var _ repository.AuthorizationLogRepository = (*AuthorizationLogRepo)(nil)

// AuthorizationLogRepo auditoría de pedidos de CAE (tabla authorization_logs).
type AuthorizationLogRepo struct {
	pool *pgxpool.Pool
}

// NewAuthorizationLogRepository construye el adaptador.
func NewAuthorizationLogRepository(pool *pgxpool.Pool) *AuthorizationLogRepo {
	return &AuthorizationLogRepo{pool: pool}
}

const authorizationLogColumns = `id, tenant_id, cuit, document_type, point_of_sale, number, erp_reference,
		total, cae, cae_expiry, remote_status, observations, error, created_at`

// Create inserta un registro. observations se guarda como text[].
func (r *AuthorizationLogRepo) Create(ctx context.Context, l *entity.AuthorizationLog) error {
	query := `
		INSERT INTO authorization_logs (` + authorizationLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	obs := l.Observations
	if obs == nil {
		obs = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		l.ID, l.TenantID, l.CUIT, l.DocumentType, l.PointOfSale, l.Number, l.ERPReference,
		l.Total, l.CAE, l.CAEExpiry, l.RemoteStatus, obs, l.Error, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert authorization log: %w", err)
	}
	return nil
}

// ListByTenant últimos registros del tenant, más recientes primero.
func (r *AuthorizationLogRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.AuthorizationLog, error) {
	query := `SELECT ` + authorizationLogColumns + `
		FROM authorization_logs WHERE tenant_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list authorization logs: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuthorizationLog
	for rows.Next() {
		var l entity.AuthorizationLog
		if err := rows.Scan(
			&l.ID, &l.TenantID, &l.CUIT, &l.DocumentType, &l.PointOfSale, &l.Number, &l.ERPReference,
			&l.Total, &l.CAE, &l.CAEExpiry, &l.RemoteStatus, &l.Observations, &l.Error, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan authorization log: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}
