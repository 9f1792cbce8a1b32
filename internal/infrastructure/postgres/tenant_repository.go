package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
)

var _ repository.TenantRepository = (*TenantRepo)(nil)

// TenantRepo registro de contribuyentes emisores sobre PostgreSQL.
type TenantRepo struct {
	pool *pgxpool.Pool
}

// NewTenantRepository construye el adaptador de persistencia para tenants.
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepo {
	return &TenantRepo{pool: pool}
}

const tenantColumns = `id, name, cuit, cert_path, key_path, cert_password, mode,
		erp_host, erp_port, erp_user, erp_password, erp_database,
		status, created_at, updated_at`

// Create persiste un tenant nuevo. El CUIT es único.
func (r *TenantRepo) Create(ctx context.Context, t *entity.Tenant) error {
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Name, t.CUIT, t.CertPath, t.KeyPath, t.CertPassword, t.Mode,
		t.ERP.Host, t.ERP.Port, t.ERP.User, t.ERP.Password, t.ERP.Database,
		t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant con CUIT %s: %w", t.CUIT, domain.ErrConflict)
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// GetByID obtiene un tenant por ID; (nil, nil) si no existe.
func (r *TenantRepo) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	t, err := scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

// GetByCUIT obtiene un tenant por CUIT; (nil, nil) si no existe.
func (r *TenantRepo) GetByCUIT(ctx context.Context, cuit string) (*entity.Tenant, error) {
	t, err := scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE cuit = $1`, cuit))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant by CUIT: %w", err)
	}
	return t, nil
}

// Update reemplaza los datos del tenant.
func (r *TenantRepo) Update(ctx context.Context, t *entity.Tenant) error {
	query := `
		UPDATE tenants SET name = $2, cert_path = $3, key_path = $4, cert_password = $5, mode = $6,
			erp_host = $7, erp_port = $8, erp_user = $9, erp_password = $10, erp_database = $11,
			status = $12, updated_at = $13
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		t.ID, t.Name, t.CertPath, t.KeyPath, t.CertPassword, t.Mode,
		t.ERP.Host, t.ERP.Port, t.ERP.User, t.ERP.Password, t.ERP.Database,
		t.Status, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List tenants ordenados por razón social.
func (r *TenantRepo) List(ctx context.Context, limit, offset int) ([]*entity.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()
	var list []*entity.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*entity.Tenant, error) {
	var t entity.Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.CUIT, &t.CertPath, &t.KeyPath, &t.CertPassword, &t.Mode,
		&t.ERP.Host, &t.ERP.Port, &t.ERP.User, &t.ERP.Password, &t.ERP.Database,
		&t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
