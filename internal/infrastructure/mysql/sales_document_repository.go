package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
)

var _ repository.SalesDocumentRepository = (*SalesDocumentRepo)(nil)

// DBProvider entrega la conexión ERP de un tenant (Connector). release se llama
// al terminar cada operación.
type DBProvider interface {
	Acquire(ctx context.Context, tenant *entity.Tenant) (db *sql.DB, release func(), err error)
}

// SalesDocumentRepo comprobantes de la tabla DocumentoVenta del ERP.
type SalesDocumentRepo struct {
	conns DBProvider
}

// NewSalesDocumentRepository construye el adaptador.
func NewSalesDocumentRepository(conns DBProvider) *SalesDocumentRepo {
	return &SalesDocumentRepo{conns: conns}
}

const salesDocumentColumns = `DocumentoTipo, DocumentoSucursal, DocumentoNumero, Fecha,
		ClienteCodigo, ClienteCuit, ImporteNeto, ImporteIva1, ImporteTotal, PorcentajeIva1,
		Anulado, CAE, CAEVencimiento`

// ListPending comprobantes no anulados y sin CAE, más recientes primero.
func (r *SalesDocumentRepo) ListPending(ctx context.Context, tenant *entity.Tenant, filter entity.SalesDocumentFilter) ([]*entity.SalesDocument, error) {
	db, release, err := r.conns.Acquire(ctx, tenant)
	if err != nil {
		return nil, err
	}
	defer release()

	var sb strings.Builder
	sb.WriteString(`SELECT ` + salesDocumentColumns + `
		FROM DocumentoVenta
		WHERE Anulado = 0 AND (CAE IS NULL OR CAE = '')`)
	args := make([]interface{}, 0, 3)
	if filter.PointOfSale > 0 {
		sb.WriteString(` AND DocumentoSucursal = ?`)
		args = append(args, filter.PointOfSale)
	}
	if filter.TypeCode != "" {
		sb.WriteString(` AND DocumentoTipo = ?`)
		args = append(args, filter.TypeCode)
	}
	sb.WriteString(` ORDER BY Fecha DESC, DocumentoNumero DESC LIMIT ?`)
	args = append(args, filter.Limit)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listar comprobantes pendientes: %w", err)
	}
	defer rows.Close()

	var list []*entity.SalesDocument
	for rows.Next() {
		doc, err := scanSalesDocument(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

// Get obtiene un comprobante; (nil, nil) si no existe.
func (r *SalesDocumentRepo) Get(ctx context.Context, tenant *entity.Tenant, key entity.SalesDocumentKey) (*entity.SalesDocument, error) {
	db, release, err := r.conns.Acquire(ctx, tenant)
	if err != nil {
		return nil, err
	}
	defer release()
	query := `SELECT ` + salesDocumentColumns + `
		FROM DocumentoVenta
		WHERE DocumentoTipo = ? AND DocumentoSucursal = ? AND DocumentoNumero = ?`
	doc, err := scanSalesDocument(db.QueryRowContext(ctx, query, key.TypeCode, key.PointOfSale, key.Number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// SaveCAE graba CAE y vencimiento. Solo actualiza comprobantes que todavía no tienen CAE.
func (r *SalesDocumentRepo) SaveCAE(ctx context.Context, tenant *entity.Tenant, key entity.SalesDocumentKey, cae string, expiry time.Time) error {
	db, release, err := r.conns.Acquire(ctx, tenant)
	if err != nil {
		return err
	}
	defer release()
	query := `UPDATE DocumentoVenta
		SET CAE = ?, CAEVencimiento = ?
		WHERE DocumentoTipo = ? AND DocumentoSucursal = ? AND DocumentoNumero = ?
		AND (CAE IS NULL OR CAE = '')`
	res, err := db.ExecContext(ctx, query, cae, expiry, key.TypeCode, key.PointOfSale, key.Number)
	if err != nil {
		return fmt.Errorf("grabar CAE: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("grabar CAE: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("comprobante %s %d-%d inexistente o ya autorizado: %w", key.TypeCode, key.PointOfSale, key.Number, domain.ErrConflict)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSalesDocument(row rowScanner) (*entity.SalesDocument, error) {
	var (
		d        entity.SalesDocument
		customer sql.NullString
		cuit     sql.NullString
		rate     decimal.NullDecimal
		cae      sql.NullString
		expiry   sql.NullTime
	)
	err := row.Scan(
		&d.TypeCode, &d.PointOfSale, &d.Number, &d.Date,
		&customer, &cuit, &d.Net, &d.VAT, &d.Total, &rate,
		&d.Voided, &cae, &expiry,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan comprobante: %w", err)
	}
	d.TypeCode = strings.TrimSpace(d.TypeCode)
	d.CustomerCode = strings.TrimSpace(customer.String)
	d.CustomerCUIT = strings.TrimSpace(cuit.String)
	if rate.Valid {
		d.VATRate = rate.Decimal
	}
	d.CAE = strings.TrimSpace(cae.String)
	if expiry.Valid {
		t := expiry.Time
		d.CAEExpiry = &t
	}
	return &d, nil
}
