package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesDocument es un comprobante de venta tal como está en la base del ERP (tabla DocumentoVenta).
type SalesDocument struct {
	TypeCode     string // FCA, FCB, NCA, ...
	PointOfSale  int
	Number       int64
	Date         time.Time
	CustomerCode string
	CustomerCUIT string
	Net          decimal.Decimal
	VAT          decimal.Decimal
	Total        decimal.Decimal
	VATRate      decimal.Decimal
	Voided       bool
	CAE          string
	CAEExpiry    *time.Time
}

// HasCAE informa si el comprobante ya fue autorizado.
func (d *SalesDocument) HasCAE() bool {
	return d.CAE != ""
}

// SalesDocumentKey identifica un comprobante en el ERP.
type SalesDocumentKey struct {
	TypeCode    string
	PointOfSale int
	Number      int64
}

// SalesDocumentFilter filtros para listar comprobantes pendientes de CAE.
type SalesDocumentFilter struct {
	PointOfSale int    // 0 = todos
	TypeCode    string // "" = todos
	Limit       int
}
