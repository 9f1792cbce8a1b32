package dto

import "github.com/shopspring/decimal"

// CAERequest body de POST /api/afip/cae. El número lo asigna el servicio.
type CAERequest struct {
	DocumentType int    `json:"document_type" validate:"required"`
	PointOfSale  int    `json:"point_of_sale" validate:"required,min=1"`
	Date         string `json:"date,omitempty"` // YYYY-MM-DD, YYYY/MM/DD o YYYYMMDD; vacío = hoy
	Concept      int    `json:"concept,omitempty"`

	ReceiverDocType      int    `json:"receiver_doc_type,omitempty"`
	ReceiverDocNumber    string `json:"receiver_doc_number,omitempty"`
	ReceiverVATCondition int    `json:"receiver_vat_condition,omitempty"`

	Net        decimal.Decimal `json:"net"`
	VAT        decimal.Decimal `json:"vat"`
	Total      decimal.Decimal `json:"total"`
	NonTaxed   decimal.Decimal `json:"non_taxed,omitempty"`
	Exempt     decimal.Decimal `json:"exempt,omitempty"`
	OtherTaxes decimal.Decimal `json:"other_taxes,omitempty"`
	VATRate    decimal.Decimal `json:"vat_rate,omitempty"`
	VATLines   []VATLine       `json:"vat_lines,omitempty"`

	Currency     string          `json:"currency,omitempty"`
	CurrencyRate decimal.Decimal `json:"currency_rate,omitempty"`

	ServiceFrom string `json:"service_from,omitempty"`
	ServiceTo   string `json:"service_to,omitempty"`
	PaymentDue  string `json:"payment_due,omitempty"`

	Associated []AssociatedDocument `json:"associated,omitempty"`
}

// VATLine renglón de IVA; alicuota_id tiene prioridad sobre rate.
type VATLine struct {
	Rate       decimal.Decimal `json:"rate,omitempty"`
	AlicuotaID int             `json:"alicuota_id,omitempty"`
	Base       decimal.Decimal `json:"base"`
	Amount     decimal.Decimal `json:"amount"`
}

// AssociatedDocument comprobante asociado de una nota de crédito o débito.
type AssociatedDocument struct {
	Type        int    `json:"type"`
	PointOfSale int    `json:"point_of_sale"`
	Number      int64  `json:"number"`
	CUIT        string `json:"cuit,omitempty"`
	Date        string `json:"date,omitempty"`
}

// AuthorizationResponse resultado de un pedido de CAE.
type AuthorizationResponse struct {
	Success      bool            `json:"success"`
	CAE          *string         `json:"cae"`
	CAEExpiry    *string         `json:"cae_expiry"`
	Status       string          `json:"status"`
	Observations []string        `json:"observations"`
	DocumentType int             `json:"document_type"`
	PointOfSale  int             `json:"point_of_sale"`
	Number       int64           `json:"number"`
	Date         string          `json:"date"`
	Total        decimal.Decimal `json:"total"`
}

// LastNumberResponse último número autorizado para punto de venta y tipo.
type LastNumberResponse struct {
	PointOfSale  int   `json:"point_of_sale"`
	DocumentType int   `json:"document_type"`
	LastNumber   int64 `json:"last_number"`
}

// CurrencyRateResponse cotización oficial de una moneda.
type CurrencyRateResponse struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
	AsOf     string          `json:"as_of"`
}

// ParamItemResponse renglón de una tabla de parámetros de AFIP.
type ParamItemResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	ValidFrom   string `json:"valid_from,omitempty"`
	ValidTo     string `json:"valid_to,omitempty"`
}

// ServiceStatusResponse estado de los servidores de WSFE (FEDummy).
type ServiceStatusResponse struct {
	AppServer  string `json:"app_server"`
	DbServer   string `json:"db_server"`
	AuthServer string `json:"auth_server"`
}

// PendingDocumentResponse comprobante del ERP pendiente de CAE.
type PendingDocumentResponse struct {
	TypeCode     string          `json:"type_code"`
	PointOfSale  int             `json:"point_of_sale"`
	Number       int64           `json:"number"`
	Date         string          `json:"date"`
	CustomerCode string          `json:"customer_code,omitempty"`
	CustomerCUIT string          `json:"customer_cuit,omitempty"`
	Net          decimal.Decimal `json:"net"`
	VAT          decimal.Decimal `json:"vat"`
	Total        decimal.Decimal `json:"total"`
}

// AuthorizationLogResponse renglón de la auditoría de CAE.
type AuthorizationLogResponse struct {
	ID           string          `json:"id"`
	DocumentType int             `json:"document_type"`
	PointOfSale  int             `json:"point_of_sale"`
	Number       int64           `json:"number"`
	ERPReference string          `json:"erp_reference,omitempty"`
	Total        decimal.Decimal `json:"total"`
	CAE          string          `json:"cae,omitempty"`
	CAEExpiry    string          `json:"cae_expiry,omitempty"`
	Status       string          `json:"status,omitempty"`
	Observations []string        `json:"observations"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    string          `json:"created_at"`
}
