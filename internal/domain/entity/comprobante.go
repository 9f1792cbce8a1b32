package entity

import "github.com/shopspring/decimal"

// InvoiceData es el comprobante tal como lo entrega el llamador, antes de normalizar.
// Number lo completa el servicio a partir del último autorizado; nunca lo elige el llamador.
type InvoiceData struct {
	DocumentType int    // CbteTipo
	PointOfSale  int    // PtoVta
	Number       int64  // asignado: último autorizado + 1
	Date         string // "2024-05-01", "2024/05/01" o "20240501"
	Concept      int    // 1 productos (por defecto), 2 servicios, 3 ambos

	ReceiverDocType      int    // 0 = derivar del tipo de comprobante
	ReceiverDocNumber    string // se normaliza a dígitos
	ReceiverVATCondition int    // 0 = derivar; solo se respeta para tipos no "A"

	Net        decimal.Decimal
	VAT        decimal.Decimal
	Total      decimal.Decimal
	NonTaxed   decimal.Decimal // ImpTotConc
	Exempt     decimal.Decimal // ImpOpEx
	OtherTaxes decimal.Decimal // ImpTrib

	VATRate  decimal.Decimal // porcentaje (21, 10.5, ...) usado si no hay VATLines
	VATLines []VATLine

	Currency     string          // "PES" por defecto
	CurrencyRate decimal.Decimal // cero = consultar a AFIP si la moneda no es PES

	ServiceFrom string // conceptos 2/3; por defecto la fecha del comprobante
	ServiceTo   string
	PaymentDue  string

	Associated []AssociatedDocument // solo notas de crédito/débito
}

// VATLine es un renglón del bloque Iva (AlicIva).
type VATLine struct {
	Rate       decimal.Decimal // porcentaje; se ignora si AlicuotaID > 0
	AlicuotaID int
	Base       decimal.Decimal
	Amount     decimal.Decimal
}

// AssociatedDocument es la referencia a un comprobante previo (CbteAsoc).
type AssociatedDocument struct {
	Type        int
	PointOfSale int
	Number      int64
	CUIT        string
	Date        string
}

// InvoiceRequest es el detalle normalizado que se envía en FECAESolicitar (CantReg = 1).
type InvoiceRequest struct {
	PointOfSale  int
	DocumentType int
	Concept      int

	DocType   int
	DocNumber int64

	Number int64 // CbteDesde == CbteHasta
	Date   string

	Total      decimal.Decimal
	NonTaxed   decimal.Decimal
	Net        decimal.Decimal
	Exempt     decimal.Decimal
	OtherTaxes decimal.Decimal
	VAT        decimal.Decimal

	ServiceFrom string
	ServiceTo   string
	PaymentDue  string

	Currency     string
	CurrencyRate decimal.Decimal

	VATCondition int

	Associated []AssociatedDocument
	VATLines   []VATLine
}

// AuthorizationResult es la respuesta interpretada de FECAESolicitar.
// AuthorizationCode y ExpiryDate quedan vacíos cuando AFIP no otorgó CAE.
type AuthorizationResult struct {
	Success           bool
	AuthorizationCode string
	ExpiryDate        string // YYYY-MM-DD
	RemoteStatus      string // A, R, P
	Observations      []string

	DocumentType int
	PointOfSale  int
	Number       int64
	Date         string
	Total        decimal.Decimal
}

// CurrencyRate cotización oficial (FEParamGetCotizacion).
type CurrencyRate struct {
	Currency string
	Rate     decimal.Decimal
	AsOf     string // YYYY-MM-DD
}

// ParamItem es un renglón de las tablas de parámetros de WSFE.
type ParamItem struct {
	ID          string
	Description string
	ValidFrom   string
	ValidTo     string
}

// ServiceStatus resultado de FEDummy.
type ServiceStatus struct {
	AppServer  string
	DbServer   string
	AuthServer string
}

// CodeMessage par código/mensaje con el que WSFE informa errores, observaciones y eventos.
type CodeMessage struct {
	Code int
	Msg  string
}
