package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuthorizationLog registro de auditoría de cada pedido de CAE, otorgado o no.
type AuthorizationLog struct {
	ID           string
	TenantID     string
	CUIT         string
	DocumentType int
	PointOfSale  int
	Number       int64
	ERPReference string // "FCB 0001-00001234"
	Total        decimal.Decimal
	CAE          string
	CAEExpiry    string
	RemoteStatus string
	Observations []string
	Error        string
	CreatedAt    time.Time
}
