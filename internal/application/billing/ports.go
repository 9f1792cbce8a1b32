package billing

import (
	"context"
	"time"

	domainafip "github.com/jhoicas/afip-bridge/internal/domain/afip"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
)

// Authenticator entrega credenciales WSAA vigentes (application/wsaa.Authenticator).
type Authenticator interface {
	Authenticate(ctx context.Context, service string, tenant *entity.Tenant) (entity.Credentials, error)
}

// WSFEGateway operaciones SOAP de WSFEv1 (infrastructure/afip.WSFEClient).
// Devuelve respuestas decodificadas; la interpretación la hace domain/afip.
type WSFEGateway interface {
	LastAuthorized(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, pointOfSale, cbteTipo int) (domainafip.LastAuthorizedResponse, error)
	RequestCAE(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, req entity.InvoiceRequest) (domainafip.CAEResponse, error)
	CurrencyRate(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, currency string) (domainafip.CurrencyResponse, error)
	VATTypes(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials) (domainafip.ParamResponse, error)
	ReceiverConditions(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, class string) (domainafip.ParamResponse, error)
	DocumentTypes(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials) (domainafip.ParamResponse, error)
	Dummy(ctx context.Context, mode string) (entity.ServiceStatus, error)
}

// InvoiceAuthorizer pide el CAE de un comprobante (InvoiceService).
type InvoiceAuthorizer interface {
	RequestAuthorization(ctx context.Context, tenant *entity.Tenant, data entity.InvoiceData) (entity.AuthorizationResult, error)
}

// Clock permite fijar la hora en tests.
type Clock func() time.Time
