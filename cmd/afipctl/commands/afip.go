package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

// CredentialIssuer entrega el token y sign vigentes (WSAA con cache).
type CredentialIssuer interface {
	Authenticate(ctx context.Context, service string, tenant *entity.Tenant) (entity.Credentials, error)
}

// InvoiceOperator subconjunto de InvoiceService que usa la CLI.
type InvoiceOperator interface {
	GetLastAuthorizedNumber(ctx context.Context, tenant *entity.Tenant, pointOfSale, documentType int) (int64, error)
	RequestAuthorization(ctx context.Context, tenant *entity.Tenant, data entity.InvoiceData) (entity.AuthorizationResult, error)
	GetCurrencyRate(ctx context.Context, tenant *entity.Tenant, currency string) (entity.CurrencyRate, error)
	Status(ctx context.Context, mode string) (entity.ServiceStatus, error)
}

// RunTicket obtiene credenciales para service y las imprime. Útil para verificar
// certificado y relación de servicio antes de facturar.
func RunTicket(ctx context.Context, issuer CredentialIssuer, log *logger.Logger, tenant *entity.Tenant, service string, out IOTuple) error {
	log.Info().Str("cuit", tenant.CUIT).Str("service", service).Msg("solicitando ticket de acceso")
	creds, err := issuer.Authenticate(ctx, service, tenant)
	if err != nil {
		return fmt.Errorf("obtener ticket: %w", err)
	}
	return writeJSON(out.Writer, map[string]string{
		"cuit":    tenant.CUIT,
		"service": service,
		"token":   creds.Token,
		"sign":    creds.Sign,
	})
}

// RunLastNumber imprime el último comprobante autorizado.
func RunLastNumber(ctx context.Context, svc InvoiceOperator, tenant *entity.Tenant, pointOfSale, documentType int, out IOTuple) error {
	if pointOfSale <= 0 || documentType <= 0 {
		return fmt.Errorf("punto de venta y tipo son requeridos")
	}
	n, err := svc.GetLastAuthorizedNumber(ctx, tenant, pointOfSale, documentType)
	if err != nil {
		return fmt.Errorf("último comprobante: %w", err)
	}
	return writeJSON(out.Writer, dto.LastNumberResponse{PointOfSale: pointOfSale, DocumentType: documentType, LastNumber: n})
}

// RunRequestCAE lee un CAERequest en JSON desde path ("-" = entrada estándar) y pide el CAE.
// Un rechazo de AFIP se imprime igual y se devuelve como error.
func RunRequestCAE(ctx context.Context, svc InvoiceOperator, log *logger.Logger, tenant *entity.Tenant, path string, out IOTuple) error {
	var r io.Reader = out.Reader
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("abrir %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var req dto.CAERequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("comprobante inválido: %w", err)
	}

	res, err := svc.RequestAuthorization(ctx, tenant, req.ToInvoiceData())
	if err != nil {
		return fmt.Errorf("solicitar CAE: %w", err)
	}
	if err := writeJSON(out.Writer, dto.NewAuthorizationResponse(res)); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("comprobante rechazado: %s", strings.Join(res.Observations, "; "))
	}
	log.Info().Str("cae", res.AuthorizationCode).Int64("numero", res.Number).Msg("CAE obtenido")
	return nil
}

// RunCurrencyRate imprime la cotización oficial de currency.
func RunCurrencyRate(ctx context.Context, svc InvoiceOperator, tenant *entity.Tenant, currency string, out IOTuple) error {
	rate, err := svc.GetCurrencyRate(ctx, tenant, strings.ToUpper(strings.TrimSpace(currency)))
	if err != nil {
		return fmt.Errorf("cotización: %w", err)
	}
	return writeJSON(out.Writer, dto.CurrencyRateResponse{Currency: rate.Currency, Rate: rate.Rate, AsOf: rate.AsOf})
}

// RunStatus consulta FEDummy.
func RunStatus(ctx context.Context, svc InvoiceOperator, mode string, out IOTuple) error {
	st, err := svc.Status(ctx, mode)
	if err != nil {
		return fmt.Errorf("estado de WSFE: %w", err)
	}
	return writeJSON(out.Writer, dto.ServiceStatusResponse{AppServer: st.AppServer, DbServer: st.DbServer, AuthServer: st.AuthServer})
}
