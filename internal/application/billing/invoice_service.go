package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	domainafip "github.com/jhoicas/afip-bridge/internal/domain/afip"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

var _ InvoiceAuthorizer = (*InvoiceService)(nil)

// ServiceConfig opciones del servicio de facturación.
type ServiceConfig struct {
	// AllowFinalConsumerFallback emite un comprobante "A" sin CUIT válido a consumidor final
	// en lugar de rechazarlo.
	AllowFinalConsumerFallback bool
	Now                        Clock
}

// InvoiceService flujo WSFE: número siguiente, armado del pedido, envío e interpretación.
// Toda operación recibe el tenant explícitamente; no guarda estado por tenant.
type InvoiceService struct {
	gateway WSFEGateway
	auth    Authenticator
	log     *logger.Logger
	cfg     ServiceConfig
}

// NewInvoiceService construye el servicio.
func NewInvoiceService(gateway WSFEGateway, auth Authenticator, log *logger.Logger, cfg ServiceConfig) *InvoiceService {
	if log == nil {
		log = logger.Nop()
	}
	return &InvoiceService{gateway: gateway, auth: auth, log: log, cfg: cfg}
}

func (s *InvoiceService) credentials(ctx context.Context, tenant *entity.Tenant) (entity.Credentials, error) {
	if err := tenant.Validate(); err != nil {
		return entity.Credentials{}, err
	}
	return s.auth.Authenticate(ctx, pkgafip.ServiceWSFE, tenant)
}

// GetLastAuthorizedNumber último número autorizado; 0 si AFIP informa que no hay comprobantes.
func (s *InvoiceService) GetLastAuthorizedNumber(ctx context.Context, tenant *entity.Tenant, pointOfSale, documentType int) (int64, error) {
	creds, err := s.credentials(ctx, tenant)
	if err != nil {
		return 0, err
	}
	return s.lastAuthorized(ctx, tenant, creds, pointOfSale, documentType)
}

func (s *InvoiceService) lastAuthorized(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, pointOfSale, documentType int) (int64, error) {
	resp, err := s.gateway.LastAuthorized(ctx, tenant, creds, pointOfSale, documentType)
	if err != nil {
		return 0, err
	}
	n, err := domainafip.InterpretLastAuthorized(resp, tenant.CUIT)
	if err != nil {
		return 0, err
	}
	s.log.Debug().
		Str("cuit", tenant.CUIT).
		Int("pto_vta", pointOfSale).
		Int("cbte_tipo", documentType).
		Int64("ultimo", n).
		Msg("último comprobante autorizado")
	return n, nil
}

// RequestAuthorization pide el CAE para un comprobante. Las validaciones locales se hacen
// antes de cualquier llamada remota; el número se toma de AFIP (último + 1) justo antes del envío.
// Un CAE no otorgado no es un error: Success y Observations lo explican.
func (s *InvoiceService) RequestAuthorization(ctx context.Context, tenant *entity.Tenant, data entity.InvoiceData) (entity.AuthorizationResult, error) {
	if err := tenant.Validate(); err != nil {
		return entity.AuthorizationResult{}, err
	}
	log := s.log.With().
		Str("cuit", tenant.CUIT).
		Int("pto_vta", data.PointOfSale).
		Int("cbte_tipo", data.DocumentType).
		Logger()

	date, err := domainafip.NormalizeDate(data.Date, s.now())
	if err != nil {
		return entity.AuthorizationResult{}, err
	}

	receiver, err := domainafip.ResolveReceiver(data, s.cfg.AllowFinalConsumerFallback)
	if err != nil {
		return entity.AuthorizationResult{}, err
	}
	if receiver.Fallback {
		log.Warn().Str("receptor", data.ReceiverDocNumber).Msg("comprobante A sin CUIT válido: se emite a consumidor final")
	}

	rec, err := domainafip.ReconcileTotal(data)
	if err != nil {
		return entity.AuthorizationResult{}, err
	}
	if rec.Corrected {
		level := zerolog.InfoLevel
		if rec.Anomaly {
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).Str("declarado", rec.Declared.StringFixed(2)).
			Str("calculado", rec.Sum.StringFixed(2)).
			Str("diferencia", rec.Delta.StringFixed(2)).
			Bool("anomalia", rec.Anomaly).
			Msg("total corregido a la suma de componentes")
	}

	req, err := domainafip.BuildRequest(data, domainafip.BuildParams{
		Date:         date,
		Receiver:     receiver,
		Total:        rec.Total,
		CurrencyRate: data.CurrencyRate,
	})
	if err != nil {
		return entity.AuthorizationResult{}, err
	}

	creds, err := s.auth.Authenticate(ctx, pkgafip.ServiceWSFE, tenant)
	if err != nil {
		return entity.AuthorizationResult{}, err
	}

	if req.Currency != pkgafip.MonedaPesos && data.CurrencyRate.IsZero() {
		rate, err := s.currencyRate(ctx, tenant, creds, req.Currency)
		if err != nil {
			return entity.AuthorizationResult{}, fmt.Errorf("cotización %s: %w", req.Currency, err)
		}
		req.CurrencyRate = rate.Rate
	}

	last, err := s.lastAuthorized(ctx, tenant, creds, data.PointOfSale, data.DocumentType)
	if err != nil {
		return entity.AuthorizationResult{}, err
	}
	req.Number = last + 1

	resp, err := s.gateway.RequestCAE(ctx, tenant, creds, req)
	if err != nil {
		return entity.AuthorizationResult{}, err
	}
	result, err := domainafip.InterpretCAE(resp, req)
	if err != nil {
		log.Error().Err(err).Int64("numero", req.Number).Msg("AFIP rechazó el pedido de CAE")
		return entity.AuthorizationResult{}, err
	}

	level := zerolog.InfoLevel
	if !result.Success {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).Int64("numero", result.Number).
		Str("resultado", result.RemoteStatus).
		Bool("cae", result.AuthorizationCode != "").
		Strs("observaciones", result.Observations).
		Msg("respuesta de FECAESolicitar")
	return result, nil
}

// GetCurrencyRate cotización oficial de una moneda.
func (s *InvoiceService) GetCurrencyRate(ctx context.Context, tenant *entity.Tenant, currency string) (entity.CurrencyRate, error) {
	creds, err := s.credentials(ctx, tenant)
	if err != nil {
		return entity.CurrencyRate{}, err
	}
	return s.currencyRate(ctx, tenant, creds, currency)
}

func (s *InvoiceService) currencyRate(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, currency string) (entity.CurrencyRate, error) {
	resp, err := s.gateway.CurrencyRate(ctx, tenant, creds, currency)
	if err != nil {
		return entity.CurrencyRate{}, err
	}
	return domainafip.InterpretCurrency(resp)
}

// VATTypes alícuotas de IVA vigentes.
func (s *InvoiceService) VATTypes(ctx context.Context, tenant *entity.Tenant) ([]entity.ParamItem, error) {
	return s.params(ctx, tenant, "FEParamGetTiposIva", s.gateway.VATTypes)
}

// DocumentTypes tipos de comprobante.
func (s *InvoiceService) DocumentTypes(ctx context.Context, tenant *entity.Tenant) ([]entity.ParamItem, error) {
	return s.params(ctx, tenant, "FEParamGetTiposCbte", s.gateway.DocumentTypes)
}

// ReceiverConditions condiciones frente al IVA del receptor, opcionalmente filtradas por clase (A, B, C).
func (s *InvoiceService) ReceiverConditions(ctx context.Context, tenant *entity.Tenant, class string) ([]entity.ParamItem, error) {
	return s.params(ctx, tenant, "FEParamGetCondicionIvaReceptor",
		func(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials) (domainafip.ParamResponse, error) {
			return s.gateway.ReceiverConditions(ctx, tenant, creds, class)
		})
}

type paramCall func(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials) (domainafip.ParamResponse, error)

func (s *InvoiceService) params(ctx context.Context, tenant *entity.Tenant, op string, call paramCall) ([]entity.ParamItem, error) {
	creds, err := s.credentials(ctx, tenant)
	if err != nil {
		return nil, err
	}
	resp, err := call(ctx, tenant, creds)
	if err != nil {
		return nil, err
	}
	return domainafip.InterpretParams(op, resp)
}

// Status estado de los servidores de AFIP (FEDummy) para el modo indicado.
func (s *InvoiceService) Status(ctx context.Context, mode string) (entity.ServiceStatus, error) {
	return s.gateway.Dummy(ctx, pkgafip.NormalizeMode(mode))
}

func (s *InvoiceService) now() time.Time {
	if s.cfg.Now != nil {
		return s.cfg.Now()
	}
	return time.Now()
}
