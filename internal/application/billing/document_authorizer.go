package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/afip-bridge/internal/domain"
	domainafip "github.com/jhoicas/afip-bridge/internal/domain/afip"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

const defaultPendingLimit = 100

// Códigos de comprobante del ERP y su tipo AFIP.
var erpDocumentTypes = map[string]int{
	"FCA": pkgafip.CbteFacturaA,
	"NDA": pkgafip.CbteNotaDebitoA,
	"NCA": pkgafip.CbteNotaCreditoA,
	"FCB": pkgafip.CbteFacturaB,
	"NDB": pkgafip.CbteNotaDebitoB,
	"NCB": pkgafip.CbteNotaCreditoB,
	"FCC": pkgafip.CbteFacturaC,
	"NDC": pkgafip.CbteNotaDebitoC,
	"NCC": pkgafip.CbteNotaCreditoC,
}

// DocumentTypeForCode traduce el código del ERP (FCA, NCB, ...) al CbteTipo de AFIP.
func DocumentTypeForCode(code string) (int, bool) {
	t, ok := erpDocumentTypes[strings.ToUpper(strings.TrimSpace(code))]
	return t, ok
}

// DocumentAuthorizer pide el CAE de comprobantes ya cargados en el ERP y lo graba de vuelta.
// Serializa los pedidos por CUIT, punto de venta y tipo para que dos requests no tomen
// el mismo "último + 1".
type DocumentAuthorizer struct {
	documents repository.SalesDocumentRepository
	audit     repository.AuthorizationLogRepository
	invoices  InvoiceAuthorizer
	log       *logger.Logger
	locks     *keyedMutex
	now       Clock
}

// NewDocumentAuthorizer construye el orquestador; audit puede ser nil.
func NewDocumentAuthorizer(
	documents repository.SalesDocumentRepository,
	audit repository.AuthorizationLogRepository,
	invoices InvoiceAuthorizer,
	log *logger.Logger,
) *DocumentAuthorizer {
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentAuthorizer{
		documents: documents,
		audit:     audit,
		invoices:  invoices,
		log:       log,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// ListPending comprobantes sin CAE del tenant (máximo 100 por defecto).
func (a *DocumentAuthorizer) ListPending(ctx context.Context, tenant *entity.Tenant, filter entity.SalesDocumentFilter) ([]*entity.SalesDocument, error) {
	if !tenant.ERP.Configured() {
		return nil, &domain.ValidationError{Field: "erp", Reason: "el tenant no tiene base ERP configurada"}
	}
	if filter.Limit <= 0 || filter.Limit > defaultPendingLimit {
		filter.Limit = defaultPendingLimit
	}
	filter.TypeCode = strings.ToUpper(strings.TrimSpace(filter.TypeCode))
	return a.documents.ListPending(ctx, tenant, filter)
}

// AuthorizeDocument pide el CAE del comprobante key y lo graba en el ERP.
func (a *DocumentAuthorizer) AuthorizeDocument(ctx context.Context, tenant *entity.Tenant, key entity.SalesDocumentKey) (entity.AuthorizationResult, error) {
	if !tenant.ERP.Configured() {
		return entity.AuthorizationResult{}, &domain.ValidationError{Field: "erp", Reason: "el tenant no tiene base ERP configurada"}
	}
	key.TypeCode = strings.ToUpper(strings.TrimSpace(key.TypeCode))
	cbteTipo, ok := DocumentTypeForCode(key.TypeCode)
	if !ok {
		return entity.AuthorizationResult{}, &domain.ValidationError{Field: "tipo", Reason: "código de comprobante desconocido: " + key.TypeCode}
	}

	unlock := a.locks.Lock(fmt.Sprintf("%s|%d|%d", tenant.CUIT, key.PointOfSale, cbteTipo))
	defer unlock()

	doc, err := a.documents.Get(ctx, tenant, key)
	if err != nil {
		return entity.AuthorizationResult{}, err
	}
	if doc == nil {
		return entity.AuthorizationResult{}, domain.ErrNotFound
	}
	if doc.Voided {
		return entity.AuthorizationResult{}, &domain.ValidationError{Field: "anulado", Reason: "el comprobante está anulado"}
	}
	if doc.HasCAE() {
		return entity.AuthorizationResult{}, fmt.Errorf("%s ya tiene CAE %s: %w", reference(key), doc.CAE, domain.ErrConflict)
	}

	data := entity.InvoiceData{
		DocumentType:      cbteTipo,
		PointOfSale:       doc.PointOfSale,
		Date:              doc.Date.Format("20060102"),
		ReceiverDocNumber: doc.CustomerCUIT,
		Net:               doc.Net,
		VAT:               doc.VAT,
		Total:             doc.Total,
		VATRate:           doc.VATRate,
	}

	result, authErr := a.invoices.RequestAuthorization(ctx, tenant, data)
	a.record(ctx, tenant, key, data, result, authErr)
	if authErr != nil {
		return entity.AuthorizationResult{}, authErr
	}
	if result.AuthorizationCode == "" {
		return result, nil
	}

	expiry, err := time.ParseInLocation("2006-01-02", result.ExpiryDate, domainafip.Location())
	if err != nil {
		return result, fmt.Errorf("vencimiento de CAE ilegible %q: %w", result.ExpiryDate, err)
	}
	if err := a.documents.SaveCAE(ctx, tenant, key, result.AuthorizationCode, expiry); err != nil {
		// AFIP ya otorgó el CAE: queda en el log para cargarlo a mano.
		a.log.Error().Err(err).
			Str("cuit", tenant.CUIT).
			Str("comprobante", reference(key)).
			Str("cae", result.AuthorizationCode).
			Str("vencimiento", result.ExpiryDate).
			Msg("CAE otorgado pero no se pudo grabar en el ERP")
		return result, fmt.Errorf("grabar CAE en el ERP: %w", err)
	}
	a.log.Info().
		Str("cuit", tenant.CUIT).
		Str("comprobante", reference(key)).
		Int64("numero_afip", result.Number).
		Msg("CAE grabado en el ERP")
	return result, nil
}

func (a *DocumentAuthorizer) record(ctx context.Context, tenant *entity.Tenant, key entity.SalesDocumentKey, data entity.InvoiceData, res entity.AuthorizationResult, authErr error) {
	if a.audit == nil {
		return
	}
	entry := &entity.AuthorizationLog{
		ID:           uuid.NewString(),
		TenantID:     tenant.ID,
		CUIT:         tenant.CUIT,
		DocumentType: data.DocumentType,
		PointOfSale:  data.PointOfSale,
		Number:       res.Number,
		ERPReference: reference(key),
		Total:        res.Total,
		CAE:          res.AuthorizationCode,
		CAEExpiry:    res.ExpiryDate,
		RemoteStatus: res.RemoteStatus,
		Observations: res.Observations,
		CreatedAt:    a.now(),
	}
	if authErr != nil {
		entry.Total = data.Total
		entry.Error = authErr.Error()
		var aerr *domain.AuthorizationError
		if errors.As(authErr, &aerr) {
			entry.RemoteStatus = pkgafip.ResultadoRechazado
		}
	}
	if err := a.audit.Create(ctx, entry); err != nil {
		a.log.Error().Err(err).Str("comprobante", entry.ERPReference).Msg("no se pudo registrar la auditoría del CAE")
	}
}

// reference "FCB 0001-00001234".
func reference(key entity.SalesDocumentKey) string {
	return fmt.Sprintf("%s %04d-%08d", key.TypeCode, key.PointOfSale, key.Number)
}

// keyedMutex un mutex por clave; las entradas se liberan cuando nadie las usa.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
