package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/afip-bridge/internal/application/billing"
	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
)

// AFIPHandler operaciones de WSFE sobre el tenant de la sesión.
type AFIPHandler struct {
	svc   *billing.InvoiceService
	audit repository.AuthorizationLogRepository
}

// NewAFIPHandler construye el handler. audit puede ser nil (sin registro de tenants).
func NewAFIPHandler(svc *billing.InvoiceService, audit repository.AuthorizationLogRepository) *AFIPHandler {
	return &AFIPHandler{svc: svc, audit: audit}
}

// LastNumber último comprobante autorizado.
// GET /api/afip/ultimo-comprobante?punto_venta=1&tipo=6
func (h *AFIPHandler) LastNumber(c *fiber.Ctx) error {
	pos := c.QueryInt("punto_venta")
	typ := c.QueryInt("tipo")
	if pos <= 0 || typ <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "punto_venta y tipo son requeridos"})
	}
	n, err := h.svc.GetLastAuthorizedNumber(c.UserContext(), GetTenant(c), pos, typ)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.LastNumberResponse{PointOfSale: pos, DocumentType: typ, LastNumber: n})
}

// RequestCAE pide el CAE de un comprobante.
// POST /api/afip/obtener-cae
func (h *AFIPHandler) RequestCAE(c *fiber.Ctx) error {
	var in dto.CAERequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.DocumentType <= 0 || in.PointOfSale <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "document_type y point_of_sale son requeridos"})
	}
	res, err := h.svc.RequestAuthorization(c.UserContext(), GetTenant(c), in.ToInvoiceData())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewAuthorizationResponse(res))
}

// CurrencyRate cotización oficial.
// GET /api/afip/cotizacion/:moneda
func (h *AFIPHandler) CurrencyRate(c *fiber.Ctx) error {
	rate, err := h.svc.GetCurrencyRate(c.UserContext(), GetTenant(c), strings.ToUpper(c.Params("moneda")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.CurrencyRateResponse{Currency: rate.Currency, Rate: rate.Rate, AsOf: rate.AsOf})
}

// VATTypes alícuotas de IVA.
// GET /api/afip/condiciones-iva
func (h *AFIPHandler) VATTypes(c *fiber.Ctx) error {
	items, err := h.svc.VATTypes(c.UserContext(), GetTenant(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewParamItems(items))
}

// ReceiverConditions condiciones frente al IVA del receptor.
// GET /api/afip/condiciones-iva-receptor?clase=A
func (h *AFIPHandler) ReceiverConditions(c *fiber.Ctx) error {
	items, err := h.svc.ReceiverConditions(c.UserContext(), GetTenant(c), c.Query("clase"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewParamItems(items))
}

// DocumentTypes tipos de comprobante.
// GET /api/afip/tipos-comprobantes
func (h *AFIPHandler) DocumentTypes(c *fiber.Ctx) error {
	items, err := h.svc.DocumentTypes(c.UserContext(), GetTenant(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewParamItems(items))
}

// Status estado de los servidores de AFIP (FEDummy).
// GET /api/afip/estado
func (h *AFIPHandler) Status(c *fiber.Ctx) error {
	st, err := h.svc.Status(c.UserContext(), GetTenant(c).Mode)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ServiceStatusResponse{AppServer: st.AppServer, DbServer: st.DbServer, AuthServer: st.AuthServer})
}

// Authorizations auditoría de pedidos de CAE del tenant.
// GET /api/afip/autorizaciones?limit=20&offset=0
func (h *AFIPHandler) Authorizations(c *fiber.Ctx) error {
	if h.audit == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_AVAILABLE", Message: "auditoría no configurada"})
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	page.DefaultPage()
	logs, err := h.audit.ListByTenant(c.UserContext(), GetTenant(c).ID, page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.AuthorizationLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.AuthorizationLogResponse{
			ID:           l.ID,
			DocumentType: l.DocumentType,
			PointOfSale:  l.PointOfSale,
			Number:       l.Number,
			ERPReference: l.ERPReference,
			Total:        l.Total,
			CAE:          l.CAE,
			CAEExpiry:    l.CAEExpiry,
			Status:       l.RemoteStatus,
			Observations: l.Observations,
			Error:        l.Error,
			CreatedAt:    l.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return c.JSON(out)
}
