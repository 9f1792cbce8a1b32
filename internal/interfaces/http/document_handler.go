package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/afip-bridge/internal/application/billing"
	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
)

// DocumentHandler comprobantes del ERP del tenant.
type DocumentHandler struct {
	uc *billing.DocumentAuthorizer
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(uc *billing.DocumentAuthorizer) *DocumentHandler {
	return &DocumentHandler{uc: uc}
}

// Pending comprobantes sin CAE, más recientes primero.
// GET /api/documentos/sin-cae?punto_venta=1&tipo=FCB&limit=50
func (h *DocumentHandler) Pending(c *fiber.Ctx) error {
	filter := entity.SalesDocumentFilter{
		PointOfSale: c.QueryInt("punto_venta"),
		TypeCode:    c.Query("tipo"),
		Limit:       c.QueryInt("limit"),
	}
	docs, err := h.uc.ListPending(c.UserContext(), GetTenant(c), filter)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.PendingDocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, dto.PendingDocumentResponse{
			TypeCode:     d.TypeCode,
			PointOfSale:  d.PointOfSale,
			Number:       d.Number,
			Date:         d.Date.Format("2006-01-02"),
			CustomerCode: d.CustomerCode,
			CustomerCUIT: d.CustomerCUIT,
			Net:          d.Net,
			VAT:          d.VAT,
			Total:        d.Total,
		})
	}
	return c.JSON(out)
}

// Authorize pide el CAE de un comprobante del ERP y lo graba.
// POST /api/documentos/:tipo/:punto_venta/:numero/cae
func (h *DocumentHandler) Authorize(c *fiber.Ctx) error {
	pos, err1 := strconv.Atoi(c.Params("punto_venta"))
	num, err2 := strconv.ParseInt(c.Params("numero"), 10, 64)
	if err1 != nil || err2 != nil || pos <= 0 || num <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "punto_venta y numero deben ser enteros positivos"})
	}
	key := entity.SalesDocumentKey{
		TypeCode:    strings.ToUpper(c.Params("tipo")),
		PointOfSale: pos,
		Number:      num,
	}
	res, err := h.uc.AuthorizeDocument(c.UserContext(), GetTenant(c), key)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewAuthorizationResponse(res))
}
