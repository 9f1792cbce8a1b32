package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/domain"
)

// writeError traduce los errores de dominio a status HTTP y dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, body := errorResponse(err)
	return c.Status(status).JSON(body)
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	var (
		verr *domain.ValidationError
		aerr *domain.AuthorizationError
		rerr *domain.RemoteServiceError
	)
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: verr.Error()}
	case errors.As(err, &aerr):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "AFIP_REJECTED", Message: "AFIP rechazó la solicitud", Details: aerr.Errors}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"}
	case errors.Is(err, domain.ErrCertificate):
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "CERTIFICATE_ERROR", Message: err.Error()}
	case errors.Is(err, domain.ErrAuthentication):
		return fiber.StatusBadGateway, dto.ErrorResponse{Code: "AFIP_AUTH_ERROR", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, dto.ErrorResponse{Code: "TIMEOUT", Message: "tiempo de espera agotado"}
	case errors.As(err, &rerr):
		return fiber.StatusBadGateway, dto.ErrorResponse{Code: "AFIP_UNAVAILABLE", Message: rerr.Service + "." + rerr.Operation, Details: rerr.Messages}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()}
	}
}
