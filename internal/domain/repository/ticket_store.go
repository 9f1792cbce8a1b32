package repository

import (
	"context"

	"github.com/jhoicas/afip-bridge/internal/domain/entity"
)

// TicketStore almacenamiento durable de tickets WSAA, uno por CUIT y servicio.
// Load devuelve (nil, nil) cuando no hay ticket guardado. Save reemplaza el registro completo.
type TicketStore interface {
	Load(ctx context.Context, cuit, service string) (*entity.AuthTicket, error)
	Save(ctx context.Context, ticket *entity.AuthTicket) error
}
