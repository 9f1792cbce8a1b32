package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
	"github.com/jhoicas/afip-bridge/pkg/afip"
	"github.com/jhoicas/afip-bridge/pkg/config"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

// Resolver entrega el Tenant de un ID. Un tenant cargado no se vuelve a leer:
// los datos de un emisor no cambian mientras el proceso vive.
type Resolver struct {
	repo repository.TenantRepository
	log  *logger.Logger
	now  func() time.Time

	mu    sync.RWMutex
	cache map[string]*entity.Tenant
}

// NewResolver construye el resolver sobre el registro de tenants.
func NewResolver(repo repository.TenantRepository, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{repo: repo, log: log, now: time.Now, cache: make(map[string]*entity.Tenant)}
}

// Resolve devuelve el tenant activo con ID id.
// ErrNotFound si no existe, ErrForbidden si está suspendido y ValidationError si su configuración no sirve para operar.
func (r *Resolver) Resolve(ctx context.Context, id string) (*entity.Tenant, error) {
	r.mu.RLock()
	t, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cargar tenant %s: %w", id, err)
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	if t.Status != entity.TenantStatusActive {
		return nil, domain.ErrForbidden
	}
	t.Mode = afip.NormalizeMode(t.Mode)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[id] = t
	r.mu.Unlock()
	r.log.Info().Str("tenant", id).Str("cuit", t.CUIT).Str("mode", t.Mode).Msg("tenant cargado")
	return t, nil
}

// Bootstrap registra t si todavía no hay un tenant con su CUIT y devuelve el registrado.
// Lo usa el arranque en modo de un solo emisor (variables AFIP_*).
func (r *Resolver) Bootstrap(ctx context.Context, t *entity.Tenant) (*entity.Tenant, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	existing, err := r.repo.GetByCUIT(ctx, t.CUIT)
	if err != nil {
		return nil, fmt.Errorf("buscar tenant %s: %w", t.CUIT, err)
	}
	if existing != nil {
		return existing, nil
	}

	now := r.now()
	created := *t
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.Status = entity.TenantStatusActive
	created.CreatedAt = now
	created.UpdatedAt = now
	if err := r.repo.Create(ctx, &created); err != nil {
		return nil, err
	}
	r.log.Info().Str("tenant", created.ID).Str("cuit", created.CUIT).Msg("tenant registrado desde la configuración")
	return &created, nil
}

// FromConfig arma el tenant por defecto a partir de las variables AFIP_*.
// Devuelve nil si AFIP_CUIT no está definido.
func FromConfig(cfg config.AFIPConfig) *entity.Tenant {
	cuit := afip.DigitsOnly(cfg.CUIT)
	if cuit == "" {
		return nil
	}
	return &entity.Tenant{
		Name:         cfg.RazonSocial,
		CUIT:         cuit,
		CertPath:     cfg.CertPath,
		KeyPath:      cfg.KeyPath,
		CertPassword: cfg.CertPassword,
		Mode:         afip.NormalizeMode(cfg.Mode),
		Status:       entity.TenantStatusActive,
	}
}
