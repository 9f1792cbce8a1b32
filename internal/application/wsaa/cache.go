package wsaa

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

// Resultados informados al CacheObserver.
const (
	ResultHitMemory  = "hit_memory"
	ResultHitStore   = "hit_store"
	ResultMiss       = "miss"
	ResultRenewed    = "renewed"
	ResultStoreError = "store_error"
)

// CacheObserver recibe un evento por consulta o escritura de la cache (métricas).
type CacheObserver interface {
	TicketCache(result string)
}

type nopObserver struct{}

func (nopObserver) TicketCache(string) {}

// TicketCache guarda tickets por CUIT y servicio en memoria y en un store durable,
// para que un reinicio del proceso reutilice un TA vigente.
type TicketCache struct {
	mu    sync.RWMutex
	mem   map[string]*entity.AuthTicket
	store repository.TicketStore
	log   *logger.Logger
	obs   CacheObserver
	now   func() time.Time
}

// NewTicketCache construye la cache; store puede ser nil (solo memoria).
func NewTicketCache(store repository.TicketStore, log *logger.Logger, obs CacheObserver, now func() time.Time) *TicketCache {
	if obs == nil {
		obs = nopObserver{}
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TicketCache{
		mem:   make(map[string]*entity.AuthTicket),
		store: store,
		log:   log,
		obs:   obs,
		now:   now,
	}
}

func cacheKey(cuit, service string) string {
	return cuit + "|" + service
}

// Get devuelve un ticket vigente (memoria y luego store) o nil.
func (c *TicketCache) Get(ctx context.Context, cuit, service string) *entity.AuthTicket {
	key := cacheKey(cuit, service)
	c.mu.RLock()
	t := c.mem[key]
	c.mu.RUnlock()
	if c.IsValid(t) {
		c.obs.TicketCache(ResultHitMemory)
		return t
	}

	if c.store != nil {
		stored, err := c.store.Load(ctx, cuit, service)
		if err != nil {
			c.obs.TicketCache(ResultStoreError)
			c.log.Error().Err(err).Str("cuit", cuit).Str("service", service).Msg("no se pudo leer el ticket guardado")
		} else if c.IsValid(stored) {
			c.mu.Lock()
			c.mem[key] = stored
			c.mu.Unlock()
			c.obs.TicketCache(ResultHitStore)
			c.log.Debug().Str("cuit", cuit).Str("service", service).Time("expires_at", stored.ExpiresAt).Msg("ticket recuperado del store")
			return stored
		}
	}
	c.obs.TicketCache(ResultMiss)
	return nil
}

// Put reemplaza el ticket en memoria y lo persiste. Un fallo de persistencia se registra y se ignora.
func (c *TicketCache) Put(ctx context.Context, t *entity.AuthTicket) {
	c.mu.Lock()
	c.mem[cacheKey(t.TenantCUIT, t.Service)] = t
	c.mu.Unlock()
	c.obs.TicketCache(ResultRenewed)

	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, t); err != nil {
		c.obs.TicketCache(ResultStoreError)
		c.log.Error().Err(err).Str("cuit", t.TenantCUIT).Str("service", t.Service).Msg("no se pudo persistir el ticket")
	}
}

// IsValid estrictamente now < ExpiresAt.
func (c *TicketCache) IsValid(t *entity.AuthTicket) bool {
	return t.ValidAt(c.now())
}
