package wsaa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/afip-bridge/internal/domain"
	domainafip "github.com/jhoicas/afip-bridge/internal/domain/afip"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

const defaultBackoff = 5 * time.Second

// LoginClient pide un ticket nuevo a WSAA (infrastructure/afip.WSAAClient).
type LoginClient interface {
	Login(ctx context.Context, service string, tenant *entity.Tenant) (*entity.AuthTicket, error)
}

// Options parámetros opcionales del Authenticator.
type Options struct {
	Backoff  time.Duration // espera antes de reintentar tras "alreadyAuthenticated"
	Observer CacheObserver
	Now      func() time.Time
}

// Authenticator entrega credenciales vigentes por tenant y servicio. Las renovaciones
// concurrentes del mismo par se unifican en un único loginCms.
type Authenticator struct {
	client  LoginClient
	cache   *TicketCache
	group   singleflight.Group
	backoff time.Duration
	log     *logger.Logger

	// life acota los logins compartidos; Close la cancela.
	life context.Context
	stop context.CancelFunc
}

// NewAuthenticator construye el autenticador sobre el cliente WSAA y el store durable.
func NewAuthenticator(client LoginClient, store repository.TicketStore, log *logger.Logger, opts Options) *Authenticator {
	if log == nil {
		log = logger.Nop()
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	life, stop := context.WithCancel(context.Background())
	return &Authenticator{
		client:  client,
		cache:   NewTicketCache(store, log, opts.Observer, opts.Now),
		backoff: backoff,
		log:     log,
		life:    life,
		stop:    stop,
	}
}

// Close corta los logins en curso, incluida la espera de reintento.
func (a *Authenticator) Close() {
	a.stop()
}

// Cache expone la cache de tickets.
func (a *Authenticator) Cache() *TicketCache {
	return a.cache
}

// Authenticate devuelve token y sign para service. Usa la cache si hay un ticket vigente.
func (a *Authenticator) Authenticate(ctx context.Context, service string, tenant *entity.Tenant) (entity.Credentials, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return entity.Credentials{}, &domain.ValidationError{Field: "service", Reason: "servicio vacío"}
	}
	if tenant == nil {
		return entity.Credentials{}, &domain.ValidationError{Field: "tenant", Reason: "tenant requerido"}
	}
	if t := a.cache.Get(ctx, tenant.CUIT, service); t != nil {
		return t.Credentials(), nil
	}

	// El login compartido no depende de la cancelación de ningún llamador: cada uno
	// deja de esperar por su cuenta y el vuelo termina solo o con Close.
	ch := a.group.DoChan(cacheKey(tenant.CUIT, service), func() (interface{}, error) {
		flightCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		defer context.AfterFunc(a.life, cancel)()

		if t := a.cache.Get(flightCtx, tenant.CUIT, service); t != nil {
			return t, nil
		}
		return a.login(flightCtx, service, tenant)
	})

	select {
	case <-ctx.Done():
		return entity.Credentials{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return entity.Credentials{}, res.Err
		}
		return res.Val.(*entity.AuthTicket).Credentials(), nil
	}
}

// login ejecuta loginCms con un único reintento ante "alreadyAuthenticated".
func (a *Authenticator) login(ctx context.Context, service string, tenant *entity.Tenant) (*entity.AuthTicket, error) {
	log := a.log.With().Str("cuit", tenant.CUIT).Str("service", service).Logger()

	for attempt := 1; ; attempt++ {
		log.Info().Int("attempt", attempt).Msg("solicitando ticket a WSAA")
		t, err := a.client.Login(ctx, service, tenant)
		if err == nil {
			a.cache.Put(ctx, t)
			log.Info().Time("expires_at", t.ExpiresAt).Msg("ticket obtenido")
			return t, nil
		}
		if !domainafip.IsAlreadyAuthenticated(err) {
			log.Error().Err(err).Msg("login WSAA fallido")
			return nil, err
		}

		// Otro proceso pudo haber guardado el TA vigente.
		if stored := a.cache.Get(ctx, tenant.CUIT, service); stored != nil {
			log.Warn().Msg("WSAA informa TA vigente; se usa el ticket guardado")
			return stored, nil
		}
		if attempt > 1 {
			log.Error().Err(err).Msg("WSAA sigue informando TA vigente y no hay ticket guardado")
			return nil, err
		}
		log.Warn().Dur("backoff", a.backoff).Msg("WSAA informa TA vigente sin ticket local; se reintenta")
		if err := sleep(ctx, a.backoff); err != nil {
			return nil, fmt.Errorf("espera de reintento WSAA: %w", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
