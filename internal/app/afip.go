// Package app arma los componentes de AFIP compartidos por la API y afipctl.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/afip-bridge/internal/application/billing"
	"github.com/jhoicas/afip-bridge/internal/application/wsaa"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
	infraafip "github.com/jhoicas/afip-bridge/internal/infrastructure/afip"
	"github.com/jhoicas/afip-bridge/internal/infrastructure/metrics"
	"github.com/jhoicas/afip-bridge/internal/infrastructure/ticketstore"
	"github.com/jhoicas/afip-bridge/pkg/config"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

// AFIP clientes WSAA/WSFE, autenticador con cache de tickets y servicio de facturación.
type AFIP struct {
	WSAA     *infraafip.WSAAClient
	WSFE     *infraafip.WSFEClient
	Auth     *wsaa.Authenticator
	Invoices *billing.InvoiceService

	redis *redis.Client
}

// NewAFIP construye la pila de AFIP. m puede ser nil (sin métricas).
func NewAFIP(ctx context.Context, cfg config.AFIPConfig, redisCfg config.RedisConfig, log *logger.Logger, m *metrics.Metrics) (*AFIP, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &AFIP{}

	var store repository.TicketStore
	switch cfg.TicketStore {
	case "redis":
		client, err := ticketstore.NewRedisClient(ctx, redisCfg.Addr, redisCfg.Password, redisCfg.DB)
		if err != nil {
			return nil, fmt.Errorf("redis de tickets: %w", err)
		}
		a.redis = client
		store = ticketstore.NewRedisStore(client)
	default:
		store = ticketstore.NewFileStore(cfg.TicketDir)
	}

	transport := infraafip.TransportConfig{
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
	}
	opts := wsaa.Options{Backoff: cfg.RetryBackoff}
	if m != nil {
		transport.Observer = m
		opts.Observer = m
	}

	a.WSAA = infraafip.NewWSAAClient(infraafip.NewCMSSigner(), infraafip.WSAAOptions{Transport: transport, TRATTL: cfg.TRATTL})
	a.WSFE = infraafip.NewWSFEClient(infraafip.WSFEOptions{Transport: transport})
	a.Auth = wsaa.NewAuthenticator(a.WSAA, store, log.Component("wsaa"), opts)
	a.Invoices = billing.NewInvoiceService(a.WSFE, a.Auth, log.Component("wsfe"), billing.ServiceConfig{
		AllowFinalConsumerFallback: cfg.AllowCFFallback,
	})
	log.Info().Str("ticket_store", cfg.TicketStore).Str("mode", cfg.Mode).Msg("clientes AFIP listos")
	return a, nil
}

// Close corta los logins WSAA en curso y libera las conexiones externas (Redis).
func (a *AFIP) Close() error {
	if a.Auth != nil {
		a.Auth.Close()
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
