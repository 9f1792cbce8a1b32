package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jhoicas/afip-bridge/internal/app"
	"github.com/jhoicas/afip-bridge/internal/application/tenant"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/pkg/config"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

// env configuración, logger y emisor de una invocación.
type env struct {
	cfg    *config.Config
	log    *logger.Logger
	tenant *entity.Tenant
}

// loadEnv lee la configuración y aplica los flags globales sobre AFIP_*.
func loadEnv(cmd *cli.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	if v := cmd.String("cuit"); v != "" {
		cfg.AFIP.CUIT = v
	}
	if v := cmd.String("cert"); v != "" {
		cfg.AFIP.CertPath = v
	}
	if v := cmd.String("key"); v != "" {
		cfg.AFIP.KeyPath = v
	}
	if v := cmd.String("mode"); v != "" {
		cfg.AFIP.Mode = v
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	return &env{cfg: cfg, log: log.Component("afipctl"), tenant: tenant.FromConfig(cfg.AFIP)}, nil
}

// issuer devuelve el emisor validado; las operaciones de AFIP lo requieren.
func (e *env) issuer() (*entity.Tenant, error) {
	if e.tenant == nil {
		return nil, fmt.Errorf("definir AFIP_CUIT o --cuit")
	}
	if err := e.tenant.Validate(); err != nil {
		return nil, err
	}
	return e.tenant, nil
}

// afip arma los clientes sin métricas; quien llama cierra la pila.
func (e *env) afip(ctx context.Context) (*app.AFIP, error) {
	return app.NewAFIP(ctx, e.cfg.AFIP, e.cfg.Redis, e.log, nil)
}
