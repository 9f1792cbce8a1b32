package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/jhoicas/afip-bridge/internal/app"
	"github.com/jhoicas/afip-bridge/internal/application/auth"
	"github.com/jhoicas/afip-bridge/internal/application/billing"
	"github.com/jhoicas/afip-bridge/internal/application/tenant"
	"github.com/jhoicas/afip-bridge/internal/infrastructure/metrics"
	"github.com/jhoicas/afip-bridge/internal/infrastructure/mysql"
	"github.com/jhoicas/afip-bridge/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/afip-bridge/internal/interfaces/http"
	"github.com/jhoicas/afip-bridge/pkg/config"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("afip_mode", cfg.AFIP.Mode).
		Msg("iniciando aplicación")

	ctx := context.Background()
	m := metrics.New("afip")

	afipStack, err := app.NewAFIP(ctx, cfg.AFIP, cfg.Redis, log, m)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar clientes AFIP")
	}
	defer afipStack.Close()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	tenantRepo := postgres.NewTenantRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	auditRepo := postgres.NewAuthorizationLogRepository(pool)

	tenants := tenant.NewResolver(tenantRepo, log.Component("tenant"))
	// Emisor por defecto definido por AFIP_CUIT: se registra si todavía no existe.
	if t := tenant.FromConfig(cfg.AFIP); t != nil {
		registered, err := tenants.Bootstrap(ctx, t)
		if err != nil {
			log.Fatal().Err(err).Str("cuit", t.CUIT).Msg("registrar emisor por defecto")
		}
		log.Info().Str("tenant_id", registered.ID).Str("cuit", registered.CUIT).Msg("emisor por defecto disponible")
	}

	erp := mysql.NewConnector(log.Component("erp"), mysql.ConnectorOptions{IdleTimeout: cfg.ERP.IdleTimeout})
	defer erp.Close()
	documents := billing.NewDocumentAuthorizer(
		mysql.NewSalesDocumentRepository(erp), auditRepo, afipStack.Invoices, log.Component("documentos"),
	)

	authUC := auth.NewAuthUseCase(userRepo, tenantRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	srv := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.AFIP.RequestTimeout*2 + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	srv.Use(recover.New())
	srv.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	srv.Use(httpRouter.RequestLogger(log.Component("http")))

	srv.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	srv.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	httpRouter.Router(srv, httpRouter.RouterDeps{
		AuthUC:    authUC,
		Invoices:  afipStack.Invoices,
		Documents: documents,
		AuditLog:  auditRepo,
		Tenants:   tenants,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := srv.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
