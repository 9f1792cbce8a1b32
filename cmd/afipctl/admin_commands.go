package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"

	"github.com/jhoicas/afip-bridge/cmd/afipctl/commands"
	"github.com/jhoicas/afip-bridge/internal/application/auth"
	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/application/tenant"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/infrastructure/postgres"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

// withDB carga el entorno y abre el pool de PostgreSQL (registro de tenants y usuarios).
func withDB(run func(ctx context.Context, cmd *cli.Command, e *env, pool *pgxpool.Pool) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		pool, err := postgres.NewPool(ctx, e.cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()
		return run(ctx, cmd, e, pool)
	}
}

func getAdminCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "migrate",
			Usage: "Aplicar las migraciones del registro de tenants (PostgreSQL)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "dir",
					Value: "migrations",
					Usage: "Directorio con los archivos *.up.sql",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				e, err := loadEnv(cmd)
				if err != nil {
					return err
				}
				return commands.RunMigrations(e.log, cmd.String("dir"), e.cfg.DB.ConnectionString())
			},
		},
		{
			Name:  "cert",
			Usage: "Certificados del contribuyente",
			Commands: []*cli.Command{
				{
					Name:  "check",
					Usage: "Verificar que certificado y llave carguen y estén vigentes",
					Action: func(ctx context.Context, cmd *cli.Command) error {
						e, err := loadEnv(cmd)
						if err != nil {
							return err
						}
						kp := pkgafip.KeyPair{CertPath: e.cfg.AFIP.CertPath, KeyPath: e.cfg.AFIP.KeyPath, Password: e.cfg.AFIP.CertPassword}
						return commands.RunCertCheck(kp, time.Now(), commands.DefaultIO())
					},
				},
				{
					Name:  "convert-pfx",
					Usage: "Exportar un .p12/.pfx a certificado y llave PEM",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "pfx", Required: true, Usage: "Archivo .p12/.pfx"},
						&cli.StringFlag{Name: "password", Usage: "Contraseña del .p12"},
						&cli.StringFlag{Name: "cert-out", Value: "cert.pem", Usage: "Destino del certificado"},
						&cli.StringFlag{Name: "key-out", Value: "key.pem", Usage: "Destino de la llave privada"},
					},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return commands.RunConvertPFX(cmd.String("pfx"), cmd.String("password"), cmd.String("cert-out"), cmd.String("key-out"), commands.DefaultIO())
					},
				},
			},
		},
		{
			Name:  "tenant",
			Usage: "Registro de emisores",
			Commands: []*cli.Command{
				{
					Name:  "bootstrap",
					Usage: "Registrar el emisor de AFIP_* si su CUIT no existe",
					Action: withDB(func(ctx context.Context, _ *cli.Command, e *env, pool *pgxpool.Pool) error {
						resolver := tenant.NewResolver(postgres.NewTenantRepository(pool), e.log)
						_, err := commands.RunBootstrapTenant(ctx, resolver, e.tenant, commands.DefaultIO())
						return err
					}),
				},
			},
		},
		{
			Name:  "user",
			Usage: "Usuarios de la API",
			Commands: []*cli.Command{
				{
					Name:  "create",
					Usage: "Crear un usuario en un tenant",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "tenant", Required: true, Usage: "ID del tenant"},
						&cli.StringFlag{Name: "email", Required: true, Usage: "Email de acceso"},
						&cli.StringFlag{Name: "password", Required: true, Usage: "Contraseña (mínimo 8 caracteres)"},
						&cli.StringFlag{Name: "name", Usage: "Nombre visible"},
						&cli.StringFlag{Name: "role", Value: entity.RoleAdmin, Usage: "admin u operador"},
					},
					Action: withDB(func(ctx context.Context, cmd *cli.Command, e *env, pool *pgxpool.Pool) error {
						uc := auth.NewAuthUseCase(postgres.NewUserRepository(pool), postgres.NewTenantRepository(pool), auth.JWTConfig{
							Secret:     e.cfg.JWT.Secret,
							ExpMinutes: e.cfg.JWT.Expiration,
							Issuer:     e.cfg.JWT.Issuer,
						})
						in := dto.RegisterRequest{
							Email:    cmd.String("email"),
							Password: cmd.String("password"),
							Name:     cmd.String("name"),
							Role:     cmd.String("role"),
						}
						return commands.RunCreateUser(ctx, uc, e.log, cmd.String("tenant"), in, commands.DefaultIO())
					}),
				},
			},
		},
	}
}
