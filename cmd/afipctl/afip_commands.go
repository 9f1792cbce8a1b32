package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/jhoicas/afip-bridge/cmd/afipctl/commands"
	"github.com/jhoicas/afip-bridge/internal/app"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

// withAFIP carga el entorno y la pila de AFIP para el comando.
func withAFIP(run func(ctx context.Context, cmd *cli.Command, e *env, stack *app.AFIP) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		stack, err := e.afip(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = stack.Close() }()
		return run(ctx, cmd, e, stack)
	}
}

func getAFIPCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "ticket",
			Usage: "Obtener (o reutilizar) el ticket de acceso de WSAA",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "service",
					Aliases: []string{"s"},
					Value:   pkgafip.ServiceWSFE,
					Usage:   "Servicio de negocio",
				},
			},
			Action: withAFIP(func(ctx context.Context, cmd *cli.Command, e *env, stack *app.AFIP) error {
				t, err := e.issuer()
				if err != nil {
					return err
				}
				return commands.RunTicket(ctx, stack.Auth, e.log, t, cmd.String("service"), commands.DefaultIO())
			}),
		},
		{
			Name:  "ultimo",
			Usage: "Último comprobante autorizado (FECompUltimoAutorizado)",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:     "punto-venta",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Punto de venta",
				},
				&cli.IntFlag{
					Name:     "tipo",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Tipo de comprobante (1 = Factura A, 6 = Factura B, 11 = Factura C...)",
				},
			},
			Action: withAFIP(func(ctx context.Context, cmd *cli.Command, e *env, stack *app.AFIP) error {
				t, err := e.issuer()
				if err != nil {
					return err
				}
				return commands.RunLastNumber(ctx, stack.Invoices, t, int(cmd.Int("punto-venta")), int(cmd.Int("tipo")), commands.DefaultIO())
			}),
		},
		{
			Name:  "cae",
			Usage: "Solicitar el CAE de un comprobante descripto en JSON",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"f"},
					Value:   "-",
					Usage:   "Archivo JSON con el comprobante (- = entrada estándar)",
				},
			},
			Action: withAFIP(func(ctx context.Context, cmd *cli.Command, e *env, stack *app.AFIP) error {
				t, err := e.issuer()
				if err != nil {
					return err
				}
				return commands.RunRequestCAE(ctx, stack.Invoices, e.log, t, cmd.String("file"), commands.DefaultIO())
			}),
		},
		{
			Name:  "cotizacion",
			Usage: "Cotización oficial de una moneda (FEParamGetCotizacion)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "moneda",
					Aliases: []string{"m"},
					Value:   "DOL",
					Usage:   "Código de moneda de AFIP",
				},
			},
			Action: withAFIP(func(ctx context.Context, cmd *cli.Command, e *env, stack *app.AFIP) error {
				t, err := e.issuer()
				if err != nil {
					return err
				}
				return commands.RunCurrencyRate(ctx, stack.Invoices, t, cmd.String("moneda"), commands.DefaultIO())
			}),
		},
		{
			Name:  "estado",
			Usage: "Estado de los servidores de WSFE (FEDummy)",
			Action: withAFIP(func(ctx context.Context, _ *cli.Command, e *env, stack *app.AFIP) error {
				return commands.RunStatus(ctx, stack.Invoices, e.cfg.AFIP.Mode, commands.DefaultIO())
			}),
		},
	}
}
