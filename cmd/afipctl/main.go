// afipctl opera los web services de AFIP desde la línea de comandos con la misma
// configuración que la API (variables AFIP_*, DB_*, REDIS_*).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "afipctl",
		Usage:   "Herramientas de facturación electrónica AFIP (WSAA / WSFEv1)",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "cuit",
				Usage: "CUIT del emisor (por defecto AFIP_CUIT)",
			},
			&cli.StringFlag{
				Name:  "cert",
				Usage: "Certificado .crt/.pem o .p12 (por defecto AFIP_CERT_PATH)",
			},
			&cli.StringFlag{
				Name:  "key",
				Usage: "Llave privada PEM (por defecto AFIP_KEY_PATH)",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Ambiente: test o production (por defecto AFIP_MODE)",
			},
		},
		Commands: getCommands(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func getCommands() []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getAFIPCommands()...)
	cmds = append(cmds, getAdminCommands()...)
	return cmds
}
