package commands

import (
	"fmt"
	"time"

	infraafip "github.com/jhoicas/afip-bridge/internal/infrastructure/afip"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

// expiryWarning antelación con la que cert check avisa del vencimiento.
const expiryWarning = 30 * 24 * time.Hour

// RunCertCheck carga el certificado y la llave e imprime sus datos.
func RunCertCheck(kp pkgafip.KeyPair, now time.Time, out IOTuple) error {
	info, err := infraafip.Describe(kp, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(out.Writer, "Certificado: %s\n", kp.CertPath)
	fmt.Fprintf(out.Writer, "Sujeto:      %s\n", info.Subject)
	fmt.Fprintf(out.Writer, "Emisor:      %s\n", info.Issuer)
	fmt.Fprintf(out.Writer, "Serie:       %s\n", info.SerialNumber)
	fmt.Fprintf(out.Writer, "Vigencia:    %s a %s\n", info.NotBefore.Format(time.DateOnly), info.NotAfter.Format(time.DateOnly))
	if left := info.NotAfter.Sub(now); left < expiryWarning {
		fmt.Fprintf(out.Writer, "ATENCIÓN: vence en %d días\n", int(left.Hours()/24))
	}
	return nil
}

// RunConvertPFX exporta un .p12/.pfx a certificado y llave PEM.
func RunConvertPFX(pfxPath, password, certOut, keyOut string, out IOTuple) error {
	if certOut == "" || keyOut == "" {
		return fmt.Errorf("indicar --cert-out y --key-out")
	}
	if err := infraafip.ConvertPFXToPEM(pfxPath, password, certOut, keyOut); err != nil {
		return err
	}
	fmt.Fprintf(out.Writer, "Certificado: %s\nLlave:       %s\n", certOut, keyOut)
	return nil
}
