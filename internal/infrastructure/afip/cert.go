// Carga de certificado y llave desde .p12/.pfx (PKCS#12) o par PEM.

package afip

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/afip-bridge/internal/domain"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

// LoadCredentials carga el certificado del contribuyente y verifica que esté vigente en now.
// Cualquier falla se devuelve como *domain.CertificateError.
func LoadCredentials(kp pkgafip.KeyPair, now time.Time) (tls.Certificate, error) {
	if kp.CertPath == "" {
		return tls.Certificate{}, &domain.CertificateError{Err: errors.New("ruta de certificado vacía")}
	}
	if err := checkReadable(kp.CertPath); err != nil {
		return tls.Certificate{}, &domain.CertificateError{Path: kp.CertPath, Err: err}
	}

	var (
		cert tls.Certificate
		err  error
		path = kp.CertPath
	)
	if isPKCS12(kp.CertPath) {
		cert, err = loadFromP12(kp.CertPath, kp.Password)
	} else {
		keyPath := kp.KeyPath
		if keyPath == "" {
			// Un solo archivo puede contener cert+key en PEM
			keyPath = kp.CertPath
		} else if err := checkReadable(keyPath); err != nil {
			return tls.Certificate{}, &domain.CertificateError{Path: keyPath, Err: err}
		}
		cert, err = tls.LoadX509KeyPair(kp.CertPath, keyPath)
		if err != nil {
			path = kp.CertPath + " / " + keyPath
		}
	}
	if err != nil {
		return tls.Certificate{}, &domain.CertificateError{Path: path, Err: err}
	}

	if cert.Leaf == nil {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return tls.Certificate{}, &domain.CertificateError{Path: kp.CertPath, Err: fmt.Errorf("parsear certificado: %w", err)}
		}
		cert.Leaf = leaf
	}
	if now.Before(cert.Leaf.NotBefore) {
		return tls.Certificate{}, &domain.CertificateError{
			Path: kp.CertPath,
			Err:  fmt.Errorf("el certificado todavía no es válido (desde %s)", cert.Leaf.NotBefore.Format(time.RFC3339)),
		}
	}
	if !now.Before(cert.Leaf.NotAfter) {
		return tls.Certificate{}, &domain.CertificateError{
			Path: kp.CertPath,
			Err:  fmt.Errorf("el certificado venció el %s", cert.Leaf.NotAfter.Format(time.RFC3339)),
		}
	}
	return cert, nil
}

func loadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

func isPKCS12(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		return true
	}
	return false
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// ConvertPFXToPEM extrae certificado y llave de un .pfx/.p12 a dos archivos PEM
// (llave en PKCS#8, permisos 0600).
func ConvertPFXToPEM(pfxPath, password, certOut, keyOut string) error {
	data, err := os.ReadFile(pfxPath)
	if err != nil {
		return &domain.CertificateError{Path: pfxPath, Err: err}
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return &domain.CertificateError{Path: pfxPath, Err: fmt.Errorf("decodificar p12: %w", err)}
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return &domain.CertificateError{Path: pfxPath, Err: fmt.Errorf("serializar llave: %w", err)}
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	if err := os.WriteFile(certOut, certPEM, 0o644); err != nil {
		return fmt.Errorf("escribir certificado: %w", err)
	}
	if err := os.WriteFile(keyOut, keyPEM, 0o600); err != nil {
		return fmt.Errorf("escribir llave: %w", err)
	}
	return nil
}

// CertificateInfo resumen legible de un certificado (para diagnóstico).
type CertificateInfo struct {
	Subject      string
	Issuer       string
	SerialNumber string
	NotBefore    time.Time
	NotAfter     time.Time
}

// Describe carga el par y devuelve sus datos principales.
func Describe(kp pkgafip.KeyPair, now time.Time) (CertificateInfo, error) {
	cert, err := LoadCredentials(kp, now)
	if err != nil {
		return CertificateInfo{}, err
	}
	return CertificateInfo{
		Subject:      cert.Leaf.Subject.String(),
		Issuer:       cert.Leaf.Issuer.String(),
		SerialNumber: cert.Leaf.SerialNumber.Text(16),
		NotBefore:    cert.Leaf.NotBefore,
		NotAfter:     cert.Leaf.NotAfter,
	}, nil
}
