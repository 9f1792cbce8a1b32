package afip

import (
	"errors"
	"fmt"
	"time"

	"github.com/smallstep/pkcs7"

	"github.com/jhoicas/afip-bridge/internal/domain"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

var _ pkgafip.Signer = (*CMSSigner)(nil)

// CMSSigner implementa pkg/afip.Signer: SignedData CMS con el contenido incluido
// (attached), digest SHA-256, tal como lo espera loginCms.
type CMSSigner struct {
	now func() time.Time
}

// NewCMSSigner crea el firmador.
func NewCMSSigner() *CMSSigner {
	return &CMSSigner{now: time.Now}
}

// Sign carga el par del contribuyente y firma payload. Devuelve DER; el llamador lo codifica en Base64.
func (s *CMSSigner) Sign(payload []byte, kp pkgafip.KeyPair) ([]byte, error) {
	if len(payload) == 0 {
		return nil, errors.New("cms: payload vacío")
	}
	cert, err := LoadCredentials(kp, s.now())
	if err != nil {
		return nil, err
	}

	sd, err := pkcs7.NewSignedData(payload)
	if err != nil {
		return nil, fmt.Errorf("cms: inicializar SignedData: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(cert.Leaf, cert.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, &domain.CertificateError{Path: kp.CertPath, Err: fmt.Errorf("firmar: %w", err)}
	}
	der, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("cms: finalizar SignedData: %w", err)
	}
	return der, nil
}
