// Package afip: interfaz para la firma CMS del ticket de requerimiento de acceso (TRA).

package afip

// KeyPair referencia el certificado X.509 y la clave privada de un contribuyente.
// CertPath puede apuntar a un PEM o a un .p12/.pfx; en ese caso KeyPath puede ir vacío
// y Password desbloquea el contenedor.
type KeyPair struct {
	CertPath string
	KeyPath  string
	Password string
}

// Signer firma un TRA y devuelve el SignedData CMS en DER (sin codificar en Base64).
type Signer interface {
	Sign(payload []byte, kp KeyPair) ([]byte, error)
}
