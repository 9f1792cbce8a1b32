package entity

import (
	"time"

	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/pkg/afip"
)

// Estados de un tenant.
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// Tenant representa un contribuyente emisor (CUIT + certificado) y, opcionalmente,
// la base del ERP de donde salen sus comprobantes. Se carga una vez y no se modifica.
type Tenant struct {
	ID           string
	Name         string // razón social
	CUIT         string // 11 dígitos, sin guiones
	CertPath     string
	KeyPath      string
	CertPassword string
	Mode         string // afip.ModeTest | afip.ModeProduction
	ERP          ERPConnection
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ERPConnection datos de conexión a la base MySQL del sistema de facturación del tenant.
type ERPConnection struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Configured informa si el tenant tiene una base ERP asociada.
func (c ERPConnection) Configured() bool {
	return c.Host != "" && c.Database != ""
}

// KeyPair devuelve las rutas del certificado y la clave en el formato del firmador.
func (t *Tenant) KeyPair() afip.KeyPair {
	return afip.KeyPair{CertPath: t.CertPath, KeyPath: t.KeyPath, Password: t.CertPassword}
}

// Validate verifica que el tenant pueda operar contra AFIP.
func (t *Tenant) Validate() error {
	if !afip.HasCUITLength(t.CUIT) || afip.DigitsOnly(t.CUIT) != t.CUIT {
		return &domain.ValidationError{Field: "cuit", Reason: "el CUIT del emisor debe tener 11 dígitos sin separadores"}
	}
	if t.CertPath == "" {
		return &domain.ValidationError{Field: "cert_path", Reason: "ruta de certificado vacía"}
	}
	if afip.NormalizeMode(t.Mode) == "" {
		return &domain.ValidationError{Field: "mode", Reason: "modo desconocido: " + t.Mode}
	}
	return nil
}
