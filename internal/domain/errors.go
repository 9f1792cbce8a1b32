package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")

	// Familias de error de la integración con AFIP; los tipos de abajo las envuelven.
	ErrCertificate    = errors.New("certificado inválido o ilegible")
	ErrAuthentication = errors.New("falló la autenticación WSAA")
	ErrRemoteService  = errors.New("error del servicio remoto de AFIP")
	ErrAuthorization  = errors.New("AFIP rechazó la solicitud")
	ErrValidation     = errors.New("datos del comprobante inválidos")
)

// CertificateError: certificado o clave ausentes, ilegibles, inconsistentes o vencidos.
type CertificateError struct {
	Path string
	Err  error
}

func (e *CertificateError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("certificado: %v", e.Err)
	}
	return fmt.Sprintf("certificado %s: %v", e.Path, e.Err)
}

func (e *CertificateError) Unwrap() error { return e.Err }

func (e *CertificateError) Is(target error) bool { return target == ErrCertificate }

// AuthenticationError: WSAA devolvió un fault o una respuesta ilegible, o no se pudo
// recuperar de "alreadyAuthenticated".
type AuthenticationError struct {
	Service     string
	FaultCode   string
	FaultString string
	Err         error
}

func (e *AuthenticationError) Error() string {
	var b strings.Builder
	b.WriteString("wsaa")
	if e.Service != "" {
		b.WriteString(" [" + e.Service + "]")
	}
	if e.FaultCode != "" || e.FaultString != "" {
		fmt.Fprintf(&b, ": %s %s", e.FaultCode, e.FaultString)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// RemoteServiceError: fallo de transporte o respuesta de error de una operación WSFE.
type RemoteServiceError struct {
	Service   string
	Operation string
	Messages  []string
	Err       error
}

func (e *RemoteServiceError) Error() string {
	msg := fmt.Sprintf("%s.%s", e.Service, e.Operation)
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

func (e *RemoteServiceError) Is(target error) bool { return target == ErrRemoteService }

// AuthorizationError: AFIP devolvió errores de nivel superior en FECAESolicitar.
type AuthorizationError struct {
	Operation string
	Errors    []string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s rechazado: %s", e.Operation, strings.Join(e.Errors, "; "))
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrAuthorization }

// ValidationError: el comprobante no se envía porque viola una regla local.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Reason
	}
	return fmt.Sprintf("validación %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || target == ErrInvalidInput
}
