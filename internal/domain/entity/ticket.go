package entity

import "time"

// AuthTicket es el ticket de acceso (TA) que devuelve WSAA para un CUIT y un servicio.
// Nunca se modifica: al renovarse se reemplaza completo.
type AuthTicket struct {
	TenantCUIT  string    `json:"cuit"`
	Service     string    `json:"service"`
	Token       string    `json:"token"`
	Sign        string    `json:"sign"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ValidAt informa si el ticket puede usarse en now (estrictamente now < ExpiresAt).
func (t *AuthTicket) ValidAt(now time.Time) bool {
	if t == nil || t.Token == "" || t.Sign == "" {
		return false
	}
	return now.Before(t.ExpiresAt)
}

// Credentials devuelve el par token/sign que va en el bloque Auth de WSFE.
func (t *AuthTicket) Credentials() Credentials {
	return Credentials{Token: t.Token, Sign: t.Sign}
}

// Credentials par token + sign.
type Credentials struct {
	Token string
	Sign  string
}
