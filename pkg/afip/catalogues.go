// Package afip contiene catálogos y validaciones alineados a los web services
// de factura electrónica de AFIP (Argentina): WSAA (autenticación) y WSFEv1.
package afip

import "strings"

// =============================================================================
// Modos de operación y endpoints
// =============================================================================

const (
	// ModeTest usa los servidores de homologación de AFIP.
	ModeTest = "test"
	// ModeProduction usa los servidores productivos de AFIP.
	ModeProduction = "production"
)

// Nombres de servicio usados en el TRA (elemento <service>).
const (
	ServiceWSFE = "wsfe"
)

const (
	wsaaURLTest = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	wsaaURLProd = "https://wsaa.afip.gov.ar/ws/services/LoginCms"
	wsfeURLTest = "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
	wsfeURLProd = "https://servicios1.afip.gov.ar/wsfev1/service.asmx"
)

// NormalizeMode acepta los alias históricos ("testing", "homologacion", "prod")
// y devuelve ModeTest o ModeProduction. Cualquier otro valor devuelve "".
func NormalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "test", "testing", "homo", "homologacion", "homologación", "":
		return ModeTest
	case "production", "produccion", "producción", "prod":
		return ModeProduction
	default:
		return ""
	}
}

// WSAAURL devuelve el endpoint LoginCms para el modo indicado.
func WSAAURL(mode string) string {
	if NormalizeMode(mode) == ModeProduction {
		return wsaaURLProd
	}
	return wsaaURLTest
}

// WSFEURL devuelve el endpoint WSFEv1 para el modo indicado.
func WSFEURL(mode string) string {
	if NormalizeMode(mode) == ModeProduction {
		return wsfeURLProd
	}
	return wsfeURLTest
}

// =============================================================================
// Tipos de comprobante (FEParamGetTiposCbte)
// =============================================================================

const (
	CbteFacturaA     = 1
	CbteNotaDebitoA  = 2
	CbteNotaCreditoA = 3
	CbteFacturaB     = 6
	CbteNotaDebitoB  = 7
	CbteNotaCreditoB = 8
	CbteFacturaC     = 11
	CbteNotaDebitoC  = 12
	CbteNotaCreditoC = 13
)

// IsClassA informa si el tipo pertenece a la familia "A" (receptor responsable inscripto).
func IsClassA(cbteTipo int) bool {
	return cbteTipo == CbteFacturaA || cbteTipo == CbteNotaDebitoA || cbteTipo == CbteNotaCreditoA
}

// IsNote informa si el tipo es nota de crédito o débito (requiere comprobantes asociados).
func IsNote(cbteTipo int) bool {
	switch cbteTipo {
	case CbteNotaDebitoA, CbteNotaCreditoA,
		CbteNotaDebitoB, CbteNotaCreditoB,
		CbteNotaDebitoC, CbteNotaCreditoC:
		return true
	}
	return false
}

// =============================================================================
// Tipos de documento del receptor (FEParamGetTiposDoc)
// =============================================================================

const (
	DocTipoCUIT           = 80
	DocTipoCUIL           = 86
	DocTipoDNI            = 96
	DocTipoSinIdentificar = 99
)

// =============================================================================
// Condición frente al IVA del receptor (FEParamGetCondicionIvaReceptor)
// =============================================================================

const (
	CondIVAResponsableInscripto = 1
	CondIVAExento               = 4
	CondIVAConsumidorFinal      = 5
	CondIVAMonotributo          = 6
	CondIVANoCategorizado       = 7
)

// =============================================================================
// Alícuotas de IVA (FEParamGetTiposIva)
// =============================================================================

const (
	AlicuotaIVA0    = 3
	AlicuotaIVA10_5 = 4
	AlicuotaIVA21   = 5
	AlicuotaIVA27   = 6
	AlicuotaIVA5    = 8
	AlicuotaIVA2_5  = 9
)

// alicuotaByRate indexa por porcentaje * 10 para evitar comparar flotantes.
var alicuotaByRate = map[int64]int{
	0:   AlicuotaIVA0,
	25:  AlicuotaIVA2_5,
	50:  AlicuotaIVA5,
	105: AlicuotaIVA10_5,
	210: AlicuotaIVA21,
	270: AlicuotaIVA27,
}

// AlicuotaID mapea un porcentaje expresado en décimas (210 = 21%) al Id de AFIP.
// Alícuotas no documentadas devuelven AlicuotaIVA21.
func AlicuotaID(rateTenths int64) int {
	if id, ok := alicuotaByRate[rateTenths]; ok {
		return id
	}
	return AlicuotaIVA21
}

// =============================================================================
// Conceptos
// =============================================================================

const (
	ConceptoProductos          = 1
	ConceptoServicios          = 2
	ConceptoProductosServicios = 3
)

// =============================================================================
// Monedas
// =============================================================================

// MonedaPesos es el código AFIP de pesos argentinos.
const MonedaPesos = "PES"

// =============================================================================
// Códigos de error conocidos de WSFEv1 / WSAA
// =============================================================================

const (
	// ErrCodeCUITNoAutorizado: el CUIT del Auth no está autorizado para el certificado.
	ErrCodeCUITNoAutorizado = 601
	// ErrCodeSinComprobantes: FECompUltimoAutorizado sin comprobantes previos para PtoVta/CbteTipo.
	ErrCodeSinComprobantes = 1502
)

// FaultAlreadyAuthenticated aparece en el faultcode/faultstring de WSAA cuando ya existe
// un TA vigente emitido para el mismo certificado y servicio.
const FaultAlreadyAuthenticated = "alreadyAuthenticated"

// =============================================================================
// Resultados
// =============================================================================

const (
	ResultadoAprobado  = "A"
	ResultadoRechazado = "R"
	ResultadoParcial   = "P"
)
