package afip

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

const opCAESolicitar = "FECAESolicitar"

// CAEResponse respuesta de FECAESolicitar ya decodificada del SOAP.
type CAEResponse struct {
	Resultado string // cabecera FeCabResp
	Details   []CAEDetail
	Errors    []entity.CodeMessage
	Events    []entity.CodeMessage
}

// CAEDetail renglón FECAEDetResponse.
type CAEDetail struct {
	Resultado    string
	CAE          string
	CAEFchVto    string
	CbteDesde    int64
	CbteFch      string
	Observations []entity.CodeMessage
}

// InterpretCAE traduce la respuesta de AFIP a un AuthorizationResult.
// Errores de nivel superior son un AuthorizationError. Sin CAE la llamada no falla:
// Success refleja Resultado == "A" y Observations explica el motivo.
func InterpretCAE(resp CAEResponse, req entity.InvoiceRequest) (entity.AuthorizationResult, error) {
	if msgs := Normalize(resp.Errors); len(msgs) > 0 {
		return entity.AuthorizationResult{}, &domain.AuthorizationError{Operation: opCAESolicitar, Errors: msgs}
	}
	if len(resp.Details) == 0 {
		return entity.AuthorizationResult{}, &domain.RemoteServiceError{
			Service:   pkgafip.ServiceWSFE,
			Operation: opCAESolicitar,
			Messages:  []string{"respuesta sin FECAEDetResponse"},
		}
	}

	det := resp.Details[0]
	status := strings.TrimSpace(det.Resultado)
	if status == "" {
		status = strings.TrimSpace(resp.Resultado)
	}
	res := entity.AuthorizationResult{
		RemoteStatus: status,
		Observations: Normalize(det.Observations),
		DocumentType: req.DocumentType,
		PointOfSale:  req.PointOfSale,
		Number:       req.Number,
		Date:         req.Date,
		Total:        req.Total,
	}
	if res.Observations == nil {
		res.Observations = []string{}
	}
	if det.CbteDesde > 0 {
		res.Number = det.CbteDesde
	}

	cae := strings.TrimSpace(det.CAE)
	if cae == "" {
		res.Success = status == pkgafip.ResultadoAprobado
		return res, nil
	}
	res.Success = true
	res.AuthorizationCode = cae
	res.ExpiryDate = FormatISODate(det.CAEFchVto)
	return res, nil
}

// LastAuthorizedResponse respuesta de FECompUltimoAutorizado.
type LastAuthorizedResponse struct {
	Number int64
	Errors []entity.CodeMessage
	Events []entity.CodeMessage
}

// InterpretLastAuthorized devuelve el último número autorizado. El código 1502
// (sin comprobantes previos) equivale a 0; el 601 indica que el certificado no
// puede operar en nombre de cuit. Otros códigos son un RemoteServiceError.
func InterpretLastAuthorized(resp LastAuthorizedResponse, cuit string) (int64, error) {
	if len(resp.Errors) == 0 {
		return resp.Number, nil
	}
	for _, e := range resp.Errors {
		switch e.Code {
		case pkgafip.ErrCodeSinComprobantes:
			return 0, nil
		case pkgafip.ErrCodeCUITNoAutorizado:
			msgs := append(Normalize(resp.Errors),
				"el CUIT "+cuit+" no está autorizado para el certificado utilizado; revisar la relación del servicio wsfe en AFIP")
			return 0, &domain.RemoteServiceError{
				Service:   pkgafip.ServiceWSFE,
				Operation: "FECompUltimoAutorizado",
				Messages:  msgs,
			}
		}
	}
	return 0, &domain.RemoteServiceError{
		Service:   pkgafip.ServiceWSFE,
		Operation: "FECompUltimoAutorizado",
		Messages:  Normalize(resp.Errors),
	}
}

// CurrencyResponse respuesta de FEParamGetCotizacion.
type CurrencyResponse struct {
	Currency string
	Rate     string
	Date     string
	Errors   []entity.CodeMessage
}

// InterpretCurrency convierte la cotización; errores remotos o valores ilegibles son RemoteServiceError.
func InterpretCurrency(resp CurrencyResponse) (entity.CurrencyRate, error) {
	const op = "FEParamGetCotizacion"
	if msgs := Normalize(resp.Errors); len(msgs) > 0 {
		return entity.CurrencyRate{}, &domain.RemoteServiceError{Service: pkgafip.ServiceWSFE, Operation: op, Messages: msgs}
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(resp.Rate))
	if err != nil {
		return entity.CurrencyRate{}, &domain.RemoteServiceError{
			Service:   pkgafip.ServiceWSFE,
			Operation: op,
			Messages:  []string{"cotización ilegible: " + resp.Rate},
		}
	}
	return entity.CurrencyRate{
		Currency: strings.TrimSpace(resp.Currency),
		Rate:     rate,
		AsOf:     FormatISODate(resp.Date),
	}, nil
}

// ParamResponse respuesta de las operaciones FEParamGet*.
type ParamResponse struct {
	Items  []entity.ParamItem
	Errors []entity.CodeMessage
}

// InterpretParams devuelve los ítems o un RemoteServiceError si AFIP informó errores.
func InterpretParams(operation string, resp ParamResponse) ([]entity.ParamItem, error) {
	if msgs := Normalize(resp.Errors); len(msgs) > 0 {
		return nil, &domain.RemoteServiceError{Service: pkgafip.ServiceWSFE, Operation: operation, Messages: msgs}
	}
	items := make([]entity.ParamItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		it.ValidFrom = FormatISODate(it.ValidFrom)
		if strings.EqualFold(it.ValidTo, "NULL") {
			it.ValidTo = ""
		}
		it.ValidTo = FormatISODate(it.ValidTo)
		items = append(items, it)
	}
	return items, nil
}

// IsAlreadyAuthenticated reconoce el fault que WSAA devuelve cuando ya emitió un TA
// vigente para el mismo certificado y servicio.
func IsAlreadyAuthenticated(err error) bool {
	var aerr *domain.AuthenticationError
	if !errors.As(err, &aerr) {
		return false
	}
	text := strings.ToLower(aerr.FaultCode + " " + aerr.FaultString)
	return strings.Contains(text, strings.ToLower(pkgafip.FaultAlreadyAuthenticated)) ||
		strings.Contains(text, "ya posee un ta valido")
}
