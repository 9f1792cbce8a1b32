package afip

import (
	"context"
	"encoding/xml"
	"errors"
	"strconv"
	"strings"

	"github.com/jhoicas/afip-bridge/internal/domain"
	domainafip "github.com/jhoicas/afip-bridge/internal/domain/afip"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

const wsfeNS = "http://ar.gov.afip.dif.FEV1/"

// Operaciones WSFEv1 consumidas.
const (
	OpUltimoAutorizado     = "FECompUltimoAutorizado"
	OpCAESolicitar         = "FECAESolicitar"
	OpCotizacion           = "FEParamGetCotizacion"
	OpTiposIva             = "FEParamGetTiposIva"
	OpCondicionIvaReceptor = "FEParamGetCondicionIvaReceptor"
	OpTiposCbte            = "FEParamGetTiposCbte"
	OpDummy                = "FEDummy"
)

// WSFEOptions configuración del cliente de facturación.
type WSFEOptions struct {
	Transport TransportConfig
	// URL fija (tests); vacío = endpoint según el modo del tenant.
	URL string
}

// WSFEClient llamadas SOAP a WSFEv1. No interpreta códigos de negocio: devuelve las
// respuestas decodificadas y la capa de aplicación aplica las reglas de domain/afip.
type WSFEClient struct {
	soap *soapClient
	url  string
}

// NewWSFEClient construye el cliente WSFE.
func NewWSFEClient(opts WSFEOptions) *WSFEClient {
	return &WSFEClient{soap: newSOAPClient(opts.Transport), url: opts.URL}
}

// ── Estructuras comunes ───────────────────────────────────────────────────────

type feAuth struct {
	Token string `xml:"Token"`
	Sign  string `xml:"Sign"`
	Cuit  int64  `xml:"Cuit"`
}

type feCodeMsg struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

func toCodeMessages(in []feCodeMsg) []entity.CodeMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.CodeMessage, len(in))
	for i, e := range in {
		out[i] = entity.CodeMessage{Code: e.Code, Msg: strings.TrimSpace(e.Msg)}
	}
	return out
}

// ── FECompUltimoAutorizado ────────────────────────────────────────────────────

type feCompUltimoAutorizadoReq struct {
	XMLName  xml.Name `xml:"FECompUltimoAutorizado"`
	Xmlns    string   `xml:"xmlns,attr"`
	Auth     feAuth   `xml:"Auth"`
	PtoVta   int      `xml:"PtoVta"`
	CbteTipo int      `xml:"CbteTipo"`
}

type feCompUltimoAutorizadoResp struct {
	Result struct {
		PtoVta   int         `xml:"PtoVta"`
		CbteTipo int         `xml:"CbteTipo"`
		CbteNro  int64       `xml:"CbteNro"`
		Errors   []feCodeMsg `xml:"Errors>Err"`
		Events   []feCodeMsg `xml:"Events>Evt"`
	} `xml:"FECompUltimoAutorizadoResult"`
}

// LastAuthorized consulta el último comprobante autorizado para el punto de venta y tipo.
func (c *WSFEClient) LastAuthorized(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, pointOfSale, cbteTipo int) (domainafip.LastAuthorizedResponse, error) {
	auth, err := c.auth(tenant, creds)
	if err != nil {
		return domainafip.LastAuthorizedResponse{}, err
	}
	body := feCompUltimoAutorizadoReq{Xmlns: wsfeNS, Auth: auth, PtoVta: pointOfSale, CbteTipo: cbteTipo}
	var resp feCompUltimoAutorizadoResp
	if err := c.invoke(ctx, tenant, OpUltimoAutorizado, body, &resp); err != nil {
		return domainafip.LastAuthorizedResponse{}, err
	}
	return domainafip.LastAuthorizedResponse{
		Number: resp.Result.CbteNro,
		Errors: toCodeMessages(resp.Result.Errors),
		Events: toCodeMessages(resp.Result.Events),
	}, nil
}

// ── FECAESolicitar ────────────────────────────────────────────────────────────

type feCAESolicitarReq struct {
	XMLName  xml.Name `xml:"FECAESolicitar"`
	Xmlns    string   `xml:"xmlns,attr"`
	Auth     feAuth   `xml:"Auth"`
	FeCAEReq feCAEReq `xml:"FeCAEReq"`
}

type feCAEReq struct {
	FeCabReq struct {
		CantReg  int `xml:"CantReg"`
		PtoVta   int `xml:"PtoVta"`
		CbteTipo int `xml:"CbteTipo"`
	} `xml:"FeCabReq"`
	FeDetReq []feCAEDetRequest `xml:"FeDetReq>FECAEDetRequest"`
}

// El orden de los campos sigue el WSDL de WSFEv1.
type feCAEDetRequest struct {
	Concepto               int          `xml:"Concepto"`
	DocTipo                int          `xml:"DocTipo"`
	DocNro                 int64        `xml:"DocNro"`
	CbteDesde              int64        `xml:"CbteDesde"`
	CbteHasta              int64        `xml:"CbteHasta"`
	CbteFch                string       `xml:"CbteFch"`
	ImpTotal               string       `xml:"ImpTotal"`
	ImpTotConc             string       `xml:"ImpTotConc"`
	ImpNeto                string       `xml:"ImpNeto"`
	ImpOpEx                string       `xml:"ImpOpEx"`
	ImpTrib                string       `xml:"ImpTrib"`
	ImpIVA                 string       `xml:"ImpIVA"`
	FchServDesde           string       `xml:"FchServDesde,omitempty"`
	FchServHasta           string       `xml:"FchServHasta,omitempty"`
	FchVtoPago             string       `xml:"FchVtoPago,omitempty"`
	MonID                  string       `xml:"MonId"`
	MonCotiz               string       `xml:"MonCotiz"`
	CondicionIVAReceptorID int          `xml:"CondicionIVAReceptorId"`
	CbtesAsoc              *feCbtesAsoc `xml:"CbtesAsoc,omitempty"`
	Iva                    *feIva       `xml:"Iva,omitempty"`
}

type feCbtesAsoc struct {
	CbteAsoc []feCbteAsoc `xml:"CbteAsoc"`
}

type feCbteAsoc struct {
	Tipo    int    `xml:"Tipo"`
	PtoVta  int    `xml:"PtoVta"`
	Nro     int64  `xml:"Nro"`
	Cuit    string `xml:"Cuit,omitempty"`
	CbteFch string `xml:"CbteFch,omitempty"`
}

type feIva struct {
	AlicIva []feAlicIva `xml:"AlicIva"`
}

type feAlicIva struct {
	ID      int    `xml:"Id"`
	BaseImp string `xml:"BaseImp"`
	Importe string `xml:"Importe"`
}

type feCAESolicitarResp struct {
	Result struct {
		FeCabResp struct {
			Resultado string `xml:"Resultado"`
		} `xml:"FeCabResp"`
		FeDetResp []feCAEDetResponse `xml:"FeDetResp>FECAEDetResponse"`
		Errors    []feCodeMsg        `xml:"Errors>Err"`
		Events    []feCodeMsg        `xml:"Events>Evt"`
	} `xml:"FECAESolicitarResult"`
}

type feCAEDetResponse struct {
	CbteDesde     int64       `xml:"CbteDesde"`
	CbteFch       string      `xml:"CbteFch"`
	Resultado     string      `xml:"Resultado"`
	Observaciones []feCodeMsg `xml:"Observaciones>Obs"`
	CAE           string      `xml:"CAE"`
	CAEFchVto     string      `xml:"CAEFchVto"`
}

// RequestCAE envía un único comprobante (CantReg = 1, CbteDesde == CbteHasta).
func (c *WSFEClient) RequestCAE(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, req entity.InvoiceRequest) (domainafip.CAEResponse, error) {
	auth, err := c.auth(tenant, creds)
	if err != nil {
		return domainafip.CAEResponse{}, err
	}
	body := feCAESolicitarReq{Xmlns: wsfeNS, Auth: auth, FeCAEReq: buildCAEReq(req)}

	var resp feCAESolicitarResp
	if err := c.invoke(ctx, tenant, OpCAESolicitar, body, &resp); err != nil {
		return domainafip.CAEResponse{}, err
	}

	out := domainafip.CAEResponse{
		Resultado: resp.Result.FeCabResp.Resultado,
		Errors:    toCodeMessages(resp.Result.Errors),
		Events:    toCodeMessages(resp.Result.Events),
	}
	for _, d := range resp.Result.FeDetResp {
		out.Details = append(out.Details, domainafip.CAEDetail{
			Resultado:    d.Resultado,
			CAE:          d.CAE,
			CAEFchVto:    d.CAEFchVto,
			CbteDesde:    d.CbteDesde,
			CbteFch:      d.CbteFch,
			Observations: toCodeMessages(d.Observaciones),
		})
	}
	return out, nil
}

func buildCAEReq(r entity.InvoiceRequest) feCAEReq {
	var req feCAEReq
	req.FeCabReq.CantReg = 1
	req.FeCabReq.PtoVta = r.PointOfSale
	req.FeCabReq.CbteTipo = r.DocumentType

	det := feCAEDetRequest{
		Concepto:               r.Concept,
		DocTipo:                r.DocType,
		DocNro:                 r.DocNumber,
		CbteDesde:              r.Number,
		CbteHasta:              r.Number,
		CbteFch:                r.Date,
		ImpTotal:               r.Total.StringFixed(2),
		ImpTotConc:             r.NonTaxed.StringFixed(2),
		ImpNeto:                r.Net.StringFixed(2),
		ImpOpEx:                r.Exempt.StringFixed(2),
		ImpTrib:                r.OtherTaxes.StringFixed(2),
		ImpIVA:                 r.VAT.StringFixed(2),
		FchServDesde:           r.ServiceFrom,
		FchServHasta:           r.ServiceTo,
		FchVtoPago:             r.PaymentDue,
		MonID:                  r.Currency,
		MonCotiz:               r.CurrencyRate.String(),
		CondicionIVAReceptorID: r.VATCondition,
	}
	if len(r.Associated) > 0 {
		det.CbtesAsoc = &feCbtesAsoc{}
		for _, a := range r.Associated {
			det.CbtesAsoc.CbteAsoc = append(det.CbtesAsoc.CbteAsoc, feCbteAsoc{
				Tipo: a.Type, PtoVta: a.PointOfSale, Nro: a.Number, Cuit: a.CUIT, CbteFch: a.Date,
			})
		}
	}
	if len(r.VATLines) > 0 {
		det.Iva = &feIva{}
		for _, l := range r.VATLines {
			det.Iva.AlicIva = append(det.Iva.AlicIva, feAlicIva{
				ID: l.AlicuotaID, BaseImp: l.Base.StringFixed(2), Importe: l.Amount.StringFixed(2),
			})
		}
	}
	req.FeDetReq = []feCAEDetRequest{det}
	return req
}

// ── FEParamGetCotizacion ──────────────────────────────────────────────────────

type feParamGetCotizacionReq struct {
	XMLName xml.Name `xml:"FEParamGetCotizacion"`
	Xmlns   string   `xml:"xmlns,attr"`
	Auth    feAuth   `xml:"Auth"`
	MonID   string   `xml:"MonId"`
}

type feParamGetCotizacionResp struct {
	Result struct {
		ResultGet struct {
			MonID    string `xml:"MonId"`
			MonCotiz string `xml:"MonCotiz"`
			FchCotiz string `xml:"FchCotiz"`
		} `xml:"ResultGet"`
		Errors []feCodeMsg `xml:"Errors>Err"`
	} `xml:"FEParamGetCotizacionResult"`
}

// CurrencyRate consulta la cotización oficial de una moneda.
func (c *WSFEClient) CurrencyRate(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, currency string) (domainafip.CurrencyResponse, error) {
	auth, err := c.auth(tenant, creds)
	if err != nil {
		return domainafip.CurrencyResponse{}, err
	}
	body := feParamGetCotizacionReq{Xmlns: wsfeNS, Auth: auth, MonID: currency}
	var resp feParamGetCotizacionResp
	if err := c.invoke(ctx, tenant, OpCotizacion, body, &resp); err != nil {
		return domainafip.CurrencyResponse{}, err
	}
	rg := resp.Result.ResultGet
	return domainafip.CurrencyResponse{
		Currency: rg.MonID,
		Rate:     rg.MonCotiz,
		Date:     rg.FchCotiz,
		Errors:   toCodeMessages(resp.Result.Errors),
	}, nil
}

// ── FEParamGet* (tablas) ──────────────────────────────────────────────────────

type feParamReq struct {
	XMLName  xml.Name
	Xmlns    string `xml:"xmlns,attr"`
	Auth     feAuth `xml:"Auth"`
	ClaseCmp string `xml:"ClaseCmp,omitempty"`
}

type feParamItem struct {
	ID       string `xml:"Id"`
	Desc     string `xml:"Desc"`
	FchDesde string `xml:"FchDesde"`
	FchHasta string `xml:"FchHasta"`
}

// feParamResp decodifica <XResponse><XResult><ResultGet><Item/>...</ResultGet><Errors/></XResult></XResponse>
// para cualquier tabla: los ítems se toman de ResultGet sin importar el nombre del elemento.
type feParamResp struct {
	Result struct {
		ResultGet struct {
			Items []feParamItem `xml:",any"`
		} `xml:"ResultGet"`
		Errors []feCodeMsg `xml:"Errors>Err"`
	} `xml:",any"`
}

// VATTypes FEParamGetTiposIva.
func (c *WSFEClient) VATTypes(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials) (domainafip.ParamResponse, error) {
	return c.params(ctx, tenant, creds, OpTiposIva, "")
}

// ReceiverConditions FEParamGetCondicionIvaReceptor; class filtra por clase de comprobante (A, B, C).
func (c *WSFEClient) ReceiverConditions(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, class string) (domainafip.ParamResponse, error) {
	return c.params(ctx, tenant, creds, OpCondicionIvaReceptor, strings.ToUpper(strings.TrimSpace(class)))
}

// DocumentTypes FEParamGetTiposCbte.
func (c *WSFEClient) DocumentTypes(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials) (domainafip.ParamResponse, error) {
	return c.params(ctx, tenant, creds, OpTiposCbte, "")
}

func (c *WSFEClient) params(ctx context.Context, tenant *entity.Tenant, creds entity.Credentials, op, class string) (domainafip.ParamResponse, error) {
	auth, err := c.auth(tenant, creds)
	if err != nil {
		return domainafip.ParamResponse{}, err
	}
	body := feParamReq{XMLName: xml.Name{Local: op}, Xmlns: wsfeNS, Auth: auth, ClaseCmp: class}
	var resp feParamResp
	if err := c.invoke(ctx, tenant, op, body, &resp); err != nil {
		return domainafip.ParamResponse{}, err
	}
	out := domainafip.ParamResponse{Errors: toCodeMessages(resp.Result.Errors)}
	for _, it := range resp.Result.ResultGet.Items {
		out.Items = append(out.Items, entity.ParamItem{
			ID:          strings.TrimSpace(it.ID),
			Description: strings.TrimSpace(it.Desc),
			ValidFrom:   strings.TrimSpace(it.FchDesde),
			ValidTo:     strings.TrimSpace(it.FchHasta),
		})
	}
	return out, nil
}

// ── FEDummy ───────────────────────────────────────────────────────────────────

type feDummyReq struct {
	XMLName xml.Name `xml:"FEDummy"`
	Xmlns   string   `xml:"xmlns,attr"`
}

type feDummyResp struct {
	Result struct {
		AppServer  string `xml:"AppServer"`
		DbServer   string `xml:"DbServer"`
		AuthServer string `xml:"AuthServer"`
	} `xml:"FEDummyResult"`
}

// Dummy consulta el estado de los servidores de AFIP; no requiere autenticación.
func (c *WSFEClient) Dummy(ctx context.Context, mode string) (entity.ServiceStatus, error) {
	var resp feDummyResp
	if err := c.soap.call(ctx, pkgafip.ServiceWSFE, OpDummy, c.endpoint(mode), wsfeNS+OpDummy, feDummyReq{Xmlns: wsfeNS}, &resp); err != nil {
		return entity.ServiceStatus{}, asRemote(OpDummy, err)
	}
	return entity.ServiceStatus{
		AppServer:  resp.Result.AppServer,
		DbServer:   resp.Result.DbServer,
		AuthServer: resp.Result.AuthServer,
	}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (c *WSFEClient) endpoint(mode string) string {
	if c.url != "" {
		return c.url
	}
	return pkgafip.WSFEURL(mode)
}

func (c *WSFEClient) invoke(ctx context.Context, tenant *entity.Tenant, op string, body, out interface{}) error {
	if err := c.soap.call(ctx, pkgafip.ServiceWSFE, op, c.endpoint(tenant.Mode), wsfeNS+op, body, out); err != nil {
		return asRemote(op, err)
	}
	return nil
}

func (c *WSFEClient) auth(tenant *entity.Tenant, creds entity.Credentials) (feAuth, error) {
	cuit, err := strconv.ParseInt(pkgafip.DigitsOnly(tenant.CUIT), 10, 64)
	if err != nil || !pkgafip.HasCUITLength(tenant.CUIT) {
		return feAuth{}, &domain.ValidationError{Field: "cuit", Reason: "CUIT del emisor inválido: " + tenant.CUIT}
	}
	return feAuth{Token: creds.Token, Sign: creds.Sign, Cuit: cuit}, nil
}

// asRemote convierte un Fault en RemoteServiceError; los demás errores ya lo son.
func asRemote(op string, err error) error {
	var f *FaultError
	if errors.As(err, &f) {
		return &domain.RemoteServiceError{
			Service:   pkgafip.ServiceWSFE,
			Operation: op,
			Messages:  []string{f.Code + ": " + f.String},
			Err:       f,
		}
	}
	return err
}
