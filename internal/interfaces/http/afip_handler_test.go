package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/afip-bridge/internal/application/billing"
	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/domain"
	domainafip "github.com/jhoicas/afip-bridge/internal/domain/afip"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	apphttp "github.com/jhoicas/afip-bridge/internal/interfaces/http"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

type staticAuth struct{}

func (staticAuth) Authenticate(context.Context, string, *entity.Tenant) (entity.Credentials, error) {
	return entity.Credentials{Token: "T", Sign: "S"}, nil
}

// stubGateway respuestas fijas de WSFE.
type stubGateway struct {
	last   domainafip.LastAuthorizedResponse
	cae    domainafip.CAEResponse
	caeErr error
	rate   domainafip.CurrencyResponse
	params domainafip.ParamResponse
	status entity.ServiceStatus
}

func (g *stubGateway) LastAuthorized(context.Context, *entity.Tenant, entity.Credentials, int, int) (domainafip.LastAuthorizedResponse, error) {
	return g.last, nil
}

func (g *stubGateway) RequestCAE(context.Context, *entity.Tenant, entity.Credentials, entity.InvoiceRequest) (domainafip.CAEResponse, error) {
	return g.cae, g.caeErr
}

func (g *stubGateway) CurrencyRate(context.Context, *entity.Tenant, entity.Credentials, string) (domainafip.CurrencyResponse, error) {
	return g.rate, nil
}

func (g *stubGateway) VATTypes(context.Context, *entity.Tenant, entity.Credentials) (domainafip.ParamResponse, error) {
	return g.params, nil
}

func (g *stubGateway) ReceiverConditions(context.Context, *entity.Tenant, entity.Credentials, string) (domainafip.ParamResponse, error) {
	return g.params, nil
}

func (g *stubGateway) DocumentTypes(context.Context, *entity.Tenant, entity.Credentials) (domainafip.ParamResponse, error) {
	return g.params, nil
}

func (g *stubGateway) Dummy(context.Context, string) (entity.ServiceStatus, error) {
	return g.status, nil
}

type stubTenants map[string]*entity.Tenant

func (s stubTenants) Resolve(_ context.Context, id string) (*entity.Tenant, error) {
	t, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if t.Status != entity.TenantStatusActive {
		return nil, domain.ErrForbidden
	}
	return t, nil
}

const suspendedTenantID = "suspendido"

func newAPI(t *testing.T, gw *stubGateway) *fiber.App {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, domainafip.Location()) }
	svc := billing.NewInvoiceService(gw, staticAuth{}, nil, billing.ServiceConfig{Now: now})
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Invoices:  svc,
		Documents: billing.NewDocumentAuthorizer(nil, nil, svc, nil),
		Tenants: stubTenants{
			testTenantID:      {ID: testTenantID, CUIT: "20278280641", CertPath: "/c.crt", Mode: pkgafip.ModeTest, Status: entity.TenantStatusActive},
			suspendedTenantID: {ID: suspendedTenantID, CUIT: "30712345671", Status: entity.TenantStatusSuspended},
		},
		JWTSecret: testJWTSecret,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, auth, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestUltimoComprobante(t *testing.T) {
	app := newAPI(t, &stubGateway{last: domainafip.LastAuthorizedResponse{Number: 41}})
	resp, body := call(t, app, http.MethodGet, "/api/afip/ultimo-comprobante?punto_venta=1&tipo=6", tokenForRole(t, "operador"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out dto.LastNumberResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, int64(41), out.LastNumber)
}

func TestUltimoComprobante_SinPrevios(t *testing.T) {
	gw := &stubGateway{last: domainafip.LastAuthorizedResponse{Errors: []entity.CodeMessage{{Code: pkgafip.ErrCodeSinComprobantes, Msg: "sin comprobantes"}}}}
	app := newAPI(t, gw)
	resp, body := call(t, app, http.MethodGet, "/api/afip/ultimo-comprobante?punto_venta=3&tipo=11", tokenForRole(t, "operador"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"last_number":0`)
}

func TestUltimoComprobante_FaltanParametros(t *testing.T) {
	app := newAPI(t, &stubGateway{})
	resp, _ := call(t, app, http.MethodGet, "/api/afip/ultimo-comprobante?tipo=6", tokenForRole(t, "operador"), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

const facturaB = `{"document_type":6,"point_of_sale":1,"date":"2024-05-10","receiver_doc_number":"0",
	"net":"100","vat":"21","total":"121","vat_rate":"21"}`

func TestObtenerCAE(t *testing.T) {
	gw := &stubGateway{
		last: domainafip.LastAuthorizedResponse{Number: 41},
		cae: domainafip.CAEResponse{Resultado: "A", Details: []domainafip.CAEDetail{{
			Resultado: "A", CAE: "74181234567890", CAEFchVto: "20240520", CbteDesde: 42,
		}}},
	}
	app := newAPI(t, gw)
	resp, body := call(t, app, http.MethodPost, "/api/afip/obtener-cae", tokenForRole(t, "operador"), facturaB)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out dto.AuthorizationResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	require.NotNil(t, out.CAE)
	assert.Equal(t, "74181234567890", *out.CAE)
	assert.Equal(t, "2024-05-20", *out.CAEExpiry)
	assert.Equal(t, int64(42), out.Number)
	assert.Equal(t, "121", out.Total.String())
	assert.Empty(t, out.Observations)
}

func TestObtenerCAE_Rechazado(t *testing.T) {
	gw := &stubGateway{
		last: domainafip.LastAuthorizedResponse{Number: 41},
		cae:  domainafip.CAEResponse{Errors: []entity.CodeMessage{{Code: 10016, Msg: "fecha fuera de rango"}}},
	}
	app := newAPI(t, gw)
	resp, body := call(t, app, http.MethodPost, "/api/afip/obtener-cae", tokenForRole(t, "operador"), facturaB)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var out dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "AFIP_REJECTED", out.Code)
	assert.Equal(t, []string{"10016: fecha fuera de rango"}, out.Details)
}

func TestObtenerCAE_ValidacionLocal(t *testing.T) {
	app := newAPI(t, &stubGateway{})
	bad := strings.Replace(facturaB, `"total":"121"`, `"total":"150"`, 1)
	resp, body := call(t, app, http.MethodPost, "/api/afip/obtener-cae", tokenForRole(t, "operador"), bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "VALIDATION")
}

func TestObtenerCAE_ServicioCaido(t *testing.T) {
	gw := &stubGateway{
		last:   domainafip.LastAuthorizedResponse{Number: 1},
		caeErr: &domain.RemoteServiceError{Service: "wsfe", Operation: "FECAESolicitar", Messages: []string{"HTTP 503"}},
	}
	app := newAPI(t, gw)
	resp, body := call(t, app, http.MethodPost, "/api/afip/obtener-cae", tokenForRole(t, "operador"), facturaB)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), "AFIP_UNAVAILABLE")
}

func TestObtenerCAE_CuerpoInvalido(t *testing.T) {
	app := newAPI(t, &stubGateway{})
	resp, _ := call(t, app, http.MethodPost, "/api/afip/obtener-cae", tokenForRole(t, "operador"), `{"document_type":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEstadoYParametros(t *testing.T) {
	gw := &stubGateway{
		status: entity.ServiceStatus{AppServer: "OK", DbServer: "OK", AuthServer: "OK"},
		params: domainafip.ParamResponse{Items: []entity.ParamItem{{ID: "5", Description: "21%", ValidFrom: "20090220", ValidTo: "NULL"}}},
	}
	app := newAPI(t, gw)

	resp, body := call(t, app, http.MethodGet, "/api/afip/estado", tokenForRole(t, "operador"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"app_server":"OK"`)

	resp, body = call(t, app, http.MethodGet, "/api/afip/condiciones-iva", tokenForRole(t, "operador"), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []dto.ParamItemResponse
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "2009-02-20", items[0].ValidFrom)
	assert.Empty(t, items[0].ValidTo)
}

func TestAutorizaciones_SinAuditoria(t *testing.T) {
	app := newAPI(t, &stubGateway{})
	resp, _ := call(t, app, http.MethodGet, "/api/afip/autorizaciones", tokenForRole(t, "operador"), "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestTenantSuspendido(t *testing.T) {
	app := newAPI(t, &stubGateway{})
	resp, body := call(t, app, http.MethodGet, "/api/afip/estado", tokenFor(t, suspendedTenantID, "operador"), "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, string(body), "TENANT_DISABLED")
}

func TestSinToken(t *testing.T) {
	app := newAPI(t, &stubGateway{})
	resp, _ := call(t, app, http.MethodGet, "/api/afip/estado", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDocumentos_TenantSinERP(t *testing.T) {
	app := newAPI(t, &stubGateway{})
	resp, body := call(t, app, http.MethodGet, "/api/documentos/sin-cae", tokenForRole(t, "operador"), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "erp")

	resp, _ = call(t, app, http.MethodPost, "/api/documentos/FCB/1/abc/cae", tokenForRole(t, "operador"), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
