package commands_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/afip-bridge/cmd/afipctl/commands"
	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
	"github.com/jhoicas/afip-bridge/pkg/logger"
)

type mockInvoices struct {
	mock.Mock
}

func (m *mockInvoices) GetLastAuthorizedNumber(ctx context.Context, tenant *entity.Tenant, pointOfSale, documentType int) (int64, error) {
	args := m.Called(ctx, tenant, pointOfSale, documentType)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInvoices) RequestAuthorization(ctx context.Context, tenant *entity.Tenant, data entity.InvoiceData) (entity.AuthorizationResult, error) {
	args := m.Called(ctx, tenant, data)
	return args.Get(0).(entity.AuthorizationResult), args.Error(1)
}

func (m *mockInvoices) GetCurrencyRate(ctx context.Context, tenant *entity.Tenant, currency string) (entity.CurrencyRate, error) {
	args := m.Called(ctx, tenant, currency)
	return args.Get(0).(entity.CurrencyRate), args.Error(1)
}

func (m *mockInvoices) Status(ctx context.Context, mode string) (entity.ServiceStatus, error) {
	args := m.Called(ctx, mode)
	return args.Get(0).(entity.ServiceStatus), args.Error(1)
}

type issuerFunc func(service string) (entity.Credentials, error)

func (f issuerFunc) Authenticate(_ context.Context, service string, _ *entity.Tenant) (entity.Credentials, error) {
	return f(service)
}

func cliTenant() *entity.Tenant {
	return &entity.Tenant{ID: "t-1", CUIT: "20278280641", Name: "Astrial SA", Mode: pkgafip.ModeTest, CertPath: "/c.crt"}
}

func capture(in string) (commands.IOTuple, *bytes.Buffer) {
	var out bytes.Buffer
	return commands.IOTuple{Reader: strings.NewReader(in), Writer: &out}, &out
}

func TestRunTicket(t *testing.T) {
	io, out := capture("")
	issuer := issuerFunc(func(service string) (entity.Credentials, error) {
		assert.Equal(t, "wsfe", service)
		return entity.Credentials{Token: "TOKEN", Sign: "SIGN"}, nil
	})

	require.NoError(t, commands.RunTicket(context.Background(), issuer, logger.Nop(), cliTenant(), "wsfe", io))

	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "TOKEN", got["token"])
	assert.Equal(t, "SIGN", got["sign"])
	assert.Equal(t, "20278280641", got["cuit"])
}

func TestRunTicket_ErrorDeCertificado(t *testing.T) {
	io, _ := capture("")
	issuer := issuerFunc(func(string) (entity.Credentials, error) {
		return entity.Credentials{}, &domain.CertificateError{Path: "/c.crt", Err: os.ErrNotExist}
	})
	err := commands.RunTicket(context.Background(), issuer, logger.Nop(), cliTenant(), "wsfe", io)
	assert.ErrorIs(t, err, domain.ErrCertificate)
}

func TestRunLastNumber(t *testing.T) {
	ctx := context.Background()
	tenant := cliTenant()

	t.Run("ok", func(t *testing.T) {
		svc := &mockInvoices{}
		svc.On("GetLastAuthorizedNumber", ctx, tenant, 3, 6).Return(int64(120), nil)
		io, out := capture("")

		require.NoError(t, commands.RunLastNumber(ctx, svc, tenant, 3, 6, io))
		var got dto.LastNumberResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, int64(120), got.LastNumber)
		svc.AssertExpectations(t)
	})

	t.Run("parametros faltantes", func(t *testing.T) {
		svc := &mockInvoices{}
		io, _ := capture("")
		assert.Error(t, commands.RunLastNumber(ctx, svc, tenant, 0, 6, io))
		svc.AssertNotCalled(t, "GetLastAuthorizedNumber", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

const caeJSON = `{"document_type":6,"point_of_sale":3,"receiver_doc_type":99,"receiver_doc_number":"0","net":"100","vat":"21","total":"121","vat_rate":"21"}`

func TestRunRequestCAE(t *testing.T) {
	ctx := context.Background()
	tenant := cliTenant()
	matches := mock.MatchedBy(func(d entity.InvoiceData) bool {
		return d.DocumentType == 6 && d.PointOfSale == 3 && d.Total.Equal(decimal.NewFromInt(121))
	})

	t.Run("aprobado desde stdin", func(t *testing.T) {
		svc := &mockInvoices{}
		svc.On("RequestAuthorization", ctx, tenant, matches).Return(entity.AuthorizationResult{
			Success:           true,
			AuthorizationCode: "74181234567890",
			ExpiryDate:        "2024-05-20",
			RemoteStatus:      "A",
			DocumentType:      6,
			PointOfSale:       3,
			Number:            42,
			Total:             decimal.NewFromInt(121),
		}, nil)
		io, out := capture(caeJSON)

		require.NoError(t, commands.RunRequestCAE(ctx, svc, logger.Nop(), tenant, "-", io))
		var got dto.AuthorizationResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		require.NotNil(t, got.CAE)
		assert.Equal(t, "74181234567890", *got.CAE)
		assert.Equal(t, int64(42), got.Number)
		svc.AssertExpectations(t)
	})

	t.Run("rechazado desde archivo", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "factura.json")
		require.NoError(t, os.WriteFile(path, []byte(caeJSON), 0o600))

		svc := &mockInvoices{}
		svc.On("RequestAuthorization", ctx, tenant, matches).Return(entity.AuthorizationResult{
			RemoteStatus: "R",
			Observations: []string{"10015: documento inválido"},
		}, nil)
		io, out := capture("")

		err := commands.RunRequestCAE(ctx, svc, logger.Nop(), tenant, path, io)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "10015")
		assert.Contains(t, out.String(), `"cae": null`)
	})

	t.Run("json invalido", func(t *testing.T) {
		svc := &mockInvoices{}
		io, _ := capture("{")
		assert.Error(t, commands.RunRequestCAE(ctx, svc, logger.Nop(), tenant, "", io))
	})

	t.Run("archivo inexistente", func(t *testing.T) {
		svc := &mockInvoices{}
		io, _ := capture("")
		assert.Error(t, commands.RunRequestCAE(ctx, svc, logger.Nop(), tenant, "/no/existe.json", io))
	})
}

func TestRunCurrencyRate(t *testing.T) {
	ctx := context.Background()
	tenant := cliTenant()
	svc := &mockInvoices{}
	svc.On("GetCurrencyRate", ctx, tenant, "DOL").Return(entity.CurrencyRate{
		Currency: "DOL",
		Rate:     decimal.RequireFromString("870.5"),
		AsOf:     "2024-05-09",
	}, nil)
	io, out := capture("")

	require.NoError(t, commands.RunCurrencyRate(ctx, svc, tenant, " dol ", io))
	var got dto.CurrencyRateResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Rate.Equal(decimal.RequireFromString("870.5")))
	svc.AssertExpectations(t)
}

func TestRunStatus(t *testing.T) {
	ctx := context.Background()
	svc := &mockInvoices{}
	svc.On("Status", ctx, pkgafip.ModeTest).Return(entity.ServiceStatus{AppServer: "OK", DbServer: "OK", AuthServer: "OK"}, nil)
	io, out := capture("")

	require.NoError(t, commands.RunStatus(ctx, svc, pkgafip.ModeTest, io))
	assert.Contains(t, out.String(), `"app_server": "OK"`)
}

func writeCert(t *testing.T, notAfter time.Time) pkgafip.KeyPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(255),
		Subject:      pkix.Name{CommonName: "afipctl-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &key.PublicKey, key)
	require.NoError(t, err)

	dir := t.TempDir()
	kp := pkgafip.KeyPair{CertPath: filepath.Join(dir, "c.crt"), KeyPath: filepath.Join(dir, "c.key")}
	require.NoError(t, os.WriteFile(kp.CertPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(kp.KeyPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}), 0o600))
	return kp
}

func TestRunCertCheck(t *testing.T) {
	now := time.Now()

	t.Run("vigente", func(t *testing.T) {
		io, out := capture("")
		require.NoError(t, commands.RunCertCheck(writeCert(t, now.Add(365*24*time.Hour)), now, io))
		assert.Contains(t, out.String(), "CN=afipctl-test")
		assert.Contains(t, out.String(), "Serie:       ff")
		assert.NotContains(t, out.String(), "ATENCIÓN")
	})

	t.Run("por vencer", func(t *testing.T) {
		io, out := capture("")
		require.NoError(t, commands.RunCertCheck(writeCert(t, now.Add(10*24*time.Hour+time.Hour)), now, io))
		assert.Contains(t, out.String(), "ATENCIÓN: vence en 10 días")
	})

	t.Run("inexistente", func(t *testing.T) {
		io, _ := capture("")
		err := commands.RunCertCheck(pkgafip.KeyPair{CertPath: "/no/existe.crt"}, now, io)
		assert.ErrorIs(t, err, domain.ErrCertificate)
	})
}

func TestRunConvertPFX_SinDestino(t *testing.T) {
	io, _ := capture("")
	assert.Error(t, commands.RunConvertPFX("/x.p12", "", "", "", io))
	assert.ErrorIs(t, commands.RunConvertPFX("/no/existe.p12", "", "c.pem", "k.pem", io), domain.ErrCertificate)
}

type registrarFunc func(tenantID string, in dto.RegisterRequest) (*dto.UserResponse, error)

func (f registrarFunc) RegisterUser(_ context.Context, tenantID string, in dto.RegisterRequest) (*dto.UserResponse, error) {
	return f(tenantID, in)
}

func TestRunCreateUser(t *testing.T) {
	ctx := context.Background()
	users := registrarFunc(func(tenantID string, in dto.RegisterRequest) (*dto.UserResponse, error) {
		if in.Email == "dup@astrial.com" {
			return nil, domain.ErrEmailAlreadyExists
		}
		return &dto.UserResponse{ID: "u-1", TenantID: tenantID, Email: in.Email, Role: in.Role}, nil
	})

	io, out := capture("")
	err := commands.RunCreateUser(ctx, users, logger.Nop(), "t-1", dto.RegisterRequest{Email: "admin@astrial.com", Password: "secreto123", Role: entity.RoleAdmin}, io)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"tenant_id": "t-1"`)

	err = commands.RunCreateUser(ctx, users, logger.Nop(), "t-1", dto.RegisterRequest{Email: "dup@astrial.com", Password: "secreto123"}, io)
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	assert.Error(t, commands.RunCreateUser(ctx, users, logger.Nop(), "t-1", dto.RegisterRequest{Email: "a@b.com", Password: "corta"}, io))
	assert.Error(t, commands.RunCreateUser(ctx, users, logger.Nop(), "", dto.RegisterRequest{Email: "a@b.com", Password: "secreto123"}, io))
}

type bootstrapFunc func(t *entity.Tenant) (*entity.Tenant, error)

func (f bootstrapFunc) Bootstrap(_ context.Context, t *entity.Tenant) (*entity.Tenant, error) {
	return f(t)
}

func TestRunBootstrapTenant(t *testing.T) {
	ctx := context.Background()
	b := bootstrapFunc(func(t *entity.Tenant) (*entity.Tenant, error) {
		out := *t
		out.ID = "nuevo-id"
		return &out, nil
	})

	io, out := capture("")
	id, err := commands.RunBootstrapTenant(ctx, b, cliTenant(), io)
	require.NoError(t, err)
	assert.Equal(t, "nuevo-id", id)
	assert.Contains(t, out.String(), `"cuit": "20278280641"`)

	_, err = commands.RunBootstrapTenant(ctx, b, nil, io)
	assert.Error(t, err)
}

func TestRunMigrations_DirectorioInexistente(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "no-existe")
	err := commands.RunMigrations(logger.Nop(), dir, "postgres://u:p@127.0.0.1:1/afip?sslmode=disable")
	assert.Error(t, err)
}
