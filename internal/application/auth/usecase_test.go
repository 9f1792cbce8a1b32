package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/afip-bridge/internal/application/auth"
	"github.com/jhoicas/afip-bridge/internal/application/dto"
	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/pkg/jwt"
)

type memUsers struct {
	byEmail map[string]*entity.User
}

func (m *memUsers) Create(u *entity.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return domain.ErrEmailAlreadyExists
	}
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) GetByID(id string) (*entity.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(email string) (*entity.User, error) {
	return m.byEmail[email], nil
}

func (m *memUsers) Update(*entity.User) error {
	return nil
}

func (m *memUsers) ListByTenant(string, int, int) ([]*entity.User, error) {
	return nil, nil
}

func (m *memUsers) Delete(string) error {
	return nil
}

type memTenants struct {
	byID map[string]*entity.Tenant
}

func (m *memTenants) Create(_ context.Context, t *entity.Tenant) error {
	m.byID[t.ID] = t
	return nil
}

func (m *memTenants) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	return m.byID[id], nil
}

func (m *memTenants) GetByCUIT(context.Context, string) (*entity.Tenant, error) {
	return nil, nil
}

func (m *memTenants) Update(context.Context, *entity.Tenant) error {
	return nil
}

func (m *memTenants) List(context.Context, int, int) ([]*entity.Tenant, error) {
	return nil, nil
}

const secret = "secreto-de-prueba"

func setup(t *testing.T) (*auth.AuthUseCase, *memUsers, *memTenants) {
	t.Helper()
	users := &memUsers{byEmail: map[string]*entity.User{}}
	tenants := &memTenants{byID: map[string]*entity.Tenant{
		"t-1": {ID: "t-1", CUIT: "20278280641", Status: entity.TenantStatusActive},
		"t-2": {ID: "t-2", CUIT: "30712345671", Status: entity.TenantStatusSuspended},
	}}
	uc := auth.NewAuthUseCase(users, tenants, auth.JWTConfig{Secret: secret, ExpMinutes: 5, Issuer: "afip-bridge"})
	return uc, users, tenants
}

func TestRegisterYLogin(t *testing.T) {
	uc, users, _ := setup(t)
	ctx := context.Background()

	out, err := uc.RegisterUser(ctx, "t-1", dto.RegisterRequest{Email: " Caja@Empresa.com ", Password: "12345678"})
	require.NoError(t, err)
	assert.Equal(t, "caja@empresa.com", out.Email)
	assert.Equal(t, entity.RoleOperador, out.Role)
	assert.Equal(t, "t-1", out.TenantID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.byEmail["caja@empresa.com"].PasswordHash), []byte("12345678")))

	login, err := uc.Login(ctx, dto.LoginRequest{Email: "CAJA@empresa.com", Password: "12345678"})
	require.NoError(t, err)
	claims, err := jwt.Parse(secret, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "t-1", claims.TenantID)
	assert.Equal(t, out.ID, claims.UserID)
}

func TestRegister_EmailDuplicado(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, "t-1", dto.RegisterRequest{Email: "a@b.com", Password: "12345678"})
	require.NoError(t, err)
	_, err = uc.RegisterUser(ctx, "t-1", dto.RegisterRequest{Email: "a@b.com", Password: "12345678"})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestRegister_TenantInexistente(t *testing.T) {
	uc, _, _ := setup(t)
	_, err := uc.RegisterUser(context.Background(), "nope", dto.RegisterRequest{Email: "a@b.com", Password: "12345678"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLogin_Errores(t *testing.T) {
	uc, _, _ := setup(t)
	ctx := context.Background()
	_, err := uc.RegisterUser(ctx, "t-1", dto.RegisterRequest{Email: "a@b.com", Password: "12345678"})
	require.NoError(t, err)
	_, err = uc.RegisterUser(ctx, "t-2", dto.RegisterRequest{Email: "s@b.com", Password: "12345678"})
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "x@b.com", Password: "12345678"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "a@b.com", Password: "incorrecta"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "s@b.com", Password: "12345678"})
	assert.ErrorIs(t, err, domain.ErrForbidden, "tenant suspendido")
}
