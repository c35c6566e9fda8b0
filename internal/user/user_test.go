package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/antonminaichev/dermamart/internal/auth"
	"github.com/antonminaichev/dermamart/internal/storage"
	"github.com/antonminaichev/dermamart/internal/types/user"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockRepo struct {
	createUserFn      func(ctx context.Context, u *user.User) error
	findByEmailFn     func(ctx context.Context, email string) (*user.User, error)
	findByIDFn        func(ctx context.Context, id string) (*user.User, error)
	listUsersFn       func(ctx context.Context) ([]user.User, error)
	updateUserRoleFn  func(ctx context.Context, id, role string) (*user.User, error)
}

func (m *mockRepo) CreateUser(ctx context.Context, u *user.User) error {
	return m.createUserFn(ctx, u)
}
func (m *mockRepo) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.findByEmailFn(ctx, email)
}
func (m *mockRepo) FindUserByID(ctx context.Context, id string) (*user.User, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockRepo) ListUsers(ctx context.Context) ([]user.User, error) {
	return m.listUsersFn(ctx)
}
func (m *mockRepo) UpdateUserRole(ctx context.Context, id, role string) (*user.User, error) {
	return m.updateUserRoleFn(ctx, id, role)
}

// memRepo is a tiny map-backed repo for tests that exercise the whole
// register/login round trip.
func memRepo() *mockRepo {
	byEmail := make(map[string]*user.User)
	return &mockRepo{
		createUserFn: func(ctx context.Context, u *user.User) error {
			if _, exists := byEmail[u.Email]; exists {
				return storage.ErrUserExists
			}
			cp := *u
			byEmail[u.Email] = &cp
			return nil
		},
		findByEmailFn: func(ctx context.Context, email string) (*user.User, error) {
			u, ok := byEmail[email]
			if !ok {
				return nil, storage.ErrUserNotFound
			}
			cp := *u
			return &cp, nil
		},
	}
}

func TestRegister(t *testing.T) {
	svc := NewService(memRepo(), []byte("secret"), time.Hour)

	u, err := svc.Register(context.Background(), "Anna", "anna@example.com", "longenough")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, string(auth.RoleUser), u.Role, "registration never grants a privileged role")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("longenough")))

	_, err = svc.Register(context.Background(), "Anna", "anna@example.com", "longenough")
	assert.ErrorIs(t, err, storage.ErrUserExists)
}

func TestRegisterShortPassword(t *testing.T) {
	called := false
	repo := &mockRepo{createUserFn: func(ctx context.Context, u *user.User) error {
		called = true
		return nil
	}}
	svc := NewService(repo, []byte("secret"), time.Hour)

	_, err := svc.Register(context.Background(), "Anna", "anna@example.com", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	assert.False(t, called)
}

func TestAuthenticate(t *testing.T) {
	repo := memRepo()
	svc := NewService(repo, []byte("secret"), time.Hour)
	_, err := svc.Register(context.Background(), "Anna", "anna@example.com", "longenough")
	require.NoError(t, err)

	token, err := svc.Authenticate(context.Background(), "anna@example.com", "longenough")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "anna@example.com", claims.Subject)

	_, err = svc.Authenticate(context.Background(), "anna@example.com", "wrongpass")
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "longenough")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestChangeRole(t *testing.T) {
	repo := &mockRepo{
		updateUserRoleFn: func(ctx context.Context, id, role string) (*user.User, error) {
			return &user.User{ID: id, Role: role}, nil
		},
	}
	svc := NewService(repo, []byte("secret"), time.Hour)

	u, err := svc.ChangeRole(context.Background(), "u1", "pharmacist")
	require.NoError(t, err)
	assert.Equal(t, "pharmacist", u.Role)

	_, err = svc.ChangeRole(context.Background(), "u1", "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegisterHandler(t *testing.T) {
	svc := NewService(memRepo(), []byte("secret"), time.Hour)
	h := NewHandler(svc)

	body, _ := json.Marshal(map[string]string{
		"name":     "Anna",
		"email":    "anna@example.com",
		"password": "longenough",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Authorization"), "Bearer ")
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	// Same email again.
	req = httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	h.Register(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterHandlerValidation(t *testing.T) {
	svc := NewService(memRepo(), []byte("secret"), time.Hour)
	h := NewHandler(svc)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"name": "Anna", "password": "longenough"}},
		{"malformed email", map[string]string{"name": "Anna", "email": "nope", "password": "longenough"}},
		{"short password", map[string]string{"name": "Anna", "email": "anna@example.com", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			h.Register(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	repo := memRepo()
	svc := NewService(repo, []byte("secret"), time.Hour)
	_, err := svc.Register(context.Background(), "Anna", "anna@example.com", "longenough")
	require.NoError(t, err)
	h := NewHandler(svc)

	body, _ := json.Marshal(map[string]string{"email": "anna@example.com", "password": "longenough"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	body, _ = json.Marshal(map[string]string{"email": "anna@example.com", "password": "wrongpass"})
	req = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
