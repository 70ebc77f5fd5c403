package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glowhouse/portal-backend-go/internal/domain/auth"
	"github.com/glowhouse/portal-backend-go/internal/domain/employee"
	"github.com/glowhouse/portal-backend-go/internal/pkg/jwt"
	authService "github.com/glowhouse/portal-backend-go/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	handlerTestSecret     = "test-secret-key-for-jwt"
	handlerTestAccessExp  = "1h"
	handlerTestRefreshExp = "24h"
	handlerTestPassword   = "password123"
)

type memEmployeeRepo struct {
	employees map[string]employee.Employee
}

func (r *memEmployeeRepo) GetByEmail(ctx context.Context, email string) (employee.Employee, error) {
	emp, ok := r.employees[email]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func (r *memEmployeeRepo) ListApprovers(ctx context.Context) ([]employee.Employee, error) {
	return nil, nil
}

func (r *memEmployeeRepo) Create(ctx context.Context, emp employee.Employee) (employee.Employee, error) {
	r.employees[emp.Email] = emp
	return emp, nil
}

func (r *memEmployeeRepo) Update(ctx context.Context, emp employee.Employee) error {
	r.employees[emp.Email] = emp
	return nil
}

func createAuthHandler(t *testing.T) AuthHandler {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(handlerTestPassword), bcrypt.DefaultCost)
	require.NoError(t, err)
	hashedStr := string(hashed)

	repo := &memEmployeeRepo{employees: map[string]employee.Employee{
		"alice@glowhouse.test": {
			Email:        "alice@glowhouse.test",
			FullName:     "Alice",
			PasswordHash: &hashedStr,
			Active:       true,
		},
	}}

	jwtSvc := jwt.NewJWTService(handlerTestSecret, handlerTestAccessExp, handlerTestRefreshExp)
	authSvc := authService.NewService(repo, jwtSvc)
	return NewAuthHandler(authSvc, jwtSvc)
}

func doLogin(t *testing.T, handler AuthHandler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(auth.LoginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Login(w, req)
	return w
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "refresh_token" {
			return cookie
		}
	}
	return nil
}

func TestAuthHandler_Login_Success(t *testing.T) {
	handler := createAuthHandler(t)

	w := doLogin(t, handler, "alice@glowhouse.test", handlerTestPassword)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp["success"].(bool))

	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["access_token"])
	assert.Equal(t, "alice@glowhouse.test", data["email"])

	cookie := refreshCookie(t, w)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	handler := createAuthHandler(t)

	w := doLogin(t, handler, "alice@glowhouse.test", "wrongpassword")

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp["success"].(bool))
}

func TestAuthHandler_Login_UnknownEmployee(t *testing.T) {
	handler := createAuthHandler(t)

	w := doLogin(t, handler, "nobody@glowhouse.test", handlerTestPassword)

	// Unknown accounts must be indistinguishable from a wrong password.
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Login_InvalidJSON(t *testing.T) {
	handler := createAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte("invalid json")))
	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Refresh_Success(t *testing.T) {
	handler := createAuthHandler(t)
	loginW := doLogin(t, handler, "alice@glowhouse.test", handlerTestPassword)
	cookie := refreshCookie(t, loginW)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["access_token"])

	// Rotation: a fresh refresh cookie is issued.
	rotated := refreshCookie(t, w)
	require.NotNil(t, rotated)
	assert.NotEmpty(t, rotated.Value)
	assert.NotEqual(t, cookie.Value, rotated.Value)
}

func TestAuthHandler_Refresh_RotatedTokenRejected(t *testing.T) {
	handler := createAuthHandler(t)
	loginW := doLogin(t, handler, "alice@glowhouse.test", handlerTestPassword)
	cookie := refreshCookie(t, loginW)
	require.NotNil(t, cookie)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	first.AddCookie(cookie)
	firstW := httptest.NewRecorder()
	handler.Refresh(firstW, first)
	require.Equal(t, http.StatusOK, firstW.Code)

	// Replaying the consumed token must fail.
	second := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	second.AddCookie(cookie)
	secondW := httptest.NewRecorder()
	handler.Refresh(secondW, second)
	assert.Equal(t, http.StatusUnauthorized, secondW.Code)
}

func TestAuthHandler_Refresh_MissingCookie(t *testing.T) {
	handler := createAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout_RevokesRefreshToken(t *testing.T) {
	handler := createAuthHandler(t)
	loginW := doLogin(t, handler, "alice@glowhouse.test", handlerTestPassword)
	cookie := refreshCookie(t, loginW)
	require.NotNil(t, cookie)

	logoutReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	logoutReq.AddCookie(cookie)
	logoutW := httptest.NewRecorder()
	handler.Logout(logoutW, logoutReq)

	assert.Equal(t, http.StatusOK, logoutW.Code)

	cleared := refreshCookie(t, logoutW)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	// The revoked token must no longer refresh.
	refreshReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	refreshReq.AddCookie(cookie)
	refreshW := httptest.NewRecorder()
	handler.Refresh(refreshW, refreshReq)
	assert.Equal(t, http.StatusUnauthorized, refreshW.Code)
}

func TestAuthHandler_ResponseFormat_Error(t *testing.T) {
	handler := createAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte("invalid")))
	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp, "success")
	assert.False(t, resp["success"].(bool))
}
