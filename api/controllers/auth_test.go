package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/truckflow/dispatch-core/api/middleware"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

type stubLogin struct {
	email, password string
	resp            *truckflow.LoginResponse
	err             error
}

func (s *stubLogin) Login(ctx context.Context, email, password string) (*truckflow.LoginResponse, error) {
	s.email, s.password = email, password
	return s.resp, s.err
}

func TestAuthLoginSuccess(t *testing.T) {
	svc := &stubLogin{resp: &truckflow.LoginResponse{Token: "tok", User: truckflow.User{ID: 5, Email: "ops@truckflow.test"}}}
	rec := httptest.NewRecorder()
	AuthLogin(svc, testLogger())(rec, jsonRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ops@truckflow.test", "password": "secret",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got truckflow.LoginResponse
	decodeData(t, rec, &got)
	if got.Token != "tok" || got.User.ID != 5 || svc.password != "secret" {
		t.Fatalf("unexpected login %+v", got)
	}
}

func TestAuthLoginErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	AuthLogin(&stubLogin{}, testLogger())(rec, jsonRequest(t, http.MethodPost, "/", map[string]string{"email": "not-an-email"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	svc := &stubLogin{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	AuthLogin(svc, testLogger())(rec, jsonRequest(t, http.MethodPost, "/", map[string]string{"email": "a@b.co", "password": "x"}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMe(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	ctx := middleware.WithUser(req.Context(), &truckflow.User{ID: 9, Email: "d@truckflow.test"})
	ctx = middleware.WithScope(ctx, "user:9")
	rec := httptest.NewRecorder()
	AuthMe(testLogger())(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		User  truckflow.User `json:"user"`
		Scope string         `json:"scope"`
	}
	decodeData(t, rec, &got)
	if got.User.ID != 9 || got.Scope != "user:9" {
		t.Fatalf("unexpected me payload %+v", got)
	}

	rec = httptest.NewRecorder()
	AuthMe(testLogger())(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", rec.Code)
	}
}
