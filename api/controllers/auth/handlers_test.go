package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorops-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
)

type stubAuth struct {
	registerFn func(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error)
	verifyFn   func(ctx context.Context, req auth.VerifyRequest) (*auth.VerifyResponse, error)
}

func (s *stubAuth) Register(ctx context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error) {
	return s.registerFn(ctx, req)
}

func (s *stubAuth) Verify(ctx context.Context, req auth.VerifyRequest) (*auth.VerifyResponse, error) {
	return s.verifyFn(ctx, req)
}

func TestVendorRegisterStatusReflectsNewVendor(t *testing.T) {
	svc := &stubAuth{
		registerFn: func(_ context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error) {
			assert.Equal(t, "Ravi Tiffins", req.VendorName)
			return &auth.RegisterResponse{VendorID: uuid.New(), IsNew: req.Mobile == "+919800000001", ExpiresIn: 300}, nil
		},
	}
	handler := VendorRegister(svc, logger.Nop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/vendor/register",
		strings.NewReader(`{"mobile": "+919800000001", "vendorName": " Ravi Tiffins "}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/vendor/register",
		strings.NewReader(`{"mobile": "+919800000002", "vendorName": "Ravi Tiffins"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVendorRegisterValidatesMobile(t *testing.T) {
	rec := httptest.NewRecorder()
	VendorRegister(&stubAuth{}, logger.Nop()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/vendor/register",
		strings.NewReader(`{"mobile": "12"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorVerifySetsTokenHeader(t *testing.T) {
	svc := &stubAuth{
		verifyFn: func(_ context.Context, req auth.VerifyRequest) (*auth.VerifyResponse, error) {
			if req.Code != "123456" {
				return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid code")
			}
			return &auth.VerifyResponse{AccessToken: "signed.jwt.token", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	handler := VendorVerify(svc, logger.Nop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/vendor/verify",
		strings.NewReader(`{"mobile": "+919800000001", "code": "123456"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "signed.jwt.token", rec.Header().Get("X-VendorOps-Token"))

	var env struct {
		Data auth.VerifyResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "signed.jwt.token", env.Data.AccessToken)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/vendor/verify",
		strings.NewReader(`{"mobile": "+919800000001", "code": "000000"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
