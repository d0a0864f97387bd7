package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vendorops-backend/pkg/auth"
	"github.com/angelmondragon/vendorops-backend/pkg/authz"
	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func mintTestToken(t *testing.T, role enums.ActorRole, actorID uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{ActorID: actorID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsForeignIssuer(t *testing.T) {
	other := testJWT
	other.Issuer = "someone-else"
	token, err := auth.MintAccessToken(other, time.Now(), auth.AccessTokenPayload{ActorID: uuid.New(), Role: enums.ActorVendor})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	actorID := uuid.New()
	token := mintTestToken(t, enums.ActorVendor, actorID)

	var gotActor, gotRole string
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = ActorIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotActor != actorID.String() {
		t.Fatalf("expected actor %s got %s", actorID, gotActor)
	}
	if gotRole != string(enums.ActorVendor) {
		t.Fatalf("expected role vendor got %s", gotRole)
	}
}

func TestAuthorizeAppliesPolicies(t *testing.T) {
	enforcer, err := authz.NewDefault()
	if err != nil {
		t.Fatalf("authz: %v", err)
	}
	tests := []struct {
		role     enums.ActorRole
		resource string
		action   string
		want     int
	}{
		{enums.ActorVendor, authz.ResourceEarnings, authz.ActionRead, http.StatusOK},
		{enums.ActorCustomer, authz.ResourceEarnings, authz.ActionRead, http.StatusForbidden},
		{enums.ActorService, authz.ResourceDevOrders, authz.ActionCreate, http.StatusOK},
		{enums.ActorAdmin, authz.ResourcePresence, authz.ActionWrite, http.StatusOK},
		{"", authz.ResourceOrders, authz.ActionRead, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithActor(req.Context(), uuid.NewString(), string(tt.role)))
		resp := httptest.NewRecorder()
		Authorize(enforcer, tt.resource, tt.action, nil)(okHandler()).ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("%s %s %s: expected %d got %d", tt.role, tt.resource, tt.action, tt.want, resp.Code)
		}
	}
}
