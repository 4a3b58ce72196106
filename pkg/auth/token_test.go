package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

func signedToken(t *testing.T, claims UpstreamClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("upstream-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestParseUpstreamClaimsIgnoresSignature(t *testing.T) {
	org := int64(7)
	token := signedToken(t, UpstreamClaims{
		OrgID: &org,
		Role:  "dispatcher",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "12",
		},
	})

	claims, err := ParseUpstreamClaims(token)
	if err != nil {
		t.Fatalf("parse claims: %v", err)
	}
	if claims.OrgID == nil || *claims.OrgID != 7 || claims.Role != "dispatcher" || claims.Subject != "12" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := ParseUpstreamClaims("opaque-token"); err == nil {
		t.Fatal("expected error for opaque token")
	}
}

func TestCacheTTL(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	expiring := func(in time.Duration) string {
		return signedToken(t, UpstreamClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(in))}})
	}

	tests := []struct {
		name  string
		token string
		want  time.Duration
	}{
		{name: "exp minus skew", token: expiring(30 * time.Minute), want: 29 * time.Minute},
		{name: "capped by fallback", token: expiring(48 * time.Hour), want: time.Hour},
		{name: "already expired", token: expiring(30 * time.Second), want: 0},
		{name: "opaque", token: "opaque-token", want: time.Hour},
		{name: "no exp", token: signedToken(t, UpstreamClaims{Role: "admin"}), want: time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CacheTTL(tt.token, now, time.Hour, time.Minute); got != tt.want {
				t.Fatalf("CacheTTL = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFingerprintIsStableAndShort(t *testing.T) {
	a := Fingerprint("token-a")
	if a != Fingerprint(" token-a ") {
		t.Fatal("fingerprint should ignore surrounding whitespace")
	}
	if a == Fingerprint("token-b") {
		t.Fatal("different tokens should not collide")
	}
	if len(a) != fingerprintLen {
		t.Fatalf("unexpected fingerprint length %d", len(a))
	}
}

func TestOrgScope(t *testing.T) {
	org := int64(3)
	tests := []struct {
		orgID string
		user  *truckflow.User
		want  string
	}{
		{orgID: "9", user: &truckflow.User{ID: 1, OrgID: &org, Role: "super_admin"}, want: "org:9"},
		{orgID: "9", user: &truckflow.User{ID: 1, Role: " SUPER_ADMIN "}, want: "org:9"},
		{orgID: "3", user: &truckflow.User{ID: 1, OrgID: &org, Role: "dispatcher"}, want: "org:3"},
		{orgID: "", user: &truckflow.User{ID: 1, OrgID: &org}, want: "org:3"},
		{orgID: "", user: &truckflow.User{ID: 5}, want: "user:5"},
		{orgID: " ", user: nil, want: "anonymous"},
	}
	for _, tt := range tests {
		got, err := OrgScope(tt.orgID, tt.user)
		if err != nil {
			t.Fatalf("OrgScope(%q, %+v): %v", tt.orgID, tt.user, err)
		}
		if got != tt.want {
			t.Fatalf("OrgScope(%q, %+v) = %q, want %q", tt.orgID, tt.user, got, tt.want)
		}
	}
}

func TestOrgScopeRejectsForeignOrgWithoutImpersonation(t *testing.T) {
	org := int64(7)
	tests := []struct {
		name string
		user *truckflow.User
		want pkgerrors.Code
	}{
		{name: "dispatcher of another org", user: &truckflow.User{ID: 2, OrgID: &org, Role: "dispatcher"}, want: pkgerrors.CodeForbidden},
		{name: "admin of another org", user: &truckflow.User{ID: 2, OrgID: &org, Role: "admin"}, want: pkgerrors.CodeForbidden},
		{name: "user without org or role", user: &truckflow.User{ID: 2}, want: pkgerrors.CodeForbidden},
		{name: "no user", user: nil, want: pkgerrors.CodeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := OrgScope("99", tt.user)
			if pkgerrors.CodeOf(err) != tt.want {
				t.Fatalf("expected %s, got scope=%q err=%v", tt.want, scope, err)
			}
			if scope != "" {
				t.Fatalf("expected no scope, got %q", scope)
			}
		})
	}
}
