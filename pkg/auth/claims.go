package auth

import "github.com/golang-jwt/jwt/v5"

// UpstreamClaims are the claims this service reads from TruckFlow API tokens.
// The signature is never checked here; the upstream API stays the authority.
type UpstreamClaims struct {
	OrgID *int64 `json:"org_id,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
