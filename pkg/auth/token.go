package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/truckflow/dispatch-core/pkg/enums"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

const fingerprintLen = 24

// ParseUpstreamClaims decodes token claims without verifying the signature.
func ParseUpstreamClaims(token string) (*UpstreamClaims, error) {
	claims := &UpstreamClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// CacheTTL returns how long a token may be cached: until its exp minus skew,
// or fallback when the token is opaque or carries no exp. A zero result means do not cache.
func CacheTTL(token string, now time.Time, fallback, skew time.Duration) time.Duration {
	claims, err := ParseUpstreamClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return fallback
	}
	ttl := claims.ExpiresAt.Time.Sub(now) - skew
	if ttl <= 0 {
		return 0
	}
	if fallback > 0 && ttl > fallback {
		return fallback
	}
	return ttl
}

// Fingerprint derives a stable cache key fragment from a bearer token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// OrgScope names the tenant a request operates on. An org id header wins when it is
// the user's own org or the user may impersonate, then the user's own org, then the
// user itself. Any other org id is FORBIDDEN.
func OrgScope(orgID string, user *truckflow.User) (string, error) {
	trimmed := strings.TrimSpace(orgID)
	if trimmed != "" {
		if user == nil {
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "organization override requires a user")
		}
		own := user.OrgID != nil && strconv.FormatInt(*user.OrgID, 10) == trimmed
		if !own && !enums.ParseUserRole(user.Role).CanImpersonate() {
			return "", pkgerrors.New(pkgerrors.CodeForbidden, "organization override not allowed").
				WithDetails(map[string]any{"org_id": trimmed})
		}
		return "org:" + trimmed, nil
	}
	if user == nil {
		return "anonymous", nil
	}
	if user.OrgID != nil {
		return "org:" + strconv.FormatInt(*user.OrgID, 10), nil
	}
	return "user:" + strconv.FormatInt(user.ID, 10), nil
}
