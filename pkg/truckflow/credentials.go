package truckflow

import (
	"context"
	"strings"
)

// HeaderOrgID carries the impersonated organization for super-admin calls.
const HeaderOrgID = "X-Org-Id"

// Credentials authenticate one upstream call.
type Credentials struct {
	Token string
	OrgID string
}

type credentialsKey struct{}

// WithCredentials attaches credentials to ctx for every client call made with it.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	creds.Token = strings.TrimSpace(creds.Token)
	creds.OrgID = strings.TrimSpace(creds.OrgID)
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFrom returns the credentials previously attached to ctx.
func CredentialsFrom(ctx context.Context) (Credentials, bool) {
	if ctx == nil {
		return Credentials{}, false
	}
	creds, ok := ctx.Value(credentialsKey{}).(Credentials)
	return creds, ok
}
