package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/truckflow/dispatch-core/pkg/auth"
	"github.com/truckflow/dispatch-core/pkg/config"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
	redisclient "github.com/truckflow/dispatch-core/pkg/redis"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DelIfValue(ctx context.Context, key, value string) (bool, error)
}

type sessionKeyer interface {
	SessionKey(parts ...string) string
}

// Upstream is the slice of the TruckFlow client the manager needs.
type Upstream interface {
	Login(ctx context.Context, email, password string) (*truckflow.LoginResponse, error)
	Me(ctx context.Context) (*truckflow.User, error)
}

// Manager caches upstream bearer tokens and user objects in Redis.
type Manager struct {
	store    sessionStore
	keyer    sessionKeyer
	upstream Upstream
	cfg      config.UpstreamConfig
	now      func() time.Time

	loginMu sync.Mutex
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, upstream Upstream, cfg config.UpstreamConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if upstream == nil {
		return nil, fmt.Errorf("upstream client is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return &Manager{
		store:    client,
		keyer:    client,
		upstream: upstream,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// ServiceCredentials returns the worker's own credentials, logging in when none are cached.
func (m *Manager) ServiceCredentials(ctx context.Context) (truckflow.Credentials, *truckflow.User, error) {
	if !m.cfg.HasServiceCredentials() {
		return truckflow.Credentials{}, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "service credentials are not configured")
	}

	if creds, user, ok := m.cachedService(ctx); ok {
		return creds, user, nil
	}

	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	if creds, user, ok := m.cachedService(ctx); ok {
		return creds, user, nil
	}

	resp, err := m.upstream.Login(ctx, m.cfg.Email, m.cfg.Password)
	if err != nil {
		return truckflow.Credentials{}, nil, err
	}
	creds := truckflow.Credentials{Token: resp.Token, OrgID: m.cfg.OrgID}
	user := resp.User

	if ttl := m.ttl(resp.Token); ttl > 0 {
		userJSON, err := json.Marshal(user)
		if err != nil {
			return truckflow.Credentials{}, nil, fmt.Errorf("encode service user: %w", err)
		}
		if err := m.store.Set(ctx, m.serviceUserKey(), userJSON, ttl); err != nil {
			return truckflow.Credentials{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache service user")
		}
		if err := m.store.Set(ctx, m.serviceTokenKey(), resp.Token, ttl); err != nil {
			return truckflow.Credentials{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache service token")
		}
	}
	return creds, &user, nil
}

// Login proxies a user login upstream and caches the returned user under the new token.
func (m *Manager) Login(ctx context.Context, email, password string) (*truckflow.LoginResponse, error) {
	resp, err := m.upstream.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "upstream login returned no token")
	}
	if err := m.Remember(ctx, resp.Token, resp.User); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache session user")
	}
	return resp, nil
}

// Remember caches the user behind a freshly issued token so Me can skip the upstream call.
func (m *Manager) Remember(ctx context.Context, token string, user truckflow.User) error {
	ttl := m.ttl(token)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return m.store.Set(ctx, m.userKey(token, ""), payload, ttl)
}

// Me returns the user behind creds, served from Redis when cached.
func (m *Manager) Me(ctx context.Context, creds truckflow.Credentials) (*truckflow.User, error) {
	if strings.TrimSpace(creds.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required")
	}
	key := m.userKey(creds.Token, creds.OrgID)
	if raw, err := m.store.Get(ctx, key); err == nil {
		var user truckflow.User
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			return &user, nil
		}
	} else if !errors.Is(err, redislib.Nil) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cached user")
	}

	user, err := m.upstream.Me(truckflow.WithCredentials(ctx, creds))
	if err != nil {
		return nil, err
	}
	if ttl := m.ttl(creds.Token); ttl > 0 {
		if payload, err := json.Marshal(user); err == nil {
			if err := m.store.Set(ctx, key, payload, ttl); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache user")
			}
		}
	}
	return user, nil
}

// Clear drops every cached entry tied to the credentials on ctx. It is wired to the
// client's 401 hook so the next call logs in again.
func (m *Manager) Clear(ctx context.Context) error {
	creds, ok := truckflow.CredentialsFrom(ctx)
	if !ok || creds.Token == "" {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	if err := m.store.Del(ctx, m.userKey(creds.Token, ""), m.userKey(creds.Token, creds.OrgID)); err != nil {
		return err
	}
	removed, err := m.store.DelIfValue(ctx, m.serviceTokenKey(), creds.Token)
	if err != nil {
		return err
	}
	if removed {
		return m.store.Del(ctx, m.serviceUserKey())
	}
	return nil
}

func (m *Manager) cachedService(ctx context.Context) (truckflow.Credentials, *truckflow.User, bool) {
	token, err := m.store.Get(ctx, m.serviceTokenKey())
	if err != nil || token == "" {
		return truckflow.Credentials{}, nil, false
	}
	raw, err := m.store.Get(ctx, m.serviceUserKey())
	if err != nil {
		return truckflow.Credentials{}, nil, false
	}
	var user truckflow.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return truckflow.Credentials{}, nil, false
	}
	return truckflow.Credentials{Token: token, OrgID: m.cfg.OrgID}, &user, true
}

func (m *Manager) ttl(token string) time.Duration {
	return auth.CacheTTL(token, m.now(), m.cfg.TokenTTL, m.cfg.TokenSkew)
}

func (m *Manager) serviceTokenKey() string {
	return m.keyer.SessionKey("service", "token")
}

func (m *Manager) serviceUserKey() string {
	return m.keyer.SessionKey("service", "user")
}

func (m *Manager) userKey(token, orgID string) string {
	return m.keyer.SessionKey("user", auth.Fingerprint(token), strings.TrimSpace(orgID))
}
