package truckflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	pkgerrors "github.com/truckflow/dispatch-core/pkg/errors"
)

const defaultTimeout = 15 * time.Second

// Client talks to the TruckFlow REST API. It never retries; every failure
// is returned to the caller as a typed error.
type Client struct {
	http    *resty.Client
	timeout time.Duration

	mu             sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = resty.NewWithClient(hc)
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithUnauthorizedHook registers fn to run whenever the API answers 401.
func WithUnauthorizedHook(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// NewClient builds a client for the API rooted at baseURL (for example https://host/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("truckflow base url is required")
	}

	client := &Client{
		http:    resty.New(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	client.http.
		SetBaseURL(trimmed).
		SetTimeout(client.timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return client, nil
}

// OnUnauthorized replaces the 401 hook. Used when the hook owner is built after the client.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}
	body := map[string]string{"email": strings.TrimSpace(email), "password": password}
	var out LoginResponse
	if err := c.getObject(ctx, http.MethodPost, "/auth/login", func(r *resty.Request) { r.SetBody(body) }, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "login response carried no token")
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.getObject(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.getList(ctx, "/customers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListTrucks(ctx context.Context) ([]Truck, error) {
	var out []Truck
	if err := c.getList(ctx, "/trucks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMaterials(ctx context.Context) ([]Material, error) {
	var out []Material
	if err := c.getList(ctx, "/materials", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListDrivers(ctx context.Context) ([]Driver, error) {
	var out []Driver
	if err := c.getList(ctx, "/drivers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListSites(ctx context.Context) ([]Site, error) {
	var out []Site
	if err := c.getList(ctx, "/sites", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GeocodeMissingSites asks the API to fill coordinates for sites that lack them.
func (c *Client) GeocodeMissingSites(ctx context.Context) (*GeocodeResult, error) {
	var out GeocodeResult
	if err := c.getObject(ctx, http.MethodPost, "/sites/geocode-missing", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListJobs(ctx context.Context, filter JobFilter) ([]Job, error) {
	var out []Job
	err := c.getList(ctx, "/jobs", func(r *resty.Request) {
		if len(filter.Statuses) > 0 {
			statuses := make([]string, 0, len(filter.Statuses))
			for _, status := range filter.Statuses {
				statuses = append(statuses, status.String())
			}
			r.SetQueryParam("status", strings.Join(statuses, ","))
		}
		if filter.DriverID != nil {
			r.SetQueryParam("driver_id", strconv.FormatInt(*filter.DriverID, 10))
		}
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateJobStatus(ctx context.Context, jobID int64, req UpdateJobStatusRequest) (*Job, error) {
	if !req.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid job status %q", req.Status))
	}
	var out Job
	err := c.getObject(ctx, http.MethodPost, "/jobs/{id}/status", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(jobID, 10)).SetBody(req)
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListStatusEvents(ctx context.Context, jobID int64) ([]JobStatusEvent, error) {
	var out []JobStatusEvent
	err := c.getList(ctx, "/jobs/{id}/status-events", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(jobID, 10))
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPriceLists(ctx context.Context, filter PriceListFilter) ([]PriceList, error) {
	var out []PriceList
	err := c.getList(ctx, "/price-lists", func(r *resty.Request) {
		if filter.MaterialID != nil {
			r.SetQueryParam("material_id", strconv.FormatInt(*filter.MaterialID, 10))
		}
		if filter.CustomerID != nil {
			r.SetQueryParam("customer_id", strconv.FormatInt(*filter.CustomerID, 10))
		}
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatement(ctx context.Context, statementID int64) (*Statement, error) {
	var out Statement
	err := c.getObject(ctx, http.MethodGet, "/statements/{id}", func(r *resty.Request) {
		r.SetPathParam("id", strconv.FormatInt(statementID, 10))
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getList(ctx context.Context, path string, prepare func(*resty.Request), out any) error {
	body, err := c.do(ctx, http.MethodGet, path, prepare)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(unwrapEnvelope(body, '['), out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+path+" response")
	}
	return nil
}

func (c *Client) getObject(ctx context.Context, method, path string, prepare func(*resty.Request), out any) error {
	body, err := c.do(ctx, method, path, prepare)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapEnvelope(body, '{'), out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+path+" response")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, prepare func(*resty.Request)) ([]byte, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "truckflow client not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req := c.http.R().SetContext(ctx)
	if creds, ok := CredentialsFrom(ctx); ok {
		if creds.Token != "" {
			req.SetAuthToken(creds.Token)
		}
		if creds.OrgID != "" {
			req.SetHeader(HeaderOrgID, creds.OrgID)
		}
	}
	if prepare != nil {
		prepare(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("truckflow %s %s failed", method, path))
	}
	if resp.IsError() {
		return nil, c.statusError(ctx, method, path, resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

func (c *Client) statusError(ctx context.Context, method, path string, status int, body []byte) error {
	if status == http.StatusUnauthorized {
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			hook(ctx)
		}
	}

	message := extractMessage(body, status)
	cause := &StatusError{Method: method, Path: path, StatusCode: status, Message: message}
	return pkgerrors.Wrap(codeForStatus(status), cause, message).
		WithDetails(map[string]any{"upstream_status": status})
}

// unwrapEnvelope accepts both bare payloads and {"data": ...} or {"items": ...} wrappers.
func unwrapEnvelope(body []byte, want byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		if want == '[' {
			return []byte("[]")
		}
		return trimmed
	}
	if trimmed[0] != '{' {
		return trimmed
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	for _, key := range []string{"data", "items"} {
		inner := bytes.TrimSpace(envelope[key])
		if len(inner) > 0 && inner[0] == want {
			return inner
		}
	}
	if want == '[' {
		return []byte("[]")
	}
	return trimmed
}
