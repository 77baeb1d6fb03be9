// Package gateway is the console's client for the maintenance REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const defaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

type tokenKey struct{}

// WithToken returns a copy of ctx whose API calls carry token as a bearer credential.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token set by WithToken, or "".
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey{}).(string)
	return v
}

// Observer is told the outcome of every API call. status is 0 when no response arrived.
type Observer func(operation string, status int, elapsed time.Duration)

// Client sends JSON requests to the maintenance API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	tracer     trace.Tracer
	observe    Observer
}

// NewClient returns a client for baseURL (e.g. http://localhost:8081/api). timeout <= 0 uses 15s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer("maintenance-manager/console/gateway"),
	}
}

// WithObserver sets the per-call observer. Used for metrics.
func (c *Client) WithObserver(o Observer) *Client {
	c.observe = o
	return c
}

// do performs one API call. body, when non-nil, is sent as JSON; a 2xx response is decoded into out when out is non-nil.
// Non-2xx responses return *APIError.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "api "+operation, trace.WithSpanKind(trace.SpanKindClient))
	start := time.Now()
	status := 0
	defer func() {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if c.observe != nil {
			c.observe(operation, status, time.Since(start))
		}
	}()

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Message string            `json:"message"`
		Error   string            `json:"error"`
		Errors  map[string]string `json:"errors"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Message
		apiErr.Errors = body.Errors
		if apiErr.Message == "" && len(body.Errors) > 0 {
			apiErr.Message = firstFieldError(body.Errors)
		}
	}
	return apiErr
}

// firstFieldError returns a stable pick among field errors: the one for the alphabetically first field.
func firstFieldError(errs map[string]string) string {
	first := ""
	for k := range errs {
		if first == "" || k < first {
			first = k
		}
	}
	return errs[first]
}
