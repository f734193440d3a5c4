package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/internal/config"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
)

const maxErrorBody = 64 << 10

// APIClient performs the JSON round trips shared by every collaborator adapter.
type APIClient struct {
	baseURL     string
	endpoints   config.Endpoints
	httpClient  *http.Client
	credentials domain.CredentialStore
	logger      application.AppLogger
}

func NewAPIClient(baseURL string, endpoints config.Endpoints, timeout time.Duration, credentials domain.CredentialStore, logger application.AppLogger) *APIClient {
	return &APIClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		endpoints:   endpoints,
		httpClient:  &http.Client{Timeout: timeout},
		credentials: credentials,
		logger:      logger,
	}
}

// WithHTTPClient swaps the underlying client, e.g. for httptest servers.
func (c *APIClient) WithHTTPClient(hc *http.Client) *APIClient {
	c.httpClient = hc
	return c
}

type call struct {
	op            string
	method        string
	path          string
	body          any
	authenticated bool
	// rejectedMsg replaces the generic failure text for unauthenticated 401s (bad login).
	rejectedMsg string
	fallbackMsg string
}

func (c *APIClient) bearer(ctx context.Context, op string) (domain.Credential, error) {
	credential, err := c.credentials.Load(ctx)
	if err != nil {
		return "", &domain.TransportError{Op: op, Message: "could not read session credential", Err: err}
	}
	if credential == "" {
		return "", domain.NewValidationError("credential", "sign in first")
	}
	return credential, nil
}

// do sends the request and returns the raw 2xx body. Non-2xx statuses are mapped to
// ErrAuthExpired (401 on authenticated calls) or a TransportError.
func (c *APIClient) do(ctx context.Context, req call) ([]byte, error) {
	var credential domain.Credential
	if req.authenticated {
		var err error
		if credential, err = c.bearer(ctx, req.op); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return nil, &domain.TransportError{Op: req.op, Message: req.fallbackMsg, Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, &domain.TransportError{Op: req.op, Message: req.fallbackMsg, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+string(credential))
	}
	if requestID, ok := application.RequestID(ctx); ok {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	application.LogDebug(ctx, c.logger, "calling collaborator service", map[string]interface{}{
		"operation": req.op,
		"method":    req.method,
		"path":      req.path,
	})

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Op: req.op, Message: req.fallbackMsg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody*16))
	if err != nil {
		return nil, &domain.TransportError{Op: req.op, Status: resp.StatusCode, Message: req.fallbackMsg, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized && req.authenticated:
		return nil, fmt.Errorf("%s: %w", req.op, domain.ErrAuthExpired)
	case resp.StatusCode == http.StatusUnauthorized && req.rejectedMsg != "":
		return nil, &domain.TransportError{Op: req.op, Status: resp.StatusCode, Message: serverMessage(body, req.rejectedMsg)}
	default:
		return nil, &domain.TransportError{Op: req.op, Status: resp.StatusCode, Message: serverMessage(body, req.fallbackMsg)}
	}
}

// serverMessage extracts {"message"} or {"error"} from an error body.
func serverMessage(body []byte, fallback string) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}

func malformed(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, domain.ErrMalformedResponse)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrMalformedResponse, err)
}

// decode unmarshals a 2xx body, mapping shape mismatches to ErrMalformedResponse.
func decode(op string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return malformed(op, err)
	}
	return nil
}

func outcomeOf(err error) string {
	var ve *domain.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "validation"
	case domain.IsAuthExpired(err):
		return "auth_expired"
	case domain.IsMalformed(err):
		return "malformed"
	default:
		return "transport"
	}
}

// finish records metrics and logs the failure, if any.
func (c *APIClient) finish(ctx context.Context, op string, started time.Time, err error) {
	outcome := outcomeOf(err)
	if outcome == "validation" {
		started = time.Time{}
	}
	observeCall(op, outcome, started)
	if err != nil {
		application.LogError(ctx, c.logger, "collaborator call failed", err, map[string]interface{}{
			"operation": op,
			"outcome":   outcome,
		})
	}
}
