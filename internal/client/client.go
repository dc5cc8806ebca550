// Package client talks to the intranet API on behalf of the anamnesis intake.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/clinica/intranet-api/internal/middleware"
	"github.com/clinica/intranet-api/internal/model"
	apperrors "github.com/clinica/intranet-api/pkg/errors"
)

const (
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 4 << 10
)

// ErrUnauthorized is returned when the API rejects the token or credentials.
var ErrUnauthorized = apperrors.Unauthorized(errors.New("rejected by intranet API"))

// StatusError is a non-2xx response that is not otherwise mapped.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("intranet API returned %d", e.Status)
	}
	return fmt.Sprintf("intranet API returned %d: %s", e.Status, e.Message)
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	// FailureThreshold consecutive failures open the breaker. Zero means 5.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open. Zero means 30s.
	OpenTimeout time.Duration
}

type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "intranet-api",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Client errors mean the API is up.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Status < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Client{base: base, token: cfg.Token, http: hc, breaker: breaker}, nil
}

// endpoint joins an already escaped path onto the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends the request through the breaker and decodes a 2xx body into out.
// It reports false when the API answered 404.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) (bool, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	found := true
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), payload)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set(middleware.HeaderAPIToken, c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			found = false
			return nil, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, ErrUnauthorized
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, statusError(resp)
		}

		if out == nil {
			return nil, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body middleware.ErrorResponse
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return &StatusError{Status: resp.StatusCode, Message: body.Message}
	}
	return &StatusError{Status: resp.StatusCode}
}

// SearchPatients looks patients up by name. Both the paginated envelope and a
// bare array are accepted.
func (c *Client) SearchPatients(ctx context.Context, name string, limit int) ([]model.Patient, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var raw json.RawMessage
	found, err := c.do(ctx, http.MethodGet, "/api/consultas/paciente-por-nome/"+url.PathEscape(name), q, nil, &raw)
	if err != nil {
		return nil, err
	}
	if !found || len(raw) == 0 {
		return []model.Patient{}, nil
	}

	var list []model.Patient
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var envelope struct {
		Data []model.Patient `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode patients: %w", err)
	}
	if envelope.Data == nil {
		return []model.Patient{}, nil
	}
	return envelope.Data, nil
}

// GetPatient returns nil when the code is unknown.
func (c *Client) GetPatient(ctx context.Context, code int64) (*model.Patient, error) {
	var p model.Patient
	found, err := c.do(ctx, http.MethodGet, "/api/consultas/paciente/"+strconv.FormatInt(code, 10), nil, nil, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	var resp struct {
		User *model.User `json:"user"`
	}
	req := model.LoginRequest{Identifier: username, Password: password}
	found, err := c.do(ctx, http.MethodPost, "/api/users/login", nil, req, &resp)
	if err != nil {
		return nil, err
	}
	if !found || resp.User == nil {
		return nil, errors.New("login response carried no user")
	}
	return resp.User, nil
}

// Health reports whether the API and its database answer.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/consultas/health-db", nil, nil, nil)
	return err
}
