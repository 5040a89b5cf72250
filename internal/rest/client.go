package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/session"
)

var tracer = otel.Tracer("storefront-rest")

// APIError is a business failure declared by the backend: a 4xx/5xx with a
// message that is surfaced to the user verbatim.
type APIError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned status code=%d with message=%s", e.StatusCode, e.Message)
}

// Client issues authenticated JSON requests against the storefront backend.
// It owns the request timeout and a bounded retry for transport failures on
// idempotent requests; mutating calls are retried only by explicit user
// action.
type Client struct {
	baseUrl    string
	httpClient *http.Client
	session    *session.Session
	maxRetries int
}

func NewClient(cfg config.Backend, sess *session.Session) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseUrl: strings.TrimRight(cfg.BaseUrl, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		session:    sess,
		maxRetries: cfg.MaxRetries,
	}
}

func (t *Client) Session() *session.Session {
	return t.session
}

// Do sends method+path with an optional JSON body and decodes the response
// into out when out is non-nil. A 401 clears the session through its
// unauthorized hook and returns errors.ErrUnauthorized; any other non-2xx
// returns an *APIError carrying the backend's message.
func (t *Client) Do(c context.Context, method, path string, body any, out any) error {
	c, span := tracer.Start(c, "Client Do")
	defer span.End()

	requestId := log.RequestIDFromContext(c)
	if requestId == "" {
		requestId = uuid.NewString()
		c = log.AttachRequestIDToContext(c, requestId)
	}

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client Do").
		Str(log.KeyRequestID, requestId).
		Str(log.KeyRequestMethod, method).
		Str(log.KeyRequestURL, t.baseUrl+path).
		Logger()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			err = fmt.Errorf("failed marshaling request body with error=%w", err)
			errors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
	}

	attempts := 1
	if method == http.MethodGet && t.maxRetries > 0 {
		attempts = t.maxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		logger := logger.With().Int(log.KeyAttempt, attempt).Logger()

		resp, err := t.send(c, method, path, payload, requestId)
		if err != nil {
			lastErr = fmt.Errorf("failed sending request with error=%w", err)
			errors.HandleError(lastErr, span)
			logger.Error().Err(lastErr).Msg(lastErr.Error())
			continue
		}

		err = t.decode(c, resp, out)
		if err != nil {
			errors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		logger.Info().Msg("request succeeded")
		return nil
	}
	return lastErr
}

func (t *Client) send(
	c context.Context,
	method, path string,
	payload []byte,
	requestId string,
) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(c, method, t.baseUrl+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed creating request with error=%w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(log.KeyRequestID, requestId)
	if token, ok := t.session.CurrentToken(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return t.httpClient.Do(req)
}

func (t *Client) decode(c context.Context, resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		t.session.HandleUnauthorized(c)
		return errors.ErrUnauthorized
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil ||
			apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed decoding response body with error=%w", err)
	}
	return nil
}
