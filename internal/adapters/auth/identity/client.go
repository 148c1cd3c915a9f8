// Package identity habla con el identity provider externo para verificar
// tokens. El upstream puede caerse; el breaker evita martillarlo y hace que
// los requests fallen rápido mientras está abierto.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"unimalia-core/internal/platform/httpclient"
	"unimalia-core/internal/ports/auth"

	"github.com/sony/gobreaker"
)

var (
	ErrNotConfigured = errors.New("identity client not configured")
	ErrUnauthorized  = errors.New("identity unauthorized")
	ErrUpstream      = errors.New("identity upstream error")
)

type Config struct {
	BaseURL string
	APIKey  string

	// Header de la API key; default X-Api-Key.
	APIKeyHeader string

	Timeout time.Duration
}

type Client struct {
	http         *httpclient.Client
	apiKey       string
	apiKeyHeader string
	breaker      *gobreaker.CircuitBreaker
}

func NewClient(cfg Config) (*Client, error) {
	header := strings.TrimSpace(cfg.APIKeyHeader)
	if header == "" {
		header = "X-Api-Key"
	}

	hc, err := httpclient.NewWithBaseURL(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "identity-verify",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		http:         hc,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: header,
		breaker:      cb,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil && c.http.BaseURL != "" && c.apiKey != ""
}

type verifyResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// VerifyToken consulta al identity provider. Los 401/403 del upstream no
// cuentan como falla del breaker (el servicio está sano, el token no).
func (c *Client) VerifyToken(ctx context.Context, token string) (auth.Claims, error) {
	if !c.IsConfigured() {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	out, err := c.breaker.Execute(func() (any, error) {
		var resp verifyResponse
		err := c.http.DoJSON(ctx, http.MethodPost, "/v1/tokens/verify",
			map[string]string{
				c.apiKeyHeader:  c.apiKey,
				"Authorization": "Bearer " + token,
			},
			map[string]string{"token": token},
			&resp,
		)
		if err != nil {
			var httpErr *httpclient.HTTPError
			if errors.As(err, &httpErr) &&
				(httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden) {
				// el breaker no debe abrirse por tokens inválidos
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return auth.Claims{}, fmt.Errorf("%w: circuit open", ErrUpstream)
		}
		return auth.Claims{}, err
	}

	resp, ok := out.(verifyResponse)
	if !ok {
		return auth.Claims{}, ErrUnauthorized
	}

	userID := strings.TrimSpace(resp.UserID)
	if userID == "" {
		return auth.Claims{}, errors.New("identity response missing user_id")
	}

	return auth.Claims{
		UserID: userID,
		Email:  strings.TrimSpace(resp.Email),
	}, nil
}
