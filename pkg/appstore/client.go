package appstore

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"storepulse/pkg/logger"
	"storepulse/pkg/retry"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultBaseURL = "https://api.appstoreconnect.apple.com/v1"

	tokenLifetime     = 20 * time.Minute
	tokenRefreshSlack = 60 * time.Second
)

// Client is the App Store Connect analytics API client. Requests are signed
// with a short-lived ES256 JWT that is reused until shortly before expiry.
type Client struct {
	issuerID   string
	keyID      string
	privateKey *ecdsa.PrivateKey

	baseURL    string
	httpClient *http.Client
	retryCfg   retry.Config

	mu           sync.Mutex
	token        string
	tokenExpires time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryConfig overrides the retry behavior for API calls.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// NewClient creates a client from credentials. privateKeyPEM is the .p8 key
// downloaded from App Store Connect; escaped newlines from env-stored keys
// are normalized first.
func NewClient(issuerID, keyID, privateKeyPEM string, opts ...Option) (*Client, error) {
	privateKeyPEM = strings.ReplaceAll(privateKeyPEM, `\n`, "\n")
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse app store connect private key: %w", err)
	}

	c := &Client{
		issuerID:   issuerID,
		keyID:      keyID,
		privateKey: key,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retryCfg: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// bearerToken returns a cached JWT, regenerating it when it is within the
// refresh slack of its expiry.
func (c *Client) bearerToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.token != "" && now.Before(c.tokenExpires.Add(-tokenRefreshSlack)) {
		return c.token, nil
	}

	expires := now.Add(tokenLifetime)
	claims := jwt.MapClaims{
		"iss": c.issuerID,
		"iat": now.Unix(),
		"exp": expires.Unix(),
		"aud": "appstoreconnect-v1",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = c.keyID

	signed, err := token.SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign app store connect token: %w", err)
	}

	c.token = signed
	c.tokenExpires = expires
	return signed, nil
}

// get performs a GET request against the analytics API with retries.
// 4xx client errors are surfaced as non-retryable HTTP errors.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	return retry.Do(ctx, c.retryCfg, "app store connect GET "+endpoint, func(ctx context.Context) error {
		return c.doRequest(ctx, http.MethodGet, reqURL, nil, out)
	})
}

// getPage performs a GET against an absolute URL, used to follow the
// pagination links returned by list endpoints.
func (c *Client) getPage(ctx context.Context, pageURL string, out interface{}) error {
	return retry.Do(ctx, c.retryCfg, "app store connect GET page", func(ctx context.Context) error {
		return c.doRequest(ctx, http.MethodGet, pageURL, nil, out)
	})
}

// post performs a POST request against the analytics API with retries.
func (c *Client) post(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	reqURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	return retry.Do(ctx, c.retryCfg, "app store connect POST "+endpoint, func(ctx context.Context) error {
		return c.doRequest(ctx, http.MethodPost, reqURL, jsonData, out)
	})
}

func (c *Client) doRequest(ctx context.Context, method, reqURL string, body []byte, out interface{}) error {
	token, err := c.bearerToken()
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logger.Debugf("App Store Connect request: %s %s", method, reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := string(respData)
		var errResp errorResponse
		if err := json.Unmarshal(respData, &errResp); err == nil && len(errResp.Errors) > 0 {
			first := errResp.Errors[0]
			detail = first.Detail
			if detail == "" {
				detail = first.Title
			}
		}
		logger.Errorf("App Store Connect request failed: HTTP %d | %s %s | %s", resp.StatusCode, method, reqURL, detail)
		return retry.NewHTTPError(resp.StatusCode, resp.Status, detail)
	}

	if out != nil {
		if err := json.Unmarshal(respData, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// downloadSegment fetches a report segment payload. Segment URLs are
// pre-signed, so no Authorization header is attached.
func (c *Client) downloadSegment(ctx context.Context, segmentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, segmentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download segment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, retry.NewHTTPError(resp.StatusCode, resp.Status, string(body))
	}

	return io.ReadAll(resp.Body)
}
