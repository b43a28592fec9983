package twilioclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"
)

const (
	defaultBaseURL   = "https://api.twilio.com/2010-04-01"
	defaultUserAgent = "wabulk-dispatch/0.1"
)

// Config controls how the Twilio client behaves.
type Config struct {
	BaseURL             string
	AccountSID          string
	AuthToken           string
	FromWhatsApp        string
	MessagingServiceSID string
	Timeout             time.Duration
	MaxRetries          int
	Backoff             time.Duration
	HTTPClient          *http.Client
	Logger              *slog.Logger
	UserAgent           string
}

// Client wraps the Twilio REST endpoints used for templated WhatsApp sends.
type Client struct {
	accountSID          string
	authToken           string
	baseURL             string
	fromWhatsApp        string
	messagingServiceSID string
	httpClient          *http.Client
	maxRetries          int
	backoff             time.Duration
	logger              *slog.Logger
	userAgent           string
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("twilioclient: account sid and auth token are required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		accountSID:          cfg.AccountSID,
		authToken:           cfg.AuthToken,
		baseURL:             baseURL,
		fromWhatsApp:        strings.TrimSpace(cfg.FromWhatsApp),
		messagingServiceSID: strings.TrimSpace(cfg.MessagingServiceSID),
		httpClient:          httpClient,
		maxRetries:          maxRetries,
		backoff:             backoff,
		logger:              logger,
		userAgent:           userAgent,
	}, nil
}

// AccountSIDLast4 exposes the credential tail for health reporting.
func (c *Client) AccountSIDLast4() string {
	if len(c.accountSID) < 4 {
		return c.accountSID
	}
	return c.accountSID[len(c.accountSID)-4:]
}

// SendTemplate submits one templated WhatsApp message through the Content API.
// Sender identity resolution: a configured messaging service sid wins over the
// explicit WhatsApp from address; having neither is a configuration error.
func (c *Client) SendTemplate(ctx context.Context, req SendTemplateRequest) (*MessageResource, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("To", WhatsAppAddress(req.To))
	form.Set("ContentSid", req.ContentSID)
	if len(req.ContentVariables) > 0 {
		encoded, err := json.Marshal(req.ContentVariables)
		if err != nil {
			return nil, fmt.Errorf("twilioclient: marshal content variables: %w", err)
		}
		form.Set("ContentVariables", string(encoded))
	}
	if req.StatusCallback != "" {
		form.Set("StatusCallback", req.StatusCallback)
	}
	switch {
	case c.messagingServiceSID != "":
		form.Set("MessagingServiceSid", c.messagingServiceSID)
	case c.fromWhatsApp != "":
		form.Set("From", c.fromWhatsApp)
	default:
		return nil, errors.New("twilioclient: no sender identity configured (messaging service sid or whatsapp from)")
	}
	data, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/Accounts/%s/Messages.json", c.accountSID), form)
	if err != nil {
		return nil, err
	}
	return decodeMessage(data)
}

// FetchMessage retrieves the current provider-side state of a single message.
func (c *Client) FetchMessage(ctx context.Context, sid string) (*MessageResource, error) {
	if strings.TrimSpace(sid) == "" {
		return nil, errors.New("twilioclient: message sid required")
	}
	data, err := c.invoke(ctx, http.MethodGet, fmt.Sprintf("/Accounts/%s/Messages/%s.json", c.accountSID, url.PathEscape(sid)), nil)
	if err != nil {
		return nil, err
	}
	return decodeMessage(data)
}

func (c *Client) invoke(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	var encoded string
	if form != nil {
		encoded = form.Encode()
	}
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if encoded != "" {
			bodyReader = strings.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("twilioclient: build request: %w", err)
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("User-Agent", c.userAgent)
		if encoded != "" {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				return nil, fmt.Errorf("twilioclient: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("twilioclient: read response: %w", readErr)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && shouldRetry(resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("twilioclient: request failed without response")
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt int, status int, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("twilio retry",
		"path", path,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	if status >= 500 && status <= 599 {
		return true
	}
	return false
}

// APIError is Twilio's structured error response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	MoreInfo   string `json:"more_info,omitempty"`
	Status     int    `json:"status,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		if e.Code != 0 {
			return fmt.Sprintf("twilioclient: %s (code=%d status=%d)", e.Message, e.Code, e.StatusCode)
		}
		return fmt.Sprintf("twilioclient: %s (status=%d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("twilioclient: http status %d", e.StatusCode)
}

func decodeAPIError(status int, body []byte) error {
	var parsed APIError
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	parsed.StatusCode = status
	return &parsed
}

func decodeMessage(body []byte) (*MessageResource, error) {
	var msg MessageResource
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("twilioclient: decode response: %w", err)
	}
	return &msg, nil
}
