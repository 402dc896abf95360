package upcy

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upcymarket/orderapi/internal/config"
	"github.com/upcymarket/orderapi/internal/domain"
)

// Client performs authenticated requests against the UPCY platform API.
// The bearer credential is an explicit parameter on every call; the client
// never reads it from ambient state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new UPCY platform API client
func NewClient(cfg config.UpcyConfig, logger *zap.Logger) *Client {
	// Normalize base URL - default scheme, strip trailing slashes
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// User represents the authenticated user as returned by the platform
type User struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname,omitempty"`
}

// do executes one authenticated request and returns the status code and body
func (c *Client) do(ctx context.Context, method, path, credential string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+credential)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// GetCurrentUser resolves the identity behind the credential via GET /api/user
func (c *Client) GetCurrentUser(ctx context.Context, credential string) (*User, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/user", credential, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("user lookup returned status %d", status)
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	if user.Email == "" {
		return nil, fmt.Errorf("user payload has no email")
	}

	return &user, nil
}

// GetOrders fetches the customer's raw order list via GET /api/orders.
// A success response whose body is not a JSON array is normalized to an
// empty list; only transport-level and status failures are errors.
func (c *Client) GetOrders(ctx context.Context, credential, email string) ([]domain.Order, error) {
	query := url.Values{}
	query.Set("email", email)
	query.Set("type", "customer")

	status, body, err := c.do(ctx, http.MethodGet, "/api/orders?"+query.Encode(), credential, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("order list returned status %d", status)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c.logger.Warn("order list payload is not an array, treating as empty",
			zap.Int("payload_bytes", len(body)))
		return []domain.Order{}, nil
	}

	var orders []domain.Order
	if err := json.Unmarshal(trimmed, &orders); err != nil {
		c.logger.Warn("order list payload failed to parse, treating as empty",
			zap.Error(err))
		return []domain.Order{}, nil
	}

	return orders, nil
}

// GetServiceMetadata resolves metadata for one (market, service) pair via
// GET /api/market/{market_uuid}/service/{service_uuid}
func (c *Client) GetServiceMetadata(ctx context.Context, credential string, key domain.ServiceKey) (*domain.ServiceMetadata, error) {
	path := fmt.Sprintf("/api/market/%s/service/%s", key.MarketUUID, key.ServiceUUID)

	status, body, err := c.do(ctx, http.MethodGet, path, credential, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("service metadata returned status %d", status)
	}

	var payload struct {
		ServiceTitle string `json:"service_title"`
		ReformerInfo struct {
			UserInfo struct {
				Nickname string `json:"nickname"`
			} `json:"user_info"`
		} `json:"reformer_info"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal service metadata: %w", err)
	}

	return &domain.ServiceMetadata{
		MarketUUID:   key.MarketUUID,
		ServiceUUID:  key.ServiceUUID,
		ServiceTitle: payload.ServiceTitle,
		ReformerName: payload.ReformerInfo.UserInfo.Nickname,
	}, nil
}

// CompleteOrder issues the customer's completion transition for an order via
// POST /api/orders/{order_uuid}/complete. Only success or failure matters;
// the updated status history is observed on the next aggregation cycle.
func (c *Client) CompleteOrder(ctx context.Context, credential string, orderUUID uuid.UUID) error {
	path := fmt.Sprintf("/api/orders/%s/complete", orderUUID)

	status, body, err := c.do(ctx, http.MethodPost, path, credential, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusNoContent {
		return fmt.Errorf("order completion returned status %d, body: %s", status, string(body))
	}

	return nil
}
