package api

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

	"github.com/iudanet/custadmin/pkg/api"
)

// ErrUnauthorized оборачивается в ошибки ответов 401
var ErrUnauthorized = errors.New("unauthorized")

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Authorization переносим только в пределах того же хоста
				if len(via) > 0 && via[0].URL.Host == req.URL.Host {
					if h := via[0].Header.Get("Authorization"); h != "" {
						req.Header.Set("Authorization", h)
					}
				}
				return nil
			},
		},
	}
}

// Register регистрирует нового пользователя и возвращает токен
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Me возвращает аккаунт владельца токена
func (c *Client) Me(ctx context.Context, token string) (*api.Account, error) {
	var resp api.Account
	if err := c.doRequest(ctx, http.MethodGet, "/api/users/me", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("me request failed: %w", err)
	}
	return &resp, nil
}

// CreateAPIKey создает ключ; сам ключ есть только в этом ответе
func (c *Client) CreateAPIKey(ctx context.Context, token string, req api.CreateAPIKeyRequest) (*api.CreateAPIKeyResponse, error) {
	var resp api.CreateAPIKeyResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/keys", token, req, &resp); err != nil {
		return nil, fmt.Errorf("create api key request failed: %w", err)
	}
	return &resp, nil
}

// ListAPIKeys список ключей вызывающего
func (c *Client) ListAPIKeys(ctx context.Context, token string) ([]api.APIKey, error) {
	var resp []api.APIKey
	if err := c.doRequest(ctx, http.MethodGet, "/api/keys", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list api keys request failed: %w", err)
	}
	return resp, nil
}

// RevokeAPIKey отзывает ключ вызывающего
func (c *Client) RevokeAPIKey(ctx context.Context, token, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/api/keys/"+url.PathEscape(id), token, nil, nil); err != nil {
		return fmt.Errorf("revoke api key request failed: %w", err)
	}
	return nil
}

// ListCustomers возвращает страницу активных клиентов
func (c *Client) ListCustomers(ctx context.Context, token string, limit, offset int) ([]api.Customer, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var resp []api.Customer
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/customers?"+q.Encode(), token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list customers request failed: %w", err)
	}
	return resp, nil
}

// doRequest выполняет HTTP запрос; пустой token означает запрос без авторизации
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func statusError(status int, body []byte) error {
	msg := ""
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		msg = errResp.Error
		if msg == "" {
			msg = errResp.Message
		}
	}

	if status == http.StatusUnauthorized {
		if msg == "" {
			msg = "unauthorized"
		}
		return fmt.Errorf("server error (%d): %s: %w", status, msg, ErrUnauthorized)
	}
	if msg != "" {
		return fmt.Errorf("server error (%d): %s", status, msg)
	}
	return fmt.Errorf("request failed with status %d: %s", status, strings.TrimSpace(string(body)))
}
