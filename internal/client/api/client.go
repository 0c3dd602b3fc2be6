package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/puzzlesync/pkg/api"
)

// Ошибки клиента API
var (
	// ErrUnauthorized токен не принят сервером
	ErrUnauthorized = errors.New("unauthorized")

	// ErrVersionConflict сервер сообщил о расхождении версий:
	// требуется полный resync через Pull
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnresolvedConflict сервер удерживает затронутый диапазон
	// до разрешения конфликтной группы; resync не поможет
	ErrUnresolvedConflict = errors.New("unresolved conflict on server")

	// ErrNotFound комната или конфликтная группа не найдена
	ErrNotFound = errors.New("not found")
)

// Client представляет HTTP клиент для взаимодействия с сервером синхронизации
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient создает новый API клиент
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Pull выполняет полный catch-up pull операций комнаты после версии since
func (c *Client) Pull(ctx context.Context, roomID string, since int64) (*api.PullResponse, error) {
	var resp api.PullResponse
	url := fmt.Sprintf("/api/v1/rooms/%s/sync?since=%d", roomID, since)
	if err := c.doRequest(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	return &resp, nil
}

// Push отправляет ожидающие операции против последней виденной клиентом версии
func (c *Client) Push(ctx context.Context, roomID string, req api.SyncRequest) (*api.SyncResponse, error) {
	var resp api.SyncResponse
	url := fmt.Sprintf("/api/v1/rooms/%s/sync", roomID)
	if err := c.doRequest(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return &resp, nil
}

// Resolve отправляет резолюцию конфликтной группы
func (c *Client) Resolve(ctx context.Context, roomID string, req api.ResolveRequest) (*api.ResolveResponse, error) {
	var resp api.ResolveResponse
	url := fmt.Sprintf("/api/v1/rooms/%s/sync", roomID)
	if err := c.doRequest(ctx, http.MethodPut, url, req, &resp); err != nil {
		return nil, fmt.Errorf("resolve request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос и декодирует ответ
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Сетевые сбои восстановимы: координатор повторит с backoff-ом
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		var apiErr api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		// 409 несет код причины: удержанный диапазон не лечится resync-ом
		if apiErr.Code == api.ErrCodeUnresolvedConflict {
			return fmt.Errorf("%w: %s", ErrUnresolvedConflict, apiErr.Error)
		}
		return fmt.Errorf("%w: %s", ErrVersionConflict, apiErr.Error)
	case resp.StatusCode >= 400:
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server error (%d)", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
