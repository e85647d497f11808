package panelclient

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"xui-shop-bot/internal/config"
	"xui-shop-bot/internal/constants"
	apperrors "xui-shop-bot/internal/errors"
	"xui-shop-bot/internal/models"
)

const sessionKey = "session"

// Client is an authenticated HTTP client for the X-UI panel API.
// It owns the session cookie lifecycle: form login on first use, cached
// session, and a single re-login retry when the panel reports an auth
// failure mid-session.
type Client struct {
	httpClient  *resty.Client
	panelConfig config.PanelConfig
	cookieCache *cache.Cache
	loginMu     sync.Mutex
	logger      *logrus.Logger
}

// apiResponse represents the envelope every panel endpoint returns
type apiResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

// New creates a new panel API client
func New(panelConfig config.PanelConfig, logger *logrus.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(constants.DefaultTimeout * time.Second).
		SetRetryCount(constants.DefaultRetryCount).
		SetRetryWaitTime(constants.DefaultRetryWaitTime * time.Second).
		SetRetryMaxWaitTime(constants.DefaultRetryMaxWaitTime * time.Second).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})

	return &Client{
		httpClient:  httpClient,
		panelConfig: panelConfig,
		cookieCache: cache.New(constants.CacheExpiration*time.Minute, constants.CacheCleanupInterval*time.Minute),
		logger:      logger,
	}
}

// login logs in to the panel with form credentials and caches the session
// cookies. Concurrent callers are serialized so the panel sees one login.
func (c *Client) login(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if _, found := c.cookieCache.Get(sessionKey); found {
		return nil
	}

	c.logger.Infof("Logging in to panel at %s", c.panelConfig.APIURL)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.panelConfig.User,
			"password": c.panelConfig.Password,
		}).
		Post(fmt.Sprintf("%s/login", c.panelConfig.APIURL))

	if err != nil {
		return &apperrors.PanelUnreachableError{Endpoint: "/login", Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		return &apperrors.PanelRequestFailedError{
			Endpoint: "/login",
			Status:   resp.StatusCode(),
			Body:     string(resp.Body()),
		}
	}

	var apiResp apiResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}

	if !apiResp.Success {
		return &apperrors.PanelRequestFailedError{
			Endpoint: "/login",
			Status:   resp.StatusCode(),
			Body:     apiResp.Msg,
		}
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return errors.New("no session cookie received from panel")
	}

	c.cookieCache.Set(sessionKey, cookies, cache.DefaultExpiration)
	c.logger.Info("Successfully logged in to panel")
	return nil
}

// do performs one authenticated panel call. An auth failure drops the
// cached session and retries exactly once after a fresh login.
func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) (*apiResponse, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.login(ctx); err != nil {
			return nil, err
		}

		cookies, found := c.cookieCache.Get(sessionKey)
		if !found {
			continue
		}

		req := c.httpClient.R().
			SetContext(ctx).
			SetCookies(cookies.([]*http.Cookie))
		if body != nil {
			req.SetBody(body)
		}

		resp, err := req.Execute(method, c.panelConfig.APIURL+endpoint)
		if err != nil {
			return nil, &apperrors.PanelUnreachableError{Endpoint: endpoint, Err: err}
		}

		if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
			c.logger.Warnf("Panel session expired during %s, re-logging in", endpoint)
			c.cookieCache.Delete(sessionKey)
			continue
		}

		if resp.StatusCode() != http.StatusOK {
			return nil, &apperrors.PanelRequestFailedError{
				Endpoint: endpoint,
				Status:   resp.StatusCode(),
				Body:     string(resp.Body()),
			}
		}

		var apiResp apiResponse
		if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
			return nil, &apperrors.PanelRequestFailedError{
				Endpoint: endpoint,
				Status:   resp.StatusCode(),
				Body:     string(resp.Body()),
			}
		}

		if !apiResp.Success {
			return nil, &apperrors.PanelRequestFailedError{
				Endpoint: endpoint,
				Status:   resp.StatusCode(),
				Body:     apiResp.Msg,
			}
		}

		return &apiResp, nil
	}

	return nil, &apperrors.PanelAuthExpiredError{Endpoint: endpoint}
}

// ListInbounds fetches all inbounds with their client settings and stats
func (c *Client) ListInbounds(ctx context.Context) ([]models.Inbound, error) {
	apiResp, err := c.do(ctx, http.MethodGet, "/panel/api/inbounds/list", nil)
	if err != nil {
		return nil, err
	}

	var inbounds []models.Inbound
	if err := json.Unmarshal(apiResp.Obj, &inbounds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inbounds: %w", err)
	}

	return inbounds, nil
}

// AddClient provisions a client on one inbound
func (c *Client) AddClient(ctx context.Context, inboundID int, client models.Client) error {
	body, err := clientRequestBody(inboundID, client)
	if err != nil {
		return err
	}

	c.logger.Infof("Adding client %s to inbound %d", client.Email, inboundID)
	_, err = c.do(ctx, http.MethodPost, "/panel/api/inbounds/addClient", body)
	return err
}

// UpdateClient pushes an updated client object back to one inbound
func (c *Client) UpdateClient(ctx context.Context, inboundID int, clientID string, client models.Client) error {
	body, err := clientRequestBody(inboundID, client)
	if err != nil {
		return err
	}

	c.logger.Infof("Updating client %s on inbound %d", clientID, inboundID)
	_, err = c.do(ctx, http.MethodPost, fmt.Sprintf("/panel/api/inbounds/updateClient/%s", clientID), body)
	return err
}

// DeleteClient removes a client from one inbound
func (c *Client) DeleteClient(ctx context.Context, inboundID int, clientID string) error {
	c.logger.Infof("Deleting client %s from inbound %d", clientID, inboundID)
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/panel/api/inbounds/%d/delClient/%s", inboundID, clientID), nil)
	return err
}

// ResetClientTraffic resets the recorded usage for a client on one inbound
func (c *Client) ResetClientTraffic(ctx context.Context, inboundID int, email string) error {
	c.logger.Infof("Resetting traffic for %s on inbound %d", email, inboundID)
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/panel/api/inbounds/%d/resetClientTraffic/%s", inboundID, email), nil)
	return err
}

// clientRequestBody wraps a client into the panel's add/update payload:
// the settings field is a JSON string, not a nested object.
func clientRequestBody(inboundID int, client models.Client) (map[string]interface{}, error) {
	settings, err := json.Marshal(models.InboundSettings{Clients: []models.Client{client}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal client settings: %w", err)
	}

	return map[string]interface{}{
		"id":       inboundID,
		"settings": string(settings),
	}, nil
}
