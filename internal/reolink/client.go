package reolink

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/micro-ha/reolink-nvr/addon/internal/model"
)

const defaultTimeout = 10 * time.Second

// client performs authenticated command batches against the device API.
// All device traffic goes through a single POST endpoint carrying a JSON
// array of commands; the session token travels as a query parameter.
type client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	token      string
}

func newClient(cfg model.NVRConfig, httpClient *http.Client) *client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = defaultTimeout
	}
	if cfg.UseHTTPS && !cfg.VerifyTLS {
		var transport *http.Transport
		if existing, ok := httpClient.Transport.(*http.Transport); ok {
			transport = existing.Clone()
		} else if defaultTransport, ok := http.DefaultTransport.(*http.Transport); ok {
			transport = defaultTransport.Clone()
		} else {
			transport = &http.Transport{}
		}
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		httpClient.Transport = transport
	}
	return &client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL(),
		username:   cfg.Username,
		password:   cfg.Password,
	}
}

func (c *client) login(ctx context.Context) error {
	c.token = ""
	responses, err := c.do(ctx, []commandRequest{{
		Cmd:    "Login",
		Action: 0,
		Param: map[string]any{
			"User": map[string]any{
				"userName": c.username,
				"password": c.password,
			},
		},
	}})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	var value struct {
		Token struct {
			Name      string `json:"name"`
			LeaseTime int    `json:"leaseTime"`
		} `json:"Token"`
	}
	if err := json.Unmarshal(responses[0].Value, &value); err != nil {
		return fmt.Errorf("login: decode token: %w", err)
	}
	if value.Token.Name == "" {
		return fmt.Errorf("login: empty token")
	}
	c.token = value.Token.Name
	return nil
}

func (c *client) logout(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	_, err := c.do(ctx, []commandRequest{{Cmd: "Logout", Action: 0}})
	c.token = ""
	return err
}

func (c *client) loggedIn() bool {
	return c.token != ""
}

// do posts one command batch and returns per-command responses in order.
// A non-zero code on any command aborts the batch with an APIError so the
// caller can detect session expiry and re-login.
func (c *client) do(ctx context.Context, cmds []commandRequest) ([]commandResponse, error) {
	body, err := json.Marshal(cmds)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/api.cgi"
	if c.token != "" {
		endpoint += "?token=" + url.QueryEscape(c.token)
	} else if len(cmds) == 1 && cmds[0].Cmd == "Login" {
		endpoint += "?cmd=Login"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("device api status %d: %s", resp.StatusCode, string(snippet))
	}

	var responses []commandResponse
	if err := json.NewDecoder(resp.Body).Decode(&responses); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(responses) != len(cmds) {
		return nil, fmt.Errorf("expected %d responses, got %d", len(cmds), len(responses))
	}

	for i := range responses {
		if responses[i].Code != 0 {
			apiErr := &APIError{Cmd: responses[i].Cmd, RspCode: responses[i].Code}
			if responses[i].Error != nil {
				apiErr.RspCode = responses[i].Error.RspCode
				apiErr.Detail = responses[i].Error.Detail
			}
			return nil, apiErr
		}
	}
	return responses, nil
}
