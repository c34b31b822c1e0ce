package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to the external sales-order approval workflow API. Each call
// obtains a client-credentials token and starts a workflow instance; order
// state is never touched from here.
type Client struct {
	tokenURL     string
	apiURL       string
	clientID     string
	clientSecret string
	definitionID string
	httpClient   *http.Client
}

func NewClient(tokenURL, apiURL, clientID, clientSecret, definitionID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		tokenURL:     tokenURL,
		apiURL:       apiURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		definitionID: definitionID,
		httpClient:   httpClient,
	}
}

// SalesOrderContext is the payload handed to the workflow definition.
type SalesOrderContext struct {
	CompanyID string `json:"company_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Instance struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch workflow token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}

	return token.AccessToken, nil
}

// CreateSalesOrderInstance starts an approval workflow instance for the
// given sales order context.
func (c *Client) CreateSalesOrderInstance(ctx context.Context, wfCtx SalesOrderContext) (*Instance, error) {
	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"definitionId": c.definitionID,
		"context":      wfCtx,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create workflow instance: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("workflow API returned status %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode workflow response: %w", err)
	}

	return &Instance{ID: created.ID, Status: "created"}, nil
}
