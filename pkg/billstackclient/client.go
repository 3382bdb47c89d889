/**
 * @description
 * This package provides a client for the Billstack payment gateway API. It
 * encapsulates the logic for making authenticated HTTP requests to Billstack,
 * currently just virtual account (NUBAN) generation for the allocation pool.
 *
 * Key features:
 * - Manages the API base URL and secret key.
 * - Bounded request timeout so pool replenishment never hangs a caller.
 * - Handles JSON serialization/deserialization and error handling for API calls.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 * - The service's internal domain package for the NUBAN model.
 */
package billstackclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ibuchukwu/bine-web/internal/domain"
)

// requestTimeout bounds each gateway call.
const requestTimeout = 10 * time.Second

// Client is a client for the Billstack API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a new Billstack API client.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// GenerateVirtualAccountRequest is the payload for minting one virtual NUBAN.
type GenerateVirtualAccountRequest struct {
	Email     string `json:"email"`
	Reference string `json:"reference"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Bank      string `json:"bank"`
}

type generateVirtualAccountResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
		Account   []struct {
			AccountNumber string `json:"account_number"`
			AccountName   string `json:"account_name"`
			BankName      string `json:"bank_name"`
		} `json:"account"`
	} `json:"data"`
}

// GenerateVirtualAccount mints a single virtual NUBAN on Billstack.
func (c *Client) GenerateVirtualAccount(ctx context.Context, req GenerateVirtualAccountRequest) (*domain.NUBAN, error) {
	url := fmt.Sprintf("%s/v2/thirdparty/generateVirtualAccount/", c.baseURL)
	var resp generateVirtualAccountResponse

	if err := c.do(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Status || len(resp.Data.Account) == 0 {
		return nil, fmt.Errorf("billstack returned no account: %s", resp.Message)
	}

	acct := resp.Data.Account[0]
	return &domain.NUBAN{
		AccountNumber: acct.AccountNumber,
		AccountName:   acct.AccountName,
		BankName:      acct.BankName,
	}, nil
}

// do is a helper function to make HTTP requests to the Billstack API.
func (c *Client) do(ctx context.Context, method, url string, body, target interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}

	// Set required headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	slog.Debug("billstack API request", "method", method, "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("billstack API non-success status", "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("billstack API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to unmarshal response body: %w", err)
		}
	}

	return nil
}
