package dialer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"DialGovernor/internal/model"
)

// HTTPDialer implements Dialer against the executor's REST API.
type HTTPDialer struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPDialer creates a dialer client with optional proxy support.
func NewHTTPDialer(baseURL, apiKey, proxyURL string) *HTTPDialer {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPDialer{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (d *HTTPDialer) Name() string { return "http" }

type startRunRequest struct {
	RunID        string `json:"run_id"`
	AccountID    string `json:"account_id"`
	Mode         string `json:"mode"`
	BudgetLimit  int64  `json:"budget_limit"`
	LeadTarget   int    `json:"lead_target"`
	LiveTransfer bool   `json:"live_transfer"`
}

func (d *HTTPDialer) StartRun(ctx context.Context, run *model.Run) error {
	payload := startRunRequest{
		RunID:        run.ID,
		AccountID:    run.AccountID,
		Mode:         string(run.Mode),
		BudgetLimit:  run.BudgetLimit,
		LeadTarget:   run.LeadTarget,
		LiveTransfer: run.LiveTransfer,
	}
	return d.post(ctx, "/api/v1/runs", payload)
}

func (d *HTTPDialer) StopRun(ctx context.Context, accountID, runID string) error {
	return d.post(ctx, fmt.Sprintf("/api/v1/runs/%s/stop", runID), map[string]string{
		"account_id": accountID,
	})
}

func (d *HTTPDialer) ExtendRun(ctx context.Context, accountID, runID string, extraLeads int) error {
	return d.post(ctx, fmt.Sprintf("/api/v1/runs/%s/extend", runID), map[string]any{
		"account_id":  accountID,
		"extra_leads": extraLeads,
	})
}

func (d *HTTPDialer) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", d.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.APIKey)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("post %s: status %d, body: %s", path, resp.StatusCode, string(respBody))
	}
	return nil
}
