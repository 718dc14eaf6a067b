// Package platform wraps the Meta Graph API surface this engine consumes:
// campaign/ad-set listing and ad-set mutations (daily budget, pause).
// All calls are idempotent from the caller's perspective; the engine itself
// never retries them.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AccountAuth carries the per-organization credentials resolved from the
// connection record before a pass starts.
type AccountAuth struct {
	AccountID   string
	AccessToken string
}

// Entity is a campaign or ad-set as listed by the Graph API.
type Entity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	CampaignID string `json:"campaign_id,omitempty"`
}

// Client is the engine-facing contract. Errors returned by mutations carry
// the platform's message verbatim for operator diagnosis.
type Client interface {
	ListCampaigns(ctx context.Context, auth AccountAuth) ([]Entity, error)
	// ListAdsets lists ad-sets for the account, optionally filtered to one campaign.
	ListAdsets(ctx context.Context, auth AccountAuth, campaignID string) ([]Entity, error)
	SetDailyBudget(ctx context.Context, auth AccountAuth, adsetID string, minorUnits int64) error
	Pause(ctx context.Context, auth AccountAuth, adsetID string) error
}

// APIError is a rejection from the Graph API. Error() is exactly the
// platform's message so it can be persisted verbatim on failed actions.
type APIError struct {
	Message string
	Code    int
}

func (e *APIError) Error() string { return e.Message }

// GraphClient talks to the Meta Graph API.
type GraphClient struct {
	baseURL   string
	pageLimit int
	http      *http.Client
}

func NewGraphClient(baseURL string, pageLimit int) *GraphClient {
	return &GraphClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		pageLimit: pageLimit,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type graphErr struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type listResponse struct {
	Data  []Entity  `json:"data"`
	Error *graphErr `json:"error"`
}

func (c *GraphClient) ListCampaigns(ctx context.Context, auth AccountAuth) ([]Entity, error) {
	params := url.Values{
		"fields": {"id,name,status"},
		"limit":  {strconv.Itoa(c.pageLimit)},
	}
	return c.list(ctx, auth, "/"+auth.AccountID+"/campaigns", params)
}

func (c *GraphClient) ListAdsets(ctx context.Context, auth AccountAuth, campaignID string) ([]Entity, error) {
	params := url.Values{
		"fields": {"id,name,status,campaign_id"},
		"limit":  {strconv.Itoa(c.pageLimit)},
	}
	if campaignID != "" {
		filter, _ := json.Marshal([]map[string]string{
			{"field": "campaign.id", "operator": "EQUAL", "value": campaignID},
		})
		params.Set("filtering", string(filter))
	}
	return c.list(ctx, auth, "/"+auth.AccountID+"/adsets", params)
}

func (c *GraphClient) list(ctx context.Context, auth AccountAuth, path string, params url.Values) ([]Entity, error) {
	params.Set("access_token", auth.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph GET %s: %w", path, err)
	}
	defer res.Body.Close()

	var body listResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode graph response: %w", err)
	}
	if res.StatusCode != http.StatusOK || body.Data == nil {
		return nil, graphError(body.Error, res.StatusCode)
	}
	return body.Data, nil
}

// SetDailyBudget updates the ad-set daily budget. The platform floor of 100
// minor units is enforced here so a deep reduction can never zero a budget.
func (c *GraphClient) SetDailyBudget(ctx context.Context, auth AccountAuth, adsetID string, minorUnits int64) error {
	if minorUnits < MinDailyBudgetMinor {
		minorUnits = MinDailyBudgetMinor
	}
	return c.post(ctx, auth, adsetID, url.Values{
		"daily_budget": {strconv.FormatInt(minorUnits, 10)},
	})
}

func (c *GraphClient) Pause(ctx context.Context, auth AccountAuth, adsetID string) error {
	return c.post(ctx, auth, adsetID, url.Values{"status": {"PAUSED"}})
}

// MinDailyBudgetMinor is the smallest daily budget the platform accepts.
const MinDailyBudgetMinor = 100

func (c *GraphClient) post(ctx context.Context, auth AccountAuth, adsetID string, form url.Values) error {
	form.Set("access_token", auth.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+adsetID, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build mutation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph POST /%s: %w", adsetID, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		io.Copy(io.Discard, res.Body)
		return nil
	}

	var body listResponse
	_ = json.NewDecoder(res.Body).Decode(&body)
	return graphError(body.Error, res.StatusCode)
}

func graphError(e *graphErr, status int) error {
	if e != nil && e.Message != "" {
		return &APIError{Message: e.Message, Code: e.Code}
	}
	return &APIError{Message: fmt.Sprintf("graph API request failed with status %d", status), Code: status}
}
