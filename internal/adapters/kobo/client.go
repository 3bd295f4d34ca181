// Package kobo implements the KoboToolbox API client used to mirror form
// definitions and push submissions to the provider.
package kobo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/irakobi/wildlife-conservation-backend/internal/domain/form"
)

// Default client configuration constants.
const (
	defaultServerURL  = "https://kf.kobotoolbox.org"
	defaultTimeout    = 30 * time.Second
	defaultRetryCount = 2
	defaultRetryWait  = 200 * time.Millisecond
	defaultListLimit  = 100
	userAgent         = "wildlife-conservation-backend/1.0"
)

// Client talks to the Kobo v2 assets API. Safe for concurrent use.
type Client struct {
	http       *resty.Client
	serverURL  string
	token      string
	timeout    time.Duration
	retryCount int
}

// New creates a Kobo client with configuration options.
func New(opts ...Option) *Client {
	c := &Client{
		serverURL:  defaultServerURL,
		timeout:    defaultTimeout,
		retryCount: defaultRetryCount,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(c.serverURL).
		SetTimeout(c.timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetRetryCount(c.retryCount).
		SetRetryWaitTime(defaultRetryWait)
	if c.token != "" {
		c.http.SetHeader("Authorization", "Token "+c.token)
	}
	// Retry network failures and provider-side errors, never client errors.
	c.http.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r != nil && r.StatusCode() >= 500
	})

	return c
}

// assetList mirrors the provider's paginated asset listing.
type assetList struct {
	Count   int               `json:"count"`
	Results []form.Definition `json:"results"`
}

// SubmissionPage is one page of provider-stored submission payloads.
type SubmissionPage struct {
	Count   int              `json:"count"`
	Results []map[string]any `json:"results"`
}

// SubmitResult is the provider's acknowledgement of a pushed submission.
type SubmitResult struct {
	ID         int    `json:"id"`
	InstanceID string `json:"instanceID"`
	Message    string `json:"message"`
}

// Ping verifies connectivity and credentials with a minimal listing call.
func (c *Client) Ping(ctx context.Context) error {
	var out assetList
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"limit": "1", "asset_type": "survey"}).
		SetResult(&out).
		Get("/api/v2/assets/")
	if err != nil {
		return fmt.Errorf("kobo ping: %w", err)
	}
	return statusError(resp)
}

// ListForms returns raw survey form definitions from the provider.
func (c *Client) ListForms(ctx context.Context, limit, offset int) ([]form.Definition, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out assetList
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"limit":      fmt.Sprintf("%d", limit),
			"offset":     fmt.Sprintf("%d", offset),
			"asset_type": "survey",
		}).
		SetResult(&out).
		Get("/api/v2/assets/")
	if err != nil {
		return nil, fmt.Errorf("kobo list forms: %w", err)
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// GetForm returns one raw form definition by UID. Returns ErrNotFound when
// the provider has no such asset.
func (c *Client) GetForm(ctx context.Context, uid string) (*form.Definition, error) {
	var out form.Definition
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/v2/assets/" + uid + "/")
	if err != nil {
		return nil, fmt.Errorf("kobo get form %s: %w", uid, err)
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSubmissions returns provider-stored submissions for a form, newest
// first.
func (c *Client) GetSubmissions(ctx context.Context, uid string, limit, start int) (*SubmissionPage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var out SubmissionPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"limit":  fmt.Sprintf("%d", limit),
			"start":  fmt.Sprintf("%d", start),
			"sort":   "-_submission_time",
			"format": "json",
		}).
		SetResult(&out).
		Get("/api/v2/assets/" + uid + "/data/")
	if err != nil {
		return nil, fmt.Errorf("kobo get submissions %s: %w", uid, err)
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitData pushes one submission payload to a form. The instanceID ties
// the provider record back to the local submission; when the payload
// carries none, a fresh UUID is generated.
func (c *Client) SubmitData(ctx context.Context, uid string, data map[string]any) (*SubmitResult, error) {
	instanceID, _ := data["_uuid"].(string)
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	body := map[string]any{
		"submission":          data,
		"meta/instanceID":     "uuid:" + instanceID,
		"meta/submissionTime": time.Now().UTC().Format(time.RFC3339),
	}

	var out SubmitResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		Post("/api/v2/assets/" + uid + "/submissions/")
	if err != nil {
		return nil, fmt.Errorf("kobo submit to %s: %w", uid, err)
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSubmission replaces an existing provider submission.
func (c *Client) UpdateSubmission(ctx context.Context, uid, submissionID string, data map[string]any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(data).
		Put("/api/v2/assets/" + uid + "/submissions/" + submissionID + "/")
	if err != nil {
		return fmt.Errorf("kobo update submission %s: %w", submissionID, err)
	}
	return statusError(resp)
}

// DeleteSubmission removes a provider submission.
func (c *Client) DeleteSubmission(ctx context.Context, uid, submissionID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/api/v2/assets/" + uid + "/submissions/" + submissionID + "/")
	if err != nil {
		return fmt.Errorf("kobo delete submission %s: %w", submissionID, err)
	}
	return statusError(resp)
}
