package smoketest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/irakobi/wildlife-conservation-backend/internal/domain/form"
)

// client wraps the backend's HTTP API for the smoke test.
type client struct {
	http *resty.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// health verifies the service is up. Any 200 counts as healthy.
func (c *client) health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode())
	}
	return nil
}

// getSchema fetches the normalized schema for a form.
func (c *client) getSchema(ctx context.Context, uid string) (*form.Schema, error) {
	var schema form.Schema
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&schema).
		Get("/api/v1/forms/" + uid)
	if err != nil {
		return nil, fmt.Errorf("get form %s: %w", uid, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get form %s returned %d: %s", uid, resp.StatusCode(), resp.String())
	}
	return &schema, nil
}

// postResult classifies one submission attempt.
type postResult int

const (
	postCreated postResult = iota
	postDuplicate
	postRejected
	postFailed
)

// postSubmission sends one payload and classifies the response.
func (c *client) postSubmission(ctx context.Context, formUID string, data map[string]any) (postResult, error) {
	body := map[string]any{
		"form_uid": formUID,
		"data":     data,
		"source":   "smoke-test",
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/api/v1/submissions")
	if err != nil {
		return postFailed, fmt.Errorf("post submission: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusCreated:
		return postCreated, nil
	case http.StatusConflict:
		return postDuplicate, nil
	case http.StatusUnprocessableEntity:
		return postRejected, fmt.Errorf("submission rejected: %s", resp.String())
	default:
		return postFailed, fmt.Errorf("post submission returned %d: %s", resp.StatusCode(), resp.String())
	}
}

// countSubmissions returns how many submissions the backend stores for a form.
func (c *client) countSubmissions(ctx context.Context, formUID string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("form_uid", formUID).
		SetResult(&out).
		Get("/api/v1/submissions")
	if err != nil {
		return 0, fmt.Errorf("list submissions: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("list submissions returned %d", resp.StatusCode())
	}
	return out.Count, nil
}

// triggerSync asks the backend to re-queue pending submissions.
func (c *client) triggerSync(ctx context.Context) (int, error) {
	var out struct {
		Queued int `json:"queued"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Post("/api/v1/submissions/sync")
	if err != nil {
		return 0, fmt.Errorf("trigger sync: %w", err)
	}
	if resp.StatusCode() != http.StatusAccepted {
		return 0, fmt.Errorf("trigger sync returned %d", resp.StatusCode())
	}
	return out.Queued, nil
}
