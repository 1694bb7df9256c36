// Package courselinesdk is the Studio HTTP API client. It implements
// the engine's Gateway interface, so an Engine wired with a Client
// talks to a real backend.
package courselinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"courseline/internal/engine"
	"courseline/internal/outline"
)

// Client is a minimal Studio HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// APIError wraps non-2xx responses. It carries the Content-Type header
// so callers can tell a JSON error payload from an HTML error page.
type APIError struct {
	StatusCode  int
	Body        string
	ContentType string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// ResponseBody returns the raw response body.
func (e *APIError) ResponseBody() string { return e.Body }

// ResponseContentType returns the Content-Type header of the response.
func (e *APIError) ResponseContentType() string { return e.ContentType }

// OutlineIndex fetches the full outline document of a course.
func (c *Client) OutlineIndex(ctx context.Context, courseID string) (outline.OutlineDocument, error) {
	var resp outline.OutlineDocument
	err := c.do(ctx, http.MethodGet, c.coursePath(courseID, "outline"), nil, &resp)
	return resp, err
}

// Item fetches one outline item with its subtree.
func (c *Client) Item(ctx context.Context, locator string) (outline.Item, error) {
	var resp outline.Item
	err := c.do(ctx, http.MethodGet, c.itemPath(locator, ""), nil, &resp)
	return resp, err
}

// CreateItem creates an item under a parent and returns its locator.
func (c *Client) CreateItem(ctx context.Context, req engine.CreateItemRequest) (string, error) {
	body := map[string]any{
		"parent_locator": req.ParentLocator,
		"category":       req.Category,
		"display_name":   req.DisplayName,
	}
	var resp struct {
		Locator string `json:"locator"`
	}
	err := c.do(ctx, http.MethodPost, "v0/items", body, &resp)
	return resp.Locator, err
}

// DeleteItem deletes an item and its subtree.
func (c *Client) DeleteItem(ctx context.Context, locator string) error {
	return c.do(ctx, http.MethodDelete, c.itemPath(locator, ""), nil, nil)
}

// DuplicateItem copies an item under parentLocator and returns the new
// locator.
func (c *Client) DuplicateItem(ctx context.Context, locator, parentLocator string) (string, error) {
	body := map[string]any{"parent_locator": parentLocator}
	var resp struct {
		Locator string `json:"locator"`
	}
	err := c.do(ctx, http.MethodPost, c.itemPath(locator, "duplicate"), body, &resp)
	return resp.Locator, err
}

// PublishItem publishes an item and its subtree.
func (c *Client) PublishItem(ctx context.Context, locator string) error {
	return c.do(ctx, http.MethodPost, c.itemPath(locator, "publish"), nil, nil)
}

// ConfigureItem patches item settings.
func (c *Client) ConfigureItem(ctx context.Context, locator string, metadata map[string]any) error {
	return c.do(ctx, http.MethodPatch, c.itemPath(locator, ""), map[string]any{"metadata": metadata}, nil)
}

// EditDisplayName renames an item.
func (c *Client) EditDisplayName(ctx context.Context, locator, displayName string) error {
	return c.do(ctx, http.MethodPatch, c.itemPath(locator, ""), map[string]any{"display_name": displayName}, nil)
}

// SetOrder replaces the child order of a container. parentLocator is
// the course id for sections, a section for subsections, a subsection
// for units.
func (c *Client) SetOrder(ctx context.Context, parentLocator string, orderedIDs []string) error {
	body := map[string]any{"ordered_ids": orderedIDs}
	return c.do(ctx, http.MethodPut, c.itemPath(parentLocator, "order"), body, nil)
}

// PasteItem pastes the staged clipboard content under parentLocator.
func (c *Client) PasteItem(ctx context.Context, parentLocator string) (engine.PasteResult, error) {
	body := map[string]any{"parent_locator": parentLocator}
	var resp struct {
		Locator string              `json:"locator"`
		Notices outline.FileNotices `json:"staticFileNotices"`
	}
	err := c.do(ctx, http.MethodPost, "v0/clipboard/paste", body, &resp)
	return engine.PasteResult{Locator: resp.Locator, Notices: resp.Notices}, err
}

// CopyToClipboard stages an item on the server clipboard.
func (c *Client) CopyToClipboard(ctx context.Context, locator string) (outline.ClipboardContent, error) {
	body := map[string]any{"usage_key": locator}
	var resp outline.ClipboardContent
	err := c.do(ctx, http.MethodPost, "v0/clipboard", body, &resp)
	return resp, err
}

// UpdateHighlights replaces the highlight list of an item.
func (c *Client) UpdateHighlights(ctx context.Context, locator string, highlights []string) error {
	body := map[string]any{"highlights": highlights}
	return c.do(ctx, http.MethodPut, c.itemPath(locator, "highlights"), body, nil)
}

// EnableHighlightsEmails turns on weekly highlight emails.
func (c *Client) EnableHighlightsEmails(ctx context.Context, courseID string) error {
	return c.do(ctx, http.MethodPost, c.coursePath(courseID, "highlights-emails"), nil, nil)
}

// Reindex rebuilds the course search index.
func (c *Client) Reindex(ctx context.Context, courseID string) error {
	return c.do(ctx, http.MethodPost, c.coursePath(courseID, "reindex"), nil, nil)
}

// CourseLaunch fetches the pre-launch readiness report.
func (c *Client) CourseLaunch(ctx context.Context, courseID string) (engine.LaunchReport, error) {
	var resp struct {
		Checks []struct {
			Name   string `json:"name"`
			Passed bool   `json:"passed"`
		} `json:"checks"`
		SelfPaced bool `json:"selfPaced"`
	}
	err := c.do(ctx, http.MethodGet, c.coursePath(courseID, "launch"), nil, &resp)
	if err != nil {
		return engine.LaunchReport{}, err
	}
	report := engine.LaunchReport{SelfPaced: resp.SelfPaced}
	for _, chk := range resp.Checks {
		report.Checks = append(report.Checks, engine.LaunchCheck{Name: chk.Name, Passed: chk.Passed})
	}
	return report, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	reqURL := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode:  resp.StatusCode,
			Body:        string(b),
			ContentType: resp.Header.Get("Content-Type"),
		}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) coursePath(courseID, p string) string {
	return fmt.Sprintf("v0/courses/%s/%s", url.PathEscape(courseID), strings.TrimLeft(p, "/"))
}

func (c *Client) itemPath(locator, p string) string {
	endpoint := fmt.Sprintf("v0/items/%s", url.PathEscape(locator))
	if p != "" {
		endpoint += "/" + strings.TrimLeft(p, "/")
	}
	return endpoint
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
