package studiohubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Studio Hub HTTP API client.
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
		Timeout: 10 * time.Second,
	}
}

// Project represents the API project model.
type Project struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Stage       string   `json:"stage"`
	Priority    string   `json:"priority"`
	Platform    string   `json:"platform,omitempty"`
	Progress    int      `json:"progress"`
	DueDate     *string  `json:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Created     string   `json:"created"`
	LastUpdated string   `json:"last_updated"`
	Attachments int      `json:"attachments"`
	Archived    bool     `json:"archived,omitempty"`
}

// File represents an uploaded attachment.
type File struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Type       string `json:"type,omitempty"`
	ProjectID  string `json:"project_id"`
	URL        string `json:"url,omitempty"`
	UploadedAt string `json:"uploaded_at"`
}

// Notification represents a pipeline event record.
type Notification struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
	Pinned    bool   `json:"pinned"`
}

// Column is one kanban board bucket.
type Column struct {
	Stage    string    `json:"stage"`
	Projects []Project `json:"projects"`
}

// Stats are the summary metrics.
type Stats struct {
	TotalProjects          int     `json:"total_projects"`
	InProgress             int     `json:"in_progress"`
	CompletedThisWeek      int     `json:"completed_this_week"`
	Overdue                int     `json:"overdue"`
	AverageCompletionHours float64 `json:"average_completion_hours"`
	ProductivityScore      float64 `json:"productivity_score"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a project in planning at zero progress.
func (c *Client) CreateProject(ctx context.Context, title, projectType string, extra map[string]any) (Project, error) {
	body := map[string]any{
		"title": title,
		"type":  projectType,
	}
	for k, v := range extra {
		body[k] = v
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp, err
}

// ListProjects returns active projects. Filters are optional exact matches
// keyed by stage, type, priority or platform.
func (c *Client) ListProjects(ctx context.Context, filters map[string]string) ([]Project, error) {
	endpoint := "v0/projects"
	if len(filters) > 0 {
		q := url.Values{}
		for k, v := range filters {
			q.Set(k, v)
		}
		endpoint += "?" + q.Encode()
	}
	var resp []Project
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetProject fetches a project by id.
func (c *Client) GetProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "v0/projects/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// EditProject patches project fields.
func (c *Client) EditProject(ctx context.Context, id string, fields map[string]any) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPatch, "v0/projects/"+url.PathEscape(id), fields, &resp)
	return resp, err
}

// SetStage moves a project to the given stage.
func (c *Client) SetStage(ctx context.Context, id, stage string) (Project, error) {
	var resp Project
	endpoint := fmt.Sprintf("v0/projects/%s/stage", url.PathEscape(id))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"stage": stage}, &resp)
	return resp, err
}

// SetProgress sets the progress slider; the server clamps to [0,100].
func (c *Client) SetProgress(ctx context.Context, id string, progress int) (Project, error) {
	var resp Project
	endpoint := fmt.Sprintf("v0/projects/%s/progress", url.PathEscape(id))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"progress": progress}, &resp)
	return resp, err
}

// DuplicateProject clones a project back into planning.
func (c *Client) DuplicateProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	endpoint := fmt.Sprintf("v0/projects/%s/duplicate", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// ArchiveProject archives a project.
func (c *Client) ArchiveProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	endpoint := fmt.Sprintf("v0/projects/%s/archive", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Board returns the kanban projection.
func (c *Client) Board(ctx context.Context) ([]Column, error) {
	var resp []Column
	err := c.do(ctx, http.MethodGet, "v0/board", nil, &resp)
	return resp, err
}

// Timeline returns projects in ascending due-date order.
func (c *Client) Timeline(ctx context.Context) ([]Project, error) {
	var resp []Project
	err := c.do(ctx, http.MethodGet, "v0/timeline", nil, &resp)
	return resp, err
}

// Stats returns the summary metrics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var resp Stats
	err := c.do(ctx, http.MethodGet, "v0/stats", nil, &resp)
	return resp, err
}

// Notifications returns notification records, newest first.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var resp struct {
		Items []Notification `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v0/notifications", nil, &resp)
	return resp.Items, err
}

// MarkAllRead marks every notification read and returns the count.
func (c *Client) MarkAllRead(ctx context.Context) (int, error) {
	var resp struct {
		Marked int `json:"marked"`
	}
	err := c.do(ctx, http.MethodPost, "v0/notifications/read", nil, &resp)
	return resp.Marked, err
}

// ListFiles returns a project's attachments.
func (c *Client) ListFiles(ctx context.Context, projectID string) ([]File, error) {
	var resp []File
	endpoint := fmt.Sprintf("v0/projects/%s/files", url.PathEscape(projectID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// UploadFile streams a file into a project as a multipart upload.
func (c *Client) UploadFile(ctx context.Context, projectID, name string, r io.Reader) (File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return File{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return File{}, err
	}
	if err := mw.Close(); err != nil {
		return File{}, err
	}
	endpoint := fmt.Sprintf("%s/v0/projects/%s/files", c.base(), url.PathEscape(projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return File{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return File{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return File{}, &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	var out File
	return out, json.NewDecoder(resp.Body).Decode(&out)
}

// RenameFile changes a file's display name.
func (c *Client) RenameFile(ctx context.Context, fileID, name string) (File, error) {
	var resp File
	endpoint := fmt.Sprintf("v0/files/%s/name", url.PathEscape(fileID))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"name": name}, &resp)
	return resp, err
}

// DeleteFile removes a file from storage and the index.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	endpoint := fmt.Sprintf("v0/files/%s", url.PathEscape(fileID))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) client() *http.Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c.HTTPClient
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
