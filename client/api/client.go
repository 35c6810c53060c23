// Package api is a typed HTTP client for the submission CRUD API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"textsubmission/app/apperr"
	"textsubmission/app/models"
)

// SubmissionsPath is the collection path served by the API.
const SubmissionsPath = "/api/TextSubmission"

// maxResponseBytes bounds every decoded response body.
const maxResponseBytes = 10 << 20

// Client talks to the submission API. Every failure is an *apperr.Error:
// 400 maps to Validation, 404 to NotFound, and everything else, including
// transport failures, to Internal.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns every submission, newest first.
func (c *Client) List(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := c.do(ctx, http.MethodGet, SubmissionsPath, nil, http.StatusOK, &submissions); err != nil {
		return nil, err
	}
	if submissions == nil {
		submissions = []models.Submission{}
	}
	return submissions, nil
}

// Get returns the submission with id.
func (c *Client) Get(ctx context.Context, id int) (models.Submission, error) {
	var submission models.Submission
	err := c.do(ctx, http.MethodGet, itemPath(id), nil, http.StatusOK, &submission)
	return submission, err
}

// Create stores text and returns the created submission.
func (c *Client) Create(ctx context.Context, text string) (models.Submission, error) {
	var submission models.Submission
	err := c.do(ctx, http.MethodPost, SubmissionsPath, textBody{Text: text}, http.StatusCreated, &submission)
	return submission, err
}

// Update replaces the text of submission id and returns the stored row.
func (c *Client) Update(ctx context.Context, id int, text string) (models.Submission, error) {
	var submission models.Submission
	err := c.do(ctx, http.MethodPut, itemPath(id), textBody{Text: text}, http.StatusOK, &submission)
	return submission, err
}

// Delete removes submission id.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), nil, http.StatusNoContent, nil)
}

type textBody struct {
	Text string `json:"text"`
}

type errorBody struct {
	Error string `json:"error"`
}

func itemPath(id int) string {
	return SubmissionsPath + "/" + strconv.Itoa(id)
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return apperr.Internal(fmt.Errorf("encoding request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperr.Internal(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Internal(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return statusError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return apperr.Internal(fmt.Errorf("decoding %s %s response: %w", method, path, err))
	}
	return nil
}

// statusError maps an unexpected response to an error kind. The server's
// message is kept only as the cause.
func statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	detail := strings.TrimSpace(string(raw))
	var parsed errorBody
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		detail = parsed.Error
	}
	cause := fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, detail)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return apperr.Wrap(apperr.KindValidation, detail, cause)
	case http.StatusNotFound:
		return apperr.Wrap(apperr.KindNotFound, detail, cause)
	default:
		return apperr.Internal(cause)
	}
}
