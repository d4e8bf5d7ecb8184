// Package api is the typed client for the retrieval server's HTTP surface.
// Every method issues exactly one request; callers own retry policy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wzt1001/lightrag-on-aws/internal/ctxlog"
)

// Client talks to one retrieval server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. A zero timeout
// falls back to 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// ListContexts fetches every context known to the server.
func (c *Client) ListContexts(ctx context.Context) ([]Context, error) {
	var contexts []Context
	if err := c.doJSON(ctx, http.MethodGet, "/contexts", nil, nil, &contexts); err != nil {
		return nil, err
	}
	return contexts, nil
}

// CreateContext creates a new named context and returns the server's record
// of it, including the assigned id.
func (c *Client) CreateContext(ctx context.Context, name, description string) (Context, error) {
	body := map[string]string{"name": name, "description": description}
	var created Context
	if err := c.doJSON(ctx, http.MethodPost, "/contexts", nil, body, &created); err != nil {
		return Context{}, err
	}
	return created, nil
}

// DeleteContext removes a context and everything ingested into it.
func (c *Client) DeleteContext(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/contexts/"+url.PathEscape(id), nil, nil, nil)
}

// ClearContext deletes all ingested content for a context but keeps the
// context itself.
func (c *Client) ClearContext(ctx context.Context, id string) (string, error) {
	var out messageBody
	if err := c.doJSON(ctx, http.MethodDelete, "/contexts/"+url.PathEscape(id)+"/clear", nil, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// InsertText ingests a single text payload into a context.
func (c *Client) InsertText(ctx context.Context, contextID, text string) (string, error) {
	var out messageBody
	q := url.Values{"context_id": {contextID}}
	if err := c.doJSON(ctx, http.MethodPost, "/insert", q, map[string]string{"text": text}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// InsertFile ingests one file into a context as a multipart upload.
func (c *Client) InsertFile(ctx context.Context, contextID, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	q := url.Values{"context_id": {contextID}}
	req, err := c.newRequest(ctx, http.MethodPost, "/insert_file", q, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out messageBody
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// GetPromptVariables fetches the typed prompt variables of a context.
func (c *Client) GetPromptVariables(ctx context.Context, contextID string) ([]PromptVariable, error) {
	var out variablesBody
	q := url.Values{"context_id": {contextID}}
	if err := c.doJSON(ctx, http.MethodGet, "/get_prompt_variables", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Variables, nil
}

// UpdatePrompt submits a new value for one prompt variable. value must be a
// string for VariableTypeString and a []string for VariableTypeList.
func (c *Client) UpdatePrompt(ctx context.Context, contextID, variable, varType string, value any) (string, error) {
	body := map[string]any{"variable": variable, "value": value, "type": varType}
	var out messageBody
	q := url.Values{"context_id": {contextID}}
	if err := c.doJSON(ctx, http.MethodPost, "/update_prompt", q, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Query runs one query across all four retrieval modes in a single round
// trip. A non-"success" status in the envelope is returned as an *Error so
// no partial result ever escapes.
func (c *Client) Query(ctx context.Context, contextID, query string) (QueryResult, error) {
	var env queryEnvelope
	q := url.Values{"context_id": {contextID}}
	if err := c.doJSON(ctx, http.MethodPost, "/query", q, map[string]string{"query": query}, &env); err != nil {
		return QueryResult{}, err
	}
	if env.Status != "success" {
		return QueryResult{}, &Error{StatusCode: http.StatusOK, Detail: env.Message}
	}
	return env.Data, nil
}

// Visualize fetches the rendered graph document for a context. The response
// is an opaque binary payload, not JSON.
func (c *Client) Visualize(ctx context.Context, contextID string, regenerate bool) ([]byte, error) {
	q := url.Values{
		"context_id": {contextID},
		"regenerate": {strconv.FormatBool(regenerate)},
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/visualize", q, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.errorFromResponse(resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Graph document received.", "bytes", len(payload))
	return payload, nil
}

// ListGeneratedFiles lists the server's internal store files for a context.
func (c *Client) ListGeneratedFiles(ctx context.Context, contextID string) ([]string, error) {
	var out filesBody
	if err := c.doJSON(ctx, http.MethodGet, "/generated_files/"+url.PathEscape(contextID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// GetGeneratedFile fetches the raw JSON text of one internal store file.
func (c *Client) GetGeneratedFile(ctx context.Context, contextID, filename string) (string, error) {
	path := "/generated_files/" + url.PathEscape(contextID) + "/" + url.PathEscape(filename)
	var out contentBody
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// newRequest builds a request against the server with the common pieces
// (base URL, query string, context) applied.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

// doJSON issues a request with an optional JSON body and decodes a JSON
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	ctxlog.FromContext(ctx).Debug("Calling retrieval server.", "method", method, "path", path)
	return c.do(req, out)
}

// do executes a prepared request and maps non-2xx responses to *Error.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// errorFromResponse drains an error response into an *Error, picking up the
// server's detail field when it sent one.
func (c *Client) errorFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var body errorBody
	_ = json.Unmarshal(raw, &body)
	return &Error{StatusCode: resp.StatusCode, Detail: body.text()}
}
