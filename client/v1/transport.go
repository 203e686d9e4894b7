package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// APIError is a non-2xx reply. Field is set for validation failures.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Field      string `json:"field"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %s failed with status code %d: %s: %s", e.Method, e.Path, e.StatusCode, e.Field, e.Message)
	}
	return fmt.Sprintf("%s %s failed with status code %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Transport handles low-level HTTP and authentication
type Transport struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
}

func NewTransport(baseURL, token string) *Transport {
	return &Transport{
		BaseURL:    baseURL,
		AuthToken:  token,
		HTTPClient: &http.Client{},
	}
}

// resourcePath fills the %s verbs of format with path-escaped ids.
func resourcePath(format string, ids ...string) string {
	escaped := make([]any, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, escaped...)
}

func (t *Transport) buildURL(path string, query map[string]string) string {
	u, _ := url.Parse(t.BaseURL + path)
	q := u.Query()
	for k, v := range query {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Do sends data as JSON (when non-nil) and decodes the reply into out.
func (t *Transport) Do(ctx context.Context, method, path string, data any, query map[string]string, out any) error {
	var body io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.buildURL(path, query), body)
	if err != nil {
		return err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.AuthToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t.AuthToken))
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	resdata, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
		if json.Unmarshal(resdata, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(resdata)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(resdata, out)
}

func (t *Transport) Get(ctx context.Context, path string, query map[string]string, out any) error {
	return t.Do(ctx, http.MethodGet, path, nil, query, out)
}

func (t *Transport) Post(ctx context.Context, path string, data any, out any) error {
	return t.Do(ctx, http.MethodPost, path, data, nil, out)
}

func (t *Transport) Put(ctx context.Context, path string, data any, out any) error {
	return t.Do(ctx, http.MethodPut, path, data, nil, out)
}
