package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/vkuzmin-dev/polyglot/internal/logger"
)

// baseClient is the HTTP plumbing shared by all provider backends:
// header injection, request logging with large-field truncation, and
// error normalization so failures classify consistently downstream.
type baseClient struct {
	name    string
	baseURL string
	headers map[string]string
	client  *http.Client
	logger  logger.Logger
}

func newBaseClient(name, baseURL string, headers map[string]string, client *http.Client, log logger.Logger) baseClient {
	return baseClient{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: headers,
		client:  client,
		logger:  log.WithField("provider", name),
	}
}

func (c *baseClient) url(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

func (c *baseClient) logRequest(method, url string, body []byte) {
	var bodyData any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &bodyData); err == nil {
			if m, ok := bodyData.(map[string]any); ok {
				truncateLargeFields(m)
			}
		}
	}

	c.logger.WithFields(logger.Fields{
		"method": method,
		"url":    url,
		"body":   bodyData,
	}).Debug("HTTP request")
}

// truncateLargeFields keeps base64 payloads and long prompts out of the
// debug log.
func truncateLargeFields(data map[string]any) {
	for k, v := range data {
		switch val := v.(type) {
		case string:
			if len(val) > 1000 {
				data[k] = val[:1000] + "...[truncated]"
			}
		case map[string]any:
			truncateLargeFields(val)
		case []any:
			for _, item := range val {
				if m, ok := item.(map[string]any); ok {
					truncateLargeFields(m)
				}
			}
		}
	}
}

func (c *baseClient) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &ProviderError{Provider: c.name, Message: "marshal request: " + err.Error(), Err: err}
	}

	fullURL := c.url(path)
	c.logRequest(http.MethodPost, fullURL, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return &ProviderError{Provider: c.name, Message: "create request: " + err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return c.send(req, out)
}

// postMultipart uploads binary payloads (audio for transcription).
// Fields are plain form values, file is attached under fileField.
func (c *baseClient) postMultipart(ctx context.Context, path string, fields map[string]string, fileField, fileName string, file []byte, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return &ProviderError{Provider: c.name, Message: "build form: " + err.Error(), Err: err}
		}
	}
	fw, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return &ProviderError{Provider: c.name, Message: "build form: " + err.Error(), Err: err}
	}
	if _, err := fw.Write(file); err != nil {
		return &ProviderError{Provider: c.name, Message: "build form: " + err.Error(), Err: err}
	}
	if err := w.Close(); err != nil {
		return &ProviderError{Provider: c.name, Message: "build form: " + err.Error(), Err: err}
	}

	fullURL := c.url(path)
	c.logger.WithFields(logger.Fields{
		"method": http.MethodPost,
		"url":    fullURL,
		"bytes":  len(file),
	}).Debug("HTTP multipart request")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, &buf)
	if err != nil {
		return &ProviderError{Provider: c.name, Message: "create request: " + err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return c.send(req, out)
}

func (c *baseClient) send(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ProviderError{Provider: c.name, Message: "request timeout: " + err.Error(), Err: err}
		}
		return &ProviderError{Provider: c.name, Message: "connection failed: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Provider: c.name, Message: "read response: " + err.Error(), Err: err}
	}

	c.logger.WithFields(logger.Fields{
		"status": resp.StatusCode,
		"bytes":  len(body),
	}).Debug("HTTP response")

	if resp.StatusCode >= 400 {
		return c.apiError(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &ProviderError{Provider: c.name, Message: "decode response: " + err.Error(), Err: err}
		}
	}
	return nil
}

// apiError extracts the upstream message and normalizes the cases the
// classifier keys on. All three backends nest it under error.message.
func (c *baseClient) apiError(status int, body []byte) *ProviderError {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	switch status {
	case http.StatusTooManyRequests:
		message = "rate limit exceeded: " + message
	case http.StatusPaymentRequired:
		message = "quota exhausted: " + message
	case http.StatusGatewayTimeout:
		message = "gateway timeout: " + message
	}

	return &ProviderError{
		Provider:   c.name,
		StatusCode: status,
		Message:    message,
	}
}

// ErrUnsupported marks a capability method the backend does not
// implement. Config never binds such pairs, so the registry cannot
// route to them.
var ErrUnsupported = errors.New("capability not supported by provider")
